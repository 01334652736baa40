package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/runtime"
	grpcserver "github.com/rzbill/catalog/internal/server/grpc"
	httpserver "github.com/rzbill/catalog/internal/server/http"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// processLogger builds the process-wide logger from cfg, falling back to an
// info level text logger when cfg is invalid.
func processLogger(cfg logpkg.Config) logpkg.Logger {
	l, err := logpkg.ApplyConfig(&cfg)
	if err == nil {
		return l
	}
	lvl := logpkg.InfoLevel
	if parsed, e := logpkg.ParseLevel(cfg.Level); e == nil {
		lvl = parsed
	}
	return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
}

// Run opens the runtime, starts the gRPC and HTTP servers and blocks until
// ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.GRPCAddr == "" {
		opts.GRPCAddr = opts.Config.GRPCAddr
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}

	logger := opts.Logger
	if logger == nil {
		logger = processLogger(opts.Config.Log)
		// Pebble logs through the standard library logger.
		logpkg.RedirectStdLog(logger)
	}

	rt, err := runtime.Open(sctx, runtime.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("Starting catalog server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("storage", opts.Config.Storage),
		logpkg.Str("base", opts.Config.BaseAddress),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
	)

	gsrv := grpcserver.New(rt, logger)
	hsrv, err := httpserver.New(rt, logger)
	if err != nil {
		return err
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, opts.GRPCAddr); err != nil && sctx.Err() == nil {
			logger.Error("grpc server", logpkg.Err(err))
			errs <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			logger.Error("http server", logpkg.Err(err))
			errs <- err
		}
	}()

	var runErr error
	select {
	case <-sctx.Done():
	case runErr = <-errs:
		stop()
	}
	// Servers stop before the runtime closes its stores.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	return runErr
}
