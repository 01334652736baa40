package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/collector"
	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/cursor"
	"github.com/rzbill/catalog/internal/storage"
	"github.com/rzbill/catalog/internal/storage/file"
	"github.com/rzbill/catalog/internal/storage/memory"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
	"github.com/rzbill/catalog/internal/storage/postgres"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	// DataDir defaults to Config.DataDir, then config.DefaultDataDir().
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage, cursors and config for a single-node instance.
type Runtime struct {
	db      *pebblestore.DB
	pool    *pgxpool.Pool
	store   storage.Storage
	cursors *cursor.Store
	config  cfgpkg.Config
	logger  logpkg.Logger
}

// Open initializes the underlying storage and returns a Runtime.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = opts.Config.DataDir
	}
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	if opts.Fsync == pebblestore.FsyncModeUnspecified {
		mode, err := pebblestore.ParseFsyncMode(opts.Config.Fsync)
		if err != nil {
			return nil, err
		}
		opts.Fsync = mode
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       cfgpkg.StoreDir(dataDir),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		db:      db,
		cursors: cursor.NewStore(db),
		config:  opts.Config,
		logger:  opts.Logger.WithComponent("runtime"),
	}
	if err := rt.openStorage(ctx, dataDir); err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.logger.Info("runtime open",
		logpkg.Str("data_dir", dataDir),
		logpkg.Str("storage", opts.Config.Storage),
		logpkg.Str("base_address", opts.Config.BaseAddress))
	return rt, nil
}

func (r *Runtime) openStorage(ctx context.Context, dataDir string) error {
	base := r.config.BaseAddress
	var err error
	switch r.config.Storage {
	case cfgpkg.StoragePebble:
		r.store, err = pebblestore.NewBlobStore(r.db, base)
	case cfgpkg.StorageFile:
		r.store, err = file.New(file.Options{Root: cfgpkg.DocumentsDir(dataDir), BaseAddress: base})
	case cfgpkg.StorageMemory:
		r.store, err = memory.New(base)
	case cfgpkg.StoragePostgres:
		r.pool, err = postgres.NewPool(ctx, r.config.PostgresDSN)
		if err != nil {
			return err
		}
		if err = postgres.Migrate(ctx, r.pool); err != nil {
			return err
		}
		r.store, err = postgres.New(r.pool, base)
	default:
		err = fmt.Errorf("runtime: unknown storage %q", r.config.Storage)
	}
	return err
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// CheckHealth verifies the local store and, when configured, the database.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	_ = it.Close()
	if r.pool != nil {
		if err := r.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

// Storage is the catalog document store.
func (r *Runtime) Storage() storage.Storage { return r.store }

// Cursors is the durable named cursor store.
func (r *Runtime) Cursors() *cursor.Store { return r.cursors }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime's root logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// NewWriter returns a catalog writer over the runtime's storage configured
// from Config.Writer.
func (r *Runtime) NewWriter(opts ...catalog.Option) *catalog.Writer {
	wc := r.config.Writer
	base := []catalog.Option{
		catalog.WithLogger(r.logger),
		catalog.WithSaveConcurrency(wc.SaveConcurrency),
	}
	if len(wc.DocumentContext) > 0 {
		base = append(base, catalog.WithDocumentContext(wc.DocumentContext))
	}
	return catalog.NewWriter(r.store, &catalog.AppendOnlyPager{PageSize: wc.PageSize}, append(base, opts...)...)
}

// NewCollector returns a batch collector configured from Config.Collector.
func (r *Runtime) NewCollector(p collector.Processor, obs collector.CommitObserver) (*collector.BatchCollector, error) {
	return collector.New(collector.Options{
		BatchSize: r.config.Collector.BatchSize,
		Processor: p,
		Observer:  obs,
		Filter:    r.config.Collector.Filter,
		Logger:    r.logger,
	})
}
