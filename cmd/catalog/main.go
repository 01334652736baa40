package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/catalog/internal/cmd/client"
	serverrun "github.com/rzbill/catalog/internal/cmd/server"
	cfgpkg "github.com/rzbill/catalog/internal/config"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

func main() {
	// Respect CATALOG_LOG_LEVEL for both CLI and serve output.
	level := os.Getenv("CATALOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := clientcmd.NewRoot(apiURL)
	rootCmd.Short = "Append-only catalog CLI"
	rootCmd.Long = "catalog writes an append-only, paginated commit log of JSON documents and replays it from a cursor."
	rootCmd.SilenceUsage = true

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the catalog server (gRPC and HTTP)",
		Aliases: []string{"server", "start"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				GRPCAddr:      grpcAddr,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serveCmd.Flags().String("config", os.Getenv("CATALOG_CONFIG"), "JSON config file")
	serveCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses CATALOG_DATA_DIR or the OS-specific application data directory)")
	serveCmd.Flags().String("grpc", "", "gRPC listen address (default from config, :50051)")
	serveCmd.Flags().String("http", "", "HTTP listen address (default from config, :8080)")
	serveCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never")
	serveCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	serveCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serveCmd.Flags().String("log-format", "", "Log format: text|json (default text)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("CATALOG_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
