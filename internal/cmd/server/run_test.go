package serverrun

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/catalog/internal/config"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

func TestProcessLoggerFallback(t *testing.T) {
	tests := []struct {
		name  string
		cfg   logpkg.Config
		level logpkg.Level
	}{
		{name: "valid config", cfg: logpkg.Config{Level: "debug", Format: "json", Output: "null"}, level: logpkg.DebugLevel},
		{name: "unknown format keeps level", cfg: logpkg.Config{Level: "warn", Format: "yaml"}, level: logpkg.WarnLevel},
		{name: "unknown level uses info", cfg: logpkg.Config{Level: "loud", Format: "text"}, level: logpkg.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := processLogger(tt.cfg)
			if l == nil {
				t.Fatalf("nil logger")
			}
			if got := l.GetLevel(); got != tt.level {
				t.Fatalf("level: got %v want %v", got, tt.level)
			}
		})
	}
}

// TestRunIntegration verifies Run starts both servers and returns cleanly
// once ctx is done.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := cfgpkg.Default()
	cfg.Storage = cfgpkg.StoragePebble
	opts := Options{
		DataDir:       filepath.Join(t.TempDir(), "data"),
		GRPCAddr:      "127.0.0.1:0",
		HTTPAddr:      "127.0.0.1:0",
		Fsync:         pebblestore.FsyncModeNever,
		FsyncInterval: time.Millisecond,
		Config:        cfg,
		Logger:        logpkg.NewNopLogger(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := Run(ctx, opts); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	cfg := cfgpkg.Default()
	cfg.Storage = cfgpkg.StorageMemory
	opts := Options{
		DataDir:  t.TempDir(),
		GRPCAddr: "127.0.0.1:0",
		HTTPAddr: l.Addr().String(),
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfg,
		Logger:   logpkg.NewNopLogger(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, opts); err == nil {
		t.Fatalf("expected listen error for busy http address")
	}
}
