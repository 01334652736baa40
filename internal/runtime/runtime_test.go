package runtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/collector"
	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/cursor"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
)

func openRuntime(t *testing.T, storage string) *Runtime {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Storage = storage
	rt, err := Open(context.Background(), Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenCloseHealth(t *testing.T) {
	rt := openRuntime(t, cfgpkg.StoragePebble)
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("expected health failure after close")
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Storage = "tape"
	if _, err := Open(context.Background(), Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatalf("expected error for unknown storage")
	}
}

func TestWriteAndCollectPerBackend(t *testing.T) {
	for _, backend := range []string{cfgpkg.StoragePebble, cfgpkg.StorageFile, cfgpkg.StorageMemory} {
		t.Run(backend, func(t *testing.T) {
			rt := openRuntime(t, backend)
			ctx := context.Background()
			w := rt.NewWriter()
			for _, id := range []string{"a", "b", "c"} {
				if err := w.Add(catalog.NewDocumentItem("PackageDetails", id, json.RawMessage(`{"id":"`+id+`"}`))); err != nil {
					t.Fatalf("add: %v", err)
				}
			}
			if _, err := w.Commit(ctx, nil); err != nil {
				t.Fatalf("commit: %v", err)
			}

			var got int
			c, err := rt.NewCollector(collector.ProcessorFunc(func(_ context.Context, _ collector.Fetcher, items []collector.Entry, _ json.RawMessage) error {
				got += len(items)
				return nil
			}), nil)
			if err != nil {
				t.Fatalf("collector: %v", err)
			}
			named := rt.Cursors().Named("test")
			next, err := c.Sync(ctx, collector.StorageFetcher{Storage: rt.Storage()}, w.RootURI(), named)
			if err != nil {
				t.Fatalf("sync: %v", err)
			}
			if got != 3 {
				t.Fatalf("collected %d items", got)
			}
			stored, ok, err := rt.Cursors().Get("test")
			if err != nil || !ok || !stored.Equal(next) {
				t.Fatalf("cursor not persisted: %s ok=%v err=%v", stored, ok, err)
			}
			if stored.Equal(cursor.Zero) {
				t.Fatalf("cursor did not move")
			}
		})
	}
}
