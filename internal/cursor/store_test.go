package cursor

import (
	"context"
	"errors"
	"testing"
	"time"

	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestStoreCommitIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, ok, err := s.Get("mirror"); err != nil || ok {
		t.Fatalf("expected absent cursor, ok=%v err=%v", ok, err)
	}
	if _, err := s.Commit(ctx, "mirror", FromTime(ts)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// committing same or lower should be no-op
	got, err := s.Commit(ctx, "mirror", FromTime(ts.Add(-time.Second)))
	if err != nil || !got.Time().Equal(ts) {
		t.Fatalf("commit lower: %s %v", got, err)
	}
	if c, ok, _ := s.Get("mirror"); !ok || !c.Time().Equal(ts) {
		t.Fatalf("cursor regressed: %s", c)
	}
	// committing higher should advance
	if _, err := s.Commit(ctx, "mirror", FromTime(ts.Add(time.Nanosecond))); err != nil {
		t.Fatalf("commit higher: %v", err)
	}
	if c, _, _ := s.Get("mirror"); !c.Time().Equal(ts.Add(time.Nanosecond)) {
		t.Fatalf("did not advance: %s", c)
	}
}

func TestStoreNamedAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a := s.Named("a")
	if c, err := a.Load(ctx); err != nil || !c.IsZero() {
		t.Fatalf("fresh cursor: %s %v", c, err)
	}
	if err := a.Save(ctx, FromTime(ts)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Named("b").Save(ctx, FromTime(ts.Add(time.Hour))); err != nil {
		t.Fatalf("save b: %v", err)
	}
	all, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || !all["a"].Time().Equal(ts) {
		t.Fatalf("unexpected list %v", all)
	}
}

func TestStoreRejectsBadNames(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "a/b"} {
		if _, err := s.Commit(context.Background(), name, FromTime(ts)); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
}
