package pebblestore

import (
	"context"
	"errors"
	"testing"

	"github.com/rzbill/catalog/internal/storage"
)

const testBase = "http://localhost/catalog/"

func TestBlobSaveLoad(t *testing.T) {
	db, _ := newTestDB(t)
	s, err := NewBlobStore(db, testBase)
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	ctx := context.Background()
	addr := s.ResolveURI("page0.json")
	if err := s.Save(ctx, addr, storage.NewJSONContent([]byte(`{"count":1}`), storage.CacheNoStore)); err != nil {
		t.Fatalf("save: %v", err)
	}
	c, ok, err := s.Load(ctx, addr)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(c.Data) != `{"count":1}` || c.ContentType != storage.ContentTypeJSON || c.CacheControl != storage.CacheNoStore {
		t.Fatalf("unexpected content %+v", c)
	}
	if _, ok, err := s.LoadString(ctx, s.ResolveURI("absent.json")); ok || err != nil {
		t.Fatalf("absent: ok=%v err=%v", ok, err)
	}
}

func TestBlobCorruptDetected(t *testing.T) {
	db, _ := newTestDB(t)
	s, _ := NewBlobStore(db, testBase)
	ctx := context.Background()
	if err := db.Set(ctx, KeyBlob("index.json"), []byte("garbage!")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := s.Load(ctx, s.ResolveURI("index.json")); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestBlobList(t *testing.T) {
	db, _ := newTestDB(t)
	s, _ := NewBlobStore(db, testBase)
	ctx := context.Background()
	for _, rel := range []string{"data/2024.01.01.00.00.01/b.json", "data/2024.01.01.00.00.01/a.json", "index.json"} {
		if err := s.Save(ctx, s.ResolveURI(rel), storage.NewJSONContent([]byte("{}"), "")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := s.List(ctx, "data/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{testBase + "data/2024.01.01.00.00.01/a.json", testBase + "data/2024.01.01.00.00.01/b.json"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("list = %v, want %v", got, want)
	}
}
