package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rzbill/catalog/internal/storage"
)

// ErrCorrupt is returned when a stored blob fails its checksum.
var ErrCorrupt = errors.New("pebble: corrupt blob record")

var blobPrefix = []byte("blob/")

// KeyBlob builds the key for a document path relative to the base address.
// Layout: blob/{relative path}
func KeyBlob(relative string) []byte {
	k := make([]byte, 0, len(blobPrefix)+len(relative))
	k = append(k, blobPrefix...)
	return append(k, relative...)
}

type blobHeader struct {
	ContentType  string `json:"ct,omitempty"`
	CacheControl string `json:"cc,omitempty"`
}

// BlobStore implements storage.Storage on a Pebble database. Each document is
// one framed record; the header carries content type and cache control.
type BlobStore struct {
	db   *DB
	base string
}

var _ storage.Storage = (*BlobStore)(nil)

// NewBlobStore returns a storage port over db rooted at base.
func NewBlobStore(db *DB, base string) (*BlobStore, error) {
	if err := storage.ValidateBase(base); err != nil {
		return nil, err
	}
	return &BlobStore{db: db, base: base}, nil
}

func (s *BlobStore) Save(ctx context.Context, address string, content *storage.Content) error {
	rel, err := storage.Relative(s.base, address)
	if err != nil {
		return err
	}
	h, err := json.Marshal(blobHeader{ContentType: content.ContentType, CacheControl: content.CacheControl})
	if err != nil {
		return err
	}
	return s.db.Set(ctx, KeyBlob(rel), EncodeRecord(h, content.Data))
}

func (s *BlobStore) Load(ctx context.Context, address string) (*storage.Content, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	rel, err := storage.Relative(s.base, address)
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := s.db.Lookup(KeyBlob(rel))
	if err != nil || !ok {
		return nil, false, err
	}
	dec, ok := DecodeRecord(raw)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrCorrupt, address)
	}
	var h blobHeader
	if len(dec.Header) > 0 {
		if err := json.Unmarshal(dec.Header, &h); err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, address, err)
		}
	}
	return &storage.Content{Data: dec.Payload, ContentType: h.ContentType, CacheControl: h.CacheControl}, true, nil
}

func (s *BlobStore) LoadString(ctx context.Context, address string) (string, bool, error) {
	c, ok, err := s.Load(ctx, address)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(c.Data), true, nil
}

func (s *BlobStore) ResolveURI(relative string) string { return storage.Resolve(s.base, relative) }

func (s *BlobStore) BaseAddress() string { return s.base }

// List returns the addresses of stored documents whose relative path starts
// with prefix, in key order.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	iter, err := s.db.NewIter(PrefixBounds(KeyBlob(prefix)))
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for ok := iter.First(); ok; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.base+string(iter.Key()[len(blobPrefix):]))
	}
	return out, iter.Error()
}
