// Package memory is an in-process storage backend used by tests and tools.
// It records the order of saves so callers can assert write ordering.
package memory

import (
	"context"
	"sync"

	"github.com/rzbill/catalog/internal/storage"
)

// Storage keeps documents in a map keyed by absolute address.
type Storage struct {
	base string

	mu     sync.Mutex
	docs   map[string]storage.Content
	saves  []string
	failOn func(address string) error
}

var _ storage.Storage = (*Storage)(nil)

// New returns an empty store rooted at base.
func New(base string) (*Storage, error) {
	if err := storage.ValidateBase(base); err != nil {
		return nil, err
	}
	return &Storage{base: base, docs: make(map[string]storage.Content)}, nil
}

// FailOn installs a hook consulted before every save; a non-nil error aborts that save.
func (s *Storage) FailOn(fn func(address string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *Storage) Save(ctx context.Context, address string, content *storage.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := storage.Relative(s.base, address); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		if err := s.failOn(address); err != nil {
			return err
		}
	}
	c := *content
	c.Data = append([]byte(nil), content.Data...)
	s.docs[address] = c
	s.saves = append(s.saves, address)
	return nil
}

func (s *Storage) Load(ctx context.Context, address string) (*storage.Content, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.docs[address]
	if !ok {
		return nil, false, nil
	}
	c.Data = append([]byte(nil), c.Data...)
	return &c, true, nil
}

func (s *Storage) LoadString(ctx context.Context, address string) (string, bool, error) {
	c, ok, err := s.Load(ctx, address)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(c.Data), true, nil
}

func (s *Storage) ResolveURI(relative string) string { return storage.Resolve(s.base, relative) }

func (s *Storage) BaseAddress() string { return s.base }

// Saves returns every saved address in save order.
func (s *Storage) Saves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saves...)
}

// Len reports the number of stored documents.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
