// Package storage defines the catalog's storage port: save and load whole
// documents by absolute address, and resolve relative names against the
// store's base address.
//
// Backends live in sub-packages (memory, file, pebble, postgres). A backend
// only promises per-call atomicity for a single address; there are no
// multi-address transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// ContentTypeJSON is the content type of every catalog document.
	ContentTypeJSON = "application/json"
	// CacheNoStore is used for documents rewritten in place (root and pages).
	CacheNoStore = "no-store"
	// CacheImmutable is used for item documents, which are never rewritten.
	CacheImmutable = "public, max-age=31536000, immutable"
)

var (
	// ErrOutsideBase is returned when an address is not under the store's base address.
	ErrOutsideBase = errors.New("storage: address outside base address")
	// ErrInvalidBase is returned for an empty or malformed base address.
	ErrInvalidBase = errors.New("storage: base address must be non-empty and end with '/'")
)

// Content is a document plus the metadata a backend may serve it with.
type Content struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// NewJSONContent wraps data as a JSON document.
func NewJSONContent(data []byte, cacheControl string) *Content {
	return &Content{Data: data, ContentType: ContentTypeJSON, CacheControl: cacheControl}
}

// Storage is the port the catalog writer and readers depend on.
type Storage interface {
	// Save writes content at address, replacing any previous document.
	Save(ctx context.Context, address string, content *Content) error
	// Load returns the document at address; ok is false when absent.
	Load(ctx context.Context, address string) (content *Content, ok bool, err error)
	// LoadString returns the document body at address; ok is false when absent.
	LoadString(ctx context.Context, address string) (body string, ok bool, err error)
	// ResolveURI returns the absolute address of a name relative to the base address.
	ResolveURI(relative string) string
	// BaseAddress returns the base address every document lives under.
	BaseAddress() string
}

// ValidateBase checks that base is usable as a base address.
func ValidateBase(base string) error {
	if base == "" || !strings.HasSuffix(base, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}
	return nil
}

// Resolve joins a relative name onto base.
func Resolve(base, relative string) string {
	return base + strings.TrimPrefix(relative, "/")
}

// Relative strips base from address, returning the backend key.
func Relative(base, address string) (string, error) {
	if !strings.HasPrefix(address, base) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, address)
	}
	rel := strings.TrimPrefix(address, base)
	if rel == "" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, address)
	}
	return rel, nil
}
