package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rzbill/catalog/internal/storage"
)

// ErrNotFound is returned by a Fetcher for a missing document.
var ErrNotFound = errors.New("collector: document not found")

// Fetcher loads catalog documents by absolute address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// StorageFetcher reads documents straight from a storage backend.
type StorageFetcher struct {
	Storage storage.Storage
}

func (s StorageFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	c, ok, err := s.Storage.Load(ctx, address)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return c.Data, nil
}

// DefaultMaxDocumentSize bounds documents read by HTTPFetcher.
const DefaultMaxDocumentSize = 64 << 20

// StatusError is a non-2xx answer from an HTTP catalog.
type StatusError struct {
	Address string
	Status  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector: GET %s: status %d", e.Address, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// HTTPFetcher reads documents over HTTP.
type HTTPFetcher struct {
	Client  *http.Client
	MaxSize int64
}

// NewHTTPFetcher returns a fetcher with a request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := h.MaxSize
	if limit <= 0 {
		limit = DefaultMaxDocumentSize
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Address: address, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("collector: %s exceeds %d bytes", address, limit)
	}
	return data, nil
}
