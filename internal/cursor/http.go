package cursor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxDocumentSize = 1 << 16

// StatusError is returned when the cursor endpoint answers with a non-2xx
// status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cursor: %s returned status %d", e.URL, e.Status)
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// HTTPReader loads a watermark document over HTTP. It never falls back to
// Zero: transport failures, non-2xx answers and malformed documents are
// returned as errors.
type HTTPReader struct {
	URL    string
	Client *http.Client
}

var _ Reader = (*HTTPReader)(nil)

func (r *HTTPReader) Load(ctx context.Context) (Cursor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return Zero, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := defaultClient(r.Client).Do(req)
	if err != nil {
		return Zero, fmt.Errorf("cursor: load %s: %w", r.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Zero, &StatusError{URL: r.URL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Zero, fmt.Errorf("cursor: read %s: %w", r.URL, err)
	}
	return DecodeDocument(body)
}

// HTTPWriter stores a watermark document with PUT.
type HTTPWriter struct {
	URL    string
	Client *http.Client
}

var _ Writer = (*HTTPWriter)(nil)

func (w *HTTPWriter) Save(ctx context.Context, c Cursor) error {
	body, err := EncodeDocument(c)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := defaultClient(w.Client).Do(req)
	if err != nil {
		return fmt.Errorf("cursor: save %s: %w", w.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentSize))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: w.URL, Status: resp.StatusCode}
	}
	return nil
}
