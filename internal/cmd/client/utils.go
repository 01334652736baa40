package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rzbill/catalog/internal/cursor"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// grpcAddrFromEnv returns the gRPC server address from CATALOG_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("CATALOG_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPCContext dials the catalog gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(ctx context.Context) (*grpc.ClientConn, error) {
	addr := grpcAddrFromEnv()
	return grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// cursorURL is the watermark document address of a named cursor.
func cursorURL(baseURL BaseURLFunc, name string) string {
	return strings.TrimSuffix(baseURL(), "/") + "/v1/cursors/" + name
}

// httpCursor reads and advances a named cursor held by a catalog server.
// A cursor the server has never stored starts at Zero.
type httpCursor struct {
	r cursor.HTTPReader
	w cursor.HTTPWriter
}

func newHTTPCursor(url string) *httpCursor {
	return &httpCursor{r: cursor.HTTPReader{URL: url}, w: cursor.HTTPWriter{URL: url}}
}

func (h *httpCursor) Load(ctx context.Context) (cursor.Cursor, error) {
	c, err := h.r.Load(ctx)
	var se *cursor.StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return cursor.Zero, nil
	}
	return c, err
}

func (h *httpCursor) Save(ctx context.Context, c cursor.Cursor) error { return h.w.Save(ctx, c) }

// discoverIndex asks the server where the root index of its catalog lives.
func discoverIndex(ctx context.Context, baseURL BaseURLFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL(), "/")+"/v1/catalog", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog info: %s", resp.Status)
	}
	var info struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("catalog info: %w", err)
	}
	if info.Index == "" {
		return "", fmt.Errorf("catalog info: no index advertised")
	}
	return info.Index, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
