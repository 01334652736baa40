package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/collector"
	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/cursor"
	"github.com/rzbill/catalog/internal/runtime"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

func newTestServer(t *testing.T, base string) (*Server, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.BaseAddress = base
	rt, err := runtime.Open(context.Background(), runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	s, err := New(rt, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s, rt
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t, "http://localhost/catalog/")
	if w := do(s, http.MethodGet, "/v1/health", ""); w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestServesCatalogDocuments(t *testing.T) {
	s, rt := newTestServer(t, "http://localhost/v3/catalog0/")
	w := rt.NewWriter()
	if err := w.Add(catalog.NewDocumentItem("PackageDetails", "a", json.RawMessage(`{"id":"a"}`))); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := w.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	res := do(s, http.MethodGet, "/v3/catalog0/index.json", "")
	if res.Code != http.StatusOK {
		t.Fatalf("root status %d", res.Code)
	}
	if got := res.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("root cache control %q", got)
	}
	idx, err := catalog.DecodeIndex(res.Body.Bytes())
	if err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if idx.CommitID != c.ID {
		t.Fatalf("root commit %s, want %s", idx.CommitID, c.ID)
	}

	item := "/v3/catalog0/data/" + strings.TrimSuffix(catalog.TimestampPath(c.Timestamp), "/") + "/a.json"
	if res := do(s, http.MethodGet, item, ""); res.Code != http.StatusOK {
		t.Fatalf("item status %d for %s", res.Code, item)
	}
	if res := do(s, http.MethodGet, "/v3/catalog0/page9.json", ""); res.Code != http.StatusNotFound {
		t.Fatalf("missing page status %d", res.Code)
	}
}

func TestCatalogInfo(t *testing.T) {
	s, _ := newTestServer(t, "http://localhost/v3/catalog0/")
	res := do(s, http.MethodGet, "/v1/catalog", "")
	if res.Code != http.StatusOK {
		t.Fatalf("status %d", res.Code)
	}
	var info CatalogInfo
	if err := json.Unmarshal(res.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.BaseAddress != "http://localhost/v3/catalog0/" || info.Index != "http://localhost/v3/catalog0/index.json" {
		t.Fatalf("info: %+v", info)
	}
}

func TestCursorEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "http://localhost/catalog/")
	if res := do(s, http.MethodGet, "/v1/cursors/mirror", ""); res.Code != http.StatusNotFound {
		t.Fatalf("absent cursor status %d", res.Code)
	}
	if res := do(s, http.MethodPut, "/v1/cursors/mirror", `{"value":"2015-03-01T12:00:00Z"}`); res.Code != http.StatusOK {
		t.Fatalf("put status %d: %s", res.Code, res.Body.String())
	}
	res := do(s, http.MethodPut, "/v1/cursors/mirror", `{"value":"2014-01-01T00:00:00Z"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("put lower status %d", res.Code)
	}
	c, err := cursor.DecodeDocument(res.Body.Bytes())
	if err != nil || c.String() != "2015-03-01T12:00:00Z" {
		t.Fatalf("cursor regressed: %s %v", c, err)
	}
	if res := do(s, http.MethodPut, "/v1/cursors/mirror", `{"val":1}`); res.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status %d", res.Code)
	}
	res = do(s, http.MethodGet, "/v1/cursors", "")
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"mirror":"2015-03-01T12:00:00Z"`) {
		t.Fatalf("list: %d %s", res.Code, res.Body.String())
	}
}

func TestCollectOverHTTP(t *testing.T) {
	srv := httptest.NewUnstartedServer(nil)
	base := "http://" + srv.Listener.Addr().String() + "/catalog/"
	s, rt := newTestServer(t, base)
	srv.Config.Handler = s.Handler()
	srv.Start()
	defer srv.Close()

	w := rt.NewWriter()
	for _, id := range []string{"a", "b", "c"} {
		if err := w.Add(catalog.NewDocumentItem("PackageDetails", id, json.RawMessage(`{}`))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := w.Commit(context.Background(), nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var got int
	c, err := collector.New(collector.Options{Processor: collector.ProcessorFunc(func(_ context.Context, _ collector.Fetcher, items []collector.Entry, _ json.RawMessage) error {
		got += len(items)
		return nil
	})})
	if err != nil {
		t.Fatalf("collector: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cur := &cursor.HTTPWriter{URL: srv.URL + "/v1/cursors/mirror"}
	next, err := c.Run(ctx, collector.NewHTTPFetcher(time.Second), base+catalog.RootName, cursor.Zero)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 3 {
		t.Fatalf("collected %d", got)
	}
	if err := cur.Save(ctx, next); err != nil {
		t.Fatalf("save cursor: %v", err)
	}
	loaded, err := (&cursor.HTTPReader{URL: srv.URL + "/v1/cursors/mirror"}).Load(ctx)
	if err != nil || !loaded.Equal(next) {
		t.Fatalf("cursor round trip: %s %v", loaded, err)
	}
}
