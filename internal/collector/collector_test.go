package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/cursor"
	"github.com/rzbill/catalog/internal/storage/memory"
)

const testBase = "http://localhost/catalog/"

var t0 = time.Date(2015, 3, 1, 12, 0, 0, 0, time.UTC)

// buildCatalog commits one batch per entry of sizes, one minute apart,
// starting at t0+1m.
func buildCatalog(t *testing.T, pageSize int, sizes ...int) (*memory.Storage, []time.Time) {
	t.Helper()
	s, err := memory.New(testBase)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	w := catalog.NewWriter(s, &catalog.AppendOnlyPager{PageSize: pageSize})
	var stamps []time.Time
	for i, n := range sizes {
		for j := 0; j < n; j++ {
			typ := "PackageDetails"
			if j%2 == 1 {
				typ = "PackageDelete"
			}
			item := catalog.NewDocumentItem(typ, fmt.Sprintf("c%d-i%d", i, j), json.RawMessage(`{}`))
			item.PageFields = catalog.Extra{"nuget:id": json.RawMessage(fmt.Sprintf(`"pkg%d"`, j))}
			if err := w.Add(item); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		ts := t0.Add(time.Duration(i+1) * time.Minute)
		if _, err := w.CommitAt(context.Background(), ts, nil); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		stamps = append(stamps, ts)
	}
	return s, stamps
}

type recorder struct {
	mu      sync.Mutex
	batches [][]Entry
	err     error
}

func (r *recorder) ProcessBatch(_ context.Context, _ Fetcher, items []Entry, _ json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, items)
	return nil
}

func (r *recorder) sizes() []int {
	var out []int
	for _, b := range r.batches {
		out = append(out, len(b))
	}
	return out
}

func (r *recorder) all() []Entry {
	var out []Entry
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func newCollector(t *testing.T, opts Options) *BatchCollector {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	return c
}

func TestRunDeliversEverythingFromZero(t *testing.T) {
	s, stamps := buildCatalog(t, 100, 2, 1, 3)
	rec := &recorder{}
	c := newCollector(t, Options{BatchSize: 10, Processor: rec})
	next, err := c.Run(context.Background(), StorageFetcher{Storage: s}, s.ResolveURI(catalog.RootName), cursor.Zero)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !next.Time().Equal(stamps[2]) {
		t.Fatalf("cursor %s, want %s", next, stamps[2])
	}
	items := rec.all()
	if len(items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CommitTimestamp.Before(items[i-1].CommitTimestamp) {
			t.Fatalf("items out of order at %d", i)
		}
	}
	if string(items[0].Content["nuget:id"]) != `"pkg0"` {
		t.Fatalf("page content missing: %+v", items[0])
	}
}

func TestRunResumesStrictlyAfterCursor(t *testing.T) {
	s, stamps := buildCatalog(t, 2, 2, 1, 3)
	index := s.ResolveURI(catalog.RootName)
	f := StorageFetcher{Storage: s}

	rec := &recorder{}
	c := newCollector(t, Options{BatchSize: 10, Processor: rec})
	next, err := c.Run(context.Background(), f, index, cursor.FromTime(stamps[0]))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	items := rec.all()
	if len(items) != 4 {
		t.Fatalf("expected 4 items after first commit, got %d", len(items))
	}
	for _, e := range items {
		if !e.CommitTimestamp.After(stamps[0]) {
			t.Fatalf("item at or before cursor delivered: %s", e.Address)
		}
	}

	rec2 := &recorder{}
	c2 := newCollector(t, Options{Processor: rec2})
	again, err := c2.Run(context.Background(), f, index, next)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(rec2.batches) != 0 || !again.Equal(next) {
		t.Fatalf("caught-up pass delivered %d batches, cursor %s", len(rec2.batches), again)
	}
}

func TestRunBatchSizeBoundary(t *testing.T) {
	s, _ := buildCatalog(t, 100, 5)
	rec := &recorder{}
	c := newCollector(t, Options{BatchSize: 2, Processor: rec})
	if _, err := c.Run(context.Background(), StorageFetcher{Storage: s}, s.ResolveURI(catalog.RootName), cursor.Zero); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := fmt.Sprint(rec.sizes()); got != "[2 2 1]" {
		t.Fatalf("batch sizes %s", got)
	}
	if c.BatchCount() != 3 {
		t.Fatalf("batch count %d", c.BatchCount())
	}
}

func TestRunNotifiesCommitBoundaries(t *testing.T) {
	s, stamps := buildCatalog(t, 100, 2, 1)
	var seen []cursor.Cursor
	c := newCollector(t, Options{
		Processor: &recorder{},
		Observer:  CommitObserverFunc(func(cur cursor.Cursor) { seen = append(seen, cur) }),
	})
	from := cursor.FromTime(t0)
	if _, err := c.Run(context.Background(), StorageFetcher{Storage: s}, s.ResolveURI(catalog.RootName), from); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %v", seen)
	}
	if !seen[0].Equal(from) || !seen[1].Time().Equal(stamps[0]) {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

type failingFetcher struct {
	inner Fetcher
	match string
	err   error
	calls int
	fails int
}

func (f *failingFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	f.calls++
	if strings.HasSuffix(address, f.match) && (f.fails < 0 || f.calls <= f.fails) {
		return nil, f.err
	}
	return f.inner.Fetch(ctx, address)
}

func TestRunFailureReturnsInputCursor(t *testing.T) {
	s, _ := buildCatalog(t, 1, 1, 1, 1)
	boom := errors.New("connection reset")
	f := &failingFetcher{inner: StorageFetcher{Storage: s}, match: "page2.json", err: boom, fails: -1}
	rec := &recorder{}
	c := newCollector(t, Options{BatchSize: 1, Processor: rec})
	from := cursor.FromTime(t0)
	next, err := c.Run(context.Background(), f, s.ResolveURI(catalog.RootName), from)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	var pe *PassError
	if !errors.As(err, &pe) || !pe.From.Equal(from) {
		t.Fatalf("expected pass error from %s, got %v", from, err)
	}
	if !next.Equal(from) {
		t.Fatalf("cursor advanced on failure: %s", next)
	}
}

func TestRunProcessorFailure(t *testing.T) {
	s, _ := buildCatalog(t, 100, 3)
	boom := errors.New("downstream unavailable")
	c := newCollector(t, Options{Processor: &recorder{err: boom}})
	next, err := c.Run(context.Background(), StorageFetcher{Storage: s}, s.ResolveURI(catalog.RootName), cursor.Zero)
	if !errors.Is(err, boom) || !next.IsZero() {
		t.Fatalf("expected processor error at zero cursor, got %s %v", next, err)
	}
}

func TestRunMalformedRoot(t *testing.T) {
	s, err := memory.New(testBase)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := s.Save(context.Background(), testBase+"index.json", &storageContent); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := newCollector(t, Options{Processor: &recorder{}})
	_, err = c.Run(context.Background(), StorageFetcher{Storage: s}, testBase+"index.json", cursor.Zero)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if Retriable(err) {
		t.Fatalf("malformed documents should not be retriable")
	}
}

func TestRunMissingRoot(t *testing.T) {
	s, err := memory.New(testBase)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	c := newCollector(t, Options{Processor: &recorder{}})
	_, err = c.Run(context.Background(), StorageFetcher{Storage: s}, testBase+"index.json", cursor.Zero)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunFilter(t *testing.T) {
	s, stamps := buildCatalog(t, 100, 4)
	rec := &recorder{}
	c := newCollector(t, Options{Processor: rec, Filter: `item_type == "PackageDetails" && extra["nuget:id"] == "pkg0"`})
	next, err := c.Run(context.Background(), StorageFetcher{Storage: s}, s.ResolveURI(catalog.RootName), cursor.Zero)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	items := rec.all()
	if len(items) != 1 || !strings.HasSuffix(items[0].Address, "c0-i0.json") {
		t.Fatalf("unexpected filtered items %+v", items)
	}
	if !next.Time().Equal(stamps[0]) {
		t.Fatalf("filtered entries should still move the cursor, got %s", next)
	}

	if _, err := New(Options{Processor: rec, Filter: `type +`}); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := New(Options{Processor: rec, Filter: `ts_ms`}); err == nil {
		t.Fatalf("expected non-bool expression to be rejected")
	}
}

func TestHTTPFetcher(t *testing.T) {
	s, _ := buildCatalog(t, 100, 2)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok, err := s.Load(r.Context(), testBase+strings.TrimPrefix(r.URL.Path, "/catalog/"))
		if err != nil || !ok {
			http.NotFound(w, r)
			return
		}
		// Rewrite addresses so the collector follows links back to this server.
		_, _ = w.Write([]byte(strings.ReplaceAll(string(c.Data), testBase, srv.URL+"/catalog/")))
	}))
	defer srv.Close()

	rec := &recorder{}
	c := newCollector(t, Options{Processor: rec})
	f := NewHTTPFetcher(5 * time.Second)
	if _, err := c.Run(context.Background(), f, srv.URL+"/catalog/index.json", cursor.Zero); err != nil {
		t.Fatalf("run over http: %v", err)
	}
	if len(rec.all()) != 2 {
		t.Fatalf("expected 2 items, got %d", len(rec.all()))
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/catalog/nope.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFollowRetriesAndPersists(t *testing.T) {
	s, stamps := buildCatalog(t, 100, 2, 2)
	f := &failingFetcher{inner: StorageFetcher{Storage: s}, match: "page0.json", err: errors.New("timeout"), fails: 2}
	rec := &recorder{}
	c := newCollector(t, Options{Processor: rec})
	cur := cursor.NewMemory(cursor.Zero)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Follow(ctx, FollowOptions{
		Fetcher:    f,
		Index:      s.ResolveURI(catalog.RootName),
		Cursor:     cur,
		Interval:   time.Millisecond,
		RetryDelay: time.Millisecond,
		Passes:     1,
	})
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	got, _ := cur.Load(ctx)
	if !got.Time().Equal(stamps[1]) {
		t.Fatalf("cursor %s, want %s", got, stamps[1])
	}
	if len(rec.all()) != 4 {
		t.Fatalf("expected each item once, got %d", len(rec.all()))
	}
}

func TestFollowStopsOnMalformed(t *testing.T) {
	s, err := memory.New(testBase)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := s.Save(context.Background(), testBase+"index.json", &storageContent); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := newCollector(t, Options{Processor: &recorder{}})
	err = c.Follow(context.Background(), FollowOptions{
		Fetcher:    StorageFetcher{Storage: s},
		Index:      testBase + "index.json",
		Cursor:     cursor.NewMemory(cursor.Zero),
		RetryDelay: time.Millisecond,
	})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}
