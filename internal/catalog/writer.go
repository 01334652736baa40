package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/catalog/internal/storage"
	"github.com/rzbill/catalog/pkg/id"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

// RootName is the root document name relative to the storage base.
const RootName = "index.json"

// PagePolicy decides how committed items are grouped into pages. It saves the
// affected page documents through the writer and returns their root entries.
type PagePolicy interface {
	SavePages(ctx context.Context, w *Writer, commitID string, ts time.Time, items map[string]Summary) (map[string]Summary, error)
}

// Commit describes a completed commit. The zero value means nothing was
// committed.
type Commit struct {
	ID        string
	Timestamp time.Time
	Items     int
	Pages     int
}

// Writer appends batches of items to a catalog. It is not safe for
// concurrent use; see Committer for a shared front end.
type Writer struct {
	store       storage.Storage
	policy      PagePolicy
	logger      logpkg.Logger
	ids         *id.Generator
	now         func() time.Time
	docContext  json.RawMessage
	concurrency int

	rootURI string
	batch   []Item
	closed  bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the writer's logger.
func WithLogger(l logpkg.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock overrides the clock used by Commit.
func WithClock(now func() time.Time) Option { return func(w *Writer) { w.now = now } }

// WithDocumentContext sets the "@context" value written on every document.
func WithDocumentContext(ctx json.RawMessage) Option {
	return func(w *Writer) { w.docContext = ctx }
}

// WithIDGenerator overrides the commit id source.
func WithIDGenerator(g *id.Generator) Option { return func(w *Writer) { w.ids = g } }

// WithSaveConcurrency bounds the number of item documents saved in parallel.
// Zero or less means unbounded.
func WithSaveConcurrency(n int) Option { return func(w *Writer) { w.concurrency = n } }

// NewWriter returns a writer over s. A nil policy selects an AppendOnlyPager
// with the default page size.
func NewWriter(s storage.Storage, policy PagePolicy, opts ...Option) *Writer {
	if policy == nil {
		policy = &AppendOnlyPager{}
	}
	w := &Writer{
		store:  s,
		policy: policy,
		logger: logpkg.NewNopLogger(),
		ids:    id.NewGenerator(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.WithComponent("catalog.writer")
	w.rootURI = s.ResolveURI(RootName)
	return w
}

// Storage returns the underlying store.
func (w *Writer) Storage() storage.Storage { return w.store }

// RootURI is the address of the root document.
func (w *Writer) RootURI() string { return w.rootURI }

// Count is the number of pending items.
func (w *Writer) Count() int { return len(w.batch) }

// Add queues an item for the next commit.
func (w *Writer) Add(item Item) error {
	if w.closed {
		return ErrClosed
	}
	w.batch = append(w.batch, item)
	return nil
}

// Discard drops the pending batch and returns how many items it held.
func (w *Writer) Discard() int {
	n := len(w.batch)
	w.batch = nil
	return n
}

// Close drops pending items. Later calls to Add and Commit fail with ErrClosed.
func (w *Writer) Close() error {
	w.batch = nil
	w.closed = true
	return nil
}

// Commit persists the pending batch stamped with the current time. When the
// clock has not moved past the root's timestamp, the commit is stamped one
// nanosecond after it.
func (w *Writer) Commit(ctx context.Context, extra Extra) (Commit, error) {
	return w.commit(ctx, w.now(), extra, true)
}

// CommitAt persists the pending batch as one commit at ts. Item documents
// are saved first, then pages, then the root. An empty batch writes nothing.
// On error the batch is kept so the caller may retry or Discard it.
// ts must be after the root's commit timestamp, otherwise ErrTimestampOrder
// is returned.
func (w *Writer) CommitAt(ctx context.Context, ts time.Time, extra Extra) (Commit, error) {
	return w.commit(ctx, ts, extra, false)
}

func (w *Writer) commit(ctx context.Context, ts time.Time, extra Extra, bump bool) (Commit, error) {
	if w.closed {
		return Commit{}, ErrClosed
	}
	if len(w.batch) == 0 {
		return Commit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Commit{}, err
	}
	ts = ts.UTC()
	root, err := w.loadIndexDocument(ctx, w.rootURI)
	if err != nil {
		return Commit{}, err
	}
	if root != nil && !ts.After(root.CommitTimestamp) {
		if !bump {
			return Commit{}, fmt.Errorf("%w: %s is not after %s", ErrTimestampOrder,
				FormatTimestamp(ts), FormatTimestamp(root.CommitTimestamp))
		}
		ts = root.CommitTimestamp.Add(time.Nanosecond)
	}
	commitID := w.ids.Next().String()
	start := time.Now()

	items, err := w.saveItems(ctx, commitID, ts, root)
	if err != nil {
		w.logger.Warn("commit failed saving items", logpkg.Str("commit_id", commitID), logpkg.Err(err))
		return Commit{}, err
	}
	pages, err := w.policy.SavePages(ctx, w, commitID, ts, items)
	if err != nil {
		w.logger.Warn("commit failed saving pages", logpkg.Str("commit_id", commitID), logpkg.Err(err))
		return Commit{}, fmt.Errorf("catalog: save pages: %w", err)
	}
	if err := w.saveRoot(ctx, commitID, ts, root, pages, extra); err != nil {
		w.logger.Warn("commit failed saving root", logpkg.Str("commit_id", commitID), logpkg.Err(err))
		return Commit{}, fmt.Errorf("catalog: save root: %w", err)
	}

	c := Commit{ID: commitID, Timestamp: ts, Items: len(w.batch), Pages: len(pages)}
	w.batch = nil
	w.logger.Info("commit",
		logpkg.Str("commit_id", commitID),
		logpkg.Time("commit_ts", ts),
		logpkg.Int("items", c.Items),
		logpkg.Int("pages", c.Pages),
		logpkg.Dur("took", time.Since(start)))
	return c, nil
}

func (w *Writer) saveItems(ctx context.Context, commitID string, ts time.Time, root *Index) (map[string]Summary, error) {
	cctx := &Context{DocumentContext: w.docContext}
	base := w.store.BaseAddress()
	entries := make(map[string]Summary, len(w.batch))
	contents := make([]*storage.Content, len(w.batch))
	addrs := make([]string, len(w.batch))

	for i, item := range w.batch {
		item.Stamp(commitID, ts, base)
		addr, err := item.Address()
		if err != nil {
			return nil, &ItemError{Index: i, Err: err}
		}
		if _, dup := entries[addr]; dup {
			return nil, &ItemError{Address: addr, Index: i, Err: ErrDuplicateAddress}
		}
		content, err := item.CreateContent(cctx)
		if err != nil {
			return nil, &ItemError{Address: addr, Index: i, Err: err}
		}
		pageContent, err := item.CreatePageContent(cctx)
		if err != nil {
			return nil, &ItemError{Address: addr, Index: i, Err: err}
		}
		addrs[i] = addr
		contents[i] = content
		entries[addr] = Summary{Type: item.Type(), CommitID: commitID, CommitTimestamp: ts, Content: pageContent}
	}

	listed, err := w.listedInSecond(ctx, root, ts)
	if err != nil {
		return nil, err
	}
	for i, addr := range addrs {
		if listed[addr] {
			return nil, &ItemError{Address: addr, Index: i, Err: ErrDuplicateAddress}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.concurrency > 0 {
		g.SetLimit(w.concurrency)
	}
	for i := range contents {
		if contents[i] == nil {
			continue
		}
		i := i
		g.Go(func() error {
			if err := w.store.Save(gctx, addrs[i], contents[i]); err != nil {
				return &ItemError{Address: addrs[i], Index: i, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// listedInSecond returns the item addresses already referenced by pages that
// a commit touched during the second of ts. Item addresses have second
// resolution, so only those pages can hold an address this commit would
// reuse.
func (w *Writer) listedInSecond(ctx context.Context, root *Index, ts time.Time) (map[string]bool, error) {
	listed := map[string]bool{}
	if root == nil {
		return listed, nil
	}
	second := ts.Truncate(time.Second)
	for addr, page := range root.Entries {
		if page.CommitTimestamp.Before(second) {
			continue
		}
		entries, err := w.LoadIndex(ctx, addr)
		if err != nil {
			return nil, err
		}
		for item := range entries {
			listed[item] = true
		}
	}
	return listed, nil
}

func (w *Writer) saveRoot(ctx context.Context, commitID string, ts time.Time, root *Index, pages map[string]Summary, extra Extra) error {
	entries := map[string]Summary{}
	if root != nil {
		for addr, s := range root.Entries {
			entries[addr] = s
		}
	}
	for addr, s := range pages {
		entries[addr] = s
	}
	return w.SaveIndex(ctx, w.rootURI, TypeRoot, commitID, ts, entries, extra)
}

// SaveIndex writes a root or page document at address.
func (w *Writer) SaveIndex(ctx context.Context, address, typ, commitID string, ts time.Time, entries map[string]Summary, extra Extra) error {
	container := extra.Clone()
	if w.docContext != nil {
		if container == nil {
			container = Extra{}
		}
		if _, ok := container[propContext]; !ok {
			container[propContext] = w.docContext
		}
	}
	data, err := EncodeIndex(&Index{
		Address:         address,
		Type:            typ,
		CommitID:        commitID,
		CommitTimestamp: ts,
		Entries:         entries,
		Extra:           container,
	})
	if err != nil {
		return err
	}
	return w.store.Save(ctx, address, storage.NewJSONContent(data, storage.CacheNoStore))
}

// LoadIndex returns the entries of the root or page document at address. A
// missing document yields an empty map.
func (w *Writer) LoadIndex(ctx context.Context, address string) (map[string]Summary, error) {
	idx, err := w.loadIndexDocument(ctx, address)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return map[string]Summary{}, nil
	}
	return idx.Entries, nil
}

// loadIndexDocument returns nil when no document is stored at address.
func (w *Writer) loadIndexDocument(ctx context.Context, address string) (*Index, error) {
	content, ok, err := w.store.LoadString(ctx, address)
	if err != nil || !ok {
		return nil, err
	}
	idx, err := DecodeIndex([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", address, err)
	}
	return idx, nil
}
