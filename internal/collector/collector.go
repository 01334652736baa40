package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/cursor"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

// DefaultBatchSize is used when Options.BatchSize is not set.
const DefaultBatchSize = 200

// ErrMalformedDocument is returned when a root or page cannot be parsed.
var ErrMalformedDocument = catalog.ErrMalformedDocument

// ErrNoProcessor is returned by New without a Processor.
var ErrNoProcessor = errors.New("collector: processor required")

// Entry is one catalog item as listed on its page.
type Entry struct {
	Address string
	catalog.Summary
}

// Processor consumes batches of entries. docContext is the root document's
// "@context", or nil.
type Processor interface {
	ProcessBatch(ctx context.Context, f Fetcher, items []Entry, docContext json.RawMessage) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, f Fetcher, items []Entry, docContext json.RawMessage) error

func (fn ProcessorFunc) ProcessBatch(ctx context.Context, f Fetcher, items []Entry, docContext json.RawMessage) error {
	return fn(ctx, f, items, docContext)
}

// CommitObserver is told when the pass moves past a commit. The cursor
// passed is the running cursor before the item that crossed the boundary.
// It is called synchronously, before that item is queued.
type CommitObserver interface {
	ProcessedCommit(c cursor.Cursor)
}

// CommitObserverFunc adapts a function to CommitObserver.
type CommitObserverFunc func(c cursor.Cursor)

func (fn CommitObserverFunc) ProcessedCommit(c cursor.Cursor) { fn(c) }

// PassError reports a failed pass. Retry from From.
type PassError struct {
	Index string
	From  cursor.Cursor
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("collector: pass over %s from %s: %v", e.Index, e.From, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Options configures a BatchCollector.
type Options struct {
	BatchSize int
	Processor Processor
	// Observer is optional.
	Observer CommitObserver
	// Filter is an optional CEL expression; entries it rejects still move the
	// cursor but are not handed to the processor.
	Filter string
	Logger logpkg.Logger
}

// BatchCollector replays catalog items in commit order.
type BatchCollector struct {
	size      int
	processor Processor
	observer  CommitObserver
	filter    entryFilter
	logger    logpkg.Logger

	batches atomic.Int64
}

// New validates opts and returns a collector.
func New(opts Options) (*BatchCollector, error) {
	if opts.Processor == nil {
		return nil, ErrNoProcessor
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	f, err := newEntryFilter(opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("collector: filter: %w", err)
	}
	return &BatchCollector{
		size:      opts.BatchSize,
		processor: opts.Processor,
		observer:  opts.Observer,
		filter:    f,
		logger:    opts.Logger.WithComponent("collector"),
	}, nil
}

// BatchCount is the number of batches handed to the processor so far.
func (c *BatchCollector) BatchCount() int { return int(c.batches.Load()) }

// Run performs one pass over the catalog whose root is at index, delivering
// every item committed strictly after from. It returns the timestamp of the
// last item seen, or from when there was nothing new. On error it returns
// from together with a *PassError.
func (c *BatchCollector) Run(ctx context.Context, f Fetcher, index string, from cursor.Cursor) (cursor.Cursor, error) {
	next, n, err := c.run(ctx, f, index, from)
	if err != nil {
		c.logger.Warn("pass failed", logpkg.Str("index", index), logpkg.Str("from", from.String()), logpkg.Err(err))
		return from, &PassError{Index: index, From: from, Err: err}
	}
	c.logger.Debug("pass complete",
		logpkg.Str("index", index),
		logpkg.Str("from", from.String()),
		logpkg.Str("to", next.String()),
		logpkg.Int("items", n))
	return next, nil
}

func (c *BatchCollector) run(ctx context.Context, f Fetcher, index string, from cursor.Cursor) (cursor.Cursor, int, error) {
	root, err := fetchIndex(ctx, f, index)
	if err != nil {
		return from, 0, err
	}
	docContext := root.Extra["@context"]

	running := from
	seen := 0
	batch := make([]Entry, 0, c.size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.processor.ProcessBatch(ctx, f, batch, docContext); err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
		c.batches.Add(1)
		batch = make([]Entry, 0, c.size)
		return nil
	}

	for _, pageAddr := range catalog.SortedAddresses(root.Entries) {
		if !cursor.FromTime(root.Entries[pageAddr].CommitTimestamp).After(from) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return from, seen, err
		}
		page, err := fetchIndex(ctx, f, pageAddr)
		if err != nil {
			return from, seen, err
		}
		for _, addr := range catalog.SortedAddresses(page.Entries) {
			s := page.Entries[addr]
			at := cursor.FromTime(s.CommitTimestamp)
			if !at.After(from) {
				continue
			}
			if at.After(running) {
				if c.observer != nil {
					c.observer.ProcessedCommit(running)
				}
				running = at
			}
			seen++
			e := Entry{Address: addr, Summary: s}
			ok, err := c.filter.match(e)
			if err != nil {
				return from, seen, fmt.Errorf("filter %s: %w", addr, err)
			}
			if !ok {
				continue
			}
			batch = append(batch, e)
			if len(batch) == c.size {
				if err := flush(); err != nil {
					return from, seen, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return from, seen, err
	}
	return running, seen, nil
}

func fetchIndex(ctx context.Context, f Fetcher, address string) (*catalog.Index, error) {
	data, err := f.Fetch(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", address, err)
	}
	idx, err := catalog.DecodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", address, err)
	}
	return idx, nil
}
