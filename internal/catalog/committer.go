package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	logpkg "github.com/rzbill/catalog/pkg/log"
)

// ErrCommitterStopped is returned by Submit once the committer is stopped.
var ErrCommitterStopped = errors.New("catalog: committer stopped")

// CommitterConfig controls when queued items are committed.
type CommitterConfig struct {
	// MaxBatch commits as soon as this many items are queued. Default 100.
	MaxBatch int
	// Interval commits whatever is queued at this period. Default 1s.
	Interval time.Duration
	// QueueSize is the submit channel capacity. Default 1024.
	QueueSize int
}

type submission struct {
	item Item
	done chan error
}

// Committer owns a Writer and commits items submitted from many goroutines.
// A single goroutine adds queued items and commits when MaxBatch is reached
// or Interval elapses.
type Committer struct {
	w      *Writer
	cfg    CommitterConfig
	logger logpkg.Logger
	in     chan submission
	exited chan struct{}

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCommitter returns a committer over w. Start must be called before Submit.
func NewCommitter(w *Writer, cfg CommitterConfig, logger logpkg.Logger) *Committer {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Committer{
		w:      w,
		cfg:    cfg,
		logger: logger.WithComponent("catalog.committer"),
		in:     make(chan submission, cfg.QueueSize),
		exited: make(chan struct{}),
	}
}

// Start launches the commit loop.
func (c *Committer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.exited)
		c.run(ctx)
	}()
}

// Stop commits anything still queued and waits for the loop to exit.
func (c *Committer) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// Submit queues item and blocks until the commit that contains it finishes.
// The returned error is the commit's error.
func (c *Committer) Submit(ctx context.Context, item Item) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrCommitterStopped
	}
	s := submission{item: item, done: make(chan error, 1)}
	select {
	case c.in <- s:
	case <-c.exited:
		return ErrCommitterStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-s.done:
		return err
	case <-c.exited:
		select {
		case err := <-s.done:
			return err
		default:
			return ErrCommitterStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Committer) run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	var waiting []chan error

	flush := func(ctx context.Context) {
		if len(waiting) == 0 {
			return
		}
		_, err := c.w.Commit(ctx, nil)
		if err != nil {
			n := c.w.Discard()
			c.logger.Error("commit failed", logpkg.Int("items", n), logpkg.Err(err))
		}
		for _, done := range waiting {
			done <- err
		}
		waiting = waiting[:0]
	}
	add := func(s submission) {
		if err := c.w.Add(s.item); err != nil {
			s.done <- err
			return
		}
		waiting = append(waiting, s.done)
	}

	for {
		select {
		case <-ctx.Done():
			// Drain what was already queued and commit it with a fresh context.
			for {
				select {
				case s := <-c.in:
					add(s)
					continue
				default:
				}
				break
			}
			flush(context.Background())
			return
		case s := <-c.in:
			add(s)
			if len(waiting) >= c.cfg.MaxBatch {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}
