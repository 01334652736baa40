package collector

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rzbill/catalog/internal/cursor"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

// Sync runs one pass starting at the position loaded from cur and saves the
// position reached. The cursor is only saved after the whole pass succeeded.
func (c *BatchCollector) Sync(ctx context.Context, f Fetcher, index string, cur cursor.ReadWriter) (cursor.Cursor, error) {
	from, err := cur.Load(ctx)
	if err != nil {
		return cursor.Zero, err
	}
	next, err := c.Run(ctx, f, index, from)
	if err != nil {
		return from, err
	}
	if next.After(from) {
		if err := cur.Save(ctx, next); err != nil {
			return from, err
		}
	}
	return next, nil
}

// FollowOptions configures Follow.
type FollowOptions struct {
	Fetcher Fetcher
	Index   string
	Cursor  cursor.ReadWriter
	// Interval is the pause between successful passes. Default 10s.
	Interval time.Duration
	// RetryDelay is the minimum pause after a failed pass; up to the same
	// amount of jitter is added. Default 1s.
	RetryDelay time.Duration
	// Passes stops Follow after that many successful passes. Zero runs until
	// ctx is done.
	Passes int
}

// Retriable reports whether a failed pass may succeed when re-run from the
// same cursor. Malformed documents are data errors and are not retried.
func Retriable(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedDocument) && !errors.Is(err, ErrNoProcessor)
}

// Follow repeats Sync until ctx is done. Failed passes are retried from the
// last saved cursor after RetryDelay. It returns nil when ctx is done or
// Passes is reached, and the pass error when it is not Retriable.
func (c *BatchCollector) Follow(ctx context.Context, opts FollowOptions) error {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	passes := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		wait := opts.Interval
		next, err := c.Sync(ctx, opts.Fetcher, opts.Index, opts.Cursor)
		switch {
		case err == nil:
			passes++
			c.logger.Info("caught up", logpkg.Str("index", opts.Index), logpkg.Str("cursor", next.String()))
			if opts.Passes > 0 && passes >= opts.Passes {
				return nil
			}
		case ctx.Err() != nil:
			return nil
		case !Retriable(err):
			c.logger.Error("giving up", logpkg.Str("index", opts.Index), logpkg.Err(err))
			return err
		default:
			wait = opts.RetryDelay + time.Duration(rand.Int63n(int64(opts.RetryDelay)))
			c.logger.Warn("pass failed, retrying", logpkg.Str("index", opts.Index), logpkg.Dur("in", wait), logpkg.Err(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
