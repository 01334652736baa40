package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/catalog/internal/storage/memory"
)

func TestCommitterCommitsConcurrentSubmissions(t *testing.T) {
	w, s := newTestWriter(t, 100)
	c := NewCommitter(w, CommitterConfig{MaxBatch: 4, Interval: 20 * time.Millisecond}, nil)
	c.Start(context.Background())
	t.Cleanup(c.Stop)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			errs <- c.Submit(ctx, NewDocumentItem("T", fmt.Sprintf("item-%d", i), []byte(`{}`)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	page := loadIndex(t, s, testBase+"page0.json")
	if len(page.Entries) != 10 {
		t.Fatalf("expected 10 committed items, got %d", len(page.Entries))
	}
}

func TestCommitterReportsCommitError(t *testing.T) {
	s, err := memory.New(testBase)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	boom := errors.New("unavailable")
	s.FailOn(func(address string) error {
		if strings.HasSuffix(address, "bad.json") {
			return boom
		}
		return nil
	})
	w := NewWriter(s, nil)
	c := NewCommitter(w, CommitterConfig{MaxBatch: 1}, nil)
	c.Start(context.Background())
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Submit(ctx, NewDocumentItem("T", "bad", []byte(`{}`))); !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if err := c.Submit(ctx, NewDocumentItem("T", "good", []byte(`{}`))); err != nil {
		t.Fatalf("failed batch should be discarded, got %v", err)
	}
}

func TestCommitterStopFlushesAndRejects(t *testing.T) {
	w, s := newTestWriter(t, 100)
	c := NewCommitter(w, CommitterConfig{MaxBatch: 100, Interval: time.Hour}, nil)
	c.Start(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), NewDocumentItem("T", "last", []byte(`{}`)))
	}()
	time.Sleep(50 * time.Millisecond)
	c.Stop()
	if err := <-done; err != nil {
		t.Fatalf("submit during stop: %v", err)
	}
	if s.Len() == 0 {
		t.Fatalf("queued item was not committed on stop")
	}
	if err := c.Submit(context.Background(), NewDocumentItem("T", "late", nil)); !errors.Is(err, ErrCommitterStopped) {
		t.Fatalf("expected ErrCommitterStopped, got %v", err)
	}
}
