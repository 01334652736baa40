package cursor

import (
	"context"
	"sync"
)

// Reader loads a cursor, typically the position another collector reached.
type Reader interface {
	Load(ctx context.Context) (Cursor, error)
}

// Writer persists a cursor. Implementations never move a cursor backwards.
type Writer interface {
	Save(ctx context.Context, c Cursor) error
}

// ReadWriter is a cursor that can be loaded and saved.
type ReadWriter interface {
	Reader
	Writer
}

// Memory is an in-process cursor.
type Memory struct {
	mu sync.Mutex
	c  Cursor
}

var _ ReadWriter = (*Memory)(nil)

// NewMemory returns a cursor starting at c.
func NewMemory(c Cursor) *Memory { return &Memory{c: c} }

func (m *Memory) Load(context.Context) (Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c, nil
}

func (m *Memory) Save(_ context.Context, c Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c = m.c.Max(c)
	return nil
}
