package cursor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
)

// ErrInvalidName is returned for empty cursor names or names containing '/'.
var ErrInvalidName = errors.New("cursor: invalid name")

var cursorPrefix = []byte("cursor/")

// KeyCursor returns the pebble key of a named cursor.
func KeyCursor(name string) []byte {
	k := make([]byte, 0, len(cursorPrefix)+len(name))
	k = append(k, cursorPrefix...)
	return append(k, name...)
}

// ValidateName checks a cursor name.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Store keeps named cursors in pebble. A commit lower than or equal to the
// stored value is ignored, so a cursor never regresses.
type Store struct {
	db *pebblestore.DB
	mu sync.Mutex
}

// NewStore returns a cursor store over db.
func NewStore(db *pebblestore.DB) *Store { return &Store{db: db} }

func encodeValue(c Cursor) []byte {
	var b [12]byte
	t := c.Time()
	binary.BigEndian.PutUint64(b[:8], uint64(t.Unix()))
	binary.BigEndian.PutUint32(b[8:], uint32(t.Nanosecond()))
	return b[:]
}

func decodeValue(b []byte) (Cursor, bool) {
	if len(b) != 12 {
		return Zero, false
	}
	sec := int64(binary.BigEndian.Uint64(b[:8]))
	nsec := int64(binary.BigEndian.Uint32(b[8:]))
	return FromTime(time.Unix(sec, nsec)), true
}

// Get loads a named cursor. ok is false when it was never committed.
func (s *Store) Get(name string) (Cursor, bool, error) {
	if err := ValidateName(name); err != nil {
		return Zero, false, err
	}
	v, ok, err := s.db.Lookup(KeyCursor(name))
	if err != nil || !ok {
		return Zero, false, err
	}
	c, valid := decodeValue(v)
	if !valid {
		return Zero, false, fmt.Errorf("cursor: %s: corrupt value", name)
	}
	return c, true, nil
}

// Commit advances a named cursor to c and returns the stored value, which is
// c unless the cursor was already further.
func (s *Store) Commit(ctx context.Context, name string, c Cursor) (Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok, err := s.Get(name)
	if err != nil {
		return Zero, err
	}
	if ok && !c.After(cur) {
		return cur, nil
	}
	if err := s.db.Set(ctx, KeyCursor(name), encodeValue(c)); err != nil {
		return Zero, err
	}
	return c, nil
}

// List returns every stored cursor by name.
func (s *Store) List() (map[string]Cursor, error) {
	it, err := s.db.NewIter(pebblestore.PrefixBounds(cursorPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()
	out := map[string]Cursor{}
	for ok := it.First(); ok; ok = it.Next() {
		name := string(it.Key()[len(cursorPrefix):])
		c, valid := decodeValue(it.Value())
		if !valid {
			return nil, fmt.Errorf("cursor: %s: corrupt value", name)
		}
		out[name] = c
	}
	return out, it.Error()
}

// Named returns a ReadWriter bound to one cursor name. Loading a cursor that
// was never committed yields Zero.
func (s *Store) Named(name string) *Named { return &Named{store: s, name: name} }

// Named is a single cursor in a Store.
type Named struct {
	store *Store
	name  string
}

var _ ReadWriter = (*Named)(nil)

func (n *Named) Name() string { return n.name }

func (n *Named) Load(context.Context) (Cursor, error) {
	c, _, err := n.store.Get(n.name)
	return c, err
}

func (n *Named) Save(ctx context.Context, c Cursor) error {
	_, err := n.store.Commit(ctx, n.name, c)
	return err
}
