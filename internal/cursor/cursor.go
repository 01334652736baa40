// Package cursor holds collector resume points.
//
// A Cursor is a commit timestamp. A collector resumes strictly after its
// cursor, so the value to persist is the timestamp of the last commit fully
// handed to the processor. Cursors are published to other processes as a
// watermark document:
//
//	{"value": "2015-03-01T12:30:45.123Z"}
package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/catalog/internal/catalog"
)

// ErrMalformed is returned for watermark documents that cannot be parsed.
var ErrMalformed = errors.New("cursor: malformed watermark document")

// Cursor is a position in the catalog's commit order.
type Cursor struct {
	ts time.Time
}

// Zero is the cursor before every commit.
var Zero = Cursor{}

// FromTime returns the cursor at t.
func FromTime(t time.Time) Cursor {
	if t.IsZero() {
		return Zero
	}
	return Cursor{ts: t.UTC()}
}

// Parse reads an ISO-8601 timestamp. A value without zone is taken as UTC.
func Parse(s string) (Cursor, error) {
	t, err := catalog.ParseTimestamp(s)
	if err != nil {
		return Zero, fmt.Errorf("cursor: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

func (c Cursor) Time() time.Time     { return c.ts }
func (c Cursor) IsZero() bool        { return c.ts.IsZero() }
func (c Cursor) After(o Cursor) bool { return c.ts.After(o.ts) }
func (c Cursor) Equal(o Cursor) bool { return c.ts.Equal(o.ts) }

// Max returns the later of c and o.
func (c Cursor) Max(o Cursor) Cursor {
	if o.After(c) {
		return o
	}
	return c
}

func (c Cursor) String() string { return catalog.FormatTimestamp(c.ts) }

func (c Cursor) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Cursor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Document is the watermark document.
type Document struct {
	Value *Cursor `json:"value"`
}

// DecodeDocument parses a watermark document.
func DecodeDocument(data []byte) (Cursor, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Value == nil {
		return Zero, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	return *doc.Value, nil
}

// EncodeDocument renders c as a watermark document.
func EncodeDocument(c Cursor) ([]byte, error) {
	return json.Marshal(Document{Value: &c})
}
