package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rzbill/catalog/internal/canonicaljson"
	"github.com/rzbill/catalog/internal/storage"
)

// Context is handed to items while a commit renders them.
type Context struct {
	// DocumentContext is the "@context" value shared by catalog documents,
	// or nil.
	DocumentContext json.RawMessage
}

// Item is one entry appended to the catalog.
//
// The writer calls Stamp once per commit attempt, then CreateContent,
// CreatePageContent and Address. An item is immutable after a successful
// commit.
type Item interface {
	Type() string
	Stamp(commitID string, ts time.Time, baseAddress string)
	// CreateContent returns the item document, or nil for items that only
	// contribute index metadata.
	CreateContent(c *Context) (*storage.Content, error)
	// CreatePageContent returns extra properties for the item's page entry.
	CreatePageContent(c *Context) (Extra, error)
	Address() (string, error)
}

// ItemBase carries the commit stamp shared by all items.
type ItemBase struct {
	commitID    string
	timestamp   time.Time
	baseAddress string
	stamped     bool
}

// Stamp records the commit the item is part of.
func (b *ItemBase) Stamp(commitID string, ts time.Time, baseAddress string) {
	b.commitID = commitID
	b.timestamp = ts.UTC()
	b.baseAddress = baseAddress
	b.stamped = true
}

func (b *ItemBase) CommitID() string           { return b.commitID }
func (b *ItemBase) CommitTimestamp() time.Time { return b.timestamp }
func (b *ItemBase) BaseAddress() string        { return b.baseAddress }
func (b *ItemBase) Stamped() bool              { return b.stamped }

// AppendOnlyItem places its document under a directory named after the
// commit timestamp: {base}data/{YYYY.MM.DD.HH.MM.SS}/{identity}.json.
type AppendOnlyItem struct {
	ItemBase
	Identity string
}

// TimestampPath returns the fixed-width, second-resolution directory name for
// a commit timestamp, with a trailing slash.
func TimestampPath(t time.Time) string {
	return t.UTC().Format("2006.01.02.15.04.05") + "/"
}

// ItemBaseAddress is the directory the item document lives in.
func (a *AppendOnlyItem) ItemBaseAddress() string {
	return a.baseAddress + "data/" + TimestampPath(a.timestamp)
}

// RelativeAddress is the item document name relative to ItemBaseAddress.
func (a *AppendOnlyItem) RelativeAddress() string { return a.Identity + ".json" }

func (a *AppendOnlyItem) Address() (string, error) {
	if !a.stamped {
		return "", ErrNotStamped
	}
	if strings.HasPrefix(a.Identity, "/") || strings.Contains(a.Identity, "..") ||
		strings.ContainsAny(a.Identity, "?#\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, a.Identity)
	}
	return a.ItemBaseAddress() + a.RelativeAddress(), nil
}

// DocumentItem is an append-only item whose document is a caller supplied
// JSON object. The writer adds the index properties to it.
type DocumentItem struct {
	AppendOnlyItem
	ItemType string
	// Body is a JSON object, or nil for an index-only item.
	Body json.RawMessage
	// PageFields are copied onto the item's page entry.
	PageFields Extra
}

var _ Item = (*DocumentItem)(nil)

// NewDocumentItem returns an item of type typ stored under identity.
func NewDocumentItem(typ, identity string, body json.RawMessage) *DocumentItem {
	return &DocumentItem{AppendOnlyItem: AppendOnlyItem{Identity: identity}, ItemType: typ, Body: body}
}

func (d *DocumentItem) Type() string { return d.ItemType }

func (d *DocumentItem) CreateContent(c *Context) (*storage.Content, error) {
	if d.Body == nil {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d.Body, &fields); err != nil {
		return nil, fmt.Errorf("catalog: document body: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("catalog: document body is not an object")
	}
	for k := range fields {
		if reservedEntry[k] {
			return nil, fmt.Errorf("%w: %q in document body", ErrReservedProperty, k)
		}
	}
	addr, err := d.Address()
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(fields)+5)
	for k, v := range fields {
		doc[k] = v
	}
	doc[propID] = addr
	doc[propType] = d.ItemType
	doc[propCommitID] = d.commitID
	doc[propTimestamp] = FormatTimestamp(d.timestamp)
	if c != nil && c.DocumentContext != nil {
		if _, ok := fields[propContext]; !ok {
			doc[propContext] = c.DocumentContext
		}
	}
	data, err := canonicaljson.Canonicalize(doc)
	if err != nil {
		return nil, err
	}
	return storage.NewJSONContent(data, storage.CacheImmutable), nil
}

func (d *DocumentItem) CreatePageContent(*Context) (Extra, error) {
	for k := range d.PageFields {
		if reservedEntry[k] {
			return nil, fmt.Errorf("%w: %q in page fields", ErrReservedProperty, k)
		}
	}
	return d.PageFields.Clone(), nil
}
