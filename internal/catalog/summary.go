package catalog

import (
	"encoding/json"
	"time"
)

// Document types written by the catalog.
const (
	TypeRoot = "CatalogRoot"
	TypePage = "CatalogPage"
)

// Reserved index properties. Extra content may not use them.
const (
	propID        = "@id"
	propType      = "@type"
	propContext   = "@context"
	propCommitID  = "commitId"
	propTimestamp = "commitTimeStamp"
	propCount     = "count"
	propItems     = "items"
)

var reservedEntry = map[string]bool{
	propID: true, propType: true, propCommitID: true, propTimestamp: true, propCount: true,
}

var reservedContainer = map[string]bool{
	propID: true, propType: true, propCommitID: true, propTimestamp: true, propCount: true, propItems: true,
}

// Extra holds additional JSON properties attached to an index entry or, for
// commit metadata, to the root container.
type Extra map[string]json.RawMessage

// Clone returns a shallow copy of e, or nil when e is empty.
func (e Extra) Clone() Extra {
	if len(e) == 0 {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Summary is the entry a parent index keeps for one child: the root for a
// page, a page for an item.
type Summary struct {
	Type            string
	CommitID        string
	CommitTimestamp time.Time
	// Count is set for pages (number of items) and nil for items.
	Count   *int
	Content Extra
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
