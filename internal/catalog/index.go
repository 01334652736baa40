package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rzbill/catalog/internal/canonicaljson"
)

// Index is the decoded form of a root or page document.
type Index struct {
	Address         string
	Type            string
	CommitID        string
	CommitTimestamp time.Time
	Count           int
	Entries         map[string]Summary
	// Extra holds container-level properties such as "@context" or commit
	// metadata. Entry content never appears here.
	Extra Extra
}

// FormatTimestamp renders a commit timestamp the way index documents store it.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// ParseTimestamp parses a commit timestamp written by FormatTimestamp. A
// timestamp without zone designator is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// SortedAddresses returns the entry addresses ordered by commit timestamp,
// ties broken by address.
func SortedAddresses(entries map[string]Summary) []string {
	out := make([]string, 0, len(entries))
	for addr := range entries {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := entries[out[i]], entries[out[j]]
		if !a.CommitTimestamp.Equal(b.CommitTimestamp) {
			return a.CommitTimestamp.Before(b.CommitTimestamp)
		}
		return out[i] < out[j]
	})
	return out
}

// EncodeIndex renders idx as a canonical JSON document. The count property is
// always the number of entries.
func EncodeIndex(idx *Index) ([]byte, error) {
	doc := make(map[string]any, 6+len(idx.Extra))
	for k, v := range idx.Extra {
		if reservedContainer[k] {
			return nil, fmt.Errorf("%w: %q", ErrReservedProperty, k)
		}
		doc[k] = v
	}
	doc[propID] = idx.Address
	doc[propType] = idx.Type
	doc[propCommitID] = idx.CommitID
	doc[propTimestamp] = FormatTimestamp(idx.CommitTimestamp)
	doc[propCount] = len(idx.Entries)

	items := make([]map[string]any, 0, len(idx.Entries))
	for _, addr := range SortedAddresses(idx.Entries) {
		s := idx.Entries[addr]
		entry := make(map[string]any, 5+len(s.Content))
		for k, v := range s.Content {
			if reservedEntry[k] {
				return nil, fmt.Errorf("%w: %q on %s", ErrReservedProperty, k, addr)
			}
			entry[k] = v
		}
		entry[propID] = addr
		entry[propType] = s.Type
		entry[propCommitID] = s.CommitID
		entry[propTimestamp] = FormatTimestamp(s.CommitTimestamp)
		if s.Count != nil {
			entry[propCount] = *s.Count
		}
		items = append(items, entry)
	}
	doc[propItems] = items
	return canonicaljson.Canonicalize(doc)
}

// DecodeIndex parses a root or page document.
func DecodeIndex(data []byte) (*Index, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedDocument)
	}
	idx := &Index{Entries: map[string]Summary{}}
	if raw, ok := doc[propID]; ok {
		if err := json.Unmarshal(raw, &idx.Address); err != nil {
			return nil, fmt.Errorf("%w: @id: %v", ErrMalformedDocument, err)
		}
	}
	var err error
	if idx.Type, err = requiredString(doc, propType); err != nil {
		return nil, err
	}
	if idx.CommitID, err = requiredString(doc, propCommitID); err != nil {
		return nil, err
	}
	if idx.CommitTimestamp, err = requiredTime(doc, propTimestamp); err != nil {
		return nil, err
	}
	if raw, ok := doc[propCount]; ok {
		if err := json.Unmarshal(raw, &idx.Count); err != nil {
			return nil, fmt.Errorf("%w: count: %v", ErrMalformedDocument, err)
		}
	}
	raw, ok := doc[propItems]
	if !ok {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedDocument)
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrMalformedDocument, err)
	}
	for i, item := range items {
		addr, s, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("%w (item %d)", err, i)
		}
		if _, dup := idx.Entries[addr]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrMalformedDocument, addr)
		}
		idx.Entries[addr] = s
	}
	for k, v := range doc {
		if reservedContainer[k] {
			continue
		}
		if idx.Extra == nil {
			idx.Extra = Extra{}
		}
		idx.Extra[k] = v
	}
	return idx, nil
}

func decodeEntry(item map[string]json.RawMessage) (string, Summary, error) {
	var s Summary
	addr, err := requiredString(item, propID)
	if err != nil {
		return "", s, err
	}
	if s.Type, err = requiredString(item, propType); err != nil {
		return "", s, err
	}
	if s.CommitID, err = requiredString(item, propCommitID); err != nil {
		return "", s, err
	}
	if s.CommitTimestamp, err = requiredTime(item, propTimestamp); err != nil {
		return "", s, err
	}
	if raw, ok := item[propCount]; ok && !bytes.Equal(raw, []byte("null")) {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", s, fmt.Errorf("%w: count: %v", ErrMalformedDocument, err)
		}
		s.Count = &n
	}
	for k, v := range item {
		if reservedEntry[k] {
			continue
		}
		if s.Content == nil {
			s.Content = Extra{}
		}
		s.Content[k] = v
	}
	return addr, s, nil
}

func requiredString(doc map[string]json.RawMessage, key string) (string, error) {
	raw, ok := doc[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedDocument, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
	}
	return s, nil
}

func requiredTime(doc map[string]json.RawMessage, key string) (time.Time, error) {
	s, err := requiredString(doc, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
	}
	return t, nil
}
