// Package canonicaljson produces RFC 8785 (JCS) canonical JSON. Catalog
// documents are written in canonical form so that re-encoding a decoded
// document yields the same bytes.
package canonicaljson

import (
	"encoding/json"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonicalize marshals v and returns the canonical UTF-8 bytes.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: marshal: %w", err)
	}
	return CanonicalizeRaw(raw)
}

// CanonicalizeRaw returns the canonical form of raw JSON bytes.
func CanonicalizeRaw(raw json.RawMessage) ([]byte, error) {
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: transform: %w", err)
	}
	return out, nil
}
