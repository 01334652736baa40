package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Add and Commit after Close.
	ErrClosed = errors.New("catalog: writer closed")
	// ErrDuplicateAddress is returned when an item resolves to the address of
	// another item of the commit or of an item already in the catalog.
	ErrDuplicateAddress = errors.New("catalog: duplicate item address in commit")
	// ErrTimestampOrder is returned by CommitAt for a timestamp at or before
	// the root's commit timestamp.
	ErrTimestampOrder = errors.New("catalog: commit timestamp not after previous commit")
	// ErrMalformedDocument is returned when a root or page document cannot be
	// parsed or misses a required property.
	ErrMalformedDocument = errors.New("catalog: malformed index document")
	// ErrReservedProperty is returned when extra content tries to set one of
	// the properties owned by the index format.
	ErrReservedProperty = errors.New("catalog: reserved property in extra content")
	// ErrNotStamped is returned when an item address is requested before the
	// item took part in a commit.
	ErrNotStamped = errors.New("catalog: item not stamped")
	// ErrInvalidIdentity is returned for identities that cannot form an address.
	ErrInvalidIdentity = errors.New("catalog: invalid item identity")
)

// ItemError reports a failure to prepare or save one item of a commit.
type ItemError struct {
	Address string
	Index   int
	Err     error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("catalog: item %d (%s): %v", e.Index, e.Address, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
