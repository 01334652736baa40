// Package id provides the 128-bit, time-ordered identifiers used as catalog
// commit ids.
//
// # Format
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves chronological order, and IDs generated
// within the same millisecond remain strictly increasing by sequence. Each
// Generator starts its sequence at a random offset so that independent
// writers committing in the same millisecond do not collide.
//
// The textual form is the familiar GUID layout:
//
//	0000018c-9a3f-21b0-7f3e-5d1c00000001
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the system clock regresses, it pins to the last seen millisecond and
//     increments the sequence to avoid going backwards.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond before emitting the next ID.
//
// Usage
//
//	g := id.NewGenerator()
//	commitID := g.Next().String()
//	parsed, _ := id.Parse(commitID)
package id
