package id

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit, lexicographically sortable identifier encoded as 16 bytes
// big-endian: [8 bytes ms_timestamp][8 bytes sequence].
type ID [16]byte

// ErrInvalid is returned by Parse for malformed input.
var ErrInvalid = errors.New("id: invalid GUID")

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte { b := make([]byte, 16); copy(b, i[:]); return b }

// String returns the GUID form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (i ID) String() string {
	var out [36]byte
	hex.Encode(out[0:8], i[0:4])
	out[8] = '-'
	hex.Encode(out[9:13], i[4:6])
	out[13] = '-'
	hex.Encode(out[14:18], i[6:8])
	out[18] = '-'
	hex.Encode(out[19:23], i[8:10])
	out[23] = '-'
	hex.Encode(out[24:36], i[10:16])
	return string(out[:])
}

// Time returns the millisecond timestamp embedded in the ID.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8]))).UTC()
}

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int {
	for idx := 0; idx < 16; idx++ {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// Parse decodes the GUID form produced by String. Upper-case hex is accepted.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return id, ErrInvalid
	}
	groups := [][2]int{{0, 8}, {9, 13}, {14, 18}, {19, 23}, {24, 36}}
	pos := 0
	for _, g := range groups {
		n, err := hex.Decode(id[pos:], []byte(s[g[0]:g[1]]))
		if err != nil {
			return ID{}, ErrInvalid
		}
		pos += n
	}
	return id, nil
}

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	base     uint64
	sequence uint64
}

// NewGenerator creates a new Generator with a random sequence offset.
func NewGenerator() *Generator {
	var b [8]byte
	_, _ = rand.Read(b[:])
	// keep headroom below MaxUint64 for in-millisecond increments
	return &Generator{base: binary.BigEndian.Uint64(b[:]) >> 2}
}

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If clock goes backwards, it uses lastMs and increments sequence.
// If sequence overflows within the same millisecond, it busy-waits for next ms.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == math.MaxUint64 {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = g.base
		} else {
			g.sequence++
		}
	} else {
		g.sequence = g.base
	}

	g.lastMs = ms
	return makeID(ms, g.sequence)
}

func makeID(ms int64, seq uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], seq)
	return id
}
