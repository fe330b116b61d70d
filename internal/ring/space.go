// Package ring implements the pure identifier arithmetic of the Chord
// circular key space: hashing, interval membership with wrap-around, and
// finger start offsets. Nothing in this package touches the network or
// mutable node state.
package ring

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"strconv"
)

// DefaultBits is the reference identifier-space width.
const DefaultBits = 16

// ID is an identifier in the circular space [0, 2^Bits). IDs produced by a
// Space (Hash, Mod, FingerStart, AddMod) are already reduced modulo 2^Bits;
// ParseID does not reduce its result.
type ID uint64

// Space defines the identifier space Z_{2^Bits} that node and key
// identifiers live in. M is fixed for the lifetime of a ring; resizing it
// dynamically is out of scope, though choosing it at startup is not.
type Space struct {
	Bits uint
	mask uint64
}

// NewSpace builds a Space for the given bit width. bits must be in (0, 64];
// larger spaces would overflow the uint64 backing ID, which is not needed
// for the reference M=16 configuration or any realistic deployment of it.
func NewSpace(bits uint) (Space, error) {
	if bits == 0 || bits > 64 {
		return Space{}, fmt.Errorf("ring: invalid bit width %d (must be in (0, 64])", bits)
	}
	var mask uint64
	if bits == 64 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << bits) - 1
	}
	return Space{Bits: bits, mask: mask}, nil
}

// Zero returns the identifier 0 in this space.
func (sp Space) Zero() ID { return 0 }

// Mod reduces x modulo 2^Bits.
func (sp Space) Mod(x uint64) ID { return ID(x & sp.mask) }

// Hash computes SHA-1("<ip>:<port>") reduced modulo 2^Bits. All peers must
// agree bit-for-bit on this so they can derive each other's identifiers
// without exchanging them.
func (sp Space) Hash(ip string, port uint16) ID {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", ip, port)))
	full := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Lsh(big.NewInt(1), sp.Bits)
	full.Mod(full, mod)
	return ID(full.Uint64())
}

// FingerStart computes (self + 2^i) mod 2^Bits for i in [0, Bits).
func (sp Space) FingerStart(self ID, i uint) ID {
	return sp.Mod(uint64(self) + (uint64(1) << i))
}

// AddMod computes (x + delta) mod 2^Bits.
func (sp Space) AddMod(x ID, delta uint64) ID {
	return sp.Mod(uint64(x) + delta)
}

// String renders the identifier as a decimal string, the form used in
// address serialization on the wire.
func (x ID) String() string {
	return strconv.FormatUint(uint64(x), 10)
}

// ParseID parses a decimal identifier string.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ring: invalid identifier %q: %w", s, err)
	}
	return ID(v), nil
}

// InOpenInterval reports whether x lies strictly between start and end on
// the circle, exclusive of both endpoints.
//
//   - start < end:  start < x < end
//   - start > end:  x > start OR x < end   (wraps through zero)
//   - start == end: always false (empty interval)
func InOpenInterval(start, end, x ID) bool {
	switch {
	case start < end:
		return start < x && x < end
	case start > end:
		return x > start || x < end
	default:
		return false
	}
}

// InHalfOpenInterval reports whether x lies in (start, end] on the circle
// — used for successor ownership.
//
//   - start < end:  start < x <= end
//   - start > end:  x > start OR x <= end
func InHalfOpenInterval(start, end, x ID) bool {
	switch {
	case start < end:
		return start < x && x <= end
	case start > end:
		return x > start || x <= end
	default:
		// start == end: the half-open interval (start, start] wraps all the
		// way round and covers the whole ring, start itself included.
		return true
	}
}
