// Package types defines the identifiers shared across the fork-choice and
// commitment core: Slot, Hash, Pubkey, and Stake.
package types

import "fmt"

const (
	// HashLength is the size in bytes of a Hash digest.
	HashLength = 32
	// PubkeyLength is the size in bytes of a validator identity.
	PubkeyLength = 32
)

// Slot is a monotonically-increasing block production opportunity.
type Slot uint64

// Stake is an unsigned token count backing a validator's vote weight.
type Stake uint64

// Hash is a 32-byte digest identifying a bank/block.
type Hash [HashLength]byte

// Pubkey is a 32-byte validator or vote-account identity.
type Pubkey [PubkeyLength]byte

// BytesToHash left-pads (or truncates from the left) b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// SetBytes sets h from b, left-padding if b is shorter than HashLength.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the byte slice view of h.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer.
func (h Hash) String() string { return fmt.Sprintf("%x", h[:]) }

// BytesToPubkey left-pads (or truncates from the left) b into a Pubkey.
func BytesToPubkey(b []byte) Pubkey {
	var p Pubkey
	if len(b) > PubkeyLength {
		b = b[len(b)-PubkeyLength:]
	}
	copy(p[PubkeyLength-len(b):], b)
	return p
}

// Bytes returns the byte slice view of p.
func (p Pubkey) Bytes() []byte { return p[:] }

// IsZero reports whether p is the all-zero pubkey.
func (p Pubkey) IsZero() bool { return p == Pubkey{} }

// String implements fmt.Stringer.
func (p Pubkey) String() string { return fmt.Sprintf("%x", p[:]) }
