package tower

import "math/big"

// BigStake holds a bank weight accumulator. confirmation_count can reach 32,
// so 2^32 * stake can exceed 64 bits for large stake values; math/big is the
// idiomatic Go stand-in for the spec's u128 accumulator.
type BigStake struct {
	v *big.Int
}

// NewBigStake returns a zero-valued BigStake.
func NewBigStake() *BigStake {
	return &BigStake{v: new(big.Int)}
}

// AddLockoutWeight adds 2^confirmationCount * stake to the accumulator.
func (b *BigStake) AddLockoutWeight(confirmationCount uint32, stake uint64) {
	term := new(big.Int).Lsh(big.NewInt(int64(stake)), uint(confirmationCount))
	b.v.Add(b.v, term)
}

// String renders the accumulator in base 10.
func (b *BigStake) String() string {
	return b.v.String()
}

// Cmp compares b to other, returning -1, 0, or +1.
func (b *BigStake) Cmp(other *BigStake) int {
	return b.v.Cmp(other.v)
}

// Uint64 returns the accumulator truncated to 64 bits, for callers that know
// the value fits (e.g. tests with small stakes).
func (b *BigStake) Uint64() uint64 {
	return b.v.Uint64()
}
