// Package commitment computes, from the validators' vote stacks, how much
// stake has accumulated behind each slot at every lockout depth, and
// publishes the result as an immutable, reader-visible snapshot.
package commitment

import "github.com/towerbft/consensus-core/types"

// MaxConfirmations is the deepest confirmation_count a lockout can reach.
const MaxConfirmations = 32

// arrayLength is MaxConfirmations buckets (one per confirmation_count,
// 1-indexed) plus one trailing bucket for rooted stake.
const arrayLength = MaxConfirmations + 1

const rootedStakeIndex = MaxConfirmations

// BlockCommitment is a per-slot array of stake: index i (0 <= i < 32) holds
// the stake of every vote whose confirmation_count is i+1; the trailing
// index holds stake that has been rooted past this slot.
type BlockCommitment struct {
	stakes [arrayLength]types.Stake
}

// NewBlockCommitment returns a zero-valued BlockCommitment.
func NewBlockCommitment() *BlockCommitment {
	return &BlockCommitment{}
}

func confirmationIndex(confirmationCount uint32) int {
	if confirmationCount < 1 || confirmationCount > MaxConfirmations {
		panic("commitment: confirmation_count out of range")
	}
	return int(confirmationCount) - 1
}

// IncreaseConfirmationStake adds stake to the bucket for confirmationCount.
func (bc *BlockCommitment) IncreaseConfirmationStake(confirmationCount uint32, stake types.Stake) {
	bc.stakes[confirmationIndex(confirmationCount)] += stake
}

// GetConfirmationStake returns the stake accumulated at confirmationCount.
func (bc *BlockCommitment) GetConfirmationStake(confirmationCount uint32) types.Stake {
	return bc.stakes[confirmationIndex(confirmationCount)]
}

// IncreaseRootedStake adds stake to the rooted-stake bucket.
func (bc *BlockCommitment) IncreaseRootedStake(stake types.Stake) {
	bc.stakes[rootedStakeIndex] += stake
}

// GetRootedStake returns the accumulated rooted stake.
func (bc *BlockCommitment) GetRootedStake() types.Stake {
	return bc.stakes[rootedStakeIndex]
}
