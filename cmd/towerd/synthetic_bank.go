package main

import (
	"encoding/binary"

	"github.com/towerbft/consensus-core/crypto"
	"github.com/towerbft/consensus-core/tower"
	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

// syntheticBank is a linear, single-fork stand-in for a real bank: it exists
// purely so cmd/towerd can drive the tower and commitment packages through a
// full replay cycle without a network, a ledger, or transaction execution,
// all of which are out of scope for this module.
type syntheticBank struct {
	slot         types.Slot
	hash         types.Hash
	voteAccounts tower.VoteAccounts
	ancestors    []types.Slot // this bank's ancestors, slot 0..slot-1, ascending
	totalStake   types.Stake
}

func newSyntheticBank(slot types.Slot, voteAccounts tower.VoteAccounts, totalStake types.Stake) *syntheticBank {
	ancestors := make([]types.Slot, 0, slot)
	for s := types.Slot(0); s < slot; s++ {
		ancestors = append(ancestors, s)
	}
	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], uint64(slot))

	return &syntheticBank{
		slot:         slot,
		hash:         crypto.Keccak256Hash(slotBytes[:]),
		voteAccounts: voteAccounts,
		ancestors:    ancestors,
		totalStake:   totalStake,
	}
}

func (b *syntheticBank) Slot() types.Slot                { return b.slot }
func (b *syntheticBank) Hash() types.Hash                 { return b.hash }
func (b *syntheticBank) VoteAccounts() tower.VoteAccounts { return b.voteAccounts }

func (b *syntheticBank) Ancestors() map[types.Slot]tower.AncestorSet {
	out := make(map[types.Slot]tower.AncestorSet, len(b.ancestors)+1)
	for i, s := range b.ancestors {
		set := make(tower.AncestorSet, i)
		for _, a := range b.ancestors[:i] {
			set[a] = struct{}{}
		}
		out[s] = set
	}
	full := make(tower.AncestorSet, len(b.ancestors))
	for _, a := range b.ancestors {
		full[a] = struct{}{}
	}
	out[b.slot] = full
	return out
}

func (b *syntheticBank) StatusCacheAncestors() []types.Slot {
	out := make([]types.Slot, len(b.ancestors)+1)
	copy(out, b.ancestors)
	out[len(out)-1] = b.slot
	return out
}

func (b *syntheticBank) TotalEpochStake() types.Stake { return b.totalStake }

func (b *syntheticBank) EpochVoteAccounts(epoch uint64) tower.VoteAccounts { return b.voteAccounts }

// syntheticPeerVoters builds a fixed roster of other validators' vote
// accounts, each voting on every slot as it is produced, to give the
// switch-threshold and commitment code real stake to aggregate over.
func syntheticPeerVoters(upToSlot types.Slot, stakePerVoter types.Stake, count int) tower.VoteAccounts {
	accounts := make(tower.VoteAccounts, count)
	for i := 0; i < count; i++ {
		var pk types.Pubkey
		pk[len(pk)-1] = byte(i + 1)
		vs := votestate.New(pk)
		for s := types.Slot(0); s <= upToSlot; s++ {
			vs.ProcessSlotVote(s)
		}
		accounts[pk] = tower.VoteAccountEntry{Stake: stakePerVoter, State: vs}
	}
	return accounts
}
