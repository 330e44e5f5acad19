package tower

import (
	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/types"
)

// CollectVoteLockouts traverses every remote vote account's state to
// produce the ComputedBankState for one candidate bank. It is a pure
// function of its inputs, safe to invoke concurrently per bank: it reads an
// immutable snapshot of the bank's vote accounts and never mutates any
// VoteState in place.
func CollectVoteLockouts(bankSlot types.Slot, voteAccounts VoteAccounts, ancestors map[types.Slot]AncestorSet) *ComputedBankState {
	cbs := &ComputedBankState{
		VotedStakes:      make(map[types.Slot]types.Stake),
		BankWeight:       NewBigStake(),
		LockoutIntervals: NewLockoutIntervals(),
	}

	for voter, entry := range voteAccounts {
		if entry.Stake == 0 {
			continue
		}
		if entry.DecodeErr != nil || entry.State == nil {
			logger.Warn("skipping vote account with undecodable state",
				"voter", voter.String(), "error", entry.DecodeErr)
			metrics.VoteAccountsSkipped.Inc()
			continue
		}

		state := entry.State
		for _, v := range state.Votes {
			cbs.LockoutIntervals.Insert(v.ExpirationSlot(), v.Slot, voter)
		}
		if lastSlot, ok := state.LastVotedSlot(); ok {
			cbs.PubkeyVotes = append(cbs.PubkeyVotes, PubkeyVote{Voter: voter, Slot: lastSlot})
		}

		rootBefore := state.RootSlot

		sim := state.Clone()
		sim.ProcessSlotVote(bankSlot)

		// The last entry is the simulated vote itself; its stake is
		// hypothetical and is not rolled into voted_stakes.
		for i := 0; i < len(sim.Votes)-1; i++ {
			l := sim.Votes[i]
			cbs.BankWeight.AddLockoutWeight(l.ConfirmationCount, uint64(entry.Stake))
			rollUpAncestorStake(cbs.VotedStakes, l.Slot, entry.Stake, ancestors)
		}

		if sim.RootSlot != nil && (rootBefore == nil || *sim.RootSlot != *rootBefore) {
			cbs.BankWeight.AddLockoutWeight(MaxLockoutHistory, uint64(entry.Stake))
			rollUpAncestorStake(cbs.VotedStakes, *sim.RootSlot, entry.Stake, ancestors)
		}
		if rootBefore != nil {
			cbs.BankWeight.AddLockoutWeight(MaxLockoutHistory, uint64(entry.Stake))
			rollUpAncestorStake(cbs.VotedStakes, *rootBefore, entry.Stake, ancestors)
		}

		cbs.TotalStake += entry.Stake
	}

	return cbs
}

// rollUpAncestorStake adds stake to votedStakes at slot and at every
// ancestor of slot.
func rollUpAncestorStake(votedStakes map[types.Slot]types.Stake, slot types.Slot, stake types.Stake, ancestors map[types.Slot]AncestorSet) {
	votedStakes[slot] += stake
	for anc := range ancestors[slot] {
		votedStakes[anc] += stake
	}
}
