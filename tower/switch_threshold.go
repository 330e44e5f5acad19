package tower

import (
	"fmt"

	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/types"
)

// CandidateFork is one other fork's tip, already reduced by the caller to
// the single most-recently-frozen bank on that fork (the spec's "exclude
// banks at/above the most recent frozen bank on each fork" filtering, and
// the "banks at or below the current root" filtering, are both performed
// by the replay driver before calling CheckSwitchThreshold -- mirroring
// where the original's replay_stage assembles the candidate bank list
// before invoking consensus.rs).
type CandidateFork struct {
	TipSlot          types.Slot
	TipHash          types.Hash
	Ancestors        AncestorSet // this fork's ancestor slots, used to test fork membership
	LockoutIntervals *LockoutIntervals
}

// VoterStakeFunc looks up a voter's current epoch stake.
type VoterStakeFunc func(types.Pubkey) types.Stake

// CheckSwitchThreshold decides whether the validator may abandon its
// current fork for switchSlot/switchHash. forks is the set of other
// candidate fork tips (see CandidateFork); root is the Tower's current
// root_slot; lastVoteAncestors is the ancestor set of the Tower's last
// voted slot.
func (t *Tower) CheckSwitchThreshold(
	switchSlot types.Slot,
	switchHash types.Hash,
	forks []CandidateFork,
	root types.Slot,
	lastVoteAncestors AncestorSet,
	switchSlotAncestors AncestorSet,
	totalStake types.Stake,
	voterStake VoterStakeFunc,
) (SwitchForkDecision, error) {
	metrics.TowerSwitchForkDecisions.Inc()

	lastVotedSlot, ok := t.LastVotedSlot()
	if !ok {
		return SwitchForkDecision{Kind: NoSwitch}, nil
	}

	// A stray last vote's ancestors can't be derived from the given bank
	// forest (it was restored from a tower file newer than the replayed
	// root), so stray_restored_slots stands in for ancestors(last_voted_slot).
	if t.IsStrayLastVote() {
		lastVoteAncestors = AncestorSet(t.StrayRestoredSlots)
	}

	if switchSlot == lastVotedSlot {
		return SwitchForkDecision{Kind: NoSwitch}, nil
	}
	// last_voted_slot is an ancestor of switch_slot: we are still on our own
	// fork, just further along it. Nothing to switch.
	if _, ok := switchSlotAncestors[lastVotedSlot]; ok {
		return SwitchForkDecision{Kind: NoSwitch}, nil
	}
	// switch_slot is an ancestor of last_voted_slot: switching "back" into
	// our own vote history can never happen and indicates a caller bug.
	if _, ok := lastVoteAncestors[switchSlot]; ok {
		return SwitchForkDecision{}, fmt.Errorf("%w: switch_slot=%d last_voted_slot=%d",
			ErrSwitchSlotIsAncestorOfVote, switchSlot, lastVotedSlot)
	}

	seen := make(map[types.Pubkey]struct{})
	lockedOutStake := types.Stake(0)

	for _, fork := range forks {
		if fork.TipSlot <= root {
			continue
		}
		if _, onSameFork := fork.Ancestors[lastVotedSlot]; onSameFork || fork.TipSlot == lastVotedSlot {
			continue
		}

		for _, bucket := range fork.LockoutIntervals.Range(lastVotedSlot) {
			for _, iv := range bucket.Votes {
				if iv.IntervalStart <= root {
					continue
				}
				if _, ok := lastVoteAncestors[iv.IntervalStart]; ok {
					continue
				}
				if _, already := seen[iv.Voter]; already {
					continue
				}
				seen[iv.Voter] = struct{}{}
				lockedOutStake += voterStake(iv.Voter)
			}
		}
	}

	if totalStake > 0 && float64(lockedOutStake)/float64(totalStake) > SwitchForkThreshold {
		return SwitchForkDecision{Kind: SwitchProof, Hash: switchHash}, nil
	}
	return SwitchForkDecision{Kind: FailedSwitchThreshold}, nil
}
