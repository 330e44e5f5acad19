// Package tower implements the local validator's lockout stack: threshold
// policy, signed persistence, post-replay reconciliation, and the switch-fork
// threshold evaluator.
package tower

import (
	"github.com/towerbft/consensus-core/config"
	"github.com/towerbft/consensus-core/log"
	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/signerstore"
	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

var logger = log.Default().Module("tower")

// Tower wraps a VoteState with threshold policy, a persistence path, and
// the bookkeeping needed to recover across restarts. Tower is single-writer:
// only the replay driver mutates it, so no internal locking is required.
type Tower struct {
	NodePubkey types.Pubkey

	ThresholdDepth uint64
	ThresholdSize  float64

	VoteState *votestate.VoteState

	// lastVote caches the top of VoteState; hasLastVote is false before the
	// first vote is recorded and after AdjustLockoutsAfterReplay retains no
	// votes.
	lastVote    votestate.Lockout
	hasLastVote bool

	LedgerDir string

	// StrayRestoredSlots holds votes retained by AdjustLockoutsAfterReplay
	// that are not reachable from the current replay tree.
	StrayRestoredSlots map[types.Slot]struct{}

	signer *signerstore.Store
}

// New returns a fresh Tower for nodePubkey with the given threshold config
// and signing identity.
func New(nodePubkey types.Pubkey, cfg *config.TowerConfig, signer *signerstore.Store) *Tower {
	return &Tower{
		NodePubkey:         nodePubkey,
		ThresholdDepth:     cfg.ThresholdDepth,
		ThresholdSize:      cfg.ThresholdSize,
		VoteState:          votestate.New(nodePubkey),
		LedgerDir:          cfg.LedgerDir,
		StrayRestoredSlots: make(map[types.Slot]struct{}),
		signer:             signer,
	}
}

// LastVotedSlot returns the slot of the cached last vote, if any.
func (t *Tower) LastVotedSlot() (types.Slot, bool) {
	if !t.hasLastVote {
		return 0, false
	}
	return t.lastVote.Slot, true
}

// LastVote returns the cached last vote lockout and whether one exists.
func (t *Tower) LastVote() (votestate.Lockout, bool) {
	return t.lastVote, t.hasLastVote
}

// IsStrayLastVote reports whether the tower's last vote is a slot that was
// retained by AdjustLockoutsAfterReplay despite slot_history not reporting it
// Found -- meaning its ancestors can no longer be derived from the bank
// forest the caller passes to CheckSwitchThreshold, only from
// StrayRestoredSlots.
func (t *Tower) IsStrayLastVote() bool {
	lastVotedSlot, ok := t.LastVotedSlot()
	if !ok {
		return false
	}
	_, stray := t.StrayRestoredSlots[lastVotedSlot]
	return stray
}

// RootSlot returns the VoteState's current root, if any.
func (t *Tower) RootSlot() (types.Slot, bool) {
	if t.VoteState.RootSlot == nil {
		return 0, false
	}
	return *t.VoteState.RootSlot, true
}

// RecordBankVote applies a vote for slot to the persistent VoteState,
// updates the cached last vote, persists the tower, and returns the new
// root slot iff this vote caused the root to advance.
func (t *Tower) RecordBankVote(slot types.Slot) (*types.Slot, error) {
	rootBefore := t.VoteState.RootSlot

	t.VoteState.ProcessSlotVote(slot)

	top, ok := t.VoteState.NthRecentVote(0)
	if ok {
		t.lastVote = top
		t.hasLastVote = true
	}

	metrics.TowerVotesRecorded.Inc()
	logger.WithSlot(uint64(slot)).Debug("vote recorded")

	var newRoot *types.Slot
	if t.VoteState.RootSlot != nil && (rootBefore == nil || *t.VoteState.RootSlot != *rootBefore) {
		root := *t.VoteState.RootSlot
		newRoot = &root
	}

	if err := t.Save(); err != nil {
		return newRoot, err
	}
	return newRoot, nil
}

// IsSlotConfirmed reports whether slot has accumulated stake strictly
// exceeding the super-majority threshold, relative to totalStake.
func IsSlotConfirmed(slot types.Slot, votedStakes map[types.Slot]types.Stake, totalStake types.Stake, thresholdSize float64) bool {
	if totalStake == 0 {
		return false
	}
	stake := votedStakes[slot]
	return float64(stake)/float64(totalStake) > thresholdSize
}

// IsSlotConfirmed is the Tower-bound convenience wrapper using the Tower's
// configured threshold size.
func (t *Tower) IsSlotConfirmed(slot types.Slot, votedStakes map[types.Slot]types.Stake, totalStake types.Stake) bool {
	return IsSlotConfirmed(slot, votedStakes, totalStake, t.ThresholdSize)
}

// CheckVoteStakeThreshold simulates a vote at slot against a clone of the
// Tower's VoteState and inspects the lockout ThresholdDepth positions from
// the top. It passes if no such lockout exists yet (stack not deep enough),
// if the lockout's slot has super-majority voted stake, or if the lockout
// was already present at the same (slot, confirmation_count) before the
// simulated vote was pushed -- i.e. the threshold vote is not new.
func (t *Tower) CheckVoteStakeThreshold(slot types.Slot, votedStakes map[types.Slot]types.Stake, totalStake types.Stake) bool {
	before := t.VoteState.Clone()

	sim := t.VoteState.Clone()
	sim.ProcessSlotVote(slot)

	threshold, ok := sim.NthRecentVote(int(t.ThresholdDepth))
	if !ok {
		return true
	}

	if IsSlotConfirmed(threshold.Slot, votedStakes, totalStake, t.ThresholdSize) {
		return true
	}

	return lockoutPresentBefore(before, threshold)
}

// lockoutPresentBefore reports whether state already held a lockout with
// exactly l's (slot, confirmation_count) prior to simulation.
func lockoutPresentBefore(state *votestate.VoteState, l votestate.Lockout) bool {
	for _, existing := range state.Votes {
		if existing == l {
			return true
		}
	}
	return false
}

// IsLockedOut simulates a vote at slot and reports whether any
// non-simulated lockout remaining on the stack is violated: slot must be a
// descendant of every such lockout's slot (i.e. present in its ancestor
// set). ancestorsOfSlot is the ancestor set of slot, NOT including slot
// itself.
func (t *Tower) IsLockedOut(slot types.Slot, ancestorsOfSlot AncestorSet) bool {
	sim := t.VoteState.Clone()
	sim.ProcessSlotVote(slot)

	// The last entry is the just-simulated vote itself; skip it.
	for i := 0; i < len(sim.Votes)-1; i++ {
		l := sim.Votes[i]
		if l.Slot == slot {
			continue
		}
		if _, ok := ancestorsOfSlot[l.Slot]; !ok {
			return true
		}
	}
	return false
}
