package tower

import (
	"fmt"

	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

// historyStage orders SlotHistoryCheck outcomes for the monotonicity check
// below: Future < Found < NotFound < TooOld. This happens to match the
// SlotHistoryCheck iota order directly.
func historyStage(c SlotHistoryCheck) int { return int(c) }

// AdjustLockoutsAfterReplay reconciles a restored Tower against a replayed
// bank whose root may be newer than the tower's own. Votes are classified
// against slot_history; in ascending-slot order the classification stage
// must be non-decreasing (Future*, then Found+, then NotFound*, then
// TooOld*) -- any regression means the tower and the ledger disagree about
// which fork is canonical, which is unrecoverable without operator
// intervention.
func (t *Tower) AdjustLockoutsAfterReplay(replayedRoot types.Slot, history SlotHistory) error {
	if history.Check(replayedRoot) != Found {
		return fmt.Errorf("%w: replayed root %d is not marked Found in slot history",
			ErrInconsistentWithHistory, replayedRoot)
	}

	if len(t.VoteState.Votes) == 0 {
		return nil
	}

	n := len(t.VoteState.Votes)
	newest := t.VoteState.Votes[n-1]
	if history.Check(newest.Slot) == TooOld {
		return fmt.Errorf("%w: last vote slot %d is older than the oldest slot in history (%d)",
			ErrTooOld, newest.Slot, history.Oldest())
	}

	classifications := make([]SlotHistoryCheck, n)
	for i := 0; i < n; i++ {
		classifications[i] = history.Check(t.VoteState.Votes[i].Slot)
	}

	for i := 1; i < n; i++ {
		if historyStage(classifications[i]) < historyStage(classifications[i-1]) {
			return fmt.Errorf("%w: vote at slot %d (%s) regressed behind vote at slot %d (%s)",
				ErrInconsistentWithHistory,
				t.VoteState.Votes[i].Slot, classifications[i],
				t.VoteState.Votes[i-1].Slot, classifications[i-1])
		}
	}

	var retained []votestate.Lockout
	for i := 0; i < n; i++ {
		if classifications[i] == NotFound {
			retained = append(retained, t.VoteState.Votes[i])
		}
	}

	t.VoteState.Votes = retained

	if len(retained) > 0 {
		root := replayedRoot
		t.VoteState.RootSlot = &root
		for _, v := range retained {
			t.StrayRestoredSlots[v.Slot] = struct{}{}
		}
		t.lastVote = retained[len(retained)-1]
		t.hasLastVote = true
	} else {
		t.VoteState.RootSlot = nil
		t.hasLastVote = false
		t.lastVote = votestate.Lockout{}
	}

	return nil
}
