package tower

import (
	"testing"

	"github.com/towerbft/consensus-core/config"
	"github.com/towerbft/consensus-core/signerstore"
	"github.com/towerbft/consensus-core/types"
)

// TestCheckSwitchThreshold_StrayLastVoteUsesStrayRestoredSlots builds a tower
// whose last vote (slot 4) was retained as stray by AdjustLockoutsAfterReplay,
// so its ancestors cannot be derived from the bank forest passed in by the
// caller (it may not even exist on this node's replayed forest). The
// lastVoteAncestors argument below deliberately does NOT contain switchSlot,
// but StrayRestoredSlots does -- only the substitution catches this and
// raises the bug error; without it, the call would wrongly fall through to a
// stake computation.
func TestCheckSwitchThreshold_StrayLastVoteUsesStrayRestoredSlots(t *testing.T) {
	tw := newTowerWithRawVotes(t, []rawVote{{0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 1}})
	history := &fakeSlotHistory{found: map[types.Slot]struct{}{0: {}, 1: {}, 2: {}}, newest: 4, oldest: 0}
	if err := tw.AdjustLockoutsAfterReplay(2, history); err != nil {
		t.Fatalf("AdjustLockoutsAfterReplay: %v", err)
	}
	if !tw.IsStrayLastVote() {
		t.Fatalf("expected last vote (slot 4) to be stray")
	}

	_, err := tw.CheckSwitchThreshold(
		3, types.Hash{}, // switch_slot=3, which IS in StrayRestoredSlots (stray votes are {3,4})
		nil,
		0,
		slotSet(0, 1, 2), // caller-supplied ancestors, deliberately missing switch_slot=3
		slotSet(0, 1, 2, 3),
		100,
		func(types.Pubkey) types.Stake { return 0 },
	)
	if err == nil {
		t.Fatalf("expected ErrSwitchSlotIsAncestorOfVote via StrayRestoredSlots substitution")
	}
}

func slotSet(slots ...types.Slot) AncestorSet {
	s := make(AncestorSet, len(slots))
	for _, slot := range slots {
		s[slot] = struct{}{}
	}
	return s
}

func newSwitchTestTower(t *testing.T, lastVoted types.Slot) *Tower {
	t.Helper()
	signer, err := signerstore.Generate()
	if err != nil {
		t.Fatalf("signerstore.Generate: %v", err)
	}
	cfg := config.DefaultTowerConfig()
	cfg.LedgerDir = t.TempDir()
	tw := New(signer.Pubkey(), cfg, signer)
	if _, err := tw.RecordBankVote(lastVoted); err != nil {
		t.Fatalf("RecordBankVote(%d): %v", lastVoted, err)
	}
	return tw
}

// TestScenario_SwitchThresholdPass models the spec's scenario where a
// sibling fork carries enough independently-locked-out stake (> 38%) to
// justify abandoning the current fork.
func TestScenario_SwitchThresholdPass(t *testing.T) {
	tw := newSwitchTestTower(t, 10)

	voterA := testPubkey(1)
	voterB := testPubkey(2)

	intervals := NewLockoutIntervals()
	intervals.Insert(100, 20, voterA) // locked out starting at 20, well past last_voted_slot=10
	intervals.Insert(100, 25, voterB)

	forks := []CandidateFork{
		{
			TipSlot:          30,
			TipHash:          types.BytesToHash([]byte("fork-b")),
			Ancestors:        slotSet(0, 20, 25),
			LockoutIntervals: intervals,
		},
	}

	stakes := map[types.Pubkey]types.Stake{voterA: 20, voterB: 25}
	voterStake := func(p types.Pubkey) types.Stake { return stakes[p] }

	decision, err := tw.CheckSwitchThreshold(
		30, types.BytesToHash([]byte("fork-b")),
		forks,
		0,
		slotSet(0, 10),
		slotSet(0, 20, 25, 30),
		100,
		voterStake,
	)
	if err != nil {
		t.Fatalf("CheckSwitchThreshold: %v", err)
	}
	if decision.Kind != SwitchProof {
		t.Fatalf("decision.Kind = %v, want SwitchProof (45/100 stake exceeds 0.38)", decision.Kind)
	}
}

// TestScenario_SwitchThresholdFailsOnSameFork models the spec's scenario
// where the only candidate carrying locked-out stake is a descendant of
// the validator's own last-voted fork: its stake must not count toward
// the switch proof, so the threshold fails even though the raw interval
// stake would otherwise clear 0.38.
func TestScenario_SwitchThresholdFailsOnSameFork(t *testing.T) {
	tw := newSwitchTestTower(t, 47)

	voterA := testPubkey(1)
	sameForkIntervals := NewLockoutIntervals()
	sameForkIntervals.Insert(200, 48, voterA)

	forks := []CandidateFork{
		{
			// Descendant of slot 47, the validator's own last vote --
			// excluded entirely from locked-out-stake aggregation.
			TipSlot:          60,
			TipHash:          types.BytesToHash([]byte("descendant-of-47")),
			Ancestors:        slotSet(0, 47, 48),
			LockoutIntervals: sameForkIntervals,
		},
	}

	stakes := map[types.Pubkey]types.Stake{voterA: 90}
	voterStake := func(p types.Pubkey) types.Stake { return stakes[p] }

	decision, err := tw.CheckSwitchThreshold(
		100, types.BytesToHash([]byte("independent-fork")),
		forks,
		0,
		slotSet(0, 47),
		slotSet(0, 90, 100),
		100,
		voterStake,
	)
	if err != nil {
		t.Fatalf("CheckSwitchThreshold: %v", err)
	}
	if decision.Kind != FailedSwitchThreshold {
		t.Fatalf("decision.Kind = %v, want FailedSwitchThreshold (only contributing fork shares the current vote's fork)", decision.Kind)
	}
}

func TestCheckSwitchThreshold_NoLastVoteIsNoSwitch(t *testing.T) {
	signer, err := signerstore.Generate()
	if err != nil {
		t.Fatalf("signerstore.Generate: %v", err)
	}
	cfg := config.DefaultTowerConfig()
	cfg.LedgerDir = t.TempDir()
	tw := New(signer.Pubkey(), cfg, signer)

	decision, err := tw.CheckSwitchThreshold(
		10, types.Hash{}, nil, 0, nil, nil, 100,
		func(types.Pubkey) types.Stake { return 0 },
	)
	if err != nil {
		t.Fatalf("CheckSwitchThreshold: %v", err)
	}
	if decision.Kind != NoSwitch {
		t.Fatalf("decision.Kind = %v, want NoSwitch before any vote has been cast", decision.Kind)
	}
}

// TestCheckSwitchThreshold_SwitchSlotIsAncestorOfVoteIsBug uses disjoint,
// directional ancestor sets: switch_slot (20) is an ancestor of last_voted_slot
// (50) -- lastVoteAncestors contains switchSlot, but switchSlotAncestors does
// NOT contain lastVotedSlot. Only the correct membership/direction pairing
// catches this; a swapped check would misreport NoSwitch instead of erroring.
func TestCheckSwitchThreshold_SwitchSlotIsAncestorOfVoteIsBug(t *testing.T) {
	tw := newSwitchTestTower(t, 50)

	_, err := tw.CheckSwitchThreshold(
		20, types.Hash{},
		nil,
		0,
		slotSet(0, 20, 50), // ancestors of last_voted_slot=50, includes switch_slot=20
		slotSet(0, 20),     // ancestors of switch_slot=20, does NOT include last_voted_slot=50
		100,
		func(types.Pubkey) types.Stake { return 0 },
	)
	if err == nil {
		t.Fatalf("expected ErrSwitchSlotIsAncestorOfVote when last_vote_ancestors contains switch_slot")
	}
}

// TestCheckSwitchThreshold_LastVotedSlotIsAncestorOfSwitchSlotIsNoSwitch is the
// mirror-image scenario: last_voted_slot (10) is an ancestor of switch_slot
// (50) -- switchSlotAncestors contains lastVotedSlot, but lastVoteAncestors
// does NOT contain switchSlot. The validator is simply continuing to vote
// forward on its own fork, so this must return NoSwitch, not error.
func TestCheckSwitchThreshold_LastVotedSlotIsAncestorOfSwitchSlotIsNoSwitch(t *testing.T) {
	tw := newSwitchTestTower(t, 10)

	decision, err := tw.CheckSwitchThreshold(
		50, types.Hash{},
		nil,
		0,
		slotSet(0, 10),             // ancestors of last_voted_slot=10, does NOT include switch_slot=50
		slotSet(0, 10, 20, 30, 40, 50), // ancestors of switch_slot=50, includes last_voted_slot=10
		100,
		func(types.Pubkey) types.Stake { return 0 },
	)
	if err != nil {
		t.Fatalf("CheckSwitchThreshold: %v", err)
	}
	if decision.Kind != NoSwitch {
		t.Fatalf("decision.Kind = %v, want NoSwitch when last_voted_slot is an ancestor of switch_slot", decision.Kind)
	}
}
