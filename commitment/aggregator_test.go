package commitment

import (
	"testing"

	"github.com/towerbft/consensus-core/tower"
	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

func rootedVoter(b byte, rootSlot types.Slot, stake types.Stake) (types.Pubkey, tower.VoteAccountEntry) {
	var pk types.Pubkey
	pk[len(pk)-1] = b
	root := rootSlot
	return pk, tower.VoteAccountEntry{
		Stake: stake,
		State: &votestate.VoteState{RootSlot: &root},
	}
}

// TestScenario_RootedCommitmentRollsUpToAncestorsAtOrBelowRoot models the
// spec's literal scenario: two voters (stake 1 each) with root_slot = 5,
// ancestors = [3,4,5,7,9,11]. Slots 3,4,5 accumulate rooted_stake = 2;
// slots 7,9,11 are untouched.
func TestScenario_RootedCommitmentRollsUpToAncestorsAtOrBelowRoot(t *testing.T) {
	pk1, v1 := rootedVoter(1, 5, 1)
	pk2, v2 := rootedVoter(2, 5, 1)

	voteAccounts := tower.VoteAccounts{pk1: v1, pk2: v2}
	ancestors := []types.Slot{3, 4, 5, 7, 9, 11}

	snapshot := AggregateCommitment(ancestors, voteAccounts, 5, 2)

	for _, slot := range []types.Slot{3, 4, 5} {
		bc, ok := snapshot.GetBlockCommitment(slot)
		if !ok {
			t.Fatalf("slot %d missing from snapshot", slot)
		}
		if got := bc.GetRootedStake(); got != 2 {
			t.Errorf("slot %d rooted stake = %d, want 2", slot, got)
		}
	}
	for _, slot := range []types.Slot{7, 9, 11} {
		bc, ok := snapshot.GetBlockCommitment(slot)
		if !ok {
			t.Fatalf("slot %d missing from snapshot", slot)
		}
		if got := bc.GetRootedStake(); got != 0 {
			t.Errorf("slot %d rooted stake = %d, want 0 (past the root)", slot, got)
		}
	}
}

// TestScenario_RootedStakeInheritsAcrossRoots models two voters with
// different roots: voter A (stake 40) rooted at slot 10, voter B (stake 40)
// rooted at slot 20. Since slot 20 being rooted by B implies slot 10 is
// also rooted by B (10 is an ancestor of 20), the rooted-stake bucket for
// slot 10 must inherit B's stake and read 80, clearing the 2/3 threshold
// against total_stake=100 even though neither voter alone reaches it.
func TestScenario_RootedStakeInheritsAcrossRoots(t *testing.T) {
	pkA, voterA := rootedVoter(1, 10, 40)
	pkB, voterB := rootedVoter(2, 20, 40)

	voteAccounts := tower.VoteAccounts{pkA: voterA, pkB: voterB}
	ancestors := []types.Slot{0, 10, 20}

	snapshot := AggregateCommitment(ancestors, voteAccounts, 0, 100)

	if got := snapshot.LargestConfirmedRoot(); got != 10 {
		t.Fatalf("LargestConfirmedRoot() = %d, want 10 (80/100 stake rolled up from B's higher root)", got)
	}
}

// TestScenario_LargestConfirmedRoot models the spec's literal scenario:
// total_staked = 100, rooted_stake = {1:70, 2:50, 3:30}, threshold 2/3 ->
// largest_confirmed_root = 1 (the highest slot whose rooted stake clears
// the super-majority threshold, scanning from the top down).
func TestScenario_LargestConfirmedRoot(t *testing.T) {
	got := largestConfirmedRoot(map[types.Slot]types.Stake{1: 70, 2: 50, 3: 30}, 100)
	if got != 1 {
		t.Fatalf("largestConfirmedRoot() = %d, want 1", got)
	}
}

func TestLargestConfirmedRoot_NoneQualifies(t *testing.T) {
	got := largestConfirmedRoot(map[types.Slot]types.Stake{1: 10, 2: 20}, 100)
	if got != 0 {
		t.Fatalf("largestConfirmedRoot() = %d, want 0", got)
	}
}

func TestAggregateCommitment_ConfirmationStakeFollowsLiveVotes(t *testing.T) {
	pk := types.Pubkey{9}
	vs := votestate.New(pk)
	vs.ProcessSlotVote(0)
	vs.ProcessSlotVote(1)
	// votes are now [{0, confirmation_count=2}, {1, confirmation_count=1}]:
	// the vote at slot 1 didn't expire slot 0's lockout (period 2), so
	// doubleLockouts bumped slot 0's count before the new vote was pushed.

	voteAccounts := tower.VoteAccounts{
		pk: {Stake: 50, State: vs},
	}

	ancestors := []types.Slot{0, 1}
	snapshot := AggregateCommitment(ancestors, voteAccounts, 0, 50)

	bc0, _ := snapshot.GetBlockCommitment(0)
	if bc0.GetConfirmationStake(2) != 50 {
		t.Errorf("slot 0 confirmation_count=2 stake = %d, want 50", bc0.GetConfirmationStake(2))
	}
	bc1, _ := snapshot.GetBlockCommitment(1)
	if bc1.GetConfirmationStake(1) != 50 {
		t.Errorf("slot 1 confirmation_count=1 stake = %d, want 50", bc1.GetConfirmationStake(1))
	}
}

func TestAggregateCommitment_EmptyAncestorsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty ancestors")
		}
	}()
	AggregateCommitment(nil, tower.VoteAccounts{}, 0, 0)
}

func TestAggregateCommitment_UnsortedAncestorsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unsorted ancestors")
		}
	}()
	AggregateCommitment([]types.Slot{5, 3}, tower.VoteAccounts{}, 0, 0)
}

func TestAggregateCommitment_SkipsUndecodableVoteAccount(t *testing.T) {
	var pk types.Pubkey
	pk[31] = 7
	voteAccounts := tower.VoteAccounts{
		pk: {Stake: 10, DecodeErr: errBadVoteState},
	}
	snapshot := AggregateCommitment([]types.Slot{1}, voteAccounts, 0, 10)
	bc, _ := snapshot.GetBlockCommitment(1)
	if bc.GetRootedStake() != 0 {
		t.Fatalf("undecodable vote account should contribute nothing")
	}
}

var errBadVoteState = errUndecodable("bad vote state")

type errUndecodable string

func (e errUndecodable) Error() string { return string(e) }
