package tower

import (
	"testing"

	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

func voteAccountAt(t *testing.T, nodePubkey types.Pubkey, stake types.Stake, votes ...types.Slot) VoteAccountEntry {
	t.Helper()
	vs := votestate.New(nodePubkey)
	for _, slot := range votes {
		vs.ProcessSlotVote(slot)
	}
	return VoteAccountEntry{Stake: stake, State: vs}
}

func TestCollectVoteLockouts_SkipsZeroStakeAndUndecodable(t *testing.T) {
	voters := VoteAccounts{
		testPubkey(1): voteAccountAt(t, testPubkey(1), 0, 5),
		testPubkey(2): {Stake: 10, State: nil, DecodeErr: errNotImportant},
	}

	cbs := CollectVoteLockouts(6, voters, nil)
	if cbs.TotalStake != 0 {
		t.Fatalf("TotalStake = %d, want 0 (both accounts should be skipped)", cbs.TotalStake)
	}
}

func TestCollectVoteLockouts_AccumulatesVotedStakeAndAncestors(t *testing.T) {
	ancestors := map[types.Slot]AncestorSet{
		5: slotSet(0, 1, 2, 3, 4),
	}

	voters := VoteAccounts{
		testPubkey(1): voteAccountAt(t, testPubkey(1), 60, 1, 2, 3, 4),
	}

	cbs := CollectVoteLockouts(5, voters, ancestors)

	if cbs.TotalStake != 60 {
		t.Fatalf("TotalStake = %d, want 60", cbs.TotalStake)
	}
	// Slot 5 is the simulated vote, so it is not credited with voted stake;
	// only the real (non-simulated) lockouts at 1..4 are.
	for _, slot := range []types.Slot{1, 2, 3, 4} {
		if cbs.VotedStakes[slot] == 0 {
			t.Errorf("VotedStakes[%d] = 0, want > 0", slot)
		}
	}
}

func TestCollectVoteLockouts_RecordsLastVotedSlot(t *testing.T) {
	voters := VoteAccounts{
		testPubkey(1): voteAccountAt(t, testPubkey(1), 10, 1, 2, 3),
	}

	cbs := CollectVoteLockouts(4, voters, nil)
	if len(cbs.PubkeyVotes) != 1 {
		t.Fatalf("PubkeyVotes = %v, want exactly 1 entry", cbs.PubkeyVotes)
	}
	if cbs.PubkeyVotes[0].Slot != 3 {
		t.Errorf("PubkeyVotes[0].Slot = %d, want 3 (the account's last real vote, pre-simulation)", cbs.PubkeyVotes[0].Slot)
	}
}

var errNotImportant = &testDecodeErr{}

type testDecodeErr struct{}

func (e *testDecodeErr) Error() string { return "undecodable vote account" }
