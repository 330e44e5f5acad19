package commitment

import "testing"

func TestBlockCommitment_ConfirmationStakeRoundTrip(t *testing.T) {
	bc := NewBlockCommitment()
	bc.IncreaseConfirmationStake(1, 10)
	bc.IncreaseConfirmationStake(1, 5)
	bc.IncreaseConfirmationStake(32, 1)

	if got := bc.GetConfirmationStake(1); got != 15 {
		t.Errorf("GetConfirmationStake(1) = %d, want 15", got)
	}
	if got := bc.GetConfirmationStake(32); got != 1 {
		t.Errorf("GetConfirmationStake(32) = %d, want 1", got)
	}
	if got := bc.GetConfirmationStake(2); got != 0 {
		t.Errorf("GetConfirmationStake(2) = %d, want 0", got)
	}
}

func TestBlockCommitment_RootedStake(t *testing.T) {
	bc := NewBlockCommitment()
	bc.IncreaseRootedStake(3)
	bc.IncreaseRootedStake(4)
	if got := bc.GetRootedStake(); got != 7 {
		t.Errorf("GetRootedStake() = %d, want 7", got)
	}
}

func TestBlockCommitment_ConfirmationIndexOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for confirmation_count=0")
		}
	}()
	NewBlockCommitment().IncreaseConfirmationStake(0, 1)
}
