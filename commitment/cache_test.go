package commitment

import (
	"testing"

	"github.com/towerbft/consensus-core/types"
)

func TestCache_LoadReturnsEmptySnapshotInitially(t *testing.T) {
	c := NewCache()
	snap := c.Load()
	if snap.TotalStake() != 0 {
		t.Fatalf("fresh cache TotalStake() = %d, want 0", snap.TotalStake())
	}
	if _, ok := snap.GetBlockCommitment(1); ok {
		t.Fatalf("fresh cache should have no commitments")
	}
}

func TestCache_SwapPublishesNewSnapshot(t *testing.T) {
	c := NewCache()
	first := c.Load()

	next := &Snapshot{
		commitments: map[types.Slot]*BlockCommitment{5: NewBlockCommitment()},
		totalStake:  100,
		root:        5,
	}
	c.swap(next)

	got := c.Load()
	if got == first {
		t.Fatalf("Load() still returns the pre-swap snapshot")
	}
	if got.TotalStake() != 100 || got.Root() != 5 {
		t.Fatalf("Load() = %+v, want the swapped-in snapshot", got)
	}
}

// TestSnapshot_GetConfirmationCountSumsDownToThreshold exercises the reverse
// cumulative-stake scan: 40/100 stake alone at confirmation_count=10 does
// not clear the 2/3 threshold, but accumulating down to confirmation_count=3
// (which holds another 40) brings the running total to 80/100, which does.
// The deepest confirmation_count with stake recorded (10) is NOT the answer.
func TestSnapshot_GetConfirmationCountSumsDownToThreshold(t *testing.T) {
	bc := NewBlockCommitment()
	bc.IncreaseConfirmationStake(3, 40)
	bc.IncreaseConfirmationStake(10, 40)

	snap := &Snapshot{
		commitments: map[types.Slot]*BlockCommitment{7: bc},
		totalStake:  100,
	}
	if got := snap.GetConfirmationCount(7); got != 3 {
		t.Fatalf("GetConfirmationCount(7) = %d, want 3 (cumulative stake crosses 2/3 there)", got)
	}
	if got := snap.GetConfirmationCount(99); got != 0 {
		t.Fatalf("GetConfirmationCount(unknown slot) = %d, want 0", got)
	}
}

// TestSnapshot_GetConfirmationCountReachesRootedBucket confirms the rooted
// stake bucket alone can cross the threshold and is reported as
// MaxConfirmations+1, matching get_lockout_count's reverse enumeration
// starting from the trailing rooted-stake slot.
func TestSnapshot_GetConfirmationCountReachesRootedBucket(t *testing.T) {
	bc := NewBlockCommitment()
	bc.IncreaseRootedStake(70)

	snap := &Snapshot{
		commitments: map[types.Slot]*BlockCommitment{5: bc},
		totalStake:  100,
	}
	if got := snap.GetConfirmationCount(5); got != MaxConfirmations+1 {
		t.Fatalf("GetConfirmationCount(5) = %d, want %d (rooted stake alone clears threshold)", got, MaxConfirmations+1)
	}
}

func TestSnapshot_IsConfirmedRooted(t *testing.T) {
	bc := NewBlockCommitment()
	bc.IncreaseRootedStake(70)

	snap := &Snapshot{
		commitments: map[types.Slot]*BlockCommitment{5: bc},
		totalStake:  100,
	}
	if !snap.IsConfirmedRooted(5) {
		t.Fatalf("70/100 should clear the 2/3 super-majority threshold")
	}
	if snap.IsConfirmedRooted(6) {
		t.Fatalf("unknown slot must not be reported as confirmed-rooted")
	}
}
