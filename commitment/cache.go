package commitment

import (
	"sync"

	"github.com/towerbft/consensus-core/tower"
	"github.com/towerbft/consensus-core/types"
)

// Snapshot is an immutable view produced by one aggregation cycle. Readers
// hold a Snapshot for as long as they need it; it is never mutated after
// Cache.swap publishes it.
type Snapshot struct {
	commitments          map[types.Slot]*BlockCommitment
	totalStake           types.Stake
	root                 types.Slot
	largestConfirmedRoot types.Slot
}

func emptySnapshot() *Snapshot {
	return &Snapshot{commitments: make(map[types.Slot]*BlockCommitment)}
}

// GetBlockCommitment returns the BlockCommitment recorded for slot, if any.
func (s *Snapshot) GetBlockCommitment(slot types.Slot) (*BlockCommitment, bool) {
	bc, ok := s.commitments[slot]
	return bc, ok
}

// TotalStake returns the epoch's total staked lamports used to compute
// this snapshot's thresholds.
func (s *Snapshot) TotalStake() types.Stake { return s.totalStake }

// Root returns the bank root this snapshot was computed against.
func (s *Snapshot) Root() types.Slot { return s.root }

// LargestConfirmedRoot returns the greatest slot whose rooted stake
// exceeds the super-majority threshold, or 0 if none does.
func (s *Snapshot) LargestConfirmedRoot() types.Slot { return s.largestConfirmedRoot }

// GetConfirmationCount returns the highest confirmation depth at which more
// than the super-majority stake fraction is locked out for slot: stake is
// summed from the rooted bucket down through each confirmation_count bucket
// until the running total crosses the threshold, and the bucket that
// crosses it is returned (MaxConfirmations+1 if only the rooted bucket
// does). It returns 0 if slot is unknown or no depth reaches the threshold.
func (s *Snapshot) GetConfirmationCount(slot types.Slot) uint32 {
	bc, ok := s.commitments[slot]
	if !ok {
		return 0
	}
	if s.totalStake == 0 {
		return 0
	}
	var sum types.Stake
	for i := arrayLength - 1; i >= 0; i-- {
		sum += bc.stakes[i]
		if float64(sum)/float64(s.totalStake) > tower.VoteThresholdSize {
			return uint32(i + 1)
		}
	}
	return 0
}

// IsConfirmedRooted reports whether slot's rooted stake exceeds the
// super-majority threshold relative to TotalStake.
func (s *Snapshot) IsConfirmedRooted(slot types.Slot) bool {
	if s.totalStake == 0 {
		return false
	}
	bc, ok := s.commitments[slot]
	if !ok {
		return false
	}
	return float64(bc.GetRootedStake())/float64(s.totalStake) > tower.VoteThresholdSize
}

// Cache holds the single shared Snapshot cell. Writers (the
// AggregateCommitmentService) take the write lock only to swap in a freshly
// computed Snapshot; readers take the read lock briefly to load the current
// one. The Snapshot itself is never mutated after publication, so readers
// may retain it beyond the lock's scope.
type Cache struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewCache returns a Cache seeded with an empty Snapshot.
func NewCache() *Cache {
	return &Cache{snapshot: emptySnapshot()}
}

// Load returns the current Snapshot.
func (c *Cache) Load() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// swap atomically replaces the current Snapshot.
func (c *Cache) swap(s *Snapshot) {
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}
