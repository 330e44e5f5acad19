package commitment

import (
	"context"
	"sort"
	"time"

	"github.com/towerbft/consensus-core/config"
	"github.com/towerbft/consensus-core/log"
	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/tower"
	"github.com/towerbft/consensus-core/types"
)

var logger = log.Default().Module("commitment")

// AggregateCommitment walks every vote account's lockout stack against
// ancestors (which MUST be sorted strictly ascending; violating this is a
// programmer error and panics) and produces the resulting Snapshot.
//
// For each voter: if its VoteState has a root, every ancestor at or below
// that root has the voter's stake rolled into its rooted-stake bucket, and
// the voter's stake is also recorded under the root slot itself in an
// internal accumulator used to determine LargestConfirmedRoot. Then every
// ancestor at or below the top lockout's slot receives the voter's stake
// once, in the confirmation_count bucket of the lowest live lockout whose
// slot is at or above that ancestor, advancing through ancestors and votes
// together since both are sorted ascending.
func AggregateCommitment(ancestors []types.Slot, voteAccounts tower.VoteAccounts, root types.Slot, totalStaked types.Stake) *Snapshot {
	if len(ancestors) == 0 {
		panic("commitment: AggregateCommitment called with empty ancestors")
	}
	assertSortedAscending(ancestors)

	commitments := make(map[types.Slot]*BlockCommitment, len(ancestors))
	for _, a := range ancestors {
		commitments[a] = NewBlockCommitment()
	}

	rootedStakeBySlot := make(map[types.Slot]types.Stake)
	var rootedSlotsSorted []types.Slot

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

		if state.RootSlot != nil {
			rootSlot := *state.RootSlot
			for _, a := range ancestors {
				if a > rootSlot {
					break
				}
				commitments[a].IncreaseRootedStake(entry.Stake)
			}
			rollUpRootedStake(rootedStakeBySlot, &rootedSlotsSorted, rootSlot, entry.Stake)
		}

		voteIdx := 0
		for _, a := range ancestors {
			for voteIdx < len(state.Votes) && state.Votes[voteIdx].Slot < a {
				voteIdx++
			}
			if voteIdx >= len(state.Votes) {
				break
			}
			if a <= state.Votes[voteIdx].Slot {
				commitments[a].IncreaseConfirmationStake(state.Votes[voteIdx].ConfirmationCount, entry.Stake)
			}
		}
	}

	return &Snapshot{
		commitments:          commitments,
		totalStake:           totalStaked,
		root:                 root,
		largestConfirmedRoot: largestConfirmedRoot(rootedStakeBySlot, totalStaked),
	}
}

// rollUpRootedStake folds a voter's stake into rootedStakeBySlot at root,
// keeping rootedSlotsSorted (a parallel ascending key index standing in for
// the ordered-map traversal a BTreeMap would give for free) in sync.
//
// A voter rooted at root has implicitly rooted every existing tracked slot
// below root too, so their stake rolls into every lower bucket. Conversely,
// any voter already rooted at a slot above root has implicitly rooted root
// itself, so a brand-new bucket at root inherits stake from the nearest
// existing higher bucket -- but only on creation; an existing bucket at
// root already received that inheritance when it was first created.
func rollUpRootedStake(rootedStakeBySlot map[types.Slot]types.Stake, rootedSlotsSorted *[]types.Slot, root types.Slot, stake types.Stake) {
	insertAmount := stake
	for _, slot := range *rootedSlotsSorted {
		if slot < root {
			rootedStakeBySlot[slot] += stake
		} else if slot > root {
			insertAmount += rootedStakeBySlot[slot]
			break
		}
	}

	if _, exists := rootedStakeBySlot[root]; exists {
		rootedStakeBySlot[root] += stake
		return
	}
	rootedStakeBySlot[root] = insertAmount
	insertSortedSlot(rootedSlotsSorted, root)
}

// insertSortedSlot inserts s into the ascending-sorted slots, preserving order.
func insertSortedSlot(slots *[]types.Slot, s types.Slot) {
	i := sort.Search(len(*slots), func(i int) bool { return (*slots)[i] >= s })
	*slots = append(*slots, 0)
	copy((*slots)[i+1:], (*slots)[i:])
	(*slots)[i] = s
}

// largestConfirmedRoot scans rootedStakeBySlot from the highest slot down
// and returns the first whose stake fraction exceeds the super-majority
// threshold, or 0 if none qualifies.
func largestConfirmedRoot(rootedStakeBySlot map[types.Slot]types.Stake, totalStaked types.Stake) types.Slot {
	if totalStaked == 0 || len(rootedStakeBySlot) == 0 {
		return 0
	}

	slots := make([]types.Slot, 0, len(rootedStakeBySlot))
	for slot := range rootedStakeBySlot {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] > slots[j] })

	for _, slot := range slots {
		if float64(rootedStakeBySlot[slot])/float64(totalStaked) > tower.VoteThresholdSize {
			return slot
		}
	}
	return 0
}

func assertSortedAscending(ancestors []types.Slot) {
	for i := 1; i < len(ancestors); i++ {
		if ancestors[i] <= ancestors[i-1] {
			panic("commitment: ancestors must be sorted strictly ascending")
		}
	}
}

// CommitmentAggregationData is one unit of work for the
// AggregateCommitmentService: a frozen bank, the root it was replayed
// against, and the total stake active for its epoch.
type CommitmentAggregationData struct {
	Bank        tower.Bank
	Root        types.Slot
	TotalStaked types.Stake
}

// AggregateCommitmentService owns the single channel receiver that drives
// commitment recomputation and publishes the result into a Cache.
type AggregateCommitmentService struct {
	cache   *Cache
	cfg     *config.CommitmentServiceConfig
	updates chan CommitmentAggregationData
}

// NewAggregateCommitmentService returns a service publishing into cache.
func NewAggregateCommitmentService(cache *Cache, cfg *config.CommitmentServiceConfig) *AggregateCommitmentService {
	return &AggregateCommitmentService{
		cache:   cache,
		cfg:     cfg,
		updates: make(chan CommitmentAggregationData, cfg.BufferSize),
	}
}

// Enqueue submits a new commitment update. It never blocks: if the buffer
// is full, the oldest pending update is discarded to make room, matching
// the coalescing policy that the run loop itself applies on every receive
// (only the latest update per cycle is ever acted on).
func (s *AggregateCommitmentService) Enqueue(data CommitmentAggregationData) {
	select {
	case s.updates <- data:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- data:
	default:
	}
}

// Run drives the aggregation loop until ctx is cancelled. Each iteration
// blocks for at most cfg.RecvTimeout waiting for an update; on receipt it
// drains the channel non-blockingly and keeps only the most recent update,
// since a stale bank is not worth recomputing commitment for.
func (s *AggregateCommitmentService) Run(ctx context.Context) {
	logger.Info("commitment aggregation service starting")
	defer logger.Info("commitment aggregation service stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.updates:
			s.process(s.drainLatest(data))
		case <-time.After(s.cfg.RecvTimeout):
		}
	}
}

func (s *AggregateCommitmentService) drainLatest(latest CommitmentAggregationData) CommitmentAggregationData {
	for {
		select {
		case next := <-s.updates:
			latest = next
		default:
			return latest
		}
	}
}

func (s *AggregateCommitmentService) process(data CommitmentAggregationData) {
	ancestors := data.Bank.StatusCacheAncestors()
	if len(ancestors) == 0 {
		return
	}

	timer := metrics.NewTimer(metrics.CommitmentAggregateDuration)
	defer timer.Stop()

	snapshot := AggregateCommitment(ancestors, data.Bank.VoteAccounts(), data.Root, data.TotalStaked)
	metrics.CommitmentLargestConfirmedRoot.Set(int64(snapshot.LargestConfirmedRoot()))
	metrics.CommitmentCacheUpdates.Inc()
	s.cache.swap(snapshot)

	logger.WithSlot(uint64(data.Bank.Slot())).Debug("commitment aggregation cycle complete",
		"root", data.Root, "largest_confirmed_root", snapshot.LargestConfirmedRoot())
}
