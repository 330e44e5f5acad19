package tower

import (
	"sort"

	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

// MaxLockoutHistory mirrors votestate.MaxLockoutHistory for callers that
// only import tower.
const MaxLockoutHistory = votestate.MaxLockoutHistory

// VoteThresholdDepth is the stack depth (from the top) consulted by
// CheckVoteStakeThreshold.
const VoteThresholdDepth = 8

// VoteThresholdSize is the super-majority fraction used for confirmation,
// rooting, and threshold checks.
const VoteThresholdSize = 2.0 / 3.0

// SwitchForkThreshold is the stake fraction that must be locked out against
// the current fork before a switch is justified.
const SwitchForkThreshold = 0.38

// VoteAccountEntry is one remote validator's stake and (possibly
// undecodable) vote state, as handed to the Tower by the bank. Vote-program
// wire decoding of the on-chain account bytes is out of scope; callers
// supply the already-decoded VoteState (or a non-nil DecodeErr if the
// account was malformed).
type VoteAccountEntry struct {
	Stake     types.Stake
	State     *votestate.VoteState
	DecodeErr error
}

// VoteAccounts is a bank's vote-account table, keyed by voter identity.
type VoteAccounts map[types.Pubkey]VoteAccountEntry

// AncestorSet is a slot's ancestor slots, exclusive of itself unless the
// producer chooses to include it; CheckSwitchThreshold and IsLockedOut
// document which convention they expect.
type AncestorSet map[types.Slot]struct{}

// Bank is the read-only view of chain state the core consumes. Block
// production, execution, and gossip are out of scope; this interface is the
// entire surface Tower needs from the rest of the validator.
type Bank interface {
	Slot() types.Slot
	Hash() types.Hash
	VoteAccounts() VoteAccounts
	Ancestors() map[types.Slot]AncestorSet
	StatusCacheAncestors() []types.Slot
	TotalEpochStake() types.Stake
	EpochVoteAccounts(epoch uint64) VoteAccounts
}

// SlotHistoryCheck classifies a slot against the validator's observed slot
// history during post-replay reconciliation.
type SlotHistoryCheck int

const (
	Future SlotHistoryCheck = iota
	Found
	NotFound
	TooOld
)

func (c SlotHistoryCheck) String() string {
	switch c {
	case Future:
		return "Future"
	case Found:
		return "Found"
	case NotFound:
		return "NotFound"
	case TooOld:
		return "TooOld"
	default:
		return "Unknown"
	}
}

// SlotHistory is a bit-set the validator maintains of every slot it has
// observed, used to reconcile a restored tower against a newer ledger root.
type SlotHistory interface {
	Check(slot types.Slot) SlotHistoryCheck
	Oldest() types.Slot
}

// SwitchForkDecisionKind enumerates the three outcomes of
// Tower.CheckSwitchThreshold.
type SwitchForkDecisionKind int

const (
	NoSwitch SwitchForkDecisionKind = iota
	SwitchProof
	FailedSwitchThreshold
)

func (k SwitchForkDecisionKind) String() string {
	switch k {
	case NoSwitch:
		return "NoSwitch"
	case SwitchProof:
		return "SwitchProof"
	case FailedSwitchThreshold:
		return "FailedSwitchThreshold"
	default:
		return "Unknown"
	}
}

// SwitchForkDecision is the result of evaluating whether the validator may
// abandon its current fork. Hash is only meaningful when Kind == SwitchProof.
type SwitchForkDecision struct {
	Kind SwitchForkDecisionKind
	Hash types.Hash
}

// PubkeyVote records a voter's last-voted slot, collected during
// CollectVoteLockouts for use by fork choice.
type PubkeyVote struct {
	Voter types.Pubkey
	Slot  types.Slot
}

// IntervalVote is one entry in a LockoutIntervals bucket: the lockout's
// start slot and the voter that cast it.
type IntervalVote struct {
	IntervalStart types.Slot
	Voter         types.Pubkey
}

// LockoutIntervals is an ordered map keyed by lockout expiration slot,
// supporting ascending range queries of "all voters still locked out at or
// after slot S".
type LockoutIntervals struct {
	byExpiration map[types.Slot][]IntervalVote
}

// NewLockoutIntervals returns an empty LockoutIntervals.
func NewLockoutIntervals() *LockoutIntervals {
	return &LockoutIntervals{byExpiration: make(map[types.Slot][]IntervalVote)}
}

// Insert records that voter's lockout starting at intervalStart expires at
// expiration.
func (li *LockoutIntervals) Insert(expiration, intervalStart types.Slot, voter types.Pubkey) {
	li.byExpiration[expiration] = append(li.byExpiration[expiration], IntervalVote{
		IntervalStart: intervalStart,
		Voter:         voter,
	})
}

// ExpirationBucket pairs an expiration slot with the votes expiring there,
// returned by Range in ascending expiration order.
type ExpirationBucket struct {
	Expiration types.Slot
	Votes      []IntervalVote
}

// Range returns every bucket with Expiration >= from, ascending. This
// implements the range[S, ∞) query used by the switch-fork threshold.
func (li *LockoutIntervals) Range(from types.Slot) []ExpirationBucket {
	keys := make([]types.Slot, 0, len(li.byExpiration))
	for k := range li.byExpiration {
		if k >= from {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]ExpirationBucket, len(keys))
	for i, k := range keys {
		buckets[i] = ExpirationBucket{Expiration: k, Votes: li.byExpiration[k]}
	}
	return buckets
}

// ComputedBankState is the per-candidate-bank aggregation output produced
// by CollectVoteLockouts. It is constructed per replay cycle and discarded;
// PubkeyVotes is shared read-only with the fork-choice module.
type ComputedBankState struct {
	VotedStakes      map[types.Slot]types.Stake
	TotalStake       types.Stake
	BankWeight       *BigStake
	LockoutIntervals *LockoutIntervals
	PubkeyVotes      []PubkeyVote
}
