// Package votestate implements the per-validator lockout stack: an ordered
// history of votes with exponentially-growing confirmation counts, a root
// slot, and the node's timestamp watermark.
package votestate

import (
	"github.com/towerbft/consensus-core/types"
)

// MaxLockoutHistory bounds the number of simultaneous lockouts a VoteState
// may hold before the oldest is rooted.
const MaxLockoutHistory = 32

// Lockout is a commitment to not vote on a competing fork for
// 2^ConfirmationCount slots, recorded against Slot.
type Lockout struct {
	Slot              types.Slot
	ConfirmationCount uint32
}

// LockoutPeriod returns 2^ConfirmationCount, the number of slots this
// lockout remains in force for.
func (l Lockout) LockoutPeriod() uint64 {
	return uint64(1) << l.ConfirmationCount
}

// ExpirationSlot returns the first slot at which this lockout no longer
// applies.
func (l Lockout) ExpirationSlot() types.Slot {
	return l.Slot + types.Slot(l.LockoutPeriod())
}

// BlockTimestamp anchors a validator's reported wall-clock time to a slot.
type BlockTimestamp struct {
	Slot          types.Slot
	UnixTimestamp int64
}

// VoteState is the ordered lockout stack for a single validator, bottom
// (oldest) to top (most recent).
type VoteState struct {
	NodePubkey    types.Pubkey
	Votes         []Lockout
	RootSlot      *types.Slot
	LastTimestamp BlockTimestamp
}

// New returns an empty VoteState for the given node identity.
func New(nodePubkey types.Pubkey) *VoteState {
	return &VoteState{NodePubkey: nodePubkey}
}

// Clone returns a deep copy: callers simulate votes against a clone so the
// persistent VoteState is never mutated by evaluation.
func (vs *VoteState) Clone() *VoteState {
	cp := *vs
	cp.Votes = append([]Lockout(nil), vs.Votes...)
	if vs.RootSlot != nil {
		root := *vs.RootSlot
		cp.RootSlot = &root
	}
	return &cp
}

// LastVotedSlot returns the slot of the top-of-stack lockout, if any.
func (vs *VoteState) LastVotedSlot() (types.Slot, bool) {
	if len(vs.Votes) == 0 {
		return 0, false
	}
	return vs.Votes[len(vs.Votes)-1].Slot, true
}

// NthRecentVote returns the lockout n positions from the top: n=0 is the
// most recent vote, n=1 the one below it, and so on.
func (vs *VoteState) NthRecentVote(n int) (Lockout, bool) {
	idx := len(vs.Votes) - 1 - n
	if idx < 0 || idx >= len(vs.Votes) {
		return Lockout{}, false
	}
	return vs.Votes[idx], true
}

// ProcessSlotVote simulates casting a vote for slot, unchecked: it does not
// consult threshold or lockout policy, it only applies the vote-stack
// mechanics described by the vote program. Tower.RecordBankVote is the only
// caller that applies this to the validator's persistent VoteState; every
// other caller operates on a Clone.
func (vs *VoteState) ProcessSlotVote(slot types.Slot) {
	vs.popExpiredVotes(slot)
	vs.doubleLockouts()
	vs.Votes = append(vs.Votes, Lockout{Slot: slot, ConfirmationCount: 1})

	if len(vs.Votes) == MaxLockoutHistory+1 {
		root := vs.Votes[0].Slot
		vs.Votes = vs.Votes[1:]
		vs.RootSlot = &root
	}
}

// popExpiredVotes removes lockouts, starting from the top, whose
// expiration is at or before the incoming vote slot.
func (vs *VoteState) popExpiredVotes(slot types.Slot) {
	for len(vs.Votes) > 0 {
		top := vs.Votes[len(vs.Votes)-1]
		if top.ExpirationSlot() > slot {
			break
		}
		vs.Votes = vs.Votes[:len(vs.Votes)-1]
	}
}

// doubleLockouts increments the confirmation count of every lockout that
// has accumulated enough additional votes above it to earn another
// confirmation, capped at MaxLockoutHistory. It runs against the
// pre-push stack depth, so the vote about to be pushed counts toward the
// depth threshold.
func (vs *VoteState) doubleLockouts() {
	depth := len(vs.Votes)
	for i := range vs.Votes {
		if depth >= i+int(vs.Votes[i].ConfirmationCount) {
			if vs.Votes[i].ConfirmationCount < MaxLockoutHistory {
				vs.Votes[i].ConfirmationCount++
			}
		}
	}
}
