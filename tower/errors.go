package tower

import "errors"

// Sentinel errors, one per taxonomy kind. Callers wrap these with
// fmt.Errorf("...: %w", ...) to add context; errors.Is still matches the
// sentinel.
var (
	ErrIO                         = errors.New("tower: io error")
	ErrSerialization              = errors.New("tower: serialization error")
	ErrInvalidSignature           = errors.New("tower: invalid signature")
	ErrWrongTower                 = errors.New("tower: wrong tower")
	ErrTooOld                     = errors.New("tower: too old")
	ErrInconsistentWithHistory    = errors.New("tower: inconsistent with slot history")
	ErrSwitchSlotIsAncestorOfVote = errors.New("tower: switch_slot is an ancestor of the last voted slot")
)
