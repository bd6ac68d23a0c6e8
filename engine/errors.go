package engine

import "errors"

// Validation failures are all-or-nothing: an operation that returns one of
// these errors has left no partial state behind. The single sanctioned side
// effect is the lazy Pending -> Failed transition behind ErrTaskTimedOut.
var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskAlreadyFinalized  = errors.New("task already finalized")
	ErrTaskTimedOut          = errors.New("task timed out")
	ErrDuplicateResponse     = errors.New("duplicate response for this task")
	ErrNotRegistered         = errors.New("validator is not registered")
	ErrInsufficientStake     = errors.New("stake is below the required minimum")
	ErrInvalidQuorumFraction = errors.New("quorum fraction is outside the allowed range")
	ErrEmptyPayload          = errors.New("payload is empty")
	ErrInvalidSignature      = errors.New("signature verification failed")
	ErrTaskNotCompleted      = errors.New("task is not in completed status")
	ErrAlreadyRegistered     = errors.New("validator is already registered")
	ErrStakeOverflow         = errors.New("stake addition overflows uint64")
)
