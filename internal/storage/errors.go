package storage

import "errors"

// Sentinel errors returned by storage implementations. Callers match with
// errors.Is after unwrapping.
var (
	// ErrNotFound indicates the requested record or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the caller passed malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorrupt indicates a store failed to parse or violated a structural
	// invariant on read. The store is unusable until externally repaired;
	// this must never be papered over by defaulting missing fields.
	ErrCorrupt = errors.New("store corrupt")

	// ErrInvalidTransition indicates a memory status change that the
	// lifecycle state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
