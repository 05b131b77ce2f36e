package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrHandoffViolation marks a programming-contract violation around
	// active-specialist ownership: a handoff attempted from a non-handoff
	// decision, mismatched target, or a second specialist activating
	// concurrently. Not recoverable at runtime.
	ErrHandoffViolation = errors.New("handoff invariant violated")

	// ErrConcurrentTurn is returned when a second turn starts on a session
	// that already has one in flight. Sessions are single-writer.
	ErrConcurrentTurn = errors.New("turn already in flight for session")
)
