package session

import (
	"context"
	"errors"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNilItem        = errors.New("session item is empty")
)

// Store is the persistence contract for conversation history and the
// per-session active-specialist pointer.
//
// Append preserves insertion order; Items returns items in exactly that order.
// Clear removes all items and resets the pointer to the triage router; clearing
// an already-empty session is a no-op. The core assumes a single writer per
// session, so no cross-item transactional semantics are required.
type Store interface {
	Append(ctx context.Context, sessionID string, item contractx.Item) error
	Items(ctx context.Context, sessionID string) ([]contractx.Item, error)
	Clear(ctx context.Context, sessionID string) error

	ActiveSpecialist(ctx context.Context, sessionID string) (contractx.SpecialistName, error)
	SetActiveSpecialist(ctx context.Context, sessionID string, name contractx.SpecialistName) error
}
