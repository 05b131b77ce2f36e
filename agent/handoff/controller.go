// Package handoff transfers active-specialist ownership for a session. A
// handoff either fully completes (pointer updated, exactly one audit record
// emitted, filtered history returned) or leaves the session untouched.
package handoff

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	sessionx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/session"
)

type Controller struct {
	store    sessionx.Store
	observer contractx.AuditObserver

	mu       sync.Mutex
	inflight map[string]struct{}
}

var _ contractx.HandoffController = (*Controller)(nil)

func New(store sessionx.Store, observer contractx.AuditObserver) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", contractx.ErrValidation)
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Controller{
		store:    store,
		observer: observer,
		inflight: make(map[string]struct{}),
	}, nil
}

// Execute performs one handoff. The caller must only invoke it from a handoff
// decision; anything else is a contract violation and comes back as
// ErrHandoffViolation, as does a second handoff racing on the same session.
func (c *Controller) Execute(
	ctx context.Context,
	sessionID string,
	target contractx.Specialist,
	data contractx.HandoffData,
	history []contractx.Item,
) ([]contractx.Item, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, sessionx.ErrInvalidSession
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil target specialist", contractx.ErrHandoffViolation)
	}
	if data.ToAgentName != target.Name() {
		return nil, fmt.Errorf("%w: handoff data addressed to %q but target is %q",
			contractx.ErrHandoffViolation, data.ToAgentName, target.Name())
	}
	if strings.TrimSpace(data.Reason) == "" || strings.TrimSpace(string(data.IssueType)) == "" {
		return nil, fmt.Errorf("%w: handoff reason and issue type are required", contractx.ErrHandoffViolation)
	}

	if !c.acquire(sessionID) {
		return nil, fmt.Errorf("%w: concurrent handoff on session=%s", contractx.ErrHandoffViolation, sessionID)
	}
	defer c.release(sessionID)

	if err := c.store.SetActiveSpecialist(ctx, sessionID, target.Name()); err != nil {
		return nil, fmt.Errorf("activate specialist %s: %w", target.Name(), err)
	}

	c.observer.HandoffOccurred(ctx, sessionID, data)

	return FilterToolItems(history), nil
}

func (c *Controller) acquire(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[sessionID]; busy {
		return false
	}
	c.inflight[sessionID] = struct{}{}
	return true
}

func (c *Controller) release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, sessionID)
}

// FilterToolItems strips internal tool-invocation records from a history,
// leaving only the user/assistant textual turns a specialist is allowed to
// see.
func FilterToolItems(history []contractx.Item) []contractx.Item {
	return lo.Filter(history, func(item contractx.Item, _ int) bool {
		return item.Role == contractx.RoleUser || item.Role == contractx.RoleAssistant
	})
}

type noopObserver struct{}

func (noopObserver) HandoffOccurred(context.Context, string, contractx.HandoffData) {}
