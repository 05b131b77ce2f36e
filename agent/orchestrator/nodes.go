package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	handoffx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/handoff"
	sessionx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/session"
)

var ErrInvalidMessage = errors.New("message is empty")

type GraphInput struct {
	SessionID string
	Text      string
}

type routeKind string

const (
	routeReject  routeKind = "reject"
	routeClarify routeKind = "clarify"
	routeHandoff routeKind = "handoff"
	routeResume  routeKind = "resume"
)

type turnState struct {
	sessionID string
	text      string
	now       time.Time

	history []contractx.Item
	active  contractx.SpecialistName

	route    routeKind
	decision contractx.Decision

	target   contractx.Specialist
	filtered []contractx.Item

	fragments []string
	reply     string
	outcome   Outcome
}

func validateRequest(in GraphInput, nowFn func() time.Time) (*turnState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, sessionx.ErrInvalidSession
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	return &turnState{
		sessionID: sessionID,
		text:      text,
		now:       nowFn().UTC(),
	}, nil
}

func (o *Orchestrator) loadSession(ctx context.Context, st *turnState) (*turnState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	items, err := o.store.Items(ctx, st.sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session items: %w", err)
	}
	active, err := o.store.ActiveSpecialist(ctx, st.sessionID)
	if err != nil {
		return nil, fmt.Errorf("load active specialist: %w", err)
	}

	st.history = items
	st.active = active
	return st, nil
}

// decide picks the turn's path. When the triage router owns the session it
// classifies and gates concurrently; when a specialist already owns it, only
// the input gate runs and the turn resumes with that specialist.
func (o *Orchestrator) decide(ctx context.Context, st *turnState) (*turnState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	if st.active != contractx.SpecialistTriage {
		verdict, err := o.gate.Evaluate(ctx, st.text, o.cust)
		if err != nil {
			return nil, err
		}
		if verdict.Tripwire {
			st.route = routeReject
			st.decision = contractx.Decision{Kind: contractx.DecisionReject, Verdict: verdict}
			return st, nil
		}
		st.route = routeResume
		return st, nil
	}

	decision, err := o.router.Route(ctx, st.text, o.cust, st.history)
	if err != nil {
		return nil, err
	}
	st.decision = decision

	switch decision.Kind {
	case contractx.DecisionReject:
		st.route = routeReject
	case contractx.DecisionClarify:
		st.route = routeClarify
	case contractx.DecisionHandoff:
		st.route = routeHandoff
	default:
		return nil, fmt.Errorf("%w: router returned decision kind=%q", contractx.ErrSchemaViolation, decision.Kind)
	}
	return st, nil
}

func (o *Orchestrator) rejectTurn(ctx context.Context, st *turnState) (*turnState, error) {
	st.outcome = OutcomeInputRejected
	st.reply = o.cfg.InputRefusal
	return st, nil
}

func (o *Orchestrator) clarifyTurn(ctx context.Context, st *turnState) (*turnState, error) {
	st.outcome = OutcomeClarified
	st.reply = st.decision.Question
	return st, nil
}

func (o *Orchestrator) performHandoff(ctx context.Context, st *turnState) (*turnState, error) {
	if st.decision.Kind != contractx.DecisionHandoff {
		return nil, fmt.Errorf("%w: handoff node reached from decision kind=%q",
			contractx.ErrHandoffViolation, st.decision.Kind)
	}

	target, ok := o.registry.Lookup(st.decision.Handoff.ToAgentName)
	if !ok {
		return nil, fmt.Errorf("%w: no specialist registered for %q",
			contractx.ErrHandoffViolation, st.decision.Handoff.ToAgentName)
	}

	filtered, err := o.handoffs.Execute(ctx, st.sessionID, target, st.decision.Handoff, st.history)
	if err != nil {
		return nil, err
	}

	st.target = target
	st.filtered = filtered
	return st, nil
}

func (o *Orchestrator) resumeSpecialist(ctx context.Context, st *turnState) (*turnState, error) {
	target, ok := o.registry.Lookup(st.active)
	if !ok {
		return nil, fmt.Errorf("%w: active pointer names unknown specialist %q",
			contractx.ErrHandoffViolation, st.active)
	}
	st.target = target
	st.filtered = handoffx.FilterToolItems(st.history)
	return st, nil
}

// generateReply drains the specialist's fragment stream into a buffer, runs
// the specialist's output gate on the completed response, and only then
// decides what the caller will see. A tripped gate discards the buffer whole;
// no partial specialist output ever survives this node.
func (o *Orchestrator) generateReply(ctx context.Context, st *turnState) (*turnState, error) {
	if st.target == nil {
		return nil, fmt.Errorf("%w: no specialist selected for turn", contractx.ErrHandoffViolation)
	}

	conversation := append(append([]contractx.Item(nil), st.filtered...), contractx.Item{
		Role:      contractx.RoleUser,
		Content:   st.text,
		CreatedAt: st.now,
	})

	stream, err := st.target.Respond(ctx, o.cust, conversation)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var fragments []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: specialist %s stream: %v", contractx.ErrModelInvoke, st.target.Name(), err)
		}
		fragments = append(fragments, chunk)
	}

	full := strings.TrimSpace(strings.Join(fragments, ""))
	if full == "" {
		return nil, fmt.Errorf("%w: specialist %s returned empty response", contractx.ErrSchemaViolation, st.target.Name())
	}

	verdict, err := st.target.OutputGate().Evaluate(ctx, full, o.cust)
	if err != nil {
		return nil, err
	}
	if verdict.Tripwire {
		st.outcome = OutcomeOutputRejected
		st.reply = o.cfg.OutputRefusal
		st.fragments = nil
		return st, nil
	}

	st.outcome = OutcomeDelivered
	st.reply = full
	st.fragments = fragments
	return st, nil
}

// persistTurn appends the exchange: the user's utterance verbatim first, then
// whatever the turn resolved to (delivered text, clarification, or refusal).
func (o *Orchestrator) persistTurn(ctx context.Context, st *turnState) (*turnState, error) {
	if err := o.store.Append(ctx, st.sessionID, contractx.Item{
		Role:      contractx.RoleUser,
		Content:   st.text,
		CreatedAt: st.now,
	}); err != nil {
		return nil, fmt.Errorf("append user item: %w", err)
	}
	if err := o.store.Append(ctx, st.sessionID, contractx.Item{
		Role:      contractx.RoleAssistant,
		Content:   st.reply,
		CreatedAt: o.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("append assistant item: %w", err)
	}
	return st, nil
}

func finalizeTurn(ctx context.Context, st *turnState) (*TurnResult, error) {
	if st == nil || st.outcome == "" || strings.TrimSpace(st.reply) == "" {
		return nil, fmt.Errorf("%w: turn ended without a resolution", contractx.ErrValidation)
	}

	fragments := st.fragments
	if st.outcome != OutcomeDelivered {
		fragments = []string{st.reply}
	}

	result := &TurnResult{
		Outcome:   st.outcome,
		Reply:     st.reply,
		Fragments: schema.StreamReaderFromArray(fragments),
	}
	if st.target != nil {
		result.Specialist = st.target.Name()
	}
	return result, nil
}
