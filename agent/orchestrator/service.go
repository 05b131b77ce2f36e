// Package orchestrator composes router, handoff controller, specialists, and
// session store into one turn pipeline: classify and gate the input, transfer
// control to exactly one specialist, buffer and validate its streamed output,
// and persist the exchange in order.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	sessionx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/session"
)

// Outcome is the terminal state of one turn.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeInputRejected  Outcome = "input_rejected"
	OutcomeOutputRejected Outcome = "output_rejected"
	OutcomeClarified      Outcome = "clarified"
)

// TurnResult is what the caller receives for one turn. Fragments is a finite
// stream: the buffered specialist fragments when the turn was delivered, or a
// single canned refusal/clarification otherwise. Nothing is flushed into it
// until the output gate has cleared the response.
type TurnResult struct {
	Outcome    Outcome
	Specialist contractx.SpecialistName
	Reply      string
	Fragments  *schema.StreamReader[string]
}

// Config carries the locale-specific canned strings. They are configuration
// values surfaced verbatim, never computed.
type Config struct {
	InputRefusal  string `envconfig:"INPUT_REFUSAL" split_words:"true" default:"그 질문은 제가 도와드릴 수 없어요."`
	OutputRefusal string `envconfig:"OUTPUT_REFUSAL" split_words:"true" default:"그 질문에 답변할 수 없습니다."`
}

type Orchestrator struct {
	store    sessionx.Store
	router   contractx.Router
	registry contractx.Registry
	handoffs contractx.HandoffController
	gate     contractx.InputGate

	cust contractx.CustomerContext
	cfg  Config

	graphRunner compose.Runnable[GraphInput, *TurnResult]

	// busy enforces the single-writer-per-session assumption; concurrent
	// turns on different sessions proceed independently.
	busy sync.Map

	now func() time.Time
}

func New(
	store sessionx.Store,
	router contractx.Router,
	registry contractx.Registry,
	handoffs contractx.HandoffController,
	gate contractx.InputGate,
	cust contractx.CustomerContext,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", contractx.ErrValidation)
	}
	if router == nil {
		return nil, fmt.Errorf("%w: router is required", contractx.ErrValidation)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: specialist registry is required", contractx.ErrValidation)
	}
	if handoffs == nil {
		return nil, fmt.Errorf("%w: handoff controller is required", contractx.ErrValidation)
	}
	if gate == nil {
		return nil, fmt.Errorf("%w: input gate is required", contractx.ErrValidation)
	}
	if err := cust.Validate(); err != nil {
		return nil, fmt.Errorf("%w: customer context: %v", contractx.ErrValidation, err)
	}
	if strings.TrimSpace(cfg.InputRefusal) == "" || strings.TrimSpace(cfg.OutputRefusal) == "" {
		return nil, fmt.Errorf("%w: canned refusal strings are required", contractx.ErrValidation)
	}

	o := &Orchestrator{
		store:    store,
		router:   router,
		registry: registry,
		handoffs: handoffs,
		gate:     gate,
		cust:     cust,
		cfg:      cfg,
		now:      time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one transcribed utterance through the full pipeline.
// Conversational rejections come back as a TurnResult, never as an error;
// errors are reserved for invariant violations and unavailable collaborators.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (*TurnResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, sessionx.ErrInvalidSession
	}

	if _, inflight := o.busy.LoadOrStore(sessionID, struct{}{}); inflight {
		return nil, fmt.Errorf("%w: session=%s", contractx.ErrConcurrentTurn, sessionID)
	}
	defer o.busy.Delete(sessionID)

	return o.graphRunner.Invoke(ctx, GraphInput{SessionID: sessionID, Text: text})
}

// Reset clears the session history and returns the active-specialist pointer
// to the triage router.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	return o.store.Clear(ctx, sessionID)
}
