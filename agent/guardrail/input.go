// Package guardrail implements the policy evaluators: the on-topic input gate
// run against raw user text, and the per-specialist domain-leak output gates
// run against completed responses. Every evaluator is a stateless structured
// classification; when the classifier cannot produce a structured verdict the
// evaluator fails closed and reports the tripwire as triggered.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
)

type inputLLMOutput struct {
	IsOffTopic bool   `json:"is_off_topic"`
	Reason     string `json:"reason,omitempty"`
}

// InputGate classifies user input against the on-topic rubric.
type InputGate struct {
	runner compose.Runnable[map[string]any, inputLLMOutput]
}

var _ contractx.InputGate = (*InputGate)(nil)

func NewInputGate(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*InputGate, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: input gate prompt", contractx.ErrPromptMissing)
	}
	runner, err := llmx.CompileStructuredGraph[inputLLMOutput](ctx, chatModel, systemPrompt, "guardrail.input_gate")
	if err != nil {
		return nil, fmt.Errorf("%w: compile input gate graph: %v", contractx.ErrModelInvoke, err)
	}
	return &InputGate{runner: runner}, nil
}

func newInputGate(runner compose.Runnable[map[string]any, inputLLMOutput]) *InputGate {
	return &InputGate{runner: runner}
}

// Evaluate returns the gate's verdict for one utterance. A classifier failure
// never fails open: the verdict comes back with the tripwire set and a nil
// error so callers treat it as a rejection.
func (g *InputGate) Evaluate(ctx context.Context, text string, cust contractx.CustomerContext) (contractx.InputVerdict, error) {
	payload, err := gatePayload("text", text, cust)
	if err != nil {
		return failClosedInput(err), nil
	}

	out, err := g.runner.Invoke(ctx, map[string]any{"input": payload})
	if err != nil {
		return failClosedInput(err), nil
	}

	return contractx.InputVerdict{
		Tripwire:   out.IsOffTopic,
		IsOffTopic: out.IsOffTopic,
		Reason:     strings.TrimSpace(out.Reason),
	}, nil
}

func failClosedInput(cause error) contractx.InputVerdict {
	log.Warn().Err(cause).Msg("input gate unavailable, failing closed")
	return contractx.InputVerdict{
		Tripwire:   true,
		IsOffTopic: false,
		Reason:     "policy evaluator unavailable",
	}
}

func gatePayload(field, text string, cust contractx.CustomerContext) (string, error) {
	b, err := json.Marshal(map[string]any{
		field: text,
		"customer": map[string]any{
			"name": cust.Name,
			"tier": cust.Tier,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal gate payload: %v", contractx.ErrValidation, err)
	}
	return string(b), nil
}
