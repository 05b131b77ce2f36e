package guardrail

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
)

type outputLLMOutput struct {
	ContainsOffTopic      bool   `json:"contains_off_topic"`
	ContainsAccountData   bool   `json:"contains_account_data"`
	ContainsBillingData   bool   `json:"contains_billing_data"`
	ContainsOrderData     bool   `json:"contains_order_data"`
	ContainsTechnicalData bool   `json:"contains_technical_data"`
	Reason                string `json:"reason,omitempty"`
}

// OutputGate classifies one specialist's completed responses. The gate's own
// domain flag never contributes to the tripwire; the other three domains and
// off-topic leakage do.
type OutputGate struct {
	domain contractx.SpecialistName
	runner compose.Runnable[map[string]any, outputLLMOutput]
}

var _ contractx.OutputGate = (*OutputGate)(nil)

func NewOutputGate(
	ctx context.Context,
	domain contractx.SpecialistName,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*OutputGate, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: output gate prompt for domain=%s", contractx.ErrPromptMissing, domain)
	}
	runner, err := llmx.CompileStructuredGraph[outputLLMOutput](
		ctx, chatModel, systemPrompt, fmt.Sprintf("guardrail.output_gate.%s", domain),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: compile output gate graph for domain=%s: %v", contractx.ErrModelInvoke, domain, err)
	}
	return &OutputGate{domain: domain, runner: runner}, nil
}

func newOutputGate(domain contractx.SpecialistName, runner compose.Runnable[map[string]any, outputLLMOutput]) *OutputGate {
	return &OutputGate{domain: domain, runner: runner}
}

func (g *OutputGate) Domain() contractx.SpecialistName { return g.domain }

// Evaluate runs the gate on a completed response. Fails closed on classifier
// failure, same as the input gate.
func (g *OutputGate) Evaluate(ctx context.Context, text string, cust contractx.CustomerContext) (contractx.OutputVerdict, error) {
	payload, err := gatePayload("response", text, cust)
	if err != nil {
		return g.failClosed(err), nil
	}

	out, err := g.runner.Invoke(ctx, map[string]any{"input": payload})
	if err != nil {
		return g.failClosed(err), nil
	}

	verdict := contractx.OutputVerdict{
		ContainsOffTopic:      out.ContainsOffTopic,
		ContainsAccountData:   out.ContainsAccountData,
		ContainsBillingData:   out.ContainsBillingData,
		ContainsOrderData:     out.ContainsOrderData,
		ContainsTechnicalData: out.ContainsTechnicalData,
		Reason:                strings.TrimSpace(out.Reason),
	}
	verdict.Tripwire = g.tripped(verdict)
	return verdict, nil
}

func (g *OutputGate) tripped(v contractx.OutputVerdict) bool {
	if v.ContainsOffTopic {
		return true
	}
	leaks := map[contractx.SpecialistName]bool{
		contractx.SpecialistAccount:   v.ContainsAccountData,
		contractx.SpecialistBilling:   v.ContainsBillingData,
		contractx.SpecialistOrder:     v.ContainsOrderData,
		contractx.SpecialistTechnical: v.ContainsTechnicalData,
	}
	delete(leaks, g.domain)
	for _, leaked := range leaks {
		if leaked {
			return true
		}
	}
	return false
}

func (g *OutputGate) failClosed(cause error) contractx.OutputVerdict {
	log.Warn().Err(cause).Str("domain", string(g.domain)).Msg("output gate unavailable, failing closed")
	return contractx.OutputVerdict{
		Tripwire: true,
		Reason:   "policy evaluator unavailable",
	}
}
