// Package triage implements the entry router. One Route call classifies the
// utterance into a specialist category (or a clarifying question) while the
// input gate evaluates the same text concurrently; both results are joined
// before a decision is finalized, and a tripped gate always wins over any
// computed handoff.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/samber/lo"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
)

// historyWindow bounds how much conversation the classifier sees.
const historyWindow = 12

type routeLLMOutput struct {
	Decision         string `json:"decision"`
	Category         string `json:"category,omitempty"`
	Reason           string `json:"reason,omitempty"`
	IssueDescription string `json:"issue_description,omitempty"`
	Clarification    string `json:"clarification,omitempty"`
}

type Router struct {
	runner compose.Runnable[map[string]any, routeLLMOutput]
	gate   contractx.InputGate
}

var _ contractx.Router = (*Router)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, gate contractx.InputGate) (*Router, error) {
	if gate == nil {
		return nil, fmt.Errorf("%w: input gate is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: triage prompt", contractx.ErrPromptMissing)
	}
	runner, err := llmx.CompileStructuredGraph[routeLLMOutput](ctx, chatModel, systemPrompt, "triage.route")
	if err != nil {
		return nil, fmt.Errorf("%w: compile triage graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Router{runner: runner, gate: gate}, nil
}

func newRouter(runner compose.Runnable[map[string]any, routeLLMOutput], gate contractx.InputGate) *Router {
	return &Router{runner: runner, gate: gate}
}

type classifyResult struct {
	out routeLLMOutput
	err error
}

// Route joins the input gate verdict with the classification result. Both
// always complete before the decision is finalized; the router never emits a
// handoff for input impounded by the gate, regardless of which call finished
// first.
func (r *Router) Route(
	ctx context.Context,
	text string,
	cust contractx.CustomerContext,
	history []contractx.Item,
) (contractx.Decision, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return contractx.Decision{}, fmt.Errorf("%w: utterance is empty", contractx.ErrValidation)
	}

	gateCh := make(chan contractx.InputVerdict, 1)
	go func() {
		verdict, _ := r.gate.Evaluate(ctx, text, cust)
		gateCh <- verdict
	}()

	classifyCh := make(chan classifyResult, 1)
	go func() {
		out, err := r.classify(ctx, text, cust, history)
		classifyCh <- classifyResult{out: out, err: err}
	}()

	verdict := <-gateCh
	classified := <-classifyCh

	if verdict.Tripwire {
		return contractx.Decision{Kind: contractx.DecisionReject, Verdict: verdict}, nil
	}
	if classified.err != nil {
		return contractx.Decision{}, classified.err
	}

	return decisionFrom(classified.out)
}

func (r *Router) classify(
	ctx context.Context,
	text string,
	cust contractx.CustomerContext,
	history []contractx.Item,
) (routeLLMOutput, error) {
	recent := lo.Filter(history, func(item contractx.Item, _ int) bool {
		return item.Role == contractx.RoleUser || item.Role == contractx.RoleAssistant
	})
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	turns := lo.Map(recent, func(item contractx.Item, _ int) map[string]string {
		return map[string]string{
			"role":    string(item.Role),
			"content": item.Content,
		}
	})

	payload, err := json.Marshal(map[string]any{
		"user_message": text,
		"customer": map[string]any{
			"name":  cust.Name,
			"email": cust.Email,
			"tier":  cust.Tier,
		},
		"conversation": turns,
	})
	if err != nil {
		return routeLLMOutput{}, fmt.Errorf("%w: marshal triage payload: %v", contractx.ErrValidation, err)
	}

	out, err := r.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return routeLLMOutput{}, fmt.Errorf("%w: triage invoke: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func decisionFrom(out routeLLMOutput) (contractx.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(out.Decision)) {
	case "clarify":
		question := strings.TrimSpace(out.Clarification)
		if question == "" {
			return contractx.Decision{}, fmt.Errorf("%w: clarify decision without clarification", contractx.ErrSchemaViolation)
		}
		return contractx.Decision{Kind: contractx.DecisionClarify, Question: question}, nil

	case "handoff":
		issue := contractx.IssueType(strings.ToLower(strings.TrimSpace(out.Category)))
		target, ok := contractx.SpecialistFor(issue)
		if !ok {
			return contractx.Decision{}, fmt.Errorf("%w: unsupported category=%q", contractx.ErrSchemaViolation, out.Category)
		}
		reason := strings.TrimSpace(out.Reason)
		if reason == "" {
			return contractx.Decision{}, fmt.Errorf("%w: handoff decision without reason", contractx.ErrSchemaViolation)
		}
		description := strings.TrimSpace(out.IssueDescription)
		if description == "" {
			description = reason
		}
		return contractx.Decision{
			Kind: contractx.DecisionHandoff,
			Handoff: contractx.HandoffData{
				ToAgentName:      target,
				Reason:           reason,
				IssueType:        issue,
				IssueDescription: description,
			},
		}, nil

	default:
		return contractx.Decision{}, fmt.Errorf("%w: unknown triage decision=%q", contractx.ErrSchemaViolation, out.Decision)
	}
}
