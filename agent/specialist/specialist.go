// Package specialist provides the four domain response generators. Each
// specialist streams text fragments lazily and carries its own output gate;
// the orchestrator is responsible for buffering the stream and running the
// gate before anything reaches the user.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
)

type specialistImpl struct {
	name   contractx.SpecialistName
	runner compose.Runnable[map[string]any, *schema.Message]
	gate   contractx.OutputGate
}

var _ contractx.Specialist = (*specialistImpl)(nil)

func newSpecialist(
	ctx context.Context,
	name contractx.SpecialistName,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	gate contractx.OutputGate,
) (*specialistImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: specialist prompt for %s", contractx.ErrPromptMissing, name)
	}
	if gate == nil {
		return nil, fmt.Errorf("%w: specialist %s requires an output gate", contractx.ErrValidation, name)
	}
	runner, err := llmx.CompileChatGraph(ctx, chatModel, systemPrompt, fmt.Sprintf("specialist.%s", name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile specialist graph for %s: %v", contractx.ErrModelInvoke, name, err)
	}
	return &specialistImpl{name: name, runner: runner, gate: gate}, nil
}

func (s *specialistImpl) Name() contractx.SpecialistName { return s.name }

func (s *specialistImpl) OutputGate() contractx.OutputGate { return s.gate }

// Respond streams the specialist's answer as text fragments. The stream is
// finite and not restartable; empty model chunks are skipped.
func (s *specialistImpl) Respond(
	ctx context.Context,
	cust contractx.CustomerContext,
	history []contractx.Item,
) (*schema.StreamReader[string], error) {
	turns := lo.Map(history, func(item contractx.Item, _ int) map[string]string {
		return map[string]string{
			"role":    string(item.Role),
			"content": item.Content,
		}
	})

	payload, err := json.Marshal(map[string]any{
		"customer": map[string]any{
			"name":  cust.Name,
			"email": cust.Email,
			"tier":  cust.Tier,
		},
		"conversation": turns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal specialist payload: %v", contractx.ErrValidation, err)
	}

	stream, err := s.runner.Stream(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return nil, fmt.Errorf("%w: specialist %s stream: %v", contractx.ErrModelInvoke, s.name, err)
	}

	return schema.StreamReaderWithConvert(stream, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}
