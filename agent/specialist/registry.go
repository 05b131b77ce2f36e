package specialist

import (
	"context"
	"fmt"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	guardrailx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/guardrail"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
	promptx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/prompt"
)

type registryImpl struct {
	account   contractx.Specialist
	billing   contractx.Specialist
	order     contractx.Specialist
	technical contractx.Specialist
}

func (r *registryImpl) Account() contractx.Specialist   { return r.account }
func (r *registryImpl) Billing() contractx.Specialist   { return r.billing }
func (r *registryImpl) Order() contractx.Specialist     { return r.order }
func (r *registryImpl) Technical() contractx.Specialist { return r.technical }

func (r *registryImpl) Lookup(name contractx.SpecialistName) (contractx.Specialist, bool) {
	switch name {
	case contractx.SpecialistAccount:
		return r.account, true
	case contractx.SpecialistBilling:
		return r.billing, true
	case contractx.SpecialistOrder:
		return r.order, true
	case contractx.SpecialistTechnical:
		return r.technical, true
	default:
		return nil, false
	}
}

// NewRegistry builds the four specialists, each on its own model slot and each
// paired with an output gate tuned to forbid the other three domains.
func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	gateModelCfg := cfg.OpenRouterFor(llmx.RoleGuardrail)
	gateModel, err := gateModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create guardrail model: %v", contractx.ErrModelInvoke, err)
	}

	names := []contractx.SpecialistName{
		contractx.SpecialistAccount,
		contractx.SpecialistBilling,
		contractx.SpecialistOrder,
		contractx.SpecialistTechnical,
	}

	built := make(map[contractx.SpecialistName]contractx.Specialist, len(names))
	for _, name := range names {
		modelCfg := cfg.OpenRouterFor(llmx.RoleForSpecialist(name))
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, name, err)
		}

		gate, err := guardrailx.NewOutputGate(ctx, name, gateModel, prompts.OutputGateFor(name))
		if err != nil {
			return nil, err
		}

		spec, err := newSpecialist(ctx, name, chatModel, prompts.SpecialistFor(name), gate)
		if err != nil {
			return nil, err
		}
		built[name] = spec
	}

	return &registryImpl{
		account:   built[contractx.SpecialistAccount],
		billing:   built[contractx.SpecialistBilling],
		order:     built[contractx.SpecialistOrder],
		technical: built[contractx.SpecialistTechnical],
	}, nil
}
