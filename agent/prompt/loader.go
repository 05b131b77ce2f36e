package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

var (
	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/input_gate.txt
	inputGateRaw string

	//go:embed template/output_gate.txt
	outputGateRaw string

	//go:embed template/account.txt
	accountRaw string

	//go:embed template/billing.txt
	billingRaw string

	//go:embed template/order.txt
	orderRaw string

	//go:embed template/technical.txt
	technicalRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Triage    string
	InputGate string

	Account   string
	Billing   string
	Order     string
	Technical string

	outputGate string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Triage:     strings.TrimSpace(triageRaw),
		InputGate:  strings.TrimSpace(inputGateRaw),
		Account:    strings.TrimSpace(accountRaw),
		Billing:    strings.TrimSpace(billingRaw),
		Order:      strings.TrimSpace(orderRaw),
		Technical:  strings.TrimSpace(technicalRaw),
		outputGate: strings.TrimSpace(outputGateRaw),
	}
}

// OutputGateFor renders the shared output-gate rubric for one domain.
func (p PromptSet) OutputGateFor(name contractx.SpecialistName) string {
	return strings.ReplaceAll(p.outputGate, "__DOMAIN__", string(name))
}

// SpecialistFor returns the system prompt for a specialist, or "" when the
// name has no prompt (the triage router is not a specialist).
func (p PromptSet) SpecialistFor(name contractx.SpecialistName) string {
	switch name {
	case contractx.SpecialistAccount:
		return p.Account
	case contractx.SpecialistBilling:
		return p.Billing
	case contractx.SpecialistOrder:
		return p.Order
	case contractx.SpecialistTechnical:
		return p.Technical
	default:
		return ""
	}
}
