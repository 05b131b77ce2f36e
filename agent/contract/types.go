package contract

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Tier is the customer's support plan.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// CustomerContext is constructed once by the caller and passed by reference
// into every component. The core never mutates it.
type CustomerContext struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Tier       Tier   `json:"tier" validate:"required,oneof=basic premium enterprise"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c CustomerContext) Validate() error {
	return validate.Struct(c)
}

func (c CustomerContext) IsPriority() bool {
	return c.Tier == TierPremium || c.Tier == TierEnterprise
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Item is one entry in a session's conversation log. Immutable once appended;
// insertion order is chronological order.
type Item struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SpecialistName identifies an agent that can own a turn. The triage router
// itself is a valid owner: it is the initial ActiveSpecialist of every session.
type SpecialistName string

const (
	SpecialistTriage    SpecialistName = "triage"
	SpecialistAccount   SpecialistName = "account"
	SpecialistBilling   SpecialistName = "billing"
	SpecialistOrder     SpecialistName = "order"
	SpecialistTechnical SpecialistName = "technical"
)

// IssueType is the routed issue category carried on a handoff.
type IssueType string

const (
	IssueAccount   IssueType = "account"
	IssueBilling   IssueType = "billing"
	IssueOrder     IssueType = "order"
	IssueTechnical IssueType = "technical"
)

// SpecialistFor maps an issue category to the specialist that owns it.
func SpecialistFor(issue IssueType) (SpecialistName, bool) {
	switch issue {
	case IssueAccount:
		return SpecialistAccount, true
	case IssueBilling:
		return SpecialistBilling, true
	case IssueOrder:
		return SpecialistOrder, true
	case IssueTechnical:
		return SpecialistTechnical, true
	default:
		return "", false
	}
}

// HandoffData is created by the router at the moment of a routing decision and
// consumed exactly once by the handoff controller. It is never persisted beyond
// the audit emission.
type HandoffData struct {
	ToAgentName      SpecialistName `json:"to_agent_name"`
	Reason           string         `json:"reason"`
	IssueType        IssueType      `json:"issue_type"`
	IssueDescription string         `json:"issue_description"`
}

// InputVerdict is the input gate's answer to "is this on-topic for support".
type InputVerdict struct {
	Tripwire   bool   `json:"tripwire"`
	IsOffTopic bool   `json:"is_off_topic"`
	Reason     string `json:"reason,omitempty"`
}

func (v InputVerdict) Tripped() bool { return v.Tripwire }

// OutputVerdict is a specialist output gate's answer to "does this response
// leak another domain's content". Each gate instance forbids the other three
// domains plus generic off-topic leakage; the flag for the gate's own domain is
// never part of the tripwire.
type OutputVerdict struct {
	Tripwire              bool   `json:"tripwire"`
	ContainsOffTopic      bool   `json:"contains_off_topic"`
	ContainsAccountData   bool   `json:"contains_account_data"`
	ContainsBillingData   bool   `json:"contains_billing_data"`
	ContainsOrderData     bool   `json:"contains_order_data"`
	ContainsTechnicalData bool   `json:"contains_technical_data"`
	Reason                string `json:"reason,omitempty"`
}

func (v OutputVerdict) Tripped() bool { return v.Tripwire }

type DecisionKind string

const (
	DecisionReject  DecisionKind = "reject"
	DecisionClarify DecisionKind = "clarify"
	DecisionHandoff DecisionKind = "handoff"
)

// Decision is the router's verdict for one turn. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Decision struct {
	Kind     DecisionKind
	Verdict  InputVerdict // Kind == DecisionReject
	Question string       // Kind == DecisionClarify
	Handoff  HandoffData  // Kind == DecisionHandoff
}
