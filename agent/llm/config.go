package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	openrouterx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/openrouter"
)

// Role names a model slot. Every classifier and specialist can run on its own
// model; anything not overridden falls back to the default model.
type Role string

const (
	RoleTriage    Role = "triage"
	RoleGuardrail Role = "guardrail"
	RoleAccount   Role = "account"
	RoleBilling   Role = "billing"
	RoleOrder     Role = "order"
	RoleTechnical Role = "technical"
)

// RoleForSpecialist maps a specialist name to its model slot.
func RoleForSpecialist(name contractx.SpecialistName) Role {
	switch name {
	case contractx.SpecialistAccount:
		return RoleAccount
	case contractx.SpecialistBilling:
		return RoleBilling
	case contractx.SpecialistOrder:
		return RoleOrder
	case contractx.SpecialistTechnical:
		return RoleTechnical
	default:
		return RoleTriage
	}
}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel    string `envconfig:"TRIAGE_MODEL" split_words:"true"`
	GuardrailModel string `envconfig:"GUARDRAIL_MODEL" split_words:"true"`
	AccountModel   string `envconfig:"ACCOUNT_MODEL" split_words:"true"`
	BillingModel   string `envconfig:"BILLING_MODEL" split_words:"true"`
	OrderModel     string `envconfig:"ORDER_MODEL" split_words:"true"`
	TechnicalModel string `envconfig:"TECHNICAL_MODEL" split_words:"true"`

	TriageTemperature     float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	GuardrailTemperature  float32 `envconfig:"GUARDRAIL_TEMPERATURE" split_words:"true" default:"-1"`
	SpecialistTemperature float32 `envconfig:"SPECIALIST_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model configuration for a role, applying the
// per-role model and temperature overrides.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := ""
	switch role {
	case RoleTriage:
		override = c.TriageModel
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	case RoleGuardrail:
		override = c.GuardrailModel
		if c.GuardrailTemperature >= 0 {
			temp = c.GuardrailTemperature
		}
	case RoleAccount, RoleBilling, RoleOrder, RoleTechnical:
		switch role {
		case RoleAccount:
			override = c.AccountModel
		case RoleBilling:
			override = c.BillingModel
		case RoleOrder:
			override = c.OrderModel
		case RoleTechnical:
			override = c.TechnicalModel
		}
		if c.SpecialistTemperature >= 0 {
			temp = c.SpecialistTemperature
		}
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
