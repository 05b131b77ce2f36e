package handoff

import (
	"context"

	"github.com/rs/zerolog"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

// LogObserver writes handoff audit records to a zerolog logger. It is the
// default observer; a UI would provide its own implementation.
type LogObserver struct {
	logger zerolog.Logger
}

var _ contractx.AuditObserver = (*LogObserver)(nil)

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) HandoffOccurred(ctx context.Context, sessionID string, data contractx.HandoffData) {
	o.logger.Info().
		Str("session_id", sessionID).
		Str("to_agent_name", string(data.ToAgentName)).
		Str("reason", data.Reason).
		Str("issue_type", string(data.IssueType)).
		Str("issue_description", data.IssueDescription).
		Msg("handoff")
}
