package agent

import (
	"time"

	"github.com/google/uuid"
	"github.com/voicereach/voicereach/internal/calls"
)

// CallResult is the final record of one completed call attempt. It is
// produced exactly once per session, at shutdown, regardless of how the call
// ended.
type CallResult struct {
	CallID          string            `json:"call_id"`
	ContextID       string            `json:"context_id"`
	Phone           string            `json:"phone"`
	Goal            calls.Goal        `json:"goal"`
	Outcome         Outcome           `json:"outcome"`
	DurationSeconds int               `json:"duration_seconds"`
	ObjectionReason string            `json:"objection_reason,omitempty"`
	CollectedData   map[string]string `json:"collected_data"`
	LeadEmail       string            `json:"lead_email,omitempty"`
	Transcript      []TranscriptEntry `json:"transcript,omitempty"`
	LeadEmailSent   bool              `json:"lead_email_sent"`
	Error           string            `json:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at"`
}

// resultFromState snapshots state into an immutable CallResult.
func resultFromState(state *CallState) *CallResult {
	duration := 0
	if !state.StartedAt.IsZero() && !state.EndedAt.IsZero() {
		duration = int(state.EndedAt.Sub(state.StartedAt).Seconds())
	}
	return &CallResult{
		CallID:          uuid.NewString(),
		ContextID:       state.Context.ID,
		Phone:           state.Context.Phone,
		Goal:            state.Context.Goal,
		Outcome:         state.Outcome,
		DurationSeconds: duration,
		ObjectionReason: state.ObjectionReason,
		CollectedData:   state.CollectedData,
		LeadEmail:       state.LeadEmail,
		Transcript:      state.Transcript,
		StartedAt:       state.StartedAt,
		EndedAt:         state.EndedAt,
	}
}
