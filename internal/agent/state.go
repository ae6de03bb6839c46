package agent

import (
	"time"

	"github.com/voicereach/voicereach/internal/calls"
)

// Outcome is the final disposition of a call.
type Outcome string

const (
	OutcomePending        Outcome = "pending"
	OutcomeBooked         Outcome = "booked"
	OutcomeQualified      Outcome = "qualified"
	OutcomeCollected      Outcome = "collected"
	OutcomeCommitted      Outcome = "committed"
	OutcomeSoftCommitment Outcome = "soft_commitment"
	OutcomeCompleted      Outcome = "completed"
	OutcomeDeclined       Outcome = "declined"
	OutcomeNoAnswer       Outcome = "no_answer"
	OutcomeError          Outcome = "error"
)

// successOutcomes maps each call goal to the outcome end_call_success
// produces for it.
var successOutcomes = map[calls.Goal]Outcome{
	calls.GoalBookMeeting:     OutcomeBooked,
	calls.GoalQualifyInterest: OutcomeQualified,
	calls.GoalCollectInfo:     OutcomeCollected,
	calls.GoalCloseSale:       OutcomeCommitted,
}

// SuccessOutcome returns the outcome a successful close yields for goal.
func SuccessOutcome(goal calls.Goal) Outcome {
	if o, ok := successOutcomes[goal]; ok {
		return o
	}
	return OutcomeCompleted
}

// TranscriptEntry is one turn of the call transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "lead" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CallState is the mutable state shared across all phases of one call. It is
// owned by a single Session goroutine, so no locking is needed.
type CallState struct {
	Context *calls.ContextInstance

	Phase   Phase
	Outcome Outcome

	CollectedData   map[string]string
	LeadEmail       string
	ObjectionReason string

	Transcript []TranscriptEntry

	StartedAt time.Time
	EndedAt   time.Time
}

// NewCallState initializes state for a call driven by inst.
func NewCallState(inst *calls.ContextInstance) *CallState {
	return &CallState{
		Context:       inst,
		Phase:         PhaseGreeting,
		Outcome:       OutcomePending,
		CollectedData: make(map[string]string),
	}
}

// Ended reports whether the call has reached a terminal state.
func (s *CallState) Ended() bool {
	return s.Phase == PhaseEnded
}

// Record appends a transcript entry.
func (s *CallState) Record(role, text string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}
