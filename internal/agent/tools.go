package agent

import (
	"fmt"

	"github.com/voicereach/voicereach/internal/calls"
)

// ToolCall is one action requested by the responder during a turn.
type ToolCall struct {
	Name ToolName          `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// ApplyTool executes call against state: it validates the tool against the
// current phase, applies the state mutation, and advances the phase. The
// returned string is guidance for the responder's next utterance, mirroring
// how the voice pipeline feeds tool results back into generation.
func ApplyTool(state *CallState, call ToolCall) (string, error) {
	next, err := Transition(state.Phase, call.Name)
	if err != nil {
		return "", err
	}

	var guidance string
	switch call.Name {
	case ToolAdvance:
		guidance = advanceGuidance(next)

	case ToolRecordInfo:
		field := call.Args["field_name"]
		if field == "" {
			return "", fmt.Errorf("record_info: field_name required")
		}
		state.CollectedData[field] = call.Args["value"]
		guidance = "Recorded. Continue the conversation naturally."

	case ToolRecordObjection:
		objection := call.Args["objection_type"]
		if objection == "" {
			return "", fmt.Errorf("record_objection: objection_type required")
		}
		state.ObjectionReason = objection
		state.CollectedData["objection_"+objection] = call.Args["details"]
		guidance = "Acknowledged. Address their concern naturally."

	case ToolCollectEmail:
		email := call.Args["email"]
		if email == "" {
			return "", fmt.Errorf("collect_email: email required")
		}
		state.LeadEmail = email
		state.CollectedData["email"] = email
		guidance = emailGuidance(state, email)

	case ToolEndCallSuccess:
		state.Outcome = SuccessOutcome(state.Context.Goal)
		guidance = "Say your closing line and end the call warmly."

	case ToolEndCallDeclined:
		reason := call.Args["reason"]
		if reason == "" {
			return "", fmt.Errorf("end_call_declined: reason required")
		}
		state.Outcome = OutcomeDeclined
		state.ObjectionReason = reason
		guidance = "Thank them politely for their time and end the call gracefully."

	default:
		return "", fmt.Errorf("unknown tool %s", call.Name)
	}

	state.Phase = next
	return guidance, nil
}

func advanceGuidance(next Phase) string {
	switch next {
	case PhaseDiscovery:
		return "Transition naturally from the greeting into your first discovery question."
	case PhasePitch:
		return "Transition naturally from discovery into your pitch. Reference something specific they mentioned."
	case PhaseClose:
		return "Transition naturally to closing. Execute the call goal."
	default:
		return "Continue the conversation."
	}
}

func emailGuidance(state *CallState, email string) string {
	switch state.Context.Goal {
	case calls.GoalBookMeeting:
		return fmt.Sprintf("Got it, I'll send the booking link to %s right away.", email)
	case calls.GoalCloseSale:
		return fmt.Sprintf("Perfect, I'll send the payment link to %s right now.", email)
	default:
		return fmt.Sprintf("Thanks, I've got your email as %s.", email)
	}
}
