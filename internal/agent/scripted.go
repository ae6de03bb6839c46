package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicereach/voicereach/internal/calls"
)

// ScriptedResponder walks the four-phase workflow deterministically from the
// context's script material, with no language model involved. It powers the
// browser demo and gives tests a full conversation to drive.
type ScriptedResponder struct {
	questionIdx int
	exchanges   int
}

// NewScriptedResponder creates a responder for one call session. It carries
// per-call counters, so a fresh instance is needed per session.
func NewScriptedResponder() *ScriptedResponder {
	return &ScriptedResponder{}
}

// Respond produces the agent's next utterance for the turn.
func (r *ScriptedResponder) Respond(_ context.Context, turn Turn) (Reply, error) {
	switch turn.Phase {
	case PhaseGreeting:
		return r.greet(turn), nil
	case PhaseDiscovery:
		return r.discover(turn), nil
	case PhasePitch:
		return r.pitch(turn), nil
	case PhaseClose:
		return r.close(turn), nil
	default:
		return Reply{}, fmt.Errorf("scripted responder: call already ended")
	}
}

func (r *ScriptedResponder) greet(turn Turn) Reply {
	r.exchanges++
	if r.exchanges == 1 {
		return Reply{Text: turn.State.Context.OpeningLine}
	}
	r.exchanges = 0
	return Reply{
		Text:      "Great! So I'd love to learn a bit about your situation first.",
		ToolCalls: []ToolCall{{Name: ToolAdvance}},
	}
}

func (r *ScriptedResponder) discover(turn Turn) Reply {
	questions := turn.State.Context.QualificationQuestions

	var tools []ToolCall
	if r.questionIdx > 0 {
		tools = append(tools, ToolCall{
			Name: ToolRecordInfo,
			Args: map[string]string{
				"field_name": fmt.Sprintf("answer_%d", r.questionIdx),
				"value":      turn.UserInput,
			},
		})
	}

	if r.questionIdx < len(questions) {
		q := questions[r.questionIdx]
		r.questionIdx++
		return Reply{Text: "Got it. " + q, ToolCalls: tools}
	}

	tools = append(tools, ToolCall{Name: ToolAdvance})
	return Reply{
		Text:      "That's really helpful, thanks. Let me share how we could help with that.",
		ToolCalls: tools,
	}
}

func (r *ScriptedResponder) pitch(turn Turn) Reply {
	input := strings.ToLower(turn.UserInput)

	if objection := detectObjection(input); objection != "" {
		reply := turn.State.Context.ObjectionHandlers[objection]
		if reply == "" {
			reply = "That's a fair concern, and a lot of people feel the same way at first."
		}
		return Reply{
			Text: reply,
			ToolCalls: []ToolCall{{
				Name: ToolRecordObjection,
				Args: map[string]string{"objection_type": objection, "details": turn.UserInput},
			}},
		}
	}

	r.exchanges++
	if r.exchanges == 1 {
		return Reply{Text: fmt.Sprintf(
			"So based on what you've told me, %s could really make a difference for you. Does that sound like something worth exploring?",
			turn.State.Context.Product)}
	}
	r.exchanges = 0
	return Reply{
		Text:      "Okay, let's talk about next steps then.",
		ToolCalls: []ToolCall{{Name: ToolAdvance}},
	}
}

func (r *ScriptedResponder) close(turn Turn) Reply {
	input := strings.ToLower(turn.UserInput)
	goal := turn.State.Context.Goal

	if declineReason := detectDecline(input); declineReason != "" {
		return Reply{
			Text: "No worries at all, thanks so much for your time today.",
			ToolCalls: []ToolCall{{
				Name: ToolEndCallDeclined,
				Args: map[string]string{"reason": declineReason},
			}},
		}
	}

	needsEmail := goal == calls.GoalBookMeeting || goal == calls.GoalCloseSale
	if needsEmail {
		if email := extractEmail(turn.UserInput); email != "" {
			return Reply{
				Text: turn.State.Context.ClosingScript,
				ToolCalls: []ToolCall{
					{Name: ToolCollectEmail, Args: map[string]string{"email": email}},
					{Name: ToolEndCallSuccess},
				},
			}
		}
		return Reply{Text: "Wonderful! What's the best email to send that to?"}
	}

	return Reply{
		Text:      turn.State.Context.ClosingScript,
		ToolCalls: []ToolCall{{Name: ToolEndCallSuccess}},
	}
}

func detectObjection(input string) string {
	switch {
	case strings.Contains(input, "expensive") || strings.Contains(input, "cost") || strings.Contains(input, "price"):
		return "too_expensive"
	case strings.Contains(input, "check with") || strings.Contains(input, "my boss") || strings.Contains(input, "approval"):
		return "need_approval"
	case strings.Contains(input, "busy") || strings.Contains(input, "bad time"):
		return "bad_timing"
	}
	return ""
}

func detectDecline(input string) string {
	switch {
	case strings.Contains(input, "not interested"):
		return "not_interested"
	case strings.Contains(input, "no thanks") || strings.Contains(input, "no thank"):
		return "not_interested"
	case strings.Contains(input, "call back") || strings.Contains(input, "another time"):
		return "bad_timing"
	}
	return ""
}

// extractEmail pulls the first plausible email token out of an utterance.
func extractEmail(input string) string {
	for _, word := range strings.Fields(input) {
		word = strings.Trim(word, ".,!?")
		at := strings.Index(word, "@")
		if at > 0 && strings.Contains(word[at:], ".") {
			return strings.ToLower(word)
		}
	}
	return ""
}
