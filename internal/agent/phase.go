// Package agent implements the four-phase conversation workflow that drives
// an outbound qualification call: greeting, discovery, pitch, close. Phase
// transitions are explicit tool actions, never side effects of text
// generation, so the call's control flow stays inspectable and testable
// without a language model in the loop.
package agent

import "fmt"

// Phase is a stage of the call conversation.
type Phase string

const (
	PhaseGreeting  Phase = "greeting"
	PhaseDiscovery Phase = "discovery"
	PhasePitch     Phase = "pitch"
	PhaseClose     Phase = "close"
	PhaseEnded     Phase = "ended"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseGreeting, PhaseDiscovery, PhasePitch, PhaseClose, PhaseEnded:
		return true
	}
	return false
}

// ToolName identifies an action the responder may take during a turn.
type ToolName string

const (
	// ToolAdvance moves the conversation to the next phase.
	ToolAdvance ToolName = "advance"
	// ToolRecordInfo records a fact the lead shared.
	ToolRecordInfo ToolName = "record_info"
	// ToolRecordObjection records a pushback raised by the lead.
	ToolRecordObjection ToolName = "record_objection"
	// ToolCollectEmail records the lead's email for the follow-up link.
	ToolCollectEmail ToolName = "collect_email"
	// ToolEndCallSuccess ends the call with the goal achieved.
	ToolEndCallSuccess ToolName = "end_call_success"
	// ToolEndCallDeclined ends the call with the lead declining.
	ToolEndCallDeclined ToolName = "end_call_declined"
)

// phaseTools maps each phase to the tools available in it. Recording tools
// are deliberately phase-scoped: discovery records facts, pitch records
// objections, close collects the email and ends the call.
var phaseTools = map[Phase][]ToolName{
	PhaseGreeting:  {ToolAdvance},
	PhaseDiscovery: {ToolAdvance, ToolRecordInfo},
	PhasePitch:     {ToolAdvance, ToolRecordObjection},
	PhaseClose:     {ToolRecordInfo, ToolCollectEmail, ToolEndCallSuccess, ToolEndCallDeclined},
}

// ToolsFor returns the tools available in the given phase.
func ToolsFor(p Phase) []ToolName {
	return phaseTools[p]
}

// allowed reports whether tool may be used in phase p.
func allowed(p Phase, tool ToolName) bool {
	for _, t := range phaseTools[p] {
		if t == tool {
			return true
		}
	}
	return false
}

// Transition returns the phase that follows p when tool fires. It is a pure
// function of its inputs: recording tools keep the current phase, advance
// steps forward one phase, end tools jump to ended. Tools fired outside
// their phase are rejected.
func Transition(p Phase, tool ToolName) (Phase, error) {
	if !allowed(p, tool) {
		return p, fmt.Errorf("tool %s not available in phase %s", tool, p)
	}
	switch tool {
	case ToolAdvance:
		switch p {
		case PhaseGreeting:
			return PhaseDiscovery, nil
		case PhaseDiscovery:
			return PhasePitch, nil
		case PhasePitch:
			return PhaseClose, nil
		}
		return p, fmt.Errorf("no phase follows %s", p)
	case ToolEndCallSuccess, ToolEndCallDeclined:
		return PhaseEnded, nil
	default:
		return p, nil
	}
}
