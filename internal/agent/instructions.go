package agent

import (
	"fmt"
	"strings"

	"github.com/voicereach/voicereach/internal/calls"
)

// voiceRules are prepended to every phase's instructions so each phase
// speaks the same way on the phone.
const voiceRules = `VOICE OUTPUT RULES - follow these in every response:
- Keep responses to 1-3 short sentences per turn.
- Use contractions: "I'm", "don't", "we'll", "that's", "it's", "you're".
- Never output bullet points, numbered lists, or formatted text.
- Start with a brief acknowledgment: "Got it", "Sure", "Right", "Okay".
- Ask ONE question at a time. Never ask two questions in one turn.
- Spell out numbers and special characters when saying them.
- Sound like a person on the phone, not a document being read aloud.`

// InstructionsFor assembles the responder instructions for one phase of the
// call, drawing script material from the built context.
func InstructionsFor(phase Phase, inst *calls.ContextInstance) string {
	product := inst.Product
	if product == "" {
		product = "our product"
	}

	var sb strings.Builder
	sb.WriteString(voiceRules)
	sb.WriteString("\n\n")

	switch phase {
	case PhaseGreeting:
		greetingInstructions(&sb, inst, product)
	case PhaseDiscovery:
		discoveryInstructions(&sb, inst, product)
	case PhasePitch:
		pitchInstructions(&sb, inst, product)
	case PhaseClose:
		closeInstructions(&sb, inst, product)
	default:
		sb.WriteString("The call has ended.")
	}

	return sb.String()
}

func greetingInstructions(sb *strings.Builder, inst *calls.ContextInstance, product string) {
	fmt.Fprintf(sb, "You're a friendly, professional caller reaching out about %s.\n", product)

	var parts []string
	if inst.Name != "" {
		parts = append(parts, inst.Name)
	}
	if inst.LeadTitle != "" {
		parts = append(parts, inst.LeadTitle)
	}
	if inst.LeadCompany != "" {
		parts = append(parts, "at "+inst.LeadCompany)
	}
	if len(parts) > 0 {
		fmt.Fprintf(sb, "The person you're calling is %s.\n", strings.Join(parts, ", "))
	}

	opening := inst.OpeningLine
	if opening == "" {
		opening = "Hi there, how are you doing today?"
	}
	fmt.Fprintf(sb, "\nWhen the person answers with \"Hello?\" or similar, respond naturally with:\n%q\n", opening)
	sb.WriteString("\nThen have a brief, warm exchange. Don't rush into business talk. After 2-3 exchanges, move to discovery.")
}

func discoveryInstructions(sb *strings.Builder, inst *calls.ContextInstance, product string) {
	fmt.Fprintf(sb, "You're in the discovery phase of a call about %s.\n", product)
	sb.WriteString("Your job is to understand the prospect's situation, needs, and pain points.\n")

	if len(inst.QualificationQuestions) > 0 {
		sb.WriteString("\nThings to find out (ask naturally, don't read from a script):\n")
		for _, q := range inst.QualificationQuestions {
			sb.WriteString("- " + q + "\n")
		}
	}

	sb.WriteString("\nAsk one question at a time and acknowledge each answer. Record key information they share.\n")
	sb.WriteString("Once you understand their situation, move to the pitch.")
}

func pitchInstructions(sb *strings.Builder, inst *calls.ContextInstance, product string) {
	fmt.Fprintf(sb, "You're in the pitch phase of a call about %s.\n", product)
	sb.WriteString(pitchStyle(inst.Goal) + "\n")
	sb.WriteString("\nConnect your pitch to what they told you in discovery. Keep explanations short, one benefit at a time.\n")

	if len(inst.ObjectionHandlers) > 0 {
		sb.WriteString("\nIf they push back, use these responses naturally (don't read word-for-word):\n")
		for objection, response := range inst.ObjectionHandlers {
			fmt.Fprintf(sb, "- If they say %q: %s\n", objection, response)
		}
	}

	sb.WriteString("\nOnce they seem interested or you've addressed their concerns, move to the close.")
}

func pitchStyle(goal calls.Goal) string {
	switch goal {
	case calls.GoalBookMeeting:
		return "Focus on the value of a deeper conversation. Make the meeting feel low-commitment and worthwhile."
	case calls.GoalCollectInfo:
		return "Focus on why sharing information benefits them."
	case calls.GoalCloseSale:
		return "Focus on specific value and urgency. Be assertive but not pushy."
	default:
		return "Focus on understanding fit. Help them see if this is right for them."
	}
}

func closeInstructions(sb *strings.Builder, inst *calls.ContextInstance, product string) {
	fmt.Fprintf(sb, "You're in the closing phase of a call about %s.\n\n", product)

	switch inst.Goal {
	case calls.GoalBookMeeting:
		sb.WriteString("Your goal is to book a meeting. Ask if they'd like to schedule a time for a deeper conversation.\n")
		sb.WriteString("If yes, collect their email so you can send a calendar link. When they give an email, confirm it by spelling it back.\n")
	case calls.GoalQualifyInterest:
		sb.WriteString("Your goal is to determine if this prospect is qualified. Briefly summarize their situation, let them know the next steps, and thank them for their time.\n")
	case calls.GoalCollectInfo:
		sb.WriteString("Your goal is to confirm you've gathered all needed information. Briefly summarize what you've learned and ask if there's anything they'd like to add.\n")
	case calls.GoalCloseSale:
		sb.WriteString("Your goal is to get a purchase commitment. Ask directly but warmly: \"Would you like to move forward with this?\"\n")
		sb.WriteString("If yes, collect their email so you can send payment details. When they give an email, confirm it by spelling it back.\n")
	default:
		sb.WriteString("Wrap up the call professionally.\n")
	}

	closing := inst.ClosingScript
	if closing == "" {
		closing = "Thanks so much for your time today."
	}
	fmt.Fprintf(sb, "\nWhen ending the call, say something like:\n%q\n", closing)
}
