// Package contextbuilder turns a validated call submission into per-lead
// script material. It runs before dispatch, never inside the realtime voice
// loop, so every call starts from a fully materialized ContextInstance.
package contextbuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voicereach/voicereach/internal/calls"
)

// Builder assembles ContextInstance values from submission data. Output is
// deterministic: the same request and lead always produce the same script
// material, which keeps call behavior reproducible across retries.
type Builder struct{}

// New creates a context builder.
func New() *Builder {
	return &Builder{}
}

// BuildForSubmission builds one context per lead, in lead-list order.
func (b *Builder) BuildForSubmission(req *calls.CallRequest) ([]*calls.ContextInstance, error) {
	out := make([]*calls.ContextInstance, 0, len(req.Leads))
	for _, lead := range req.Leads {
		inst, err := b.Build(req, lead)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Build assembles the context for a single lead.
func (b *Builder) Build(req *calls.CallRequest, lead calls.Lead) (*calls.ContextInstance, error) {
	if !calls.ValidPhoneE164(lead.Phone) {
		return nil, fmt.Errorf("lead phone %q is not valid E.164", lead.Phone)
	}

	shouldEmail, template := leadEmailConfig(req.Goal)

	return &calls.ContextInstance{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),

		OwnerEmail:        req.OwnerEmail,
		Phone:             lead.Phone,
		Name:              lead.Name,
		LeadCompany:       lead.Company,
		LeadTitle:         lead.Title,
		LeadEmailPreknown: lead.Email,
		Product:           req.Product,
		Goal:              req.Goal,

		BookingLink:    req.BookingLink,
		PaymentLink:    req.PaymentLink,
		PricingSummary: req.PricingSummary,
		UrgencyHook:    req.UrgencyHook,
		GoalCriteria:   req.GoalCriteria,

		AgentInstructions:      buildInstructions(req, lead),
		OpeningLine:            buildOpeningLine(req, lead),
		QualificationQuestions: buildQuestions(req),
		ObjectionHandlers:      buildObjectionHandlers(req),
		ClosingScript:          buildClosingScript(req),

		ShouldEmailLead:   shouldEmail,
		LeadEmailTemplate: template,
	}, nil
}

func leadEmailConfig(goal calls.Goal) (bool, string) {
	switch goal {
	case calls.GoalBookMeeting:
		return true, "booking"
	case calls.GoalCloseSale:
		return true, "payment"
	default:
		return false, ""
	}
}

func buildOpeningLine(req *calls.CallRequest, lead calls.Lead) string {
	greeting := "Hi there"
	if lead.Name != "" {
		greeting = "Hi " + lead.Name
	}

	var company string
	if lead.Company != "" {
		company = fmt.Sprintf(" I understand you're with %s.", lead.Company)
	}

	switch req.Goal {
	case calls.GoalCloseSale:
		return fmt.Sprintf(
			"%s, this is Ava calling about %s.%s I'll take just 2 minutes of your time to show you what %s can help you achieve. Is now a good moment?",
			greeting, req.Product, company, req.Product)
	case calls.GoalBookMeeting:
		return fmt.Sprintf(
			"%s, this is Ava calling on behalf of %s.%s I'd love to find a time for a quick demo if that would be useful. Do you have a moment?",
			greeting, req.Product, company)
	default:
		return fmt.Sprintf(
			"%s, this is Ava calling on behalf of %s.%s Do you have a quick moment to chat?",
			greeting, req.Product, company)
	}
}

func buildInstructions(req *calls.CallRequest, lead calls.Lead) string {
	var sb strings.Builder

	sb.WriteString("You are Ava, a professional outbound sales agent calling about ")
	sb.WriteString(req.Product)
	sb.WriteString(".\n")

	if lead.Name != "" {
		sb.WriteString("You are speaking with " + lead.Name)
		if lead.Title != "" {
			sb.WriteString(", " + lead.Title)
		}
		if lead.Company != "" {
			sb.WriteString(" at " + lead.Company)
		}
		sb.WriteString(".\n")
	}

	sb.WriteString("Keep answers short and conversational, one or two sentences at a time. Never talk over the lead.\n")

	switch req.Goal {
	case calls.GoalCloseSale:
		sb.WriteString("\nYour goal is to close the sale on this call. Be confident and direct about the value ")
		sb.WriteString(req.Product)
		sb.WriteString(" delivers, and ask for the commitment when the lead signals interest.\n")
		if req.PricingSummary != "" {
			sb.WriteString("Pricing: " + req.PricingSummary + "\n")
		}
		if req.UrgencyHook != "" {
			sb.WriteString("Current offer: " + req.UrgencyHook + "\n")
		}
		sb.WriteString("If the lead commits, collect their email so the payment link can be sent right after the call.\n")
	case calls.GoalBookMeeting:
		sb.WriteString("\nYour goal is to book a demo meeting. Take a consultative, helpful tone: understand the lead's situation before proposing next steps.\n")
		sb.WriteString("When the lead agrees to a meeting, collect their email address so the booking link can be sent by email right after the call.\n")
	case calls.GoalCollectInfo:
		sb.WriteString("\nYour goal is to collect the following information from the lead: ")
		sb.WriteString(req.GoalCriteria)
		sb.WriteString("\nAsk for each item naturally within the conversation rather than reading it as a checklist.\n")
	default:
		sb.WriteString("\nYour goal is to qualify the lead's interest in ")
		sb.WriteString(req.Product)
		sb.WriteString(". Listen for budget, timeline and fit, and record what you learn.\n")
	}

	if req.Context != "" {
		sb.WriteString("\nAdditional product context: " + req.Context + "\n")
	}

	return sb.String()
}

func buildQuestions(req *calls.CallRequest) []string {
	switch req.Goal {
	case calls.GoalCloseSale:
		return []string{
			"What's holding you back from solving this today?",
			"If price weren't a factor, would this be a fit for you?",
			"Who else would be involved in this decision?",
		}
	case calls.GoalBookMeeting:
		return []string{
			"What does your current process look like?",
			"What would need to be true for a demo to be worth your time?",
			"Who else should join a demo call?",
		}
	case calls.GoalCollectInfo:
		return []string{
			"Could you tell me a bit about your current setup?",
			"What's the best email to reach you on?",
		}
	default:
		return []string{
			"What challenges are you facing in this area right now?",
			"Is this something you're actively looking to solve this quarter?",
			"Roughly what budget range are you working with?",
		}
	}
}

func buildObjectionHandlers(req *calls.CallRequest) map[string]string {
	handlers := map[string]string{
		"too_expensive":  "I understand budget matters. Many of our customers found the cost was offset by the time it saved within the first month.",
		"no_time":        "Totally fair. This will only take a minute, and if it's not relevant I'll let you go right away.",
		"not_interested": "No problem at all. Before I go, could I ask what you're currently using? It helps us understand the market better.",
	}

	if req.Goal == calls.GoalCloseSale {
		handlers["too_expensive"] = "I hear you on price. Our customers typically see ROI within the first month, so it pays for itself quickly. " +
			"What would make the numbers work for you?"
		handlers["need_approval"] = "That makes sense. What information would help you make the case to them? " +
			"I can make sure you have everything you need."
	}

	return handlers
}

func buildClosingScript(req *calls.CallRequest) string {
	switch req.Goal {
	case calls.GoalCloseSale:
		return "Fantastic. I'll send the payment link to your email right after this call so you can get started today. Thanks so much for your time!"
	case calls.GoalBookMeeting:
		return "Great! I'll send the booking link to your email right after this call so you can pick a time that works. Looking forward to it!"
	case calls.GoalCollectInfo:
		return "That's everything I needed. Thanks so much for taking the time, have a great day!"
	default:
		return "Thanks so much for sharing that. Someone from the team will follow up with the details. Have a great day!"
	}
}
