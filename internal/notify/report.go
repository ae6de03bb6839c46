package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/internal/calls"
	"github.com/voicereach/voicereach/pkg/logging"
)

// EmailReport records which post-call emails went out.
type EmailReport struct {
	OwnerEmailSent bool `json:"owner_email_sent"`
	LeadEmailSent  bool `json:"lead_email_sent"`
}

// ReportService sends post-call emails: a summary to the campaign owner
// after every call, and a booking or payment link to the lead when the goal
// succeeded and an email was collected.
type ReportService struct {
	sender EmailSender
	logger *logging.Logger
}

// NewReportService creates a report service.
func NewReportService(sender EmailSender, logger *logging.Logger) *ReportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportService{sender: sender, logger: logger}
}

// SendPostCallEmails sends all appropriate emails for a finished call.
// Individual send failures are reflected in the report, not returned as
// errors: a failed owner summary must not block the lead's link email.
func (s *ReportService) SendPostCallEmails(ctx context.Context, inst *calls.ContextInstance, result *agent.CallResult) EmailReport {
	var report EmailReport
	if s.sender == nil {
		s.logger.Warn("email sender not configured, skipping post-call emails")
		return report
	}

	report.OwnerEmailSent = s.sendOwnerSummary(ctx, inst, result)

	if result.LeadEmail == "" {
		return report
	}
	switch {
	case inst.Goal == calls.GoalBookMeeting && result.Outcome == agent.OutcomeBooked:
		report.LeadEmailSent = s.sendBookingLink(ctx, inst, result.LeadEmail)
	case inst.Goal == calls.GoalCloseSale &&
		(result.Outcome == agent.OutcomeCommitted || result.Outcome == agent.OutcomeSoftCommitment):
		report.LeadEmailSent = s.sendPaymentLink(ctx, inst, result.LeadEmail)
	}
	return report
}

func (s *ReportService) sendOwnerSummary(ctx context.Context, inst *calls.ContextInstance, result *agent.CallResult) bool {
	subject := fmt.Sprintf("Call Complete: %s - %s", inst.Product, formatOutcome(result.Outcome))
	err := s.sender.Send(ctx, EmailMessage{
		To:      inst.OwnerEmail,
		Subject: subject,
		Body:    fmt.Sprintf("Call to %s finished with outcome: %s", result.Phone, formatOutcome(result.Outcome)),
		HTML:    buildOwnerSummaryHTML(inst, result),
	})
	if err != nil {
		s.logger.Error("failed to send owner summary", "to", inst.OwnerEmail, "error", err)
		return false
	}
	return true
}

func (s *ReportService) sendBookingLink(ctx context.Context, inst *calls.ContextInstance, leadEmail string) bool {
	if inst.BookingLink == "" {
		s.logger.Error("cannot send booking link: no booking_link in context", "context_id", inst.ID)
		return false
	}
	err := s.sender.Send(ctx, EmailMessage{
		To:      leadEmail,
		ToName:  inst.Name,
		Subject: "Book Your Demo - " + inst.Product,
		Body:    fmt.Sprintf("Here's your link to schedule a demo of %s: %s", inst.Product, inst.BookingLink),
		HTML:    buildBookingLinkHTML(inst),
	})
	if err != nil {
		s.logger.Error("failed to send booking link", "to", leadEmail, "error", err)
		return false
	}
	return true
}

func (s *ReportService) sendPaymentLink(ctx context.Context, inst *calls.ContextInstance, leadEmail string) bool {
	if inst.PaymentLink == "" {
		s.logger.Error("cannot send payment link: no payment_link in context", "context_id", inst.ID)
		return false
	}
	err := s.sender.Send(ctx, EmailMessage{
		To:      leadEmail,
		ToName:  inst.Name,
		Subject: "Complete Your Purchase - " + inst.Product,
		Body:    fmt.Sprintf("Here's your secure payment link for %s: %s", inst.Product, inst.PaymentLink),
		HTML:    buildPaymentLinkHTML(inst),
	})
	if err != nil {
		s.logger.Error("failed to send payment link", "to", leadEmail, "error", err)
		return false
	}
	return true
}

// outcomeLabels maps raw outcomes to display strings for the owner summary.
var outcomeLabels = map[agent.Outcome]string{
	agent.OutcomeBooked:         "Meeting Booked",
	agent.OutcomeQualified:      "Lead Qualified",
	agent.OutcomeCollected:      "Information Collected",
	agent.OutcomeCommitted:      "Sale Committed",
	agent.OutcomeSoftCommitment: "Soft Commitment (Follow-up Needed)",
	agent.OutcomeDeclined:       "Declined",
	agent.OutcomeNoAnswer:       "No Answer",
	agent.OutcomeError:          "Error",
	agent.OutcomePending:        "Pending",
	agent.OutcomeCompleted:      "Completed",
}

func formatOutcome(outcome agent.Outcome) string {
	if label, ok := outcomeLabels[outcome]; ok {
		return label
	}
	return titleCase(string(outcome))
}

func isSuccessOutcome(outcome agent.Outcome) bool {
	switch outcome {
	case agent.OutcomeBooked, agent.OutcomeQualified, agent.OutcomeCollected, agent.OutcomeCommitted:
		return true
	}
	return false
}

func buildOwnerSummaryHTML(inst *calls.ContextInstance, result *agent.CallResult) string {
	outcomeColor := "#dc3545"
	if isSuccessOutcome(result.Outcome) {
		outcomeColor = "#28a745"
	}

	var sb strings.Builder
	sb.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&sb, `<h2 style="color: #333;">Call Summary - %s</h2>`, html.EscapeString(inst.Product))

	sb.WriteString(`<div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;">`)
	sb.WriteString(`<h3 style="margin-top: 0; color: #666;">Call Details</h3>`)
	fmt.Fprintf(&sb, `<p><strong>Phone:</strong> %s</p>`, html.EscapeString(result.Phone))
	fmt.Fprintf(&sb, `<p><strong>Goal:</strong> %s</p>`, html.EscapeString(titleCase(string(result.Goal))))
	fmt.Fprintf(&sb, `<p><strong>Outcome:</strong> <span style="color: %s;">%s</span></p>`, outcomeColor, html.EscapeString(formatOutcome(result.Outcome)))
	fmt.Fprintf(&sb, `<p><strong>Duration:</strong> %d seconds</p>`, result.DurationSeconds)
	if result.ObjectionReason != "" {
		fmt.Fprintf(&sb, `<p><strong>Objection Reason:</strong> %s</p>`, html.EscapeString(result.ObjectionReason))
	}
	if result.LeadEmail != "" {
		fmt.Fprintf(&sb, `<p><strong>Lead Email Collected:</strong> %s</p>`, html.EscapeString(result.LeadEmail))
	}
	sb.WriteString(`</div>`)

	if len(result.CollectedData) > 0 {
		sb.WriteString(`<div style="background: #e8f4fd; padding: 15px; border-radius: 8px; margin: 20px 0;">`)
		sb.WriteString(`<h3 style="margin-top: 0; color: #0066cc;">Collected Information</h3><ul style="margin: 0; padding-left: 20px;">`)
		for key, value := range result.CollectedData {
			fmt.Fprintf(&sb, `<li><strong>%s:</strong> %s</li>`, html.EscapeString(titleCase(key)), html.EscapeString(value))
		}
		sb.WriteString(`</ul></div>`)
	}

	if len(result.Transcript) > 0 {
		sb.WriteString(`<div style="background: #fff; border: 1px solid #ddd; padding: 15px; border-radius: 8px; margin: 20px 0;">`)
		sb.WriteString(`<h3 style="margin-top: 0; color: #666;">Call Transcript</h3>`)
		sb.WriteString(`<pre style="white-space: pre-wrap; font-family: monospace; font-size: 12px; background: #f9f9f9; padding: 10px; border-radius: 4px;">`)
		for _, entry := range result.Transcript {
			fmt.Fprintf(&sb, "%s: %s\n", entry.Role, html.EscapeString(entry.Text))
		}
		sb.WriteString(`</pre></div>`)
	}

	sb.WriteString(`<p style="color: #999; font-size: 12px; margin-top: 30px;">This email was automatically generated by VoiceReach.</p></div>`)
	return sb.String()
}

func buildBookingLinkHTML(inst *calls.ContextInstance) string {
	leadName := inst.Name
	if leadName == "" {
		leadName = "there"
	}

	var sb strings.Builder
	sb.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&sb, `<h2 style="color: #333;">Schedule Your Demo - %s</h2>`, html.EscapeString(inst.Product))
	fmt.Fprintf(&sb, `<p>Hi %s,</p>`, html.EscapeString(leadName))
	fmt.Fprintf(&sb, `<p>Thank you for your interest in %s! As promised during our call, here's the link to schedule your demo at a time that works best for you:</p>`, html.EscapeString(inst.Product))
	fmt.Fprintf(&sb, `<div style="text-align: center; margin: 30px 0;"><a href="%s" style="display: inline-block; background: #28a745; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-size: 18px;">Book Your Demo</a></div>`, inst.BookingLink)
	sb.WriteString(`<p>If you have any questions before our meeting, feel free to reply to this email.</p>`)
	sb.WriteString(`<p>Looking forward to speaking with you!</p>`)
	fmt.Fprintf(&sb, `<p style="color: #999; font-size: 12px; margin-top: 30px;">If the button doesn't work, copy and paste this link: %s</p></div>`, html.EscapeString(inst.BookingLink))
	return sb.String()
}

func buildPaymentLinkHTML(inst *calls.ContextInstance) string {
	leadName := inst.Name
	if leadName == "" {
		leadName = "there"
	}

	var sb strings.Builder
	sb.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&sb, `<h2 style="color: #333;">Complete Your Purchase - %s</h2>`, html.EscapeString(inst.Product))
	fmt.Fprintf(&sb, `<p>Hi %s,</p>`, html.EscapeString(leadName))
	fmt.Fprintf(&sb, `<p>Thank you for choosing %s! As discussed, here's your secure payment link:</p>`, html.EscapeString(inst.Product))
	fmt.Fprintf(&sb, `<div style="text-align: center; margin: 30px 0;"><a href="%s" style="display: inline-block; background: #0066cc; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-size: 18px;">Complete Purchase</a></div>`, inst.PaymentLink)
	if inst.PricingSummary != "" {
		fmt.Fprintf(&sb, `<div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;"><h3 style="margin-top: 0; color: #666;">Pricing Details</h3><p>%s</p></div>`, html.EscapeString(inst.PricingSummary))
	}
	if inst.UrgencyHook != "" {
		fmt.Fprintf(&sb, `<div style="background: #fff3cd; padding: 15px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #ffc107;"><p style="margin: 0;"><strong>Limited Time:</strong> %s</p></div>`, html.EscapeString(inst.UrgencyHook))
	}
	sb.WriteString(`<p>If you have any questions, feel free to reply to this email.</p>`)
	sb.WriteString(`<p>Thank you for your business!</p>`)
	fmt.Fprintf(&sb, `<p style="color: #999; font-size: 12px; margin-top: 30px;">If the button doesn't work, copy and paste this link: %s</p></div>`, html.EscapeString(inst.PaymentLink))
	return sb.String()
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
