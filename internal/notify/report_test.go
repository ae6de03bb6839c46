package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/internal/calls"
)

type recordingSender struct {
	sent    []EmailMessage
	failTo  map[string]bool
	failAll bool
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.failAll || r.failTo[msg.To] {
		return errors.New("send failed")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func testContext(goal calls.Goal) *calls.ContextInstance {
	return &calls.ContextInstance{
		ID:             "ctx-1",
		OwnerEmail:     "owner@example.com",
		Name:           "Alice",
		Product:        "Acme CRM",
		Goal:           goal,
		BookingLink:    "https://cal.example.com/demo",
		PaymentLink:    "https://pay.example.com/checkout",
		PricingSummary: "$99/month",
		UrgencyHook:    "20% off this week",
	}
}

func testResult(goal calls.Goal, outcome agent.Outcome, leadEmail string) *agent.CallResult {
	return &agent.CallResult{
		CallID:          "call-1",
		ContextID:       "ctx-1",
		Phone:           "+15551234567",
		Goal:            goal,
		Outcome:         outcome,
		DurationSeconds: 95,
		LeadEmail:       leadEmail,
		CollectedData:   map[string]string{"team_size": "4"},
		Transcript: []agent.TranscriptEntry{
			{Role: "agent", Text: "Hi Alice!"},
			{Role: "lead", Text: "Hello."},
		},
	}
}

func TestSendPostCallEmails_OwnerSummaryAlways(t *testing.T) {
	sender := &recordingSender{}
	svc := NewReportService(sender, nil)

	report := svc.SendPostCallEmails(context.Background(),
		testContext(calls.GoalQualifyInterest),
		testResult(calls.GoalQualifyInterest, agent.OutcomeDeclined, ""))

	assert.True(t, report.OwnerEmailSent)
	assert.False(t, report.LeadEmailSent)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "Call Complete: Acme CRM - Declined", msg.Subject)
	assert.Contains(t, msg.HTML, "+15551234567")
	assert.Contains(t, msg.HTML, "Declined")
	assert.Contains(t, msg.HTML, "Team Size")
	assert.Contains(t, msg.HTML, "Hi Alice!")
}

func TestSendPostCallEmails_BookingLink(t *testing.T) {
	sender := &recordingSender{}
	svc := NewReportService(sender, nil)

	report := svc.SendPostCallEmails(context.Background(),
		testContext(calls.GoalBookMeeting),
		testResult(calls.GoalBookMeeting, agent.OutcomeBooked, "alice@example.com"))

	assert.True(t, report.OwnerEmailSent)
	assert.True(t, report.LeadEmailSent)
	require.Len(t, sender.sent, 2)

	owner := sender.sent[0]
	assert.Equal(t, "Call Complete: Acme CRM - Meeting Booked", owner.Subject)

	lead := sender.sent[1]
	assert.Equal(t, "alice@example.com", lead.To)
	assert.Equal(t, "Alice", lead.ToName)
	assert.Equal(t, "Book Your Demo - Acme CRM", lead.Subject)
	assert.Contains(t, lead.HTML, "https://cal.example.com/demo")
	assert.Contains(t, lead.HTML, "Hi Alice,")
}

func TestSendPostCallEmails_PaymentLink(t *testing.T) {
	for _, outcome := range []agent.Outcome{agent.OutcomeCommitted, agent.OutcomeSoftCommitment} {
		t.Run(string(outcome), func(t *testing.T) {
			sender := &recordingSender{}
			svc := NewReportService(sender, nil)

			report := svc.SendPostCallEmails(context.Background(),
				testContext(calls.GoalCloseSale),
				testResult(calls.GoalCloseSale, outcome, "alice@example.com"))

			assert.True(t, report.LeadEmailSent)
			require.Len(t, sender.sent, 2)
			lead := sender.sent[1]
			assert.Equal(t, "Complete Your Purchase - Acme CRM", lead.Subject)
			assert.Contains(t, lead.HTML, "https://pay.example.com/checkout")
			assert.Contains(t, lead.HTML, "$99/month")
			assert.Contains(t, lead.HTML, "20% off this week")
		})
	}
}

func TestSendPostCallEmails_NoLeadEmailWithoutCollectedAddress(t *testing.T) {
	sender := &recordingSender{}
	svc := NewReportService(sender, nil)

	report := svc.SendPostCallEmails(context.Background(),
		testContext(calls.GoalBookMeeting),
		testResult(calls.GoalBookMeeting, agent.OutcomeBooked, ""))

	assert.True(t, report.OwnerEmailSent)
	assert.False(t, report.LeadEmailSent)
	assert.Len(t, sender.sent, 1)
}

func TestSendPostCallEmails_OutcomeGating(t *testing.T) {
	tests := []struct {
		name    string
		goal    calls.Goal
		outcome agent.Outcome
	}{
		{"book_meeting declined", calls.GoalBookMeeting, agent.OutcomeDeclined},
		{"book_meeting committed", calls.GoalBookMeeting, agent.OutcomeCommitted},
		{"close_sale declined", calls.GoalCloseSale, agent.OutcomeDeclined},
		{"close_sale booked", calls.GoalCloseSale, agent.OutcomeBooked},
		{"qualify_interest qualified", calls.GoalQualifyInterest, agent.OutcomeQualified},
		{"collect_info collected", calls.GoalCollectInfo, agent.OutcomeCollected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			svc := NewReportService(sender, nil)

			report := svc.SendPostCallEmails(context.Background(),
				testContext(tt.goal),
				testResult(tt.goal, tt.outcome, "alice@example.com"))

			assert.True(t, report.OwnerEmailSent)
			assert.False(t, report.LeadEmailSent)
			assert.Len(t, sender.sent, 1)
		})
	}
}

func TestSendPostCallEmails_MissingLinkInContext(t *testing.T) {
	sender := &recordingSender{}
	svc := NewReportService(sender, nil)

	inst := testContext(calls.GoalBookMeeting)
	inst.BookingLink = ""
	report := svc.SendPostCallEmails(context.Background(), inst,
		testResult(calls.GoalBookMeeting, agent.OutcomeBooked, "alice@example.com"))

	assert.True(t, report.OwnerEmailSent)
	assert.False(t, report.LeadEmailSent)
	assert.Len(t, sender.sent, 1)
}

func TestSendPostCallEmails_SendFailureDoesNotBlockOthers(t *testing.T) {
	sender := &recordingSender{failTo: map[string]bool{"owner@example.com": true}}
	svc := NewReportService(sender, nil)

	report := svc.SendPostCallEmails(context.Background(),
		testContext(calls.GoalBookMeeting),
		testResult(calls.GoalBookMeeting, agent.OutcomeBooked, "alice@example.com"))

	assert.False(t, report.OwnerEmailSent)
	assert.True(t, report.LeadEmailSent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
}

func TestSendPostCallEmails_NilSender(t *testing.T) {
	svc := NewReportService(nil, nil)

	report := svc.SendPostCallEmails(context.Background(),
		testContext(calls.GoalBookMeeting),
		testResult(calls.GoalBookMeeting, agent.OutcomeBooked, "alice@example.com"))

	assert.False(t, report.OwnerEmailSent)
	assert.False(t, report.LeadEmailSent)
}

func TestFormatOutcome(t *testing.T) {
	assert.Equal(t, "Meeting Booked", formatOutcome(agent.OutcomeBooked))
	assert.Equal(t, "Soft Commitment (Follow-up Needed)", formatOutcome(agent.OutcomeSoftCommitment))
	assert.Equal(t, "Some Other Thing", formatOutcome(agent.Outcome("some_other_thing")))
}
