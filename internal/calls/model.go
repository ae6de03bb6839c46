package calls

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// CallJobTTL is the maximum time an ephemeral call job is retained in memory.
const CallJobTTL = 600 * time.Second

// e164Pattern validates phone numbers in E.164 format (e.g. "+14155551234").
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// ValidPhoneE164 reports whether phone is a well-formed E.164 number.
func ValidPhoneE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}

// Goal describes what an outbound call should accomplish.
type Goal string

const (
	GoalBookMeeting     Goal = "book_meeting"
	GoalQualifyInterest Goal = "qualify_interest"
	GoalCollectInfo     Goal = "collect_info"
	GoalCloseSale       Goal = "close_sale"
)

// Valid reports whether g is a known call goal.
func (g Goal) Valid() bool {
	switch g {
	case GoalBookMeeting, GoalQualifyInterest, GoalCollectInfo, GoalCloseSale:
		return true
	}
	return false
}

// Status tracks the lifecycle of an ephemeral call job.
// Transitions: pending -> in_progress -> {completed | failed}. No further
// transitions after a terminal status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Lead is a single person to be called. Each lead has its own phone number
// and optional contact details for personalization.
type Lead struct {
	Phone   string `json:"phone"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Title   string `json:"title,omitempty"`
}

// CallRequest is a raw form submission from a web visitor. It is validated at
// the API boundary before any context is built or any job is created.
type CallRequest struct {
	OwnerEmail string `json:"owner_email"`
	Leads      []Lead `json:"leads"`

	Product string `json:"product"`
	Context string `json:"context,omitempty"`

	Goal Goal `json:"goal"`

	// Goal-specific fields
	BookingLink    string `json:"booking_link,omitempty"`    // required if goal=book_meeting
	PaymentLink    string `json:"payment_link,omitempty"`    // required if goal=close_sale
	PricingSummary string `json:"pricing_summary,omitempty"` // close_sale: exact pricing
	UrgencyHook    string `json:"urgency_hook,omitempty"`    // close_sale: limited offer
	GoalCriteria   string `json:"goal_criteria,omitempty"`

	// Anti-abuse
	TurnstileToken string `json:"turnstile_token,omitempty"`
	Consent        bool   `json:"consent"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Validate checks the structural rules for a submission. Rules are evaluated
// in a fixed order so the first failing rule determines the error message:
// consent, leads presence, lead count, per-phone format and uniqueness, then
// goal-specific required fields.
func (r *CallRequest) Validate() error {
	if !r.Consent {
		return ErrConsentRequired
	}
	if len(r.Leads) == 0 {
		return ErrNoLeads
	}
	if len(r.Leads) > MaxLeadsPerSubmission {
		return ErrTooManyLeads
	}
	seen := make(map[string]struct{}, len(r.Leads))
	for i, lead := range r.Leads {
		if !ValidPhoneE164(lead.Phone) {
			return &InvalidPhoneError{Index: i, Phone: lead.Phone}
		}
		if _, dup := seen[lead.Phone]; dup {
			return &DuplicatePhoneError{Phone: lead.Phone}
		}
		seen[lead.Phone] = struct{}{}
	}
	if r.Goal == GoalBookMeeting && r.BookingLink == "" {
		return ErrBookingLinkRequired
	}
	if r.Goal == GoalCloseSale && r.PaymentLink == "" {
		return ErrPaymentLinkRequired
	}
	return nil
}

// MaxLeadsPerSubmission bounds how many calls one form submission may dispatch.
const MaxLeadsPerSubmission = 5

// ContextInstance is the fully built, per-lead script material consumed by
// the voice agent. It is built exactly once per lead, then treated as an
// immutable value: a JSON copy travels with the dispatch request, the agent
// only reads it.
type ContextInstance struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// From the form submission
	OwnerEmail        string `json:"owner_email"`
	Phone             string `json:"phone"`
	Name              string `json:"name,omitempty"`
	LeadCompany       string `json:"lead_company,omitempty"`
	LeadTitle         string `json:"lead_title,omitempty"`
	LeadEmailPreknown string `json:"lead_email_preknown,omitempty"`
	Product           string `json:"product"`
	Goal              Goal   `json:"goal"`

	// Goal-specific fields
	BookingLink    string `json:"booking_link,omitempty"`
	PaymentLink    string `json:"payment_link,omitempty"`
	PricingSummary string `json:"pricing_summary,omitempty"`
	UrgencyHook    string `json:"urgency_hook,omitempty"`
	GoalCriteria   string `json:"goal_criteria,omitempty"`

	// Generated script material
	AgentInstructions      string            `json:"agent_instructions"`
	OpeningLine            string            `json:"opening_line"`
	QualificationQuestions []string          `json:"qualification_questions"`
	ObjectionHandlers      map[string]string `json:"objection_handlers"`
	ClosingScript          string            `json:"closing_script"`

	// Email config for the lead
	ShouldEmailLead   bool   `json:"should_email_lead"`
	LeadEmailTemplate string `json:"lead_email_template"`
}

// CallJob is an ephemeral tracking record linking a call attempt to its
// context and status. Jobs are held in memory only, for status visibility:
// job eviction says nothing about whether the underlying call session is
// still live.
type CallJob struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ContextID string `json:"context_id"`
	Phone     string `json:"phone"`

	Status    Status     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	SMSSent bool   `json:"sms_sent"`
	Error   string `json:"error,omitempty"`
}

// NewCallJob creates a pending job for the given context and phone.
func NewCallJob(contextID, phone string) *CallJob {
	return &CallJob{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		ContextID: contextID,
		Phone:     phone,
		Status:    StatusPending,
	}
}

// ExpiresAt is the instant this record becomes eligible for cleanup.
func (j *CallJob) ExpiresAt() time.Time {
	return j.CreatedAt.Add(CallJobTTL)
}

// IsExpired reports whether the record has exceeded its TTL.
func (j *CallJob) IsExpired() bool {
	return j.isExpiredAt(time.Now().UTC())
}

func (j *CallJob) isExpiredAt(now time.Time) bool {
	return now.After(j.ExpiresAt())
}

// SecondsUntilExpiry returns the remaining lifetime in seconds. Negative if
// the record is already expired.
func (j *CallJob) SecondsUntilExpiry() float64 {
	return time.Until(j.ExpiresAt()).Seconds()
}
