package calls

import (
	"errors"
	"fmt"
)

var (
	// ErrConsentRequired is returned when the consent checkbox is not set.
	ErrConsentRequired = errors.New("consent checkbox must be checked to proceed")

	// ErrNoLeads is returned when a submission contains no leads.
	ErrNoLeads = errors.New("at least one lead is required")

	// ErrTooManyLeads is returned when a submission exceeds the lead limit.
	ErrTooManyLeads = errors.New("maximum 5 leads allowed per submission")

	// ErrBookingLinkRequired is returned when goal=book_meeting lacks a booking link.
	ErrBookingLinkRequired = errors.New("booking_link is required when goal is book_meeting")

	// ErrPaymentLinkRequired is returned when goal=close_sale lacks a payment link.
	ErrPaymentLinkRequired = errors.New("payment_link is required when goal is close_sale")

	// ErrRateLimited is returned when a client exceeds the submission rate limit.
	// It is a distinct category from validation errors so clients can back off.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// InvalidPhoneError reports a lead phone that is not valid E.164.
type InvalidPhoneError struct {
	Index int
	Phone string
}

func (e *InvalidPhoneError) Error() string {
	return fmt.Sprintf("lead %d: phone must be in E.164 format (e.g. +14155551234), got %q", e.Index+1, e.Phone)
}

// DuplicatePhoneError reports a phone that appears more than once in a submission.
type DuplicatePhoneError struct {
	Phone string
}

func (e *DuplicatePhoneError) Error() string {
	return fmt.Sprintf("duplicate phone number: %s", e.Phone)
}
