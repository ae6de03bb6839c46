package calls

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBuilder struct {
	err error
}

func (b *stubBuilder) BuildForSubmission(req *CallRequest) ([]*ContextInstance, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]*ContextInstance, 0, len(req.Leads))
	for _, lead := range req.Leads {
		out = append(out, &ContextInstance{
			ID:         uuid.NewString(),
			CreatedAt:  time.Now().UTC(),
			OwnerEmail: req.OwnerEmail,
			Phone:      lead.Phone,
			Name:       lead.Name,
			Product:    req.Product,
			Goal:       req.Goal,
		})
	}
	return out, nil
}

// stubDispatcher fails any phone listed in failPhones, succeeds otherwise.
type stubDispatcher struct {
	failPhones map[string]string
	calls      int
}

func (d *stubDispatcher) Dispatch(_ context.Context, inst *ContextInstance) DispatchResult {
	d.calls++
	if msg, ok := d.failPhones[inst.Phone]; ok {
		return DispatchResult{Success: false, Error: msg}
	}
	return DispatchResult{
		Success:    true,
		RoomName:   "call-" + inst.ID,
		DispatchID: "disp-" + inst.ID,
	}
}

func newTestOrchestrator(t *testing.T, d Dispatcher) (*Orchestrator, *Store) {
	t.Helper()
	store := NewStore(nil)
	if d == nil {
		d = &stubDispatcher{}
	}
	rl := RateLimitConfig{Window: time.Minute, MaxRequests: 10}
	return NewOrchestrator(store, &stubBuilder{}, d, rl, nil, nil), store
}

func validRequest(phones ...string) *CallRequest {
	leads := make([]Lead, 0, len(phones))
	for i, p := range phones {
		leads = append(leads, Lead{Phone: p, Name: fmt.Sprintf("Lead %d", i)})
	}
	return &CallRequest{
		OwnerEmail: "owner@example.com",
		Product:    "CRM Platform",
		Goal:       GoalQualifyInterest,
		Leads:      leads,
		Consent:    true,
	}
}

func TestOrchestrator_SubmitDispatchesAllLeads(t *testing.T) {
	disp := &stubDispatcher{}
	orch, store := newTestOrchestrator(t, disp)

	resp, err := orch.Submit(context.Background(), validRequest("+14155550001", "+14155550002"), "client-a")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Dispatched)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, 2, disp.calls)
	require.Len(t, resp.Calls, 2)

	for _, row := range resp.Calls {
		assert.Equal(t, StatusInProgress, row.Status)
		assert.Greater(t, row.ExpiresInSeconds, 0.0)

		job, ok := store.GetJob(row.CallID)
		require.True(t, ok)
		assert.Equal(t, StatusInProgress, job.Status)
		require.NotNil(t, job.StartedAt)

		inst, ok := store.GetContext(row.ContextID)
		require.True(t, ok)
		assert.Equal(t, row.Phone, inst.Phone)
	}
}

func TestOrchestrator_PerLeadFailureIsolation(t *testing.T) {
	disp := &stubDispatcher{failPhones: map[string]string{
		"+14155550002": "SIP trunk unavailable",
	}}
	orch, store := newTestOrchestrator(t, disp)

	resp, err := orch.Submit(context.Background(),
		validRequest("+14155550001", "+14155550002", "+14155550003"), "client-a")
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Dispatched)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, resp.Total, resp.Dispatched+resp.Failed)

	failed := resp.Calls[1]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Message, "SIP trunk unavailable")

	// Failed jobs stay in the store for status queries.
	job, ok := store.GetJob(failed.CallID)
	require.True(t, ok)
	assert.Equal(t, "SIP trunk unavailable", job.Error)
}

func TestOrchestrator_ValidationOrder(t *testing.T) {
	tooMany := validRequest("+14155550001", "+14155550002", "+14155550003",
		"+14155550004", "+14155550005", "+14155550006")
	// Phone error present too, but the count rule fires first.
	tooMany.Leads[0].Phone = "555-1234"

	noConsent := validRequest("+14155550001")
	noConsent.Consent = false
	noConsent.Leads = nil // consent still wins over the empty list

	badPhoneAndDup := validRequest("+14155550001", "bogus", "+14155550001")

	missingBooking := validRequest("+14155550001")
	missingBooking.Goal = GoalBookMeeting

	missingPayment := validRequest("+14155550001")
	missingPayment.Goal = GoalCloseSale

	cases := []struct {
		name string
		req  *CallRequest
		want error
	}{
		{"consent before empty leads", noConsent, ErrConsentRequired},
		{"empty leads", validRequest(), ErrNoLeads},
		{"count before phone format", tooMany, ErrTooManyLeads},
		{"phone format before duplicate", badPhoneAndDup, &InvalidPhoneError{}},
		{"booking link required", missingBooking, ErrBookingLinkRequired},
		{"payment link required", missingPayment, ErrPaymentLinkRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orch, store := newTestOrchestrator(t, nil)
			_, err := orch.Submit(context.Background(), tc.req, "client-a")
			require.Error(t, err)

			switch want := tc.want.(type) {
			case *InvalidPhoneError:
				var perr *InvalidPhoneError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, 1, perr.Index)
			default:
				assert.ErrorIs(t, err, want)
			}

			// A rejected submission leaves no trace in the store.
			assert.Equal(t, 0, store.CountJobs())
		})
	}
}

func TestOrchestrator_RateLimitRejection(t *testing.T) {
	store := NewStore(nil)
	disp := &stubDispatcher{}
	orch := NewOrchestrator(store, &stubBuilder{}, disp,
		RateLimitConfig{Window: time.Minute, MaxRequests: 2}, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := orch.Submit(context.Background(), validRequest("+14155550001"), "client-a")
		require.NoError(t, err)
	}

	_, err := orch.Submit(context.Background(), validRequest("+14155550001"), "client-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	// The rejected submission dispatched nothing and created no jobs.
	assert.Equal(t, 2, disp.calls)
	assert.Equal(t, 2, store.CountJobs())

	// An independent client is unaffected.
	_, err = orch.Submit(context.Background(), validRequest("+14155550002"), "client-b")
	require.NoError(t, err)
}

func TestOrchestrator_RateLimitNotChargedForInvalidRequests(t *testing.T) {
	store := NewStore(nil)
	orch := NewOrchestrator(store, &stubBuilder{}, &stubDispatcher{},
		RateLimitConfig{Window: time.Minute, MaxRequests: 1}, nil, nil)

	bad := validRequest("+14155550001")
	bad.Consent = false
	for i := 0; i < 5; i++ {
		_, err := orch.Submit(context.Background(), bad, "client-a")
		require.ErrorIs(t, err, ErrConsentRequired)
	}

	// Validation failures never consumed the rate budget.
	_, err := orch.Submit(context.Background(), validRequest("+14155550001"), "client-a")
	require.NoError(t, err)
}

func TestOrchestrator_BuilderFailureRejectsBatch(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("template expansion failed")
	orch := NewOrchestrator(store, &stubBuilder{err: boom}, &stubDispatcher{},
		RateLimitConfig{Window: time.Minute, MaxRequests: 10}, nil, nil)

	_, err := orch.Submit(context.Background(), validRequest("+14155550001"), "client-a")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.CountJobs())
}
