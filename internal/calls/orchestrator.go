package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/voicereach/voicereach/internal/observability/metrics"
	"github.com/voicereach/voicereach/pkg/logging"
)

// DispatchResult is the normalized outcome of asking the telephony/agent
// platform to start a call session. The gateway never raises: every failure
// mode is folded into Error.
type DispatchResult struct {
	Success    bool   `json:"success"`
	RoomName   string `json:"room_name,omitempty"`
	DispatchID string `json:"dispatch_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Dispatcher submits one built context to the external platform.
type Dispatcher interface {
	Dispatch(ctx context.Context, inst *ContextInstance) DispatchResult
}

// ContextBuilder turns a validated submission into one ContextInstance per
// lead, in lead-list order.
type ContextBuilder interface {
	BuildForSubmission(req *CallRequest) ([]*ContextInstance, error)
}

// RateLimitConfig bounds submissions per client key.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// LeadCallResult is the per-lead outcome of a batch submission.
type LeadCallResult struct {
	CallID           string  `json:"call_id"`
	ContextID        string  `json:"context_id"`
	Phone            string  `json:"phone"`
	LeadName         string  `json:"lead_name,omitempty"`
	Status           Status  `json:"status"`
	ExpiresInSeconds float64 `json:"expires_in_seconds"`
	Message          string  `json:"message"`
}

// BatchResponse aggregates the per-lead results of one submission.
type BatchResponse struct {
	Calls      []LeadCallResult `json:"calls"`
	Total      int              `json:"total"`
	Dispatched int              `json:"dispatched"`
	Failed     int              `json:"failed"`
}

// Orchestrator turns one validated CallRequest into N independent call
// attempts with isolated failure domains: one lead's dispatch failure never
// aborts its siblings. Once at least one job has been created, the batch can
// no longer be rejected wholesale, only per-lead-flagged as failed.
type Orchestrator struct {
	store      *Store
	builder    ContextBuilder
	dispatcher Dispatcher
	rateLimit  RateLimitConfig
	metrics    *metrics.CallMetrics
	logger     *logging.Logger
}

// NewOrchestrator wires the submission pipeline.
func NewOrchestrator(store *Store, builder ContextBuilder, dispatcher Dispatcher, rl RateLimitConfig, m *metrics.CallMetrics, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		store:      store,
		builder:    builder,
		dispatcher: dispatcher,
		rateLimit:  rl,
		metrics:    m,
		logger:     logger,
	}
}

// Submit validates and dispatches a batch submission. clientKey identifies
// the submitter for rate limiting (typically the client IP).
//
// Validation order is a deliberate contract: consent, leads presence, lead
// count, phone format/uniqueness, goal-specific fields, then rate limit. The
// first failing rule wins, so error messages are deterministic.
func (o *Orchestrator) Submit(ctx context.Context, req *CallRequest, clientKey string) (*BatchResponse, error) {
	// Opportunistic sweep so status queries after a submission see fresh state.
	o.store.CleanupExpired()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !o.store.CheckRateLimit(clientKey, o.rateLimit.Window, o.rateLimit.MaxRequests) {
		return nil, fmt.Errorf("%w: max %d requests per %s", ErrRateLimited, o.rateLimit.MaxRequests, o.rateLimit.Window)
	}

	contexts, err := o.builder.BuildForSubmission(req)
	if err != nil {
		return nil, fmt.Errorf("build contexts: %w", err)
	}

	resp := &BatchResponse{
		Calls: make([]LeadCallResult, 0, len(req.Leads)),
		Total: len(req.Leads),
	}

	for i, lead := range req.Leads {
		inst := contexts[i]
		job := NewCallJob(inst.ID, lead.Phone)
		o.store.AddJob(job, inst)

		result := o.dispatcher.Dispatch(ctx, inst)

		var message string
		var status Status
		if result.Success {
			o.store.MarkJobDispatched(job.ID)
			status = StatusInProgress
			message = "call dispatched successfully"
			resp.Dispatched++
			o.metrics.ObserveDispatch("dispatched")
			o.logger.Info("call dispatched",
				"phone", lead.Phone,
				"room", result.RoomName,
				"job_id", job.ID,
			)
		} else {
			o.store.MarkJobFailed(job.ID, result.Error)
			status = StatusFailed
			message = "call dispatch failed: " + result.Error
			resp.Failed++
			o.metrics.ObserveDispatch("failed")
			o.logger.Error("call dispatch failed",
				"phone", lead.Phone,
				"error", result.Error,
				"job_id", job.ID,
			)
		}

		resp.Calls = append(resp.Calls, LeadCallResult{
			CallID:           job.ID,
			ContextID:        inst.ID,
			Phone:            lead.Phone,
			LeadName:         lead.Name,
			Status:           status,
			ExpiresInSeconds: job.SecondsUntilExpiry(),
			Message:          message,
		})
	}

	o.metrics.SetActiveJobs(o.store.CountJobs())
	return resp, nil
}
