package calls

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voicereach/voicereach/pkg/logging"
)

// Handler handles HTTP requests for call submission and status.
type Handler struct {
	orchestrator *Orchestrator
	store        *Store
	logger       *logging.Logger
}

// NewHandler creates a new calls handler.
func NewHandler(orchestrator *Orchestrator, store *Store, logger *logging.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

// SubmitCalls handles POST /calls requests.
func (h *Handler) SubmitCalls(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode call request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.orchestrator.Submit(r.Context(), &req, clientIP(r))
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// CallStatusResponse is the response for a single call status query.
type CallStatusResponse struct {
	*CallJob
	ExpiresInSeconds float64 `json:"expires_in_seconds"`
}

// GetCallStatus handles GET /calls/{id} requests. Expired jobs are
// indistinguishable from jobs that never existed.
func (h *Handler) GetCallStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok := h.store.GetJob(id)
	if !ok || job.IsExpired() {
		writeError(w, http.StatusNotFound, "call not found or expired")
		return
	}

	writeJSON(w, http.StatusOK, CallStatusResponse{
		CallJob:          job,
		ExpiresInSeconds: job.SecondsUntilExpiry(),
	})
}

// GetContext handles GET /contexts/{id} requests.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inst, ok := h.store.GetContext(id)
	if !ok {
		writeError(w, http.StatusNotFound, "context not found or expired")
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

// HealthResponse reports service liveness and registry state.
type HealthResponse struct {
	Status        string  `json:"status"`
	ActiveJobs    int     `json:"active_jobs"`
	TotalCleanups int     `json:"total_cleanups"`
	JobTTLSeconds float64 `json:"job_ttl_seconds"`
}

// HealthCheck handles GET /health requests. It runs a sweep so the reported
// job count reflects only live jobs.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.store.CleanupExpired()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		ActiveJobs:    h.store.CountJobs(),
		TotalCleanups: h.store.TotalCleanups(),
		JobTTLSeconds: CallJobTTL.Seconds(),
	})
}

// clientIP extracts the rate-limit key for a request. The router's RealIP
// middleware has already resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
