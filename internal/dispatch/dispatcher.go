// Package dispatch submits built call contexts to the realtime media
// platform. Dispatch failures are reported as values, never as errors: the
// orchestrator treats every lead independently and needs the failure text,
// not a stack unwind.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voicereach/voicereach/internal/calls"
	"github.com/voicereach/voicereach/pkg/logging"
)

const (
	dispatchTimeout  = 15 * time.Second
	dispatchTokenTTL = time.Minute
)

// Config holds the platform credentials for agent dispatch.
type Config struct {
	// URL is the platform endpoint, ws(s) or http(s) scheme.
	URL       string
	APIKey    string
	APISecret string
	// SIPOutboundTrunk is the trunk the agent dials through.
	SIPOutboundTrunk string
	// AgentName selects which registered agent handles the room.
	AgentName string
}

// IsConfigured reports whether all required credentials are present.
func (c Config) IsConfigured() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != "" && c.SIPOutboundTrunk != ""
}

// Dispatcher creates agent dispatches over the platform's HTTP API.
type Dispatcher struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = client }
}

// NewDispatcher creates a dispatcher for the given platform config.
func NewDispatcher(cfg Config, logger *logging.Logger, opts ...Option) *Dispatcher {
	if cfg.AgentName == "" {
		cfg.AgentName = "voice-agent"
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		cfg:        cfg,
		baseURL:    httpBaseURL(cfg.URL),
		httpClient: &http.Client{Timeout: dispatchTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// httpBaseURL maps the websocket endpoint onto its HTTP API origin.
func httpBaseURL(url string) string {
	url = strings.TrimRight(url, "/")
	switch {
	case strings.HasPrefix(url, "wss://"):
		return "https://" + strings.TrimPrefix(url, "wss://")
	case strings.HasPrefix(url, "ws://"):
		return "http://" + strings.TrimPrefix(url, "ws://")
	default:
		return url
	}
}

type createDispatchRequest struct {
	AgentName string `json:"agent_name"`
	Room      string `json:"room"`
	Metadata  string `json:"metadata"`
}

type createDispatchResponse struct {
	ID string `json:"id"`
}

// Dispatch asks the platform to start an agent session for inst. The room
// name is derived from the context id so the agent, the job record and the
// media session all share one correlation key. The full context travels as
// dispatch metadata; the agent reads the phone number from it and dials.
func (d *Dispatcher) Dispatch(ctx context.Context, inst *calls.ContextInstance) calls.DispatchResult {
	if !d.cfg.IsConfigured() {
		return calls.DispatchResult{
			Success: false,
			Error:   "dispatch not configured: check PLATFORM_URL, PLATFORM_API_KEY, PLATFORM_API_SECRET and SIP_OUTBOUND_TRUNK_ID",
		}
	}

	roomName := "call-" + inst.ID

	metadata, err := json.Marshal(inst)
	if err != nil {
		return calls.DispatchResult{Success: false, Error: "encode context: " + err.Error()}
	}

	token, err := newAccessToken(d.cfg.APIKey, d.cfg.APISecret, "dispatcher", videoGrant{
		RoomCreate: true,
		RoomAdmin:  true,
		Room:       roomName,
	}, dispatchTokenTTL)
	if err != nil {
		return calls.DispatchResult{Success: false, Error: "mint access token: " + err.Error()}
	}

	body, err := json.Marshal(createDispatchRequest{
		AgentName: d.cfg.AgentName,
		Room:      roomName,
		Metadata:  string(metadata),
	})
	if err != nil {
		return calls.DispatchResult{Success: false, Error: "encode dispatch request: " + err.Error()}
	}

	url := d.baseURL + "/twirp/livekit.AgentDispatchService/CreateDispatch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return calls.DispatchResult{Success: false, Error: "build dispatch request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("dispatch request failed", "room", roomName, "error", err)
		return calls.DispatchResult{Success: false, Error: "dispatch request: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return calls.DispatchResult{Success: false, Error: "read dispatch response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("platform API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		d.logger.Error("dispatch rejected", "room", roomName, "status", resp.StatusCode)
		return calls.DispatchResult{Success: false, Error: msg}
	}

	var created createDispatchResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return calls.DispatchResult{Success: false, Error: "decode dispatch response: " + err.Error()}
	}

	d.logger.Info("agent dispatch created",
		"room", roomName,
		"dispatch_id", created.ID,
		"agent", d.cfg.AgentName,
		"phone", inst.Phone,
	)

	return calls.DispatchResult{
		Success:    true,
		RoomName:   roomName,
		DispatchID: created.ID,
	}
}
