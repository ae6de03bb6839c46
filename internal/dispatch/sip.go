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

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/pkg/logging"
)

// dialTimeout covers trunk setup plus ring time.
const dialTimeout = 60 * time.Second

// SIPDialer places the outbound phone leg through the platform's SIP
// service and waits until the call is answered.
type SIPDialer struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// DialerOption customizes a SIPDialer.
type DialerOption func(*SIPDialer)

// WithDialHTTPClient overrides the dialer's HTTP client.
func WithDialHTTPClient(client *http.Client) DialerOption {
	return func(d *SIPDialer) { d.httpClient = client }
}

// NewSIPDialer creates a dialer for the configured trunk.
func NewSIPDialer(cfg Config, logger *logging.Logger, opts ...DialerOption) *SIPDialer {
	if logger == nil {
		logger = logging.Default()
	}
	d := &SIPDialer{
		cfg:        cfg,
		baseURL:    httpBaseURL(cfg.URL),
		httpClient: &http.Client{Timeout: dialTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type createSIPParticipantRequest struct {
	RoomName            string `json:"room_name"`
	SIPTrunkID          string `json:"sip_trunk_id"`
	SIPCallTo           string `json:"sip_call_to"`
	ParticipantIdentity string `json:"participant_identity"`
	WaitUntilAnswered   bool   `json:"wait_until_answered"`
}

type sipErrorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Meta struct {
		SIPStatusCode string `json:"sip_status_code"`
		SIPStatus     string `json:"sip_status"`
	} `json:"meta"`
}

// Dial rings phone into roomName and blocks until answered. Telephony-level
// rejections come back as *agent.DialError so the session can record a
// no_answer outcome; anything else is an infrastructure error.
func (d *SIPDialer) Dial(ctx context.Context, roomName, phone string) error {
	if d.cfg.SIPOutboundTrunk == "" {
		return fmt.Errorf("sip dial: SIP_OUTBOUND_TRUNK_ID not configured")
	}

	token, err := newAccessToken(d.cfg.APIKey, d.cfg.APISecret, "dialer", videoGrant{
		RoomAdmin: true,
		Room:      roomName,
	}, dispatchTokenTTL)
	if err != nil {
		return fmt.Errorf("sip dial: mint token: %w", err)
	}

	body, err := json.Marshal(createSIPParticipantRequest{
		RoomName:            roomName,
		SIPTrunkID:          d.cfg.SIPOutboundTrunk,
		SIPCallTo:           phone,
		ParticipantIdentity: phone,
		WaitUntilAnswered:   true,
	})
	if err != nil {
		return fmt.Errorf("sip dial: encode request: %w", err)
	}

	url := d.baseURL + "/twirp/livekit.SIP/CreateSIPParticipant"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sip dial: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	d.logger.Info("dialing", "phone", phone, "trunk", d.cfg.SIPOutboundTrunk, "room", roomName)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sip dial: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var sipErr sipErrorResponse
	if err := json.Unmarshal(respBody, &sipErr); err == nil && (sipErr.Meta.SIPStatusCode != "" || sipErr.Code != "") {
		status := sipErr.Meta.SIPStatusCode
		if status == "" {
			status = "unknown"
		}
		return &agent.DialError{
			SIPStatus: strings.TrimSpace(status + " " + sipErr.Meta.SIPStatus),
			Err:       fmt.Errorf("%s: %s", sipErr.Code, sipErr.Msg),
		}
	}
	return fmt.Errorf("sip dial: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}
