package dispatch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/voicereach/voicereach/pkg/logging"
)

const participantTokenTTL = 10 * time.Minute

// TokenHandler mints room join tokens for browser participants, so a call
// flow can be exercised end to end without a SIP leg.
type TokenHandler struct {
	cfg    Config
	logger *logging.Logger
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(cfg Config, logger *logging.Logger) *TokenHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TokenHandler{cfg: cfg, logger: logger}
}

// TokenRequest asks for a browser participant token.
type TokenRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

// TokenResponse carries the connection credentials for a browser participant.
type TokenResponse struct {
	ServerURL        string `json:"server_url"`
	ParticipantToken string `json:"participant_token"`
	RoomName         string `json:"room_name"`
}

// CreateToken handles POST /token requests. The token grants room join plus
// audio publish and subscribe, and expires after ten minutes.
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RoomName == "" {
		http.Error(w, "room_name is required", http.StatusBadRequest)
		return
	}
	if req.ParticipantName == "" {
		req.ParticipantName = "Test Caller"
	}

	if h.cfg.URL == "" || h.cfg.APIKey == "" || h.cfg.APISecret == "" {
		http.Error(w, "platform not configured", http.StatusInternalServerError)
		return
	}

	token, err := newNamedAccessToken(h.cfg.APIKey, h.cfg.APISecret,
		"browser-"+req.ParticipantName, req.ParticipantName, videoGrant{
			Room:         req.RoomName,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		}, participantTokenTTL)
	if err != nil {
		h.logger.Error("failed to mint participant token", "error", err)
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("browser token generated",
		"participant", req.ParticipantName,
		"room", req.RoomName,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		ServerURL:        h.cfg.URL,
		ParticipantToken: token,
		RoomName:         req.RoomName,
	})
}
