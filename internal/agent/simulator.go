package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/voicereach/voicereach/internal/calls"
	"github.com/voicereach/voicereach/pkg/logging"
)

// SimulatorHandler runs a text-based call simulation over a websocket. The
// browser plays the lead: it types utterances, the scripted responder plays
// the agent, and the final call result is pushed before the socket closes.
// The same session machinery drives real calls, so the simulator exercises
// the production workflow end to end minus the audio.
type SimulatorHandler struct {
	store    *calls.Store
	upgrader websocket.Upgrader
	logger   *logging.Logger
	// onResult is called with each finished simulation, if set.
	onResult func(ctx context.Context, result *CallResult)
}

// NewSimulatorHandler creates a simulator bound to the call registry.
func NewSimulatorHandler(store *calls.Store, logger *logging.Logger, onResult func(context.Context, *CallResult)) *SimulatorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SimulatorHandler{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The demo page is served from the same origin; other origins
			// are rejected by the default check.
		},
		logger:   logger,
		onResult: onResult,
	}
}

// simulatorMessage is the wire format in both directions.
type simulatorMessage struct {
	Type string `json:"type"` // "utterance", "result", "error"
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`

	Result *CallResult `json:"result,omitempty"`
}

// ServeHTTP handles GET /demo/simulator?context_id=... by running a full
// scripted conversation against the stored context.
func (h *SimulatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	contextID := r.URL.Query().Get("context_id")
	if contextID == "" {
		http.Error(w, "context_id query parameter is required", http.StatusBadRequest)
		return
	}

	inst, ok := h.store.GetContext(contextID)
	if !ok {
		http.Error(w, "context not found or expired", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	transport := &wsTransport{conn: conn}
	session, err := NewSession(SessionConfig{
		Context:    inst,
		Responder:  NewScriptedResponder(),
		Transport:  transport,
		OnShutdown: h.onResult,
		Logger:     h.logger,
	})
	if err != nil {
		h.logger.Error("failed to create simulator session", "error", err)
		return
	}

	result, err := session.Run(r.Context())
	if err != nil {
		h.logger.Error("simulator session failed", "context_id", contextID, "error", err)
		conn.WriteJSON(simulatorMessage{Type: "error", Text: err.Error()})
		return
	}

	conn.WriteJSON(simulatorMessage{Type: "result", Result: result})
}

// wsTransport adapts a websocket connection to the session Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadLine(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var msg simulatorMessage
		if err := t.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}
		if msg.Type == "utterance" && msg.Text != "" {
			return msg.Text, nil
		}
	}
}

func (t *wsTransport) WriteLine(_ context.Context, text string) error {
	data, err := json.Marshal(simulatorMessage{Type: "utterance", Role: "agent", Text: text})
	if err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}
