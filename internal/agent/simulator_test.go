package agent

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicereach/voicereach/internal/calls"
)

func TestSimulator_FullConversation(t *testing.T) {
	store := calls.NewStore(nil)
	inst := bookMeetingContext()
	job := calls.NewCallJob(inst.ID, inst.Phone)
	store.AddJob(job, inst)

	var reported *CallResult
	handler := NewSimulatorHandler(store, nil, func(_ context.Context, r *CallResult) {
		reported = r
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?context_id=" + inst.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	leadLines := []string{
		"Hello?",
		"I'm doing well, thanks.",
		"Sure, go ahead.",
		"Mostly spreadsheets today.",
		"Just me, really.",
		"That sounds interesting.",
		"Yeah, worth a look.",
		"Okay, let's book it.",
		"bob@example.com",
	}

	var result *CallResult
	for _, line := range leadLines {
		require.NoError(t, conn.WriteJSON(simulatorMessage{Type: "utterance", Text: line}))

		// Read agent replies until it's our turn again or the result lands.
		var msg simulatorMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "result" {
			result = msg.Result
			break
		}
		assert.Equal(t, "agent", msg.Role)
		assert.NotEmpty(t, msg.Text)
	}

	// The final utterance triggers the close; the result follows the last reply.
	if result == nil {
		var msg simulatorMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "result", msg.Type)
		result = msg.Result
	}

	require.NotNil(t, result)
	assert.Equal(t, OutcomeBooked, result.Outcome)
	assert.Equal(t, "bob@example.com", result.LeadEmail)

	require.NotNil(t, reported)
	assert.Equal(t, OutcomeBooked, reported.Outcome)
}

func TestSimulator_RequiresContextID(t *testing.T) {
	handler := NewSimulatorHandler(calls.NewStore(nil), nil, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSimulator_UnknownContext(t *testing.T) {
	handler := NewSimulatorHandler(calls.NewStore(nil), nil, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "?context_id=missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}
