package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicereach/voicereach/internal/calls"
)

func testConfig(url string) Config {
	return Config{
		URL:              url,
		APIKey:           "api-key",
		APISecret:        "api-secret-api-secret-api-secret",
		SIPOutboundTrunk: "trunk-1",
		AgentName:        "voice-agent",
	}
}

func testContext() *calls.ContextInstance {
	return &calls.ContextInstance{
		ID:      "ctx-123",
		Phone:   "+14155551234",
		Product: "Test Product",
		Goal:    calls.GoalQualifyInterest,
	}
}

func TestDispatch_Success(t *testing.T) {
	var captured createDispatchRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/twirp/livekit.AgentDispatchService/CreateDispatch", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		json.NewEncoder(w).Encode(createDispatchResponse{ID: "disp-42"})
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL), nil)
	result := d.Dispatch(context.Background(), testContext())

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "call-ctx-123", result.RoomName)
	assert.Equal(t, "disp-42", result.DispatchID)

	assert.Equal(t, "voice-agent", captured.AgentName)
	assert.Equal(t, "call-ctx-123", captured.Room)

	// The full context rides along as metadata for the agent to read.
	var meta calls.ContextInstance
	require.NoError(t, json.Unmarshal([]byte(captured.Metadata), &meta))
	assert.Equal(t, "+14155551234", meta.Phone)

	// Auth token is a valid HS256 JWT signed with the API secret.
	require.True(t, strings.HasPrefix(authHeader, "Bearer "))
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), &accessClaims{},
		func(*jwt.Token) (any, error) { return []byte("api-secret-api-secret-api-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(*accessClaims)
	assert.Equal(t, "api-key", claims.Issuer)
	assert.Equal(t, "call-ctx-123", claims.Video.Room)
	assert.True(t, claims.Video.RoomCreate)
}

func TestDispatch_NotConfigured(t *testing.T) {
	d := NewDispatcher(Config{}, nil)
	result := d.Dispatch(context.Background(), testContext())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not configured")
}

func TestDispatch_PlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"not_found","msg":"agent not registered"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL), nil)
	result := d.Dispatch(context.Background(), testContext())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "platform API error")
	assert.Contains(t, result.Error, "agent not registered")
}

func TestDispatch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(testConfig(srv.URL), nil)
	result := d.Dispatch(context.Background(), testContext())

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestHTTPBaseURL(t *testing.T) {
	assert.Equal(t, "https://host.example", httpBaseURL("wss://host.example"))
	assert.Equal(t, "http://host.example", httpBaseURL("ws://host.example"))
	assert.Equal(t, "https://host.example", httpBaseURL("https://host.example/"))
}

func TestNewAccessToken_RequiresCredentials(t *testing.T) {
	_, err := newAccessToken("", "", "x", videoGrant{}, time.Minute)
	require.Error(t, err)
}
