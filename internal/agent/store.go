package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "agent:session:"
	sessionTTL       = 24 * time.Hour
)

// SessionStore persists live call session state in Redis, keyed by room
// name. State survives an agent process restart and stays queryable for a
// day after the call for debugging and transcript review.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a session store backed by Redis.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(roomName string) string {
	return sessionKeyPrefix + roomName
}

// SaveState persists the current call state under the room name.
func (s *SessionStore) SaveState(ctx context.Context, roomName string, state *CallState) error {
	if roomName == "" {
		return fmt.Errorf("session store: room name required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session store: marshal: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(roomName), data, sessionTTL).Err()
}

// GetState retrieves call state for a room. Returns nil without error when
// the room has no stored state.
func (s *SessionStore) GetState(ctx context.Context, roomName string) (*CallState, error) {
	data, err := s.rdb.Get(ctx, sessionKey(roomName)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("session store: get: %w", err)
	}
	var state CallState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("session store: unmarshal: %w", err)
	}
	return &state, nil
}

// Delete removes a room's stored state.
func (s *SessionStore) Delete(ctx context.Context, roomName string) error {
	return s.rdb.Del(ctx, sessionKey(roomName)).Err()
}
