package security

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const verificationTokenTTL = 24 * time.Hour

type tokenEntry struct {
	email     string
	expiresAt time.Time
}

// VerificationTokenStore holds single-use email verification tokens in
// memory. It follows the same shape as the call-job store: one mutex around a
// map of TTL-bound entries, with expired entries swept opportunistically on
// access. Tokens are consumed on successful verification.
type VerificationTokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewVerificationTokenStore creates an empty token store.
func NewVerificationTokenStore() *VerificationTokenStore {
	return &VerificationTokenStore{
		tokens: make(map[string]tokenEntry),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a new verification token bound to the email.
func (s *VerificationTokenStore) Create(email string) string {
	token := randomToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.tokens[token] = tokenEntry{
		email:     email,
		expiresAt: s.now().Add(verificationTokenTTL),
	}
	return token
}

// Verify consumes a token and returns the email it was issued for. Unknown,
// expired, and already-used tokens all report ok=false.
func (s *VerificationTokenStore) Verify(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	delete(s.tokens, token)
	if s.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.email, true
}

// Len returns the number of live tokens.
func (s *VerificationTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.tokens)
}

func (s *VerificationTokenStore) sweepLocked() {
	now := s.now()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
