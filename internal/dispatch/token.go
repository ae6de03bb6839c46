package dispatch

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// videoGrant is the platform's room permission claim.
type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
	CanPublish   bool   `json:"canPublish,omitempty"`
	CanSubscribe bool   `json:"canSubscribe,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
}

// newAccessToken mints an HS256 platform access token. The API key travels
// as the issuer, the identity as the subject.
func newAccessToken(apiKey, apiSecret, identity string, grant videoGrant, ttl time.Duration) (string, error) {
	return newNamedAccessToken(apiKey, apiSecret, identity, "", grant, ttl)
}

func newNamedAccessToken(apiKey, apiSecret, identity, name string, grant videoGrant, ttl time.Duration) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("api key and secret required")
	}
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  name,
		Video: grant,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
}
