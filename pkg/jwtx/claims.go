package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the default access token lifetime. Short-lived because
// tokens are fully stateless and cannot be revoked.
const DefaultTTL = time.Hour

// Claims are the access-token claims. We keep changes additive to preserve
// compatibility with tokens already in the wild.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the authenticated user. Mirrors the subject today but is
	// kept as its own claim so the subject can become an opaque id later.
	Username string `json:"username,omitempty"`
}

// NewClaims builds minimally-correct claims for a subject.
func NewClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: subject,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
