package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrKeyTooShort = errors.New("jwtx: signing key must be at least 32 bytes")

	// Validation failures. Callers should collapse these into a single
	// externally-visible credential failure; the distinction exists for
	// diagnostics only.
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")
)

// Codec issues and validates HS256-signed bearer tokens. The signing key is
// process-wide, read-only after construction, and safe for concurrent use.
// Nothing is persisted: a restart invalidates no outstanding tokens.
type Codec struct {
	key    []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
}

// NewCodec builds a codec. ttl <= 0 falls back to DefaultTTL.
func NewCodec(key []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &Codec{
		key:    k,
		issuer: issuer,
		ttl:    ttl,
		leeway: 30 * time.Second,
	}, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue mints a signed token for subject with expiry now+TTL. It has no
// side effects beyond the returned string.
func (c *Codec) Issue(subject string, now time.Time) (string, error) {
	claims := NewClaims(subject, c.issuer, c.ttl, now.UTC())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.key)
}

// Validate parses and verifies raw and returns the subject claim. The
// claims are never consulted before the signature verifies.
func (c *Codec) Validate(raw string) (string, error) {
	claims, err := c.ValidateClaims(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ValidateClaims is Validate but hands back the full claim set.
func (c *Codec) ValidateClaims(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
