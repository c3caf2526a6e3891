package platform

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can read from a configured API token
// without the signing key: the subject and the expiry, if present.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// InspectToken decodes a JWT without verifying the signature. The client
// holds no verification key; this exists only to warn about expired or
// near-expiry tokens before the platform rejects them.
func InspectToken(raw string) (*TokenInfo, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Expired reports whether the token has an expiry in the past.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}

// ExpiresWithin reports whether the token expires inside the window.
func (t *TokenInfo) ExpiresWithin(now time.Time, window time.Duration) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now.Add(window)) && !t.Expired(now)
}
