package platform

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{
		"sub": "user-42",
		"exp": exp.Unix(),
	})

	info, err := InspectToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-42", info.Subject)
	assert.True(t, info.ExpiresAt.Equal(exp))
}

func TestInspectTokenInvalid(t *testing.T) {
	_, err := InspectToken("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name           string
		expiresAt      time.Time
		wantExpired    bool
		wantNearExpiry bool
	}{
		{name: "no expiry claim", expiresAt: time.Time{}},
		{name: "expired", expiresAt: now.Add(-time.Minute), wantExpired: true},
		{name: "near expiry", expiresAt: now.Add(30 * time.Minute), wantNearExpiry: true},
		{name: "long lived", expiresAt: now.Add(48 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &TokenInfo{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.wantExpired, info.Expired(now))
			assert.Equal(t, tt.wantNearExpiry, info.ExpiresWithin(now, time.Hour))
		})
	}
}
