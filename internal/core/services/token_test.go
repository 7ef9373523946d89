package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", "chat-app", time.Hour)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", "chat-app", time.Hour)
	good, err := svc.GenerateToken(1)
	require.NoError(t, err)

	expired := NewTokenService("secret", "chat-app", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.GenerateToken(1)
	require.NoError(t, err)

	otherKey, err := NewTokenService("other", "chat-app", time.Hour).GenerateToken(1)
	require.NoError(t, err)

	otherIssuer, err := NewTokenService("secret", "someone-else", time.Hour).GenerateToken(1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":       old,
		"wrong key":     otherKey,
		"wrong issuer":  otherIssuer,
		"alg none":      none,
		"garbage":       "not.a.token",
		"empty":         "",
		"tampered tail": good[:len(good)-2] + "xx",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestTokenService_MissingUserID(t *testing.T) {
	svc := NewTokenService("secret", "chat-app", time.Hour)
	token, err := svc.GenerateToken(0)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
