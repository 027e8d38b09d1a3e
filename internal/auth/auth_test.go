package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, ttl time.Duration) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewAuthServiceFromKey(key, ttl)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.GenerateAccessToken(Subject{UserID: "u1", Username: "alice", Role: "admin", MustChangePassword: true})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.MustChangePassword)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newTestService(t, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.GenerateAccessToken(Subject{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.Error(t, err)

	other := newTestService(t, time.Hour)
	foreign, err := other.GenerateAccessToken(Subject{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))

	assert.Error(t, ValidatePasswordStrength("short"))
	assert.NoError(t, ValidatePasswordStrength("long enough"))

	p1, err := GeneratePassword(16)
	require.NoError(t, err)
	p2, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.Len(t, p1, 16)
	assert.NotEqual(t, p1, p2)
}
