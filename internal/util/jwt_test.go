package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": "user-1", "email": "admin@example.com", "role": "authenticated"})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "admin@example.com", claims["email"])

	_, err = ParseClaims("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestKeyRole(t *testing.T) {
	assert.Equal(t, "anon", KeyRole(sign(t, jwt.MapClaims{"role": "anon"})))
	assert.Equal(t, "service_role", KeyRole(sign(t, jwt.MapClaims{"role": "service_role"})))
	assert.Equal(t, "", KeyRole("sb_publishable_opaque"))
	assert.Equal(t, "", KeyRole(sign(t, jwt.MapClaims{"iss": "supabase"})))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	expired := sign(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	live := sign(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})

	assert.True(t, IsExpired(expired, now))
	assert.False(t, IsExpired(live, now))
	assert.False(t, IsExpired(sign(t, jwt.MapClaims{"sub": "x"}), now))
	assert.False(t, IsExpired("opaque-session-token", now))
}
