package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rajhholding/internal/logging"
	apperrors "rajhholding/pkg/errors"
)

func TestNewSessionVerifierRequiresProvider(t *testing.T) {
	_, err := NewSessionVerifier(nil, logging.Discard())
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestVerifyWithoutTokenSkipsProvider(t *testing.T) {
	h := newHarness(t)

	principal, ok := h.verifier.Verify(context.Background(), "")
	assert.False(t, ok)
	assert.Nil(t, principal)
	assert.Equal(t, 0, h.provider.calls())
}

func TestVerifyFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *fakeProvider)
		token string
	}{
		{"rejected token", func(p *fakeProvider) {}, "forged"},
		{"provider unreachable", func(p *fakeProvider) { p.getErr = errProviderDown }, adminToken},
		{"provider panics", func(p *fakeProvider) { p.panics = true }, adminToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.provider)

			principal, ok := h.verifier.Verify(context.Background(), tt.token)
			assert.False(t, ok)
			assert.Nil(t, principal)

			_, err := h.verifier.Authorize(context.Background(), tt.token)
			assert.Equal(t, ErrNameUnauthorized, ErrorName(err))
		})
	}
}

func TestVerifyRejectsExpiredJWTLocally(t *testing.T) {
	h := newHarness(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, ok := h.verifier.Verify(context.Background(), expired)
	assert.False(t, ok)
	assert.Equal(t, 0, h.provider.calls())
}

func TestVerifyWrapsToken(t *testing.T) {
	h := newHarness(t)

	principal, ok := h.verifier.Verify(context.Background(), adminToken)
	require.True(t, ok)
	assert.Equal(t, adminToken, principal.Token)
	assert.Equal(t, "admin-1", principal.UserID)
	assert.Equal(t, "admin@rajhholding.ch", principal.Email)
}

func newSessionService(t *testing.T, h *harness) *SessionService {
	t.Helper()
	svc, err := NewSessionService(h.verifier, h.provider, logging.Discard())
	require.NoError(t, err)
	return svc
}

func TestSessionCheck(t *testing.T) {
	h := newHarness(t)
	svc := newSessionService(t, h)

	status := svc.Check(context.Background(), adminToken)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "admin@rajhholding.ch", status.User.Email)

	for _, token := range []string{"", "forged"} {
		status = svc.Check(context.Background(), token)
		assert.False(t, status.Authenticated)
		assert.Nil(t, status.User)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	svc := newSessionService(t, h)
	ctx := context.Background()

	_, err := svc.Login(ctx, &LoginPayload{Email: " ", Password: "x"})
	assert.Equal(t, ErrNameBadRequest, ErrorName(err))

	_, err = svc.Login(ctx, &LoginPayload{Email: "admin@rajhholding.ch", Password: "wrong"})
	assert.Equal(t, ErrNameUnauthorized, ErrorName(err))
	assert.EqualError(t, err, "Invalid email or password")

	result, err := svc.Login(ctx, &LoginPayload{Email: " Admin@RajhHolding.ch ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, adminToken, result.Token)
	assert.Equal(t, time.Hour, result.ExpiresIn)
	assert.Equal(t, "admin@rajhholding.ch", result.User.Email)
}

func TestLoginProviderDown(t *testing.T) {
	h := newHarness(t)
	h.provider.signInErr = errProviderDown
	svc := newSessionService(t, h)

	_, err := svc.Login(context.Background(), &LoginPayload{Email: "admin@rajhholding.ch", Password: "correct-horse"})
	assert.Equal(t, ErrNameInternal, ErrorName(err))
}

func TestLogoutIsBestEffort(t *testing.T) {
	h := newHarness(t)
	h.provider.signOutErr = errProviderDown
	svc := newSessionService(t, h)

	svc.Logout(context.Background(), "")
	svc.Logout(context.Background(), adminToken)
	assert.Equal(t, []string{adminToken}, h.provider.signedOut)
}
