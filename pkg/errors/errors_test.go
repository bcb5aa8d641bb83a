package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfUnwrapsChains(t *testing.T) {
	base := Configuration("SUPABASE_URL must be set")
	wrapped := fmt.Errorf("gateway: %w", base)

	assert.True(t, IsConfiguration(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrCodeConfiguration, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}

func TestAppErrorMessage(t *testing.T) {
	err := Wrap(ErrCodeUpstream, "identity provider", fmt.Errorf("status 500"))
	assert.Equal(t, "UPSTREAM_ERROR: identity provider (status 500)", err.Error())
	assert.True(t, IsUpstream(err))
	assert.Equal(t, "NOT_FOUND: team member", New(ErrCodeNotFound, "team member").Error())
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("teams.update: %w", New(ErrCodeNotFound, "team member 42"))

	assert.ErrorIs(t, err, New(ErrCodeNotFound, ""))
	assert.NotErrorIs(t, err, New(ErrCodeUpstream, ""))
}
