package config

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rajhholding/pkg/errors"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":      "sqlite:///./rajh.db",
		"SUPABASE_URL":      "https://project.supabase.co/",
		"SUPABASE_ANON_KEY": "sb_publishable_key",
	}
}

func roleKey(t *testing.T, role string) string {
	t.Helper()
	key, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": role}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return key
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.App.Addr())
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "admin-session", cfg.Session.CookieName)
	assert.Equal(t, time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(32<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 5, cfg.RateLimit.ContactLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "https://project.supabase.co", cfg.Supabase.BaseURL())
	assert.Equal(t, "./rajh.db", cfg.Database.GetSQLitePath())
	assert.False(t, cfg.Database.IsPostgres())
}

func TestParseOverrides(t *testing.T) {
	environ := baseEnv()
	environ["DATABASE_URL"] = "postgres://app:pw@db:5432/rajh"
	environ["ALLOWED_ORIGINS"] = "https://rajhholding.ch,https://www.rajhholding.ch"
	environ["RATE_LIMIT_WINDOW"] = "30s"
	environ["TRUST_PROXY"] = "true"

	cfg, err := Parse(environ)
	require.NoError(t, err)
	assert.True(t, cfg.Database.IsPostgres())
	assert.Equal(t, []string{"https://rajhholding.ch", "https://www.rajhholding.ch"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.App.TrustProxy)
}

func TestParseRejectsMissingSettings(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "SUPABASE_URL", "SUPABASE_ANON_KEY"} {
		t.Run(key, func(t *testing.T) {
			environ := baseEnv()
			delete(environ, key)

			_, err := Parse(environ)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
		})
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	environ := baseEnv()
	environ["RATE_LIMIT_WINDOW"] = "soon"
	_, err := Parse(environ)
	assert.True(t, apperrors.IsConfiguration(err))

	environ = baseEnv()
	environ["SUPABASE_URL"] = "project.supabase.co"
	_, err = Parse(environ)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestSupabaseKeyRoles(t *testing.T) {
	cfg := SupabaseConfig{
		URL:            "https://project.supabase.co",
		AnonKey:        roleKey(t, "anon"),
		ServiceRoleKey: roleKey(t, "service_role"),
	}
	require.NoError(t, cfg.Validate())

	swapped := cfg
	swapped.AnonKey, swapped.ServiceRoleKey = cfg.ServiceRoleKey, cfg.AnonKey
	err := swapped.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
}
