package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com")
	t.Setenv("GEOCODE_BASE_URL", "https://maps.example.com/api")
	t.Setenv("GEOCODE_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "cooqu_session", cfg.SessionCookieName)
	assert.Equal(t, 6, cfg.OTPLength)
	assert.Equal(t, 60*time.Second, cfg.OTPResendWindow)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchCoalesceWindow)
	assert.Equal(t, 5, cfg.MaxPhotos)
	assert.Equal(t, int64(25), cfg.MaxSubmissionMB)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("OTP_LENGTH", "4")
	t.Setenv("OTP_RESEND_WINDOW", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://cooqu.example,https://staging.cooqu.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 4, cfg.OTPLength)
	assert.Equal(t, 90*time.Second, cfg.OTPResendWindow)
	assert.Equal(t, []string{"https://cooqu.example", "https://staging.cooqu.example"}, cfg.AllowedOrigins)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("short session secret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SESSION_SECRET", "too-short")
		_, err := Load()
		assert.ErrorContains(t, err, "session secret")
	})

	t.Run("otp length out of range", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("OTP_LENGTH", "12")
		_, err := Load()
		assert.ErrorContains(t, err, "otp length")
	})

	t.Run("bad port", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("HTTP_PORT", "99999")
		_, err := Load()
		assert.ErrorContains(t, err, "port")
	})
}
