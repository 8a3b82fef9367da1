package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_TOKEN_HEADER", "")
	t.Setenv("AUTH_JWT_EXPIRATION_MS", "")
	t.Setenv("AUTH_LOGIN_ATTEMPT_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "Jwt-Token", cfg.Auth.TokenHeader)
	assert.Equal(t, "Maputo, LLC", cfg.Auth.Issuer)
	assert.Equal(t, 5*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginAttemptTTL())
	assert.Equal(t, LoginAttemptBackendMemory, cfg.Auth.LoginAttemptBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "another-secret")
	t.Setenv("AUTH_LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("AUTH_LOGIN_ATTEMPT_BACKEND", "redis")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "another-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 3, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, LoginAttemptBackendRedis, cfg.Auth.LoginAttemptBackend)
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_RejectsUnknownAttemptBackend(t *testing.T) {
	t.Setenv("AUTH_LOGIN_ATTEMPT_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")

	t.Setenv("AUTH_JWT_SECRET", DevJWTSecret)
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
}
