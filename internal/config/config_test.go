package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, "contacts_db", cfg.Database.DBName)
	assert.Equal(t, "jwt", cfg.Auth.TokenBackend)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, []byte("test-secret"), cfg.Auth.Secret)
	assert.Equal(t, "587", cfg.Email.SMTPPort)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PasetoKeyLength(t *testing.T) {
	t.Setenv("TOKEN_BACKEND", "paseto")
	t.Setenv("SECRET_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SECRET_KEY", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "paseto", cfg.Auth.TokenBackend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("TOKEN_BACKEND", "opaque")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_AccessTokenMinutes(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "45")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Auth.AccessTokenDuration)
}

func TestConnectionString(t *testing.T) {
	t.Parallel()

	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "secret",
		DBName:   "contacts",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=contacts sslmode=disable",
		cfg.ConnectionString(),
	)
}

func TestRedisAddress(t *testing.T) {
	t.Parallel()

	cfg := RedisConfig{Host: "cache", Port: "6379"}
	assert.Equal(t, "cache:6379", cfg.Address())
}

func TestTrustedOrigins(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("TRUSTED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://admin.example.com"},
		cfg.Server.TrustedOrigins,
	)
}
