package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
env: prod
notify_for: 5s
tariff_ttl: 1m
api:
  base_url: "http://localhost:5000/api"
  request_timeout: 3s
telegram:
  token: "123456:secret"
  poll_timeout: 15s
  confirm_timeout: 30s
http_server:
  addresshttp: ":9090"
  timeouthttp: 10s
  idle_timeout: 30s
redis_connection:
  addressredis: "localhost:6379"
  db: 2
limits:
  rate: 2
  burst: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, 5*time.Second, cfg.NotifyFor)
	assert.Equal(t, time.Minute, cfg.TariffTTL)
	assert.Equal(t, "http://localhost:5000/api", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "123456:secret", cfg.Token)
	assert.Equal(t, 15*time.Second, cfg.PollTimeout)
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, ":9090", cfg.AddressHTTP)
	assert.Equal(t, "localhost:6379", cfg.AddressRedis)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 2.0, cfg.Rate)
	assert.Equal(t, 5, cfg.Burst)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, 3*time.Second, cfg.NotifyFor)
	assert.Equal(t, "https://app.miravpn.com/api", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmTimeout)
	assert.Equal(t, time.Minute, cfg.LockTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdle)
	assert.Equal(t, ":8080", cfg.AddressHTTP)
	assert.Equal(t, 1.0, cfg.Rate)
	assert.Equal(t, 3, cfg.Burst)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_MissingToken(t *testing.T) {
	path := writeConfig(t, `
env: local
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	path := writeConfig(t, `
env: staging
telegram:
  token: "123456:secret"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileDoesNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestConfig_StringMasksToken(t *testing.T) {
	cfg := &Config{Telegram: Telegram{Token: "123456:secret"}}

	assert.Contains(t, cfg.String(), "1234****")
	assert.NotContains(t, cfg.String(), "secret")
}
