package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "housei.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "MONGODB_URI", "MONGODB_DATABASE", "HOUSEI_STORE", "JWT_SECRET", "MQTT_BROKER"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMongo, cfg.Store.Mode)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI)
	assert.Equal(t, "housei", cfg.Store.Database)
	assert.Equal(t, "admin@housei.io", cfg.Auth.FallbackEmail)
	assert.Equal(t, "admin123", cfg.Auth.FallbackPassword)
	assert.False(t, cfg.MQTT.Enabled)

	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOUSEI_TEST_SECRET", "s3cret")

	path := writeConfig(t, `
server:
  port: "9090"
store:
  mode: memory
auth:
  jwt_secret: ${HOUSEI_TEST_SECRET}
  token_ttl: 2h
  disable_fallback: true
mqtt:
  enabled: true
  broker: tcp://broker:1883
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Mode)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Auth.FallbackEmail, "fallback stays disabled")
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")

	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.Store.MongoURI)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "store:\n  mode: sqlite\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "auth:\n  token_ttl: soon\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}
