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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "env: dev\nbackend:\n  dsn: postgres://localhost/leads\n")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", conf.Env)
	assert.Equal(t, "postgres://localhost/leads", conf.Backend.DSN)
	assert.Equal(t, "imoveis_milionarios", conf.Backend.Prefix)
	assert.Equal(t, "manychat", conf.Chatbot.InstanceName)
	assert.Equal(t, 30*time.Second, conf.ReadStatus.TTL)
	assert.Equal(t, 50, conf.ReadStatus.BatchSize)
	assert.Equal(t, 3, conf.ReadStatus.Concurrency)
	assert.Equal(t, 20, conf.ReadStatus.PriorityCount)
	assert.Equal(t, time.Second, conf.ReadStatus.PriorityDelay)
	assert.Equal(t, 5*time.Second, conf.Live.PollInterval)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "gateway:\n  base_url: https://gateway.local\n  api_key: from-file\n")
	t.Setenv("GATEWAY_API_KEY", "from-env")
	t.Setenv("PROJECT_PREFIX", "pipiolo_sdr")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", conf.Gateway.ApiKey)
	assert.Equal(t, "pipiolo_sdr", conf.Backend.Prefix)
	assert.Equal(t, "https://gateway.local", conf.Gateway.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
