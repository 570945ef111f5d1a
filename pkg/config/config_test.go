package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvServer, "")
	t.Setenv(EnvSession, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20, cfg.PageCount("check"))
	assert.Equal(t, 50, cfg.PageCount("audit"))
	assert.Equal(t, 0, cfg.PageCount("node"))
	assert.Equal(t, 50, cfg.PageCount("user"))
	assert.Equal(t, 10, cfg.PageCount("sshcertificate"))
	assert.Equal(t, 0, cfg.PageCount("session"))
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvServer, "")
	t.Setenv(EnvSession, "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeFile(t, "config.yaml", `
server: " https://zero.example.com "
session_cookie: abc
insecure_skip_verify: true
request_timeout: 5s
debounce: 150ms
filter_reset: query
page_counts:
  check: 10
  log: 0
log_level: debug
log_json: true
metrics_addr: 127.0.0.1:9301
state_file: ~/.local/state/zerocon.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://zero.example.com", cfg.Server)
	assert.Equal(t, "abc", cfg.SessionCookie)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce)
	assert.Equal(t, DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, FilterResetQuery, cfg.FilterReset)
	assert.Equal(t, 10, cfg.PageCount("check"))
	assert.Equal(t, 0, cfg.PageCount("log"))
	assert.Equal(t, 20, cfg.PageCount("alert"))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "127.0.0.1:9301", cfg.MetricsAddr)
	assert.Equal(t, filepath.Join(home, ".local/state/zerocon.db"), cfg.StateFile)
}

func TestLoadTOML(t *testing.T) {
	t.Setenv(EnvServer, "")
	t.Setenv(EnvSession, "")

	path := writeFile(t, "config.toml", `
server = "http://localhost:9700"
reconnect_delay = "2s"
filter_reset_key = "role"

[page_counts]
audit = 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9700", cfg.Server)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, "role", cfg.FilterResetKey)
	assert.Equal(t, 25, cfg.PageCount("audit"))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvServer, "https://override.example.com")
	t.Setenv(EnvSession, "from-env")

	path := writeFile(t, "config.yaml", "server: https://file.example.com\nsession_cookie: from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.Server)
	assert.Equal(t, "from-env", cfg.SessionCookie)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown reset policy", "config.yaml", "filter_reset: sometimes\n"},
		{"bad duration", "config.yaml", "debounce: soon\n"},
		{"negative page count", "config.yaml", "page_counts:\n  check: -1\n"},
		{"malformed yaml", "config.yaml", "server: [\n"},
		{"malformed toml", "config.toml", "server = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}
