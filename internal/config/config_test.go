package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fetch.MinDelay)
	assert.Equal(t, "chrome", cfg.Fetch.Fingerprint)
	assert.True(t, cfg.Fetch.RespectRobots)
	assert.Equal(t, 10, cfg.Fetch.MaxRedirects)
	assert.Equal(t, 8000, cfg.Extract.MaxChars)
	assert.Equal(t, 5, cfg.Search.MaxLinks)
	assert.Equal(t, 3, cfg.Search.DefaultResults)
	assert.Equal(t, 5, cfg.Search.MaxResultsCap)
	assert.Equal(t, AuditNone, cfg.Audit.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medguide.yaml")
	data := `
fetch:
  timeout: 10s
  min_delay: 2s
  user_agents:
    - "TestAgent/1.0"
extract:
  max_chars: 4000
audit:
  backend: jsonl
  dsn: /tmp/audit.jsonl
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Fetch.MinDelay)
	assert.Equal(t, []string{"TestAgent/1.0"}, cfg.Fetch.UserAgents)
	assert.Equal(t, 4000, cfg.Extract.MaxChars)
	assert.Equal(t, AuditJSONL, cfg.Audit.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Search.MaxResultsCap)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MEDGUIDE_FETCH_MIN_DELAY", "250ms")
	t.Setenv("MEDGUIDE_SEARCH_DEFAULT_RESULTS", "2")
	t.Setenv("MEDGUIDE_LOG_LEVEL", "debug")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.MinDelay)
	assert.Equal(t, 2, cfg.Search.DefaultResults)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"negative delay", func(c *Config) { c.Fetch.MinDelay = -time.Second }, "fetch.min_delay"},
		{"jitter", func(c *Config) { c.Fetch.Jitter = 1.5 }, "fetch.jitter"},
		{"fingerprint", func(c *Config) { c.Fetch.Fingerprint = "netscape" }, "fetch.fingerprint"},
		{"max chars", func(c *Config) { c.Extract.MaxChars = 10 }, "extract.max_chars"},
		{"default above cap", func(c *Config) { c.Search.DefaultResults = 9 }, "search.default_results"},
		{"backend", func(c *Config) { c.Audit.Backend = "mongo" }, "audit.backend"},
		{"dsn", func(c *Config) { c.Audit.Backend = AuditSQLite }, "audit.dsn"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
