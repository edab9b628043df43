// Package config loads medguide settings from defaults, an optional config
// file, MEDGUIDE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/medguide/internal/fingerprint"
)

// EnvPrefix prefixes environment overrides, e.g. MEDGUIDE_FETCH_MIN_DELAY.
const EnvPrefix = "MEDGUIDE"

// Audit backends.
const (
	AuditNone     = "none"
	AuditSQLite   = "sqlite"
	AuditPostgres = "postgres"
	AuditJSONL    = "jsonl"
)

// Config is the full medguide configuration.
type Config struct {
	Fetch   Fetch   `mapstructure:"fetch"`
	Extract Extract `mapstructure:"extract"`
	Search  Search  `mapstructure:"search"`
	Audit   Audit   `mapstructure:"audit"`
	Server  Server  `mapstructure:"server"`
	Log     Log     `mapstructure:"log"`
}

type Fetch struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	Jitter        float64       `mapstructure:"jitter"`
	Fingerprint   string        `mapstructure:"fingerprint"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	MaxRedirects  int           `mapstructure:"max_redirects"`
	UserAgents    []string      `mapstructure:"user_agents"`
}

type Extract struct {
	MaxChars int `mapstructure:"max_chars"`
}

type Search struct {
	MaxLinks          int  `mapstructure:"max_links"`
	DefaultResults    int  `mapstructure:"default_results"`
	MaxResultsCap     int  `mapstructure:"max_results_cap"`
	DisableBroadening bool `mapstructure:"disable_broadening"`
}

type Audit struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type Server struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.min_delay", 1500*time.Millisecond)
	v.SetDefault("fetch.jitter", 0.0)
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.user_agents", []string{})

	v.SetDefault("extract.max_chars", 8000)

	v.SetDefault("search.max_links", 5)
	v.SetDefault("search.default_results", 3)
	v.SetDefault("search.max_results_cap", 5)
	v.SetDefault("search.disable_broadening", false)

	v.SetDefault("audit.backend", AuditNone)
	v.SetDefault("audit.dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the
// result. The returned Config has been validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MinDelay < 0 {
		add("fetch.min_delay must not be negative, got %s", c.Fetch.MinDelay)
	}
	if c.Fetch.Jitter < 0 || c.Fetch.Jitter > 1 {
		add("fetch.jitter must be between 0 and 1, got %v", c.Fetch.Jitter)
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		add("fetch.fingerprint: %w", err)
	}
	if c.Fetch.MaxRedirects < 0 {
		add("fetch.max_redirects must not be negative, got %d", c.Fetch.MaxRedirects)
	}

	if c.Extract.MaxChars < 100 {
		add("extract.max_chars must be at least 100, got %d", c.Extract.MaxChars)
	}

	if c.Search.MaxLinks < 1 {
		add("search.max_links must be at least 1, got %d", c.Search.MaxLinks)
	}
	if c.Search.MaxResultsCap < 1 {
		add("search.max_results_cap must be at least 1, got %d", c.Search.MaxResultsCap)
	}
	if c.Search.DefaultResults < 1 || c.Search.DefaultResults > c.Search.MaxResultsCap {
		add("search.default_results must be between 1 and %d, got %d", c.Search.MaxResultsCap, c.Search.DefaultResults)
	}

	switch c.Audit.Backend {
	case AuditNone, "":
	case AuditSQLite, AuditPostgres, AuditJSONL:
		if c.Audit.DSN == "" {
			add("audit.dsn is required for the %s backend", c.Audit.Backend)
		}
	default:
		add("audit.backend must be one of none, sqlite, postgres, jsonl, got %q", c.Audit.Backend)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
