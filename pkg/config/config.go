package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath           = "~/.config/zerocon/config.yaml"
	DefaultCookieName     = "pritunl-zero-console"
	DefaultRequestTimeout = 30 * time.Second
	DefaultReconnectDelay = 500 * time.Millisecond
	DefaultDebounce       = 300 * time.Millisecond

	FilterResetKey   = "key"
	FilterResetQuery = "query"

	EnvServer  = "ZEROCON_SERVER"
	EnvSession = "ZEROCON_SESSION"
)

// DefaultPageCounts are the page sizes of the paginated resources. Any
// resource missing here is fetched in one request.
var DefaultPageCounts = map[string]int{
	"check":          20,
	"alert":          20,
	"log":            50,
	"user":           50,
	"endpoint":       20,
	"audit":          50,
	"sshcertificate": 10,
}

// Config is the console client configuration
type Config struct {
	Server             string
	SessionCookie      string
	CookieName         string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration

	ReconnectDelay time.Duration
	Debounce       time.Duration

	// FilterReset selects the page reset rule, "key" or "query"
	FilterReset    string
	FilterResetKey string
	PageCounts     map[string]int

	LogLevel string
	LogJSON  bool

	MetricsAddr string
	StateFile   string
}

// file is the on-disk shape shared by the YAML and TOML formats
type file struct {
	Server             string         `yaml:"server" toml:"server"`
	SessionCookie      string         `yaml:"session_cookie" toml:"session_cookie"`
	CookieName         string         `yaml:"cookie_name" toml:"cookie_name"`
	InsecureSkipVerify bool           `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	RequestTimeout     string         `yaml:"request_timeout" toml:"request_timeout"`
	ReconnectDelay     string         `yaml:"reconnect_delay" toml:"reconnect_delay"`
	Debounce           string         `yaml:"debounce" toml:"debounce"`
	FilterReset        string         `yaml:"filter_reset" toml:"filter_reset"`
	FilterResetKey     string         `yaml:"filter_reset_key" toml:"filter_reset_key"`
	PageCounts         map[string]int `yaml:"page_counts" toml:"page_counts"`
	LogLevel           string         `yaml:"log_level" toml:"log_level"`
	LogJSON            bool           `yaml:"log_json" toml:"log_json"`
	MetricsAddr        string         `yaml:"metrics_addr" toml:"metrics_addr"`
	StateFile          string         `yaml:"state_file" toml:"state_file"`
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		CookieName:     DefaultCookieName,
		RequestTimeout: DefaultRequestTimeout,
		ReconnectDelay: DefaultReconnectDelay,
		Debounce:       DefaultDebounce,
		FilterReset:    FilterResetKey,
		FilterResetKey: "name",
		PageCounts:     maps.Clone(DefaultPageCounts),
		LogLevel:       "info",
	}
}

// Load reads the config at path, or at DefaultPath when path is empty. A
// missing file yields the defaults. Files ending in .toml are parsed as
// TOML, anything else as YAML. Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(&cfg)
		return cfg, cfg.Validate()
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw file
	if strings.EqualFold(filepath.Ext(resolved), ".toml") {
		err = toml.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	if err := merge(&cfg, raw); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	return cfg, nil
}

func merge(cfg *Config, raw file) error {
	cfg.Server = strings.TrimSpace(raw.Server)
	cfg.SessionCookie = strings.TrimSpace(raw.SessionCookie)
	if v := strings.TrimSpace(raw.CookieName); v != "" {
		cfg.CookieName = v
	}
	cfg.InsecureSkipVerify = raw.InsecureSkipVerify

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"reconnect_delay", raw.ReconnectDelay, &cfg.ReconnectDelay},
		{"debounce", raw.Debounce, &cfg.Debounce},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.raw)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if v := strings.TrimSpace(raw.FilterReset); v != "" {
		cfg.FilterReset = v
	}
	if v := strings.TrimSpace(raw.FilterResetKey); v != "" {
		cfg.FilterResetKey = v
	}
	maps.Copy(cfg.PageCounts, raw.PageCounts)

	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogJSON = raw.LogJSON
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if v := strings.TrimSpace(raw.StateFile); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return fmt.Errorf("state_file: %w", err)
		}
		cfg.StateFile = expanded
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSession)); v != "" {
		cfg.SessionCookie = v
	}
}

// Validate checks the values that have a closed set or a sign
func (c Config) Validate() error {
	switch c.FilterReset {
	case FilterResetKey, FilterResetQuery:
	default:
		return fmt.Errorf("filter_reset must be %q or %q, got %q", FilterResetKey, FilterResetQuery, c.FilterReset)
	}
	for resource, n := range c.PageCounts {
		if n < 0 {
			return fmt.Errorf("page_counts.%s must not be negative", resource)
		}
	}
	if c.RequestTimeout < 0 || c.ReconnectDelay < 0 || c.Debounce < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// PageCount returns the page size of resource, 0 when unpaginated
func (c Config) PageCount(resource string) int {
	return c.PageCounts[resource]
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
