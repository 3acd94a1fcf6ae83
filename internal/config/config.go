package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "patrolcal/internal/log"
)

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "Asia/Ho_Chi_Minh"
	defaultWeekStart  = "monday"
	defaultRefresh    = "*/15 * * * *"
	defaultHourHeight = 60
	defaultLocale     = "vi"
	defaultAPIPath    = "/api/patrol-sessions"
)

// Environment variables that override the file. They are read after .env
// has been loaded by the caller.
const (
	EnvAPIURL   = "PATROLCAL_API_URL"
	EnvAPIToken = "PATROLCAL_API_TOKEN"
	EnvListen   = "PATROLCAL_LISTEN"
	EnvEnv      = "PATROLCAL_ENV"
)

// APIConfig describes the remote patrol session service.
type APIConfig struct {
	// BaseURL is scheme + host, e.g. "http://192.168.6.65:3336".
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Path is appended to BaseURL.
	Path string `yaml:"path" json:"path"`
	// Token is sent as a bearer token.
	Token string `yaml:"token" json:"-"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Env is "production" or "development"; it only selects the log encoder.
	Env string `yaml:"env" json:"env"`

	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone sessions are projected into.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is the standard 5-field cron spec for re-fetching sessions.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HourHeight is the timeline height of one hour in the day/week views.
	HourHeight float64 `yaml:"hour_height" json:"hour_height"`

	// Locale selects month/day names and labels: "vi" or "en".
	Locale string `yaml:"locale" json:"locale"`

	API APIConfig `yaml:"api" json:"api"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Env:         "development",
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   defaultWeekStart,
		RefreshCron: defaultRefresh,
		HourHeight:  defaultHourHeight,
		Locale:      defaultLocale,
		API: APIConfig{
			Path: defaultAPIPath,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	} else if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		appLog.Error("invalid refresh schedule; using default", err, "refresh", c.RefreshCron)
		c.RefreshCron = defaultRefresh
	}
	if c.HourHeight <= 0 {
		c.HourHeight = defaultHourHeight
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.API.Path == "" {
		c.API.Path = defaultAPIPath
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
}

// ApplyEnv overrides file values with PATROLCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvEnv); v != "" {
		c.Env = v
	}
}

// Validate reports settings the session fetch cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is empty (set it or " + EnvAPIURL + ")")
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied in both cases but never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".patrolcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
