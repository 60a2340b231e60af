// Package config holds the runtime settings of the server and CLI.
//
// Sources, lowest precedence first: built-in defaults, the YAML file,
// V2C_* environment variables. Command line flags are applied by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/vless2clash/internal/fetch"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Fetch    FetchConfig    `yaml:"fetch"`
	IPLookup IPLookupConfig `yaml:"ip_lookup"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Listen            string        `yaml:"listen"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ConvertTimeout    time.Duration `yaml:"convert_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"` // 0 disables redirects
	MaxBytes     int64         `yaml:"max_bytes"`
	UserAgent    string        `yaml:"user_agent"`
}

type IPLookupConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            "127.0.0.1:25500",
			ReadHeaderTimeout: 5 * time.Second,
			ConvertTimeout:    60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      15 * time.Second,
			MaxRedirects: 5,
			MaxBytes:     5 * 1024 * 1024,
			UserAgent:    "vless2clash",
		},
		IPLookup: IPLookupConfig{
			BaseURL: "http://ip-api.com",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path on top of the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies V2C_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("V2C_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("V2C_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("V2C_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("V2C_FETCH_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := os.Getenv("V2C_IP_LOOKUP_BASE_URL"); v != "" {
		c.IPLookup.BaseURL = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"V2C_CONVERT_TIMEOUT", &c.Server.ConvertTimeout},
		{"V2C_FETCH_TIMEOUT", &c.Fetch.Timeout},
		{"V2C_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("V2C_FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid V2C_FETCH_MAX_BYTES: %w", err)
		}
		c.Fetch.MaxBytes = n
	}
	return nil
}

// RedirectLimit converts max_redirects into fetch.Options.MaxRedirects,
// where 0 means "use the default".
func (f FetchConfig) RedirectLimit() int {
	if f.MaxRedirects == 0 {
		return fetch.NoRedirects
	}
	return f.MaxRedirects
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "console"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Server.ConvertTimeout <= 0 {
		return fmt.Errorf("server.convert_timeout must be positive, got %s", c.Server.ConvertTimeout)
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("server.read_header_timeout must be positive, got %s", c.Server.ReadHeaderTimeout)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must not be negative, got %d", c.Fetch.MaxRedirects)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	}
	if c.IPLookup.Timeout <= 0 {
		return fmt.Errorf("ip_lookup.timeout must be positive, got %s", c.IPLookup.Timeout)
	}
	u, err := url.Parse(c.IPLookup.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ip_lookup.base_url must be an http(s) URL, got %q", c.IPLookup.BaseURL)
	}
	if !contains(validLevels, c.Log.Level) {
		return fmt.Errorf("invalid log.level: %s (valid: %v)", c.Log.Level, validLevels)
	}
	if !contains(validFormats, c.Log.Format) {
		return fmt.Errorf("invalid log.format: %s (valid: %v)", c.Log.Format, validFormats)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
