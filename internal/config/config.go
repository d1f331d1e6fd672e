// Package config loads the command line tool's settings from a TOML file
// with SMULEDL_* environment overrides. The resolver library never reads it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/google/renameio/v2"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/internal/logger"
)

// Config holds all CLI configuration.
type Config struct {
	BaseURL        string `toml:"base_url" env:"SMULEDL_BASE_URL" validate:"required,url"`
	UserAgent      string `toml:"user_agent" env:"SMULEDL_USER_AGENT" validate:"omitempty,printascii"`
	AcceptLanguage string `toml:"accept_language" env:"SMULEDL_ACCEPT_LANGUAGE" validate:"omitempty,printascii"`
	Timeout        string `toml:"timeout" env:"SMULEDL_TIMEOUT"`
	Proxy          string `toml:"proxy" env:"SMULEDL_PROXY" validate:"omitempty,url"`
	DownloadDir    string `toml:"download_dir" env:"SMULEDL_DOWNLOAD_DIR"`
	Probe          bool   `toml:"probe" env:"SMULEDL_PROBE"`
	StreamFallback bool   `toml:"stream_fallback" env:"SMULEDL_STREAM_FALLBACK"`
	RateLimit      string `toml:"rate_limit" env:"SMULEDL_RATE_LIMIT"`
	LogLevel       string `toml:"log_level" env:"SMULEDL_LOG_LEVEL"`
	LogFormat      string `toml:"log_format" env:"SMULEDL_LOG_FORMAT"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL:        client.DefaultBaseURL,
		AcceptLanguage: client.DefaultAcceptLanguage,
		Timeout:        "30s",
		DownloadDir:    ".",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "smuledl"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "smuledl"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path (or the default path when empty) over the defaults and
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if p, err := Path(); err == nil {
			path = p
		}
	}

	exists := false
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			exists = true
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if exists {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating parent directories. The file is
// replaced atomically so a reader never sees a partial config.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("creating pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := toml.NewEncoder(pending).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %q check", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Proxy != "" {
		if p, err := url.Parse(c.Proxy); err != nil || p.Scheme == "" || p.Host == "" {
			return fmt.Errorf("proxy %q must be a URL with scheme and host", c.Proxy)
		}
	}
	if _, err := c.RateLimitBytes(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means zero (client default).
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("timeout %q must be a positive duration", c.Timeout)
	}
	return d, nil
}

// RateLimitBytes parses RateLimit ("2MiB/s", "500 kB") into bytes per
// second. Empty means unlimited (0).
func (c *Config) RateLimitBytes() (int64, error) {
	return ParseRate(c.RateLimit)
}

// ParseRate parses a human byte rate such as "2MiB/s" or "500KB".
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/s"), "/S")
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("rate_limit %q: %w", s, err)
	}
	return int64(n), nil
}

// ClientConfig maps the HTTP settings onto a client.Config.
func (c *Config) ClientConfig() client.Config {
	timeout, _ := c.TimeoutDuration()
	return client.Config{
		Timeout:        timeout,
		BaseURL:        c.BaseURL,
		UserAgent:      c.UserAgent,
		AcceptLanguage: c.AcceptLanguage,
		ProxyURL:       c.Proxy,
	}
}

// LogConfig maps the log settings onto a logger.LogConfig with the
// SMULEDL_LOG_* environment applied on top.
func (c *Config) LogConfig() *logger.LogConfig {
	lc := logger.DefaultLogConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	lc.ApplyEnvironment()
	return lc
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if dir == "" {
		dir = "."
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expanding home dir: %w", err)
	}
	return filepath.Abs(dir)
}
