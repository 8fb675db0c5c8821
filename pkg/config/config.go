// Package config loads suite configuration with a fallback chain:
// local config file → global config file → embedded defaults.
// environment variables override file values for the target URL and credentials.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

//go:embed defaults/config
var defaultsFS embed.FS

// LocalConfigName is the per-project config file looked up in the working directory.
const LocalConfigName = ".dashtest"

// environment variable names recognized as overrides.
const (
	EnvDashboardURL = "DASHBOARD_URL"
	EnvUsername     = "TEST_USERNAME"
	EnvPassword     = "TEST_PASSWORD"
	EnvHeadless     = "DASHTEST_HEADLESS"
	EnvBrowser      = "DASHTEST_BROWSER"
)

// Browser kinds accepted in the browser config key.
const (
	BrowserChrome   = "chrome"
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserEdge     = "edge"
	BrowserWebKit   = "webkit"
)

// Config holds the full suite configuration. Immutable after Load.
type Config struct {
	BaseURL  string
	Browser  string
	Headless bool

	TimeoutExplicitMs int // bound for element readiness waits
	TimeoutPageLoadMs int // bound for navigation and initial load
	TimeoutPollMs     int // interval for predicate polling

	WindowWidth  int
	WindowHeight int

	Username string
	Password string

	ScreenshotDir string
	ReportDir     string
	Workers       int

	Notify NotifySettings
}

// NotifySettings holds completion notification configuration.
type NotifySettings struct {
	Channels      []string
	OnError       bool
	OnComplete    bool
	TimeoutMs     int
	TelegramToken string
	TelegramChat  string
	SlackToken    string
	SlackChannel  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPStartTLS  bool
	EmailFrom     string
	EmailTo       []string
	WebhookURLs   []string
	CustomScript  string
}

// Load reads configuration using the default locations: localPath (or
// LocalConfigName in the current directory when empty), the global config at
// ~/.config/dashtest/config, and the embedded defaults. Later sources in the
// chain embedded → global → local are overridden by earlier-listed ones being
// merged last, and environment variables win over everything.
func Load(localPath string) (*Config, error) {
	if localPath == "" {
		localPath = LocalConfigName
	}

	globalPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		globalPath = filepath.Join(home, ".config", "dashtest", "config")
	}

	loader := newValuesLoader(defaultsFS)
	values, err := loader.Load(localPath, globalPath)
	if err != nil {
		return nil, fmt.Errorf("load config values: %w", err)
	}

	cfg := values.toConfig()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file-based settings from the environment.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDashboardURL)); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHeadless)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrowser)); v != "" {
		c.Browser = strings.ToLower(v)
	}
}

// validate checks values that would otherwise fail deep inside the driver.
func (c *Config) validate() error {
	switch c.Browser {
	case BrowserChrome, BrowserChromium, BrowserFirefox, BrowserEdge, BrowserWebKit:
	default:
		return fmt.Errorf("unsupported browser %q (supported: chrome, chromium, firefox, edge, webkit)", c.Browser)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required (set it in config or via %s)", EnvDashboardURL)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.WindowWidth, c.WindowHeight)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// ExplicitTimeout returns the bound for element readiness waits.
func (c *Config) ExplicitTimeout() time.Duration {
	return time.Duration(c.TimeoutExplicitMs) * time.Millisecond
}

// PageLoadTimeout returns the bound for navigation waits.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.TimeoutPageLoadMs) * time.Millisecond
}

// PollInterval returns the interval for predicate polling.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.TimeoutPollMs) * time.Millisecond
}
