package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// Environment variables recognised by the overlay. Env always wins over
// the file so credentials can stay out of it entirely.
const (
	EnvEmail         = "ATLASSIAN_EMAIL"
	EnvToken         = "ATLASSIAN_API_TOKEN"
	EnvConfluenceURL = "SPIDER_CONFLUENCE_URL"
	EnvJiraURL       = "SPIDER_JIRA_URL"
	EnvDataDir       = "SPIDER_DATA_DIR"
)

// Config is the on-disk configuration of the spider CLI, stored as TOML
// at ~/.spider/config.toml.
type Config struct {
	Storage    StorageSettings `toml:"storage"`
	Auth       AuthSettings    `toml:"auth"`
	Confluence ProductSettings `toml:"confluence"`
	Jira       ProductSettings `toml:"jira"`
	Retry      RetrySettings   `toml:"retry"`

	path string
}

// StorageSettings locates the session database.
type StorageSettings struct {
	// DataDir holds the SQLite database. Empty means ~/.spider/data.
	DataDir string `toml:"data_dir"`
}

// AuthSettings carries the Atlassian account used for basic auth. The
// token belongs in ATLASSIAN_API_TOKEN rather than on disk; the file
// field exists for setups that accept the trade-off.
type AuthSettings struct {
	Email string `toml:"email"`
	Token string `toml:"token"`
}

// ProductSettings configures one product's endpoint and traversal share.
type ProductSettings struct {
	// BaseURL is the instance root. Empty disables the product.
	BaseURL string `toml:"base_url"`

	// Spaces narrows the Confluence seed to these space keys. Ignored
	// by Jira.
	Spaces []string `toml:"spaces,omitempty"`

	// JQL scopes the Jira issue seed. Ignored by Confluence.
	JQL string `toml:"jql,omitempty"`

	// Workers is the product's worker pool size.
	Workers int `toml:"workers"`

	// RateCapacity and RateRefill shape the product's token bucket.
	RateCapacity int     `toml:"rate_capacity"`
	RateRefill   float64 `toml:"rate_refill"`
}

// RetrySettings tunes the transient-retry policy. Durations are
// strings in Go duration syntax, e.g. "2s".
type RetrySettings struct {
	MaxRetries     int    `toml:"max_retries"`
	BackoffBase    string `toml:"backoff_base"`
	RequestTimeout string `toml:"request_timeout"`
}

// Load reads the configuration file from configDir and applies the
// environment overlay. If configDir is empty, defaults to ~/.spider.
// A missing file is not an error; flags and environment can carry a
// full configuration on their own.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".spider")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	cfg := &Config{path: filepath.Join(configDir, "config.toml")}

	data, err := os.ReadFile(cfg.path)
	switch {
	case os.IsNotExist(err):
		// No config file yet - that's fine, start empty
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", cfg.path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", cfg.path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.path
}

// Credentials returns the Atlassian account email and API token after
// the environment overlay.
func (c *Config) Credentials() (email, token string) {
	return c.Auth.Email, c.Auth.Token
}

// ScanConfig converts the file form into the engine's configuration.
// Unset knobs stay zero; domain.ScanConfig.ApplyDefaults fills them.
func (c *Config) ScanConfig() (domain.ScanConfig, error) {
	cfg := domain.ScanConfig{
		Confluence: domain.ProductConfig{
			BaseURL:      c.Confluence.BaseURL,
			Spaces:       c.Confluence.Spaces,
			Workers:      c.Confluence.Workers,
			RateCapacity: c.Confluence.RateCapacity,
			RateRefill:   c.Confluence.RateRefill,
		},
		Jira: domain.ProductConfig{
			BaseURL:      c.Jira.BaseURL,
			JQL:          c.Jira.JQL,
			Workers:      c.Jira.Workers,
			RateCapacity: c.Jira.RateCapacity,
			RateRefill:   c.Jira.RateRefill,
		},
		RetryMax: c.Retry.MaxRetries,
	}

	var err error
	if cfg.BackoffBase, err = parseDuration("retry.backoff_base", c.Retry.BackoffBase); err != nil {
		return domain.ScanConfig{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("retry.request_timeout", c.Retry.RequestTimeout); err != nil {
		return domain.ScanConfig{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvEmail); v != "" {
		c.Auth.Email = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv(EnvConfluenceURL); v != "" {
		c.Confluence.BaseURL = v
	}
	if v := os.Getenv(EnvJiraURL); v != "" {
		c.Jira.BaseURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Storage.DataDir = v
	}
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a duration", domain.ErrInvalidInput, key, value)
	}
	return d, nil
}
