package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Plex contains configuration for the Plex media server connection.
type Plex struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	SectionName    string `toml:"section_name"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Site contains connection and rate-limit settings for one Gazelle tracker.
type Site struct {
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	RateLimitCalls   int    `toml:"rate_limit_calls"`
	RateLimitSeconds int    `toml:"rate_limit_seconds"`
	MaxRetries       int    `toml:"max_retries"`
	RequestTimeout   int    `toml:"request_timeout"`
	RetryBaseSeconds int    `toml:"retry_base_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cratesync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Plex: media server URL, token, and music section
//   - Sites: per-tracker API credentials and rate limits, keyed by site name
//   - Logging: log format and level
type Config struct {
	Paths   Paths           `toml:"paths"`
	Plex    Plex            `toml:"plex"`
	Sites   map[string]Site `toml:"sites"`
	Logging Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cratesync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path; the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cratesync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.SectionName == "" {
		c.Plex.SectionName = defaultPlexSection
	}
	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultPlexTimeoutSeconds
	}

	normalized := make(map[string]Site, len(c.Sites))
	for name, site := range c.Sites {
		site.BaseURL = strings.TrimRight(strings.TrimSpace(site.BaseURL), "/")
		site.APIKey = strings.TrimSpace(site.APIKey)
		if site.RateLimitCalls <= 0 {
			site.RateLimitCalls = defaultRateLimitCalls
		}
		if site.RateLimitSeconds <= 0 {
			site.RateLimitSeconds = defaultRateLimitSeconds
		}
		if site.MaxRetries <= 0 {
			site.MaxRetries = defaultMaxRetries
		}
		if site.RequestTimeout <= 0 {
			site.RequestTimeout = defaultRequestTimeout
		}
		if site.RetryBaseSeconds <= 0 {
			site.RetryBaseSeconds = defaultRetryBaseSeconds
		}
		normalized[strings.ToLower(strings.TrimSpace(name))] = site
	}
	c.Sites = normalized

	return nil
}

// EnsureDirectories creates required directories for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Site returns the configuration for a named site.
func (c *Config) Site(name string) (Site, bool) {
	site, ok := c.Sites[strings.ToLower(strings.TrimSpace(name))]
	return site, ok
}

// SiteNames returns the configured site names in no particular order.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for name := range c.Sites {
		names = append(names, name)
	}
	return names
}

// DatabasePath returns the location of the sqlite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "cratesync.db")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
