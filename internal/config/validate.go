package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateSites(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		return errors.New("plex.url must be set")
	}
	parsed, err := url.Parse(c.Plex.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("plex.url %q is not a valid URL", c.Plex.URL)
	}
	if c.Plex.SectionName == "" {
		return errors.New("plex.section_name must be set")
	}
	return nil
}

func (c *Config) validateSites() error {
	for name, site := range c.Sites {
		if site.BaseURL == "" {
			return fmt.Errorf("sites.%s.base_url must be set", name)
		}
		parsed, err := url.Parse(site.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("sites.%s.base_url %q is not a valid URL", name, site.BaseURL)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	return nil
}
