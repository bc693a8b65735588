package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cratesync/internal/config"
	"cratesync/internal/gazelle"
	"cratesync/internal/library"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	logger  *slog.Logger
	logErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.logger, c.logErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.logErr
}

// withStore opens the database for the duration of fn. Each command run holds
// the store lock only while it works.
func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func (c *commandContext) libraryService() (library.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return library.NewPlexService(cfg), nil
}

// siteFetcher resolves a site by name. An empty name is allowed when exactly
// one site is configured.
func (c *commandContext) siteFetcher(name string) (*gazelle.Fetcher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		names := cfg.SiteNames()
		if len(names) != 1 {
			return nil, fmt.Errorf("multiple sites configured, pick one with --site (%s)", strings.Join(names, ", "))
		}
		name = names[0]
	}
	site, ok := cfg.Site(name)
	if !ok {
		return nil, fmt.Errorf("site %q is not configured", name)
	}
	return gazelle.NewFetcher(gazelle.NewClient(site, logger), name, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
