package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/warp/qrelease/config"
	"github.com/warp/qrelease/logging"
	"github.com/warp/qrelease/release"
	"github.com/warp/qrelease/store/sqlite"
)

type commandContext struct {
	configFlag *string

	// clockOverride replaces the configured clock; tests pin "today" with it.
	clockOverride release.Clock

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, clock release.Clock) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		clockOverride: clock,
	}
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
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the logger from config; output goes to the command's
// stderr so table and JSON output stay clean.
func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) clock() (release.Clock, error) {
	if c.clockOverride != nil {
		return c.clockOverride, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Clock()
}

// withStore opens the configured SQLite database for the duration of fn.
func (c *commandContext) withStore(fn func(*sqlite.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	store, err := sqlite.New(cfg.Server.DatabasePath)
	if err != nil {
		return fmt.Errorf("open calendar store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
