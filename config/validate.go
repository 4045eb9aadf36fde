package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/qrelease/release"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCalendar(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCalendar() error {
	if c.Calendar.Width < 1 {
		return fmt.Errorf("calendar.width: %w", &release.PeriodWidthError{Width: c.Calendar.Width})
	}
	if _, err := release.ParseAlignment(c.Calendar.Alignment); err != nil {
		return fmt.Errorf("calendar.alignment: %w", err)
	}
	if c.Calendar.Previous < 0 {
		return fmt.Errorf("calendar.previous must be >= 0, got %d", c.Calendar.Previous)
	}
	if c.Calendar.Next < 0 {
		return fmt.Errorf("calendar.next must be >= 0, got %d", c.Calendar.Next)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind must be set")
	}
	if strings.TrimSpace(c.Server.DatabasePath) == "" {
		return errors.New("server.database_path must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
