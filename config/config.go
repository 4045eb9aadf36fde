package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/warp/qrelease/release"
)

//go:embed sample_config.toml
var sampleConfig string

// Calendar holds the defaults used when a command or request does not name
// a width, alignment or window size.
type Calendar struct {
	Width     int    `toml:"width"`
	Alignment string `toml:"alignment"`
	Previous  int    `toml:"previous"`
	Next      int    `toml:"next"`
	// Timezone resolves "today": "local", "UTC" or an IANA name.
	Timezone string `toml:"timezone"`
}

// Server contains HTTP API and storage settings.
type Server struct {
	Bind           string   `toml:"bind"`
	DatabasePath   string   `toml:"database_path"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for qrelease.
type Config struct {
	Calendar Calendar `toml:"calendar"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/qrelease/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error: defaults are used and exists is false.
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
		decoder.DisallowUnknownFields()
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
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	if v, ok := os.LookupEnv("QRELEASE_DB"); ok && strings.TrimSpace(v) != "" {
		c.Server.DatabasePath = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("QRELEASE_BIND"); ok && strings.TrimSpace(v) != "" {
		c.Server.Bind = strings.TrimSpace(v)
	}

	if c.Server.DatabasePath != ":memory:" {
		var err error
		if c.Server.DatabasePath, err = expandPath(c.Server.DatabasePath); err != nil {
			return fmt.Errorf("server.database_path: %w", err)
		}
	}

	c.Calendar.Alignment = strings.ToLower(strings.TrimSpace(c.Calendar.Alignment))
	if c.Calendar.Alignment == "" {
		c.Calendar.Alignment = defaultAlignment
	}
	c.Calendar.Timezone = strings.TrimSpace(c.Calendar.Timezone)
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = defaultTimezone
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// Location resolves Calendar.Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch strings.ToLower(c.Calendar.Timezone) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}

// Clock returns the clock that decides "today" for this configuration.
func (c *Config) Clock() (release.Clock, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return release.SystemClock{Location: loc}, nil
}

// AlignmentValue returns the parsed calendar alignment.
func (c *Config) AlignmentValue() release.Alignment {
	align, err := release.ParseAlignment(c.Calendar.Alignment)
	if err != nil {
		return release.AlignCalendar
	}
	return align
}

// EnsureDirectories creates the database directory.
func (c *Config) EnsureDirectories() error {
	if c.Server.DatabasePath == "" || c.Server.DatabasePath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.Server.DatabasePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
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

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
