package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qrelease/api"
	"github.com/warp/qrelease/release"
)

var testNow = time.Date(2024, time.August, 12, 10, 0, 0, 0, time.UTC)

type cliTestEnv struct {
	home   string
	dbPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("HOME", home)

	dbPath := filepath.Join(base, "data", "qrelease.db")
	t.Setenv("QRELEASE_DB", dbPath)
	t.Setenv("QRELEASE_BIND", "")
	return &cliTestEnv{home: home, dbPath: dbPath}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(release.FixedClock{At: testNow})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output string, substrs ...string) {
	t.Helper()
	for _, substr := range substrs {
		if !strings.Contains(output, substr) {
			t.Fatalf("expected %q to contain %q", output, substr)
		}
	}
}

// =============================================================================
// WINDOW / PERIOD
// =============================================================================

func TestWindowDefaultsToTodayQuarterly(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "window")
	require.NoError(t, err)
	requireContains(t, out,
		"Item", "Release", "Abbr", "Folder",
		"Current", "2024.07", "2407", "2024_07",
		"Previous", "2024.04",
		"Next", "2024.10",
	)
	assert.NotContains(t, out, "\x1b[", "buffers are never colorized")

	// Current row comes first
	assert.Less(t, strings.Index(out, "2024.07"), strings.Index(out, "2024.04"))
}

func TestBareRootRunsWindow(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "--date", "2024-01-15", "--monthly", "--previous", "2", "--next", "0")
	require.NoError(t, err)
	requireContains(t, out, "2024.01", "2023.12", "2023.11", "2 back")
	assert.NotContains(t, out, "2024.02")
}

func TestWindowLegacyBimonthly(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "window", "--date", "2009-08-12", "--every", "bimonthly", "--align", "legacy", "--previous", "2")
	require.NoError(t, err)
	requireContains(t, out, "2009.08", "2009.06", "2009.04", "2009.10", "0908")
}

func TestWindowJSON(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "window", "--release", "2024.12", "--width", "6", "--previous", "1", "--next", "1", "--json")
	require.NoError(t, err)

	var win api.WindowDTO
	require.NoError(t, json.Unmarshal([]byte(out), &win), out)
	assert.Equal(t, "2024-12-01", win.Anchor)
	assert.Equal(t, 6, win.Width)
	assert.Equal(t, "2024.07", win.Current.Release)
	assert.Equal(t, "2024.01", win.Previous[0].Release)
	assert.Equal(t, "2025.01", win.Next[0].Release)
	require.Len(t, win.Periods, 3)
	assert.Equal(t, []int{-1, 0, 1}, []int{win.Periods[0].Offset, win.Periods[1].Offset, win.Periods[2].Offset})
}

func TestWindowRejectsBadInput(t *testing.T) {
	setupCLITestEnv(t)

	_, _, err := runCLI(t, "window", "--date", "2024-02-30")
	assert.True(t, errors.Is(err, release.ErrInvalidDate), "got %v", err)

	_, _, err = runCLI(t, "window", "--width", "0")
	assert.True(t, errors.Is(err, release.ErrInvalidPeriodWidth), "got %v", err)

	_, _, err = runCLI(t, "window", "--every", "fortnightly")
	assert.True(t, errors.Is(err, release.ErrInvalidPeriodWidth), "got %v", err)

	_, _, err = runCLI(t, "window", "--previous", "-1")
	assert.True(t, errors.Is(err, release.ErrInvalidWindowSize), "got %v", err)

	_, _, err = runCLI(t, "window", "--align", "fiscal")
	assert.True(t, errors.Is(err, release.ErrInvalidAlignment), "got %v", err)

	_, _, err = runCLI(t, "window", "--width", "2", "--every", "quarterly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, _, err = runCLI(t, "window", "--date", "2024-08-12", "--release", "2024.07")
	require.Error(t, err)
}

func TestPeriodCommand(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "period", "next", "--field", "release")
	require.NoError(t, err)
	assert.Equal(t, "2024.10\n", out)

	out, _, err = runCLI(t, "period", "--date", "2024-02-10", "--field", "abbr", "--", "-2")
	require.NoError(t, err)
	assert.Equal(t, "2307\n", out)

	out, _, err = runCLI(t, "period", "+4", "--every", "monthly", "--field", "folder")
	require.NoError(t, err)
	assert.Equal(t, "2024_12\n", out)

	out, _, err = runCLI(t, "period")
	require.NoError(t, err)
	requireContains(t, out, "Current", "2024.07")

	out, _, err = runCLI(t, "period", "previous", "--json")
	require.NoError(t, err)
	var p api.PeriodDTO
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "2024.04", p.Release)
	assert.Equal(t, "2024-06-30", p.End)

	_, _, err = runCLI(t, "period", "soon")
	require.Error(t, err)

	_, _, err = runCLI(t, "period", "--field", "colour")
	require.Error(t, err)
}

// =============================================================================
// ICS
// =============================================================================

func TestICSCommand(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "ics", "--previous", "2", "--next", "2")
	require.NoError(t, err)
	requireContains(t, out, "BEGIN:VCALENDAR", "X-WR-CALNAME:Releases", "SUMMARY:Release 2024.07")
	assert.Equal(t, 5, strings.Count(out, "BEGIN:VEVENT"))

	_, _, err = runCLI(t, "calendars", "seed")
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "semi.ics")
	out, _, err = runCLI(t, "ics", "--calendar", "semiannual", "--output", target)
	require.NoError(t, err)
	requireContains(t, out, "Wrote 17 events")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	requireContains(t, string(data), "X-WR-CALNAME:Semiannual", "SUMMARY:Release 2024.07", "SUMMARY:Release 2028.07")
}

// =============================================================================
// CALENDARS
// =============================================================================

func TestCalendarsLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, "calendars", "list")
	require.NoError(t, err)
	requireContains(t, out, "No calendars stored")

	out, _, err = runCLI(t, "calendars", "seed")
	require.NoError(t, err)
	requireContains(t, out, "Stored 4 preset calendars")
	_, err = os.Stat(env.dbPath)
	require.NoError(t, err, "database file should be created")

	out, _, err = runCLI(t, "calendars", "add", "Mobile Train", "--every", "monthly", "--previous", "2", "--next", "0")
	require.NoError(t, err)
	requireContains(t, out, "Saved calendar mobile-train", "version 1")

	out, _, err = runCLI(t, "calendars", "add", "Mobile Train", "--width", "1", "--next", "3")
	require.NoError(t, err)
	requireContains(t, out, "version 2")

	out, _, err = runCLI(t, "calendars", "list")
	require.NoError(t, err)
	requireContains(t, out, "mobile-train", "quarterly", "semiannual", "Mobile Train")

	out, _, err = runCLI(t, "calendars", "list", "--json")
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Len(t, listed, 5)

	out, _, err = runCLI(t, "calendars", "show", "mobile-train")
	require.NoError(t, err)
	requireContains(t, out, "Mobile Train", "2024.08", "2024.09", "2024.11")

	out, _, err = runCLI(t, "calendars", "show", "quarterly", "--date", "2025-02-01", "--json")
	require.NoError(t, err)
	var win api.WindowDTO
	require.NoError(t, json.Unmarshal([]byte(out), &win))
	assert.Equal(t, "2025.01", win.Current.Release)
	assert.Len(t, win.Previous, 2)

	out, _, err = runCLI(t, "calendars", "delete", "mobile-train")
	require.NoError(t, err)
	requireContains(t, out, "Deleted calendar mobile-train")

	_, _, err = runCLI(t, "calendars", "show", "mobile-train")
	assert.True(t, release.IsNotFound(err), "got %v", err)

	_, _, err = runCLI(t, "calendars", "delete", "mobile-train")
	assert.True(t, release.IsNotFound(err), "got %v", err)

	_, _, err = runCLI(t, "calendars", "add", "Broken", "--every", "monthly", "--width", "3")
	assert.True(t, errors.Is(err, release.ErrInvalidCalendar), "got %v", err)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, "config", "validate")
	require.NoError(t, err)
	requireContains(t, out, "Config file did not exist", "Configuration valid")

	target := filepath.Join(env.home, ".config", "qrelease", "config.toml")
	out, _, err = runCLI(t, "config", "init")
	require.NoError(t, err)
	requireContains(t, out, "Wrote sample configuration to "+target)

	_, _, err = runCLI(t, "config", "init")
	require.Error(t, err, "second init must not overwrite")

	_, _, err = runCLI(t, "config", "init", "--overwrite")
	require.NoError(t, err)

	out, _, err = runCLI(t, "config", "validate")
	require.NoError(t, err)
	requireContains(t, out, "Config path: "+target, "Configuration valid")

	out, _, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	requireContains(t, out, "[calendar]", "width = 3", env.dbPath)
}

func TestConfigFileDrivesDefaults(t *testing.T) {
	setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "legacy.toml")
	body := "[calendar]\nwidth = 2\nalignment = \"legacy\"\nprevious = 2\nnext = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	out, _, err := runCLI(t, "--config", path, "window", "--date", "2024-08-12")
	require.NoError(t, err)
	requireContains(t, out, "2024.08", "2024.06", "2024.04", "2024.10")

	_, _, err = runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "window")
	require.NoError(t, err, "a missing explicit config falls back to defaults")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[calendar]\nwidth = -1\n"), 0o644))
	_, _, err = runCLI(t, "--config", bad, "window")
	require.Error(t, err)
}

func TestRenderTableKeepsHeaderCase(t *testing.T) {
	out := renderTable([]string{"Item", "Release"}, [][]string{{"Current", "2024.07"}}, []columnAlignment{alignLeft, alignLeft})
	requireContains(t, out, "Item", "Release", "Current")
	assert.NotContains(t, out, "ITEM")
	assert.NotContains(t, out, "RELEASE")
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	assert.False(t, shouldColorize(&bytes.Buffer{}))
}
