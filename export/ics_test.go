package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/qrelease/export"
	"github.com/warp/qrelease/release"
)

func TestICS_OneEventPerPeriod(t *testing.T) {
	w, err := release.ComputeWindow(release.NewDate(2024, time.August, 12), 3, 1, 1)
	require.NoError(t, err)

	out := export.ICS(w, "Platform", time.Date(2024, time.August, 12, 9, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "X-WR-CALNAME:Platform")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))

	assert.Contains(t, out, "SUMMARY:Release 2024.04")
	assert.Contains(t, out, "SUMMARY:Release 2024.07")
	assert.Contains(t, out, "SUMMARY:Release 2024.10")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240701")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20241001")

	// chronological order
	assert.Less(t, strings.Index(out, "2024.04"), strings.Index(out, "2024.07"))
	assert.Less(t, strings.Index(out, "2024.07"), strings.Index(out, "2024.10"))
}

func TestEventUID_StablePerGrid(t *testing.T) {
	p := release.RenderPeriod(release.NewDate(2024, time.July, 1), 3)

	a := export.EventUID(p, release.AlignCalendar)
	b := export.EventUID(p, release.AlignCalendar)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(a, "@qrelease"))

	assert.NotEqual(t, a, export.EventUID(p, release.AlignLegacy))
	assert.NotEqual(t, a, export.EventUID(release.RenderPeriod(p.Start, 1), release.AlignCalendar))
}
