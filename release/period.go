package release

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD - One bucket on the release grid
// =============================================================================

// Period is one release. It is fully determined by its start date and width
// and never changes after RenderPeriod builds it.
//
// Labels for a period starting July 2024:
//   - Release:      "2024.07"
//   - Abbreviation: "2407"
//   - Folder:       "2024_07"
type Period struct {
	Year  int
	Month time.Month
	Width int

	Start Date // first day of the period
	End   Date // last day of the period (inclusive)

	Release      string
	Abbreviation string
	Folder       string
}

// RenderPeriod builds the Period starting at start. The day of start is
// ignored; a width below one is treated as a single month.
func RenderPeriod(start Date, width int) Period {
	if width < 1 {
		width = 1
	}
	first := start.StartOfMonth()
	year, month := first.Year(), first.Month()
	return Period{
		Year:         year,
		Month:        month,
		Width:        width,
		Start:        first,
		End:          first.AddMonths(width).AddDays(-1),
		Release:      fmt.Sprintf("%d.%02d", year, int(month)),
		Abbreviation: fmt.Sprintf("%02d%02d", shortYear(year), int(month)),
		Folder:       fmt.Sprintf("%d_%02d", year, int(month)),
	}
}

func shortYear(year int) int {
	return ((year % 100) + 100) % 100
}

// String returns the dotted release label.
func (p Period) String() string { return p.Release }

// MonthString returns the two-digit month, e.g. "07".
func (p Period) MonthString() string { return fmt.Sprintf("%02d", int(p.Month)) }

// Contains returns true if d falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days is the number of calendar days in the period.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Remaining returns the days left in the period after asOf, clamped to
// [0, Days()].
func (p Period) Remaining(asOf Date) int {
	switch {
	case asOf.Before(p.Start):
		return p.Days()
	case asOf.After(p.End):
		return 0
	default:
		return DaysBetween(asOf, p.End)
	}
}

// Progress returns the elapsed fraction of the period at asOf, counting asOf
// itself as elapsed. The result is in [0, 1], rounded to 4 places.
func (p Period) Progress(asOf Date) decimal.Decimal {
	switch {
	case asOf.Before(p.Start):
		return decimal.Zero
	case asOf.After(p.End):
		return decimal.NewFromInt(1)
	}
	elapsed := decimal.NewFromInt(int64(DaysBetween(p.Start, asOf) + 1))
	total := decimal.NewFromInt(int64(p.Days()))
	return elapsed.DivRound(total, 4)
}
