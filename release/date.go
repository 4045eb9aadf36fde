package release

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar value
// =============================================================================

// Date is a calendar day. The time component is always midnight UTC so that
// month arithmetic never crosses a DST boundary.
type Date struct {
	Time time.Time
}

// DateLayout is the canonical textual form of a Date.
const DateLayout = "2006-01-02"

// NewDate builds a Date. Out-of-range months and days are carried into the
// year the same way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's
// own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current day as seen by clock.
func Today(clock Clock) Date {
	if clock == nil {
		clock = SystemClock{}
	}
	return DateOf(clock.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// StartOfMonth returns day 1 of the date's month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// DaysBetween counts whole days from one date to another (negative if to is
// earlier).
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}
