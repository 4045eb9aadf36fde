/*
Package release computes fixed-width release periods on a monthly grid.

PURPOSE:
  A release is identified by the first month of a fixed-width bucket of
  months: with a width of 3 the grid is quarterly, 6 is semi-annual, 1 is
  monthly. Given any anchor date the calculator finds the bucket the anchor
  falls into and any number of buckets before or after it.

KEY CONCEPTS:
  - Width:     months per period (>= 1)
  - Alignment: how a month is reduced to its bucket start
  - Period:    one bucket, rendered as "2024.07" / "2407" / "2024_07"
  - Window:    current period plus N previous and M next periods

OFFSETS:
  The anchor is first reduced to its own bucket start, then shifted by
  offset*width calendar months. Calendar month addition carries the year
  as many times as needed, so arbitrarily large offsets are exact.

USAGE:
  calc, err := release.NewCalculator(3)
  window, err := calc.Window(release.NewDate(2024, time.August, 12), 2, 2)
  fmt.Println(window.Current.Release) // 2024.07

  // Default the anchor to "now" through an injected clock
  calc, _ = release.NewCalculator(3, release.WithClock(release.SystemClock{Location: time.UTC}))
  window, err = calc.Current(1, 1)

SEE ALSO:
  - period.go: Period rendering
  - window.go: Window type
  - parse.go: Anchor parsing
*/
package release

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ALIGNMENT - How a month is reduced to its bucket start
// =============================================================================

// Alignment selects the bucketing rule.
type Alignment string

const (
	// AlignCalendar anchors the grid at January: month - ((month-1) mod width).
	// With a width dividing 12 every bucket starts on a month = 1 (mod width),
	// i.e. calendar quarters / halves.
	AlignCalendar Alignment = "calendar"

	// AlignLegacy is month - (month mod width), rolling a zero month into
	// December of the previous year. Buckets end on the grid month instead of
	// starting on it (width 3 gives 03, 06, 09, 12).
	AlignLegacy Alignment = "legacy"
)

// ParseAlignment resolves an alignment name. Empty means AlignCalendar.
func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlignCalendar:
		return AlignCalendar, nil
	case AlignLegacy:
		return AlignLegacy, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidAlignment, s, AlignCalendar, AlignLegacy)
	}
}

func (a Alignment) String() string { return string(a) }

// =============================================================================
// NAMED WIDTHS
// =============================================================================

var namedWidths = map[string]int{
	"monthly":    1,
	"bimonthly":  2,
	"quarterly":  3,
	"triannual":  4,
	"semiannual": 6,
	"annual":     12,
}

// WidthForName maps a cadence name (e.g. "quarterly") to a width in months.
func WidthForName(name string) (int, bool) {
	w, ok := namedWidths[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// =============================================================================
// BUCKETING
// =============================================================================

// BucketStart returns day 1 of the first month of the period containing
// (year, month). month may be outside 1..12; it is carried into the year
// before bucketing.
func BucketStart(year, month, width int, align Alignment) (Date, error) {
	if width < 1 {
		return Date{}, &PeriodWidthError{Width: width}
	}
	switch align {
	case "", AlignCalendar, AlignLegacy:
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidAlignment, align)
	}
	return bucketStart(year, month, width, align), nil
}

func bucketStart(year, month, width int, align Alignment) Date {
	normalized := NewDate(year, time.Month(month), 1)
	y, m := normalized.Year(), int(normalized.Month())

	if align == AlignLegacy {
		m -= m % width
	} else {
		m -= (m - 1) % width
	}

	// m is never above 12 here: it started in 1..12 and only decreased.
	if m <= 0 {
		m += 12
		y--
	}
	return NewDate(y, time.Month(m), 1)
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator holds a validated width/alignment pair and the clock used when
// no anchor is supplied. It is immutable and safe for concurrent use.
type Calculator struct {
	width int
	align Alignment
	clock Clock
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithAlignment sets the bucketing rule.
func WithAlignment(a Alignment) Option {
	return func(c *Calculator) { c.align = a }
}

// WithClock sets the clock used by Current.
func WithClock(clock Clock) Option {
	return func(c *Calculator) { c.clock = clock }
}

// NewCalculator validates width and returns a calculator. Defaults:
// AlignCalendar and the process-local system clock.
func NewCalculator(width int, opts ...Option) (*Calculator, error) {
	c := &Calculator{width: width, align: AlignCalendar, clock: SystemClock{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.width < 1 {
		return nil, &PeriodWidthError{Width: c.width}
	}
	if c.align == "" {
		c.align = AlignCalendar
	}
	if _, err := ParseAlignment(string(c.align)); err != nil {
		return nil, err
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	return c, nil
}

func (c *Calculator) Width() int           { return c.width }
func (c *Calculator) Alignment() Alignment { return c.align }

// Today returns the current day according to the calculator's clock.
func (c *Calculator) Today() Date { return Today(c.clock) }

// BucketStart returns the start of the period containing (year, month).
func (c *Calculator) BucketStart(year, month int) Date {
	return bucketStart(year, month, c.width, c.align)
}

// StartFor returns the start of the period shifted offset periods away from
// the one containing anchor. The anchor's day is ignored.
func (c *Calculator) StartFor(anchor Date, offset int) Date {
	start := c.BucketStart(anchor.Year(), int(anchor.Month()))
	if offset == 0 {
		return start
	}
	return start.AddMonths(offset * c.width)
}

// PeriodAt returns the period offset periods away from the anchor's period.
func (c *Calculator) PeriodAt(anchor Date, offset int) Period {
	return RenderPeriod(c.StartFor(anchor, offset), c.width)
}

// Window computes the anchor's period plus numPrevious periods before it and
// numNext after it, each list nearest-first.
//
// Stepping back k periods and then forward k from that period's start lands
// on the original period only when the width divides 12; other widths
// re-bucket at the January boundary.
func (c *Calculator) Window(anchor Date, numPrevious, numNext int) (Window, error) {
	if numPrevious < 0 || numNext < 0 {
		return Window{}, fmt.Errorf("%w: previous=%d next=%d", ErrInvalidWindowSize, numPrevious, numNext)
	}

	w := Window{
		Anchor:    anchor,
		Width:     c.width,
		Alignment: c.align,
		Current:   c.PeriodAt(anchor, 0),
		Previous:  make([]Period, 0, numPrevious),
		Next:      make([]Period, 0, numNext),
	}
	for i := 1; i <= numPrevious; i++ {
		w.Previous = append(w.Previous, c.PeriodAt(anchor, -i))
	}
	for i := 1; i <= numNext; i++ {
		w.Next = append(w.Next, c.PeriodAt(anchor, i))
	}
	return w, nil
}

// Current computes the window around today's date as seen by the clock.
func (c *Calculator) Current(numPrevious, numNext int) (Window, error) {
	return c.Window(c.Today(), numPrevious, numNext)
}

// ComputeWindow is a one-shot helper. It buckets on the calendar grid unless
// WithAlignment(AlignLegacy) is passed; the legacy grid is the one where
// 2024-08-12 at width 2 falls in 2024.08.
func ComputeWindow(anchor Date, width, numPrevious, numNext int, opts ...Option) (Window, error) {
	calc, err := NewCalculator(width, opts...)
	if err != nil {
		return Window{}, err
	}
	return calc.Window(anchor, numPrevious, numNext)
}
