package release

import "time"

// Clock supplies "now". The calculator never reads the system time directly;
// the caller decides which clock (and therefore which time zone) applies.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location. A nil Location means the
// process local time zone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	now := time.Now()
	if c.Location != nil {
		return now.In(c.Location)
	}
	return now
}

// FixedClock always returns the same instant. Used by tests and by callers
// that pin the anchor explicitly.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
