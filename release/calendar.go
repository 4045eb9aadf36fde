package release

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CALENDAR - A named, stored calculator configuration
// =============================================================================

// Calendar is a saved release cadence, e.g. "Platform releases: quarterly,
// show two back and one ahead".
type Calendar struct {
	ID        string
	Name      string
	Width     int
	Alignment Alignment
	Previous  int
	Next      int
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the calendar can build a calculator and window.
func (c Calendar) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidCalendar)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCalendar)
	}
	if c.Width < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidCalendar, &PeriodWidthError{Width: c.Width})
	}
	if _, err := ParseAlignment(string(c.Alignment)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCalendar, err)
	}
	if c.Previous < 0 || c.Next < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCalendar, ErrInvalidWindowSize)
	}
	return nil
}

// Calculator builds the calendar's calculator reading "now" from clock.
func (c Calendar) Calculator(clock Clock) (*Calculator, error) {
	align, err := ParseAlignment(string(c.Alignment))
	if err != nil {
		return nil, err
	}
	return NewCalculator(c.Width, WithAlignment(align), WithClock(clock))
}

// WindowAt computes the calendar's configured window around anchor.
func (c Calendar) WindowAt(anchor Date) (Window, error) {
	calc, err := c.Calculator(nil)
	if err != nil {
		return Window{}, err
	}
	return calc.Window(anchor, c.Previous, c.Next)
}
