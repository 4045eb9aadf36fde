/*
errors.go - Centralized error types for the release calendar

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (CLI, HTTP API) decide how to present them; this package never
  logs or swallows an error.

ERROR CATEGORIES:
  1. Input errors - bad period width, unparseable anchor, negative window
  2. Calendar errors - invalid or missing stored calendar definitions

USAGE:
  if errors.Is(err, release.ErrInvalidDate) {
      // show usage
  }

SEE ALSO:
  - calculator.go: Returns ErrInvalidPeriodWidth / ErrInvalidWindowSize
  - parse.go: Returns InvalidDateError
  - store.go: Returns ErrCalendarNotFound
*/
package release

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriodWidth is returned when a period width is below one month.
	ErrInvalidPeriodWidth = errors.New("invalid period width")

	// ErrInvalidDate is returned when an anchor cannot be parsed into a
	// calendar date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidWindowSize is returned for a negative previous/next count.
	ErrInvalidWindowSize = errors.New("invalid window size")

	// ErrInvalidAlignment is returned for an unknown grid alignment name.
	ErrInvalidAlignment = errors.New("invalid alignment")

	// ErrInvalidCalendar is returned when a calendar definition fails validation.
	ErrInvalidCalendar = errors.New("invalid calendar")

	// ErrCalendarNotFound is returned when a referenced calendar doesn't exist.
	ErrCalendarNotFound = errors.New("calendar not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PeriodWidthError reports the rejected width.
type PeriodWidthError struct {
	Width int
}

func (e *PeriodWidthError) Error() string {
	return fmt.Sprintf("invalid period width %d: must be at least 1 month", e.Width)
}

func (e *PeriodWidthError) Unwrap() error {
	return ErrInvalidPeriodWidth
}

// InvalidDateError reports an anchor that did not parse.
type InvalidDateError struct {
	Input  string
	Layout string // expected form, e.g. "YYYY-MM-DD"
	Err    error  // underlying parse error, may be nil
}

func (e *InvalidDateError) Error() string {
	msg := fmt.Sprintf("invalid date %q (expected %s)", e.Input, e.Layout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidDateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDate}
	}
	return []error{ErrInvalidDate, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriodWidth) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidWindowSize) ||
		errors.Is(err, ErrInvalidAlignment) ||
		errors.Is(err, ErrInvalidCalendar)
}

// IsNotFound returns true if the error indicates a missing calendar.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCalendarNotFound)
}
