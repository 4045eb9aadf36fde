/*
Package factory provides JSON to Go calendar conversion.

PURPOSE:
  Converts JSON calendar definitions into release.Calendar values. Release
  managers can define cadences in JSON (API body, seed file) without code
  changes, and the factory fills in defaults and validates them.

JSON SCHEMA:
  {
    "id": "platform",
    "name": "Platform releases",
    "width": 3,
    "cadence": "quarterly",
    "alignment": "calendar",
    "previous": 2,
    "next": 1
  }

DEFAULTS:
  - id:        slug of name when empty
  - width:     resolved from cadence, else 3
  - alignment: "calendar"
  - previous:  1
  - next:      1

USAGE:
  f := factory.NewCalendarFactory()
  cal, err := f.ParseCalendar(factory.QuarterlyJSON("platform", "Platform"))

SEE ALSO:
  - release/calendar.go: Calendar type definition
  - store/sqlite/sqlite.go: Calendar persistence
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/warp/qrelease/release"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CalendarJSON is the JSON representation of a calendar.
type CalendarJSON struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Width     int    `json:"width,omitempty"`
	Cadence   string `json:"cadence,omitempty"` // monthly, quarterly, semiannual, ...
	Alignment string `json:"alignment,omitempty"`
	Previous  *int   `json:"previous,omitempty"`
	Next      *int   `json:"next,omitempty"`
}

const (
	DefaultWidth    = 3
	DefaultPrevious = 1
	DefaultNext     = 1
)

// =============================================================================
// CALENDAR FACTORY
// =============================================================================

// CalendarFactory converts JSON calendars to release.Calendar.
type CalendarFactory struct{}

// NewCalendarFactory creates a new calendar factory.
func NewCalendarFactory() *CalendarFactory {
	return &CalendarFactory{}
}

// ParseCalendar parses a JSON string into a validated Calendar.
func (f *CalendarFactory) ParseCalendar(jsonStr string) (release.Calendar, error) {
	var cj CalendarJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return release.Calendar{}, fmt.Errorf("%w: failed to parse calendar JSON: %w", release.ErrInvalidCalendar, err)
	}
	return f.FromJSON(cj)
}

// FromJSON applies defaults and validates.
func (f *CalendarFactory) FromJSON(cj CalendarJSON) (release.Calendar, error) {
	name := strings.TrimSpace(cj.Name)
	if name == "" {
		return release.Calendar{}, fmt.Errorf("%w: name is required", release.ErrInvalidCalendar)
	}

	id := strings.TrimSpace(cj.ID)
	if id == "" {
		id = slug.Make(name)
	}

	width := cj.Width
	if cj.Cadence != "" {
		named, ok := release.WidthForName(cj.Cadence)
		if !ok {
			return release.Calendar{}, fmt.Errorf("%w: unknown cadence %q", release.ErrInvalidCalendar, cj.Cadence)
		}
		if width != 0 && width != named {
			return release.Calendar{}, fmt.Errorf("%w: cadence %q conflicts with width %d", release.ErrInvalidCalendar, cj.Cadence, width)
		}
		width = named
	}
	if width == 0 {
		width = DefaultWidth
	}

	align, err := release.ParseAlignment(cj.Alignment)
	if err != nil {
		return release.Calendar{}, fmt.Errorf("%w: %w", release.ErrInvalidCalendar, err)
	}

	cal := release.Calendar{
		ID:        id,
		Name:      name,
		Width:     width,
		Alignment: align,
		Previous:  intOr(cj.Previous, DefaultPrevious),
		Next:      intOr(cj.Next, DefaultNext),
	}
	if err := cal.Validate(); err != nil {
		return release.Calendar{}, err
	}
	return cal, nil
}

// ToJSON converts a Calendar back to its JSON form.
func ToJSON(cal release.Calendar) CalendarJSON {
	prev, next := cal.Previous, cal.Next
	return CalendarJSON{
		ID:        cal.ID,
		Name:      cal.Name,
		Width:     cal.Width,
		Alignment: string(cal.Alignment),
		Previous:  &prev,
		Next:      &next,
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// =============================================================================
// PRESETS
// =============================================================================

func presetJSON(id, name, cadence string, previous, next int) string {
	cj := map[string]interface{}{
		"id":        id,
		"name":      name,
		"cadence":   cadence,
		"alignment": string(release.AlignCalendar),
		"previous":  previous,
		"next":      next,
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}

// QuarterlyJSON is a calendar-quarter cadence showing two back, one ahead.
func QuarterlyJSON(id, name string) string { return presetJSON(id, name, "quarterly", 2, 1) }

// MonthlyJSON is a monthly cadence showing three back, three ahead.
func MonthlyJSON(id, name string) string { return presetJSON(id, name, "monthly", 3, 3) }

// BimonthlyJSON is a two-month cadence.
func BimonthlyJSON(id, name string) string { return presetJSON(id, name, "bimonthly", 1, 1) }

// SemiannualJSON is a half-year cadence.
func SemiannualJSON(id, name string) string { return presetJSON(id, name, "semiannual", 8, 8) }

// DefaultCalendars returns the preset calendars used to seed a new store.
func DefaultCalendars() []release.Calendar {
	f := NewCalendarFactory()
	presets := []string{
		QuarterlyJSON("quarterly", "Quarterly"),
		MonthlyJSON("monthly", "Monthly"),
		BimonthlyJSON("bimonthly", "Bimonthly"),
		SemiannualJSON("semiannual", "Semiannual"),
	}
	cals := make([]release.Calendar, 0, len(presets))
	for _, p := range presets {
		cal, err := f.ParseCalendar(p)
		if err != nil {
			panic(fmt.Sprintf("factory: invalid preset: %v", err))
		}
		cals = append(cals, cal)
	}
	return cals
}
