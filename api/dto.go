/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain values
  (release.Period, release.Window, release.Calendar) never leave the
  package directly; they are flattened here so the wire contract can
  evolve independently.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Period:   PeriodDTO
  Window:   WindowDTO
  Calendar: CalendarDTO (wraps factory.CalendarJSON)
  Watcher:  RolloverDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/calendar.go: CalendarJSON type
*/
package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/warp/qrelease/factory"
	"github.com/warp/qrelease/release"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PeriodDTO represents one release period in API responses.
type PeriodDTO struct {
	Offset       int    `json:"offset"`
	Label        string `json:"label"`
	Year         int    `json:"year"`
	Month        string `json:"month"`
	Release      string `json:"release"`
	Abbreviation string `json:"abbreviation"`
	Folder       string `json:"folder"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Days         int    `json:"days"`

	// Relative to the request's "today", not the anchor.
	Starts    string  `json:"starts"`
	Progress  float64 `json:"progress"`
	Remaining int     `json:"remaining_days"`
}

// WindowDTO is the current period with its neighbours in chronological order.
type WindowDTO struct {
	Anchor    string      `json:"anchor"`
	Width     int         `json:"width"`
	Alignment string      `json:"alignment"`
	Current   PeriodDTO   `json:"current"`
	Previous  []PeriodDTO `json:"previous"`
	Next      []PeriodDTO `json:"next"`
	Periods   []PeriodDTO `json:"periods"`
}

// CalendarDTO represents a stored calendar in API responses.
type CalendarDTO struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Config    factory.CalendarJSON `json:"config"`
	Version   int                  `json:"version"`
	CreatedAt string               `json:"created_at,omitempty"`
	UpdatedAt string               `json:"updated_at,omitempty"`
}

// RolloverDTO reports a calendar moving into a new period.
type RolloverDTO struct {
	CalendarID string `json:"calendar_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	DetectedAt string `json:"detected_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

// NewPeriodDTO flattens p; today and now drive the progress and "starts" fields.
func NewPeriodDTO(p release.Period, offset int, today release.Date, now time.Time) PeriodDTO {
	progress, _ := p.Progress(today).Float64()
	return PeriodDTO{
		Offset:       offset,
		Label:        release.OffsetLabel(offset),
		Year:         p.Year,
		Month:        p.MonthString(),
		Release:      p.Release,
		Abbreviation: p.Abbreviation,
		Folder:       p.Folder,
		Start:        p.Start.String(),
		End:          p.End.String(),
		Days:         p.Days(),
		Starts:       humanize.RelTime(p.Start.Time, now, "ago", "from now"),
		Progress:     progress,
		Remaining:    p.Remaining(today),
	}
}

// NewWindowDTO flattens w with offsets and labels filled in.
func NewWindowDTO(w release.Window, today release.Date, now time.Time) WindowDTO {
	dto := WindowDTO{
		Anchor:    w.Anchor.String(),
		Width:     w.Width,
		Alignment: string(w.Alignment),
		Current:   NewPeriodDTO(w.Current, 0, today, now),
		Previous:  make([]PeriodDTO, len(w.Previous)),
		Next:      make([]PeriodDTO, len(w.Next)),
		Periods:   make([]PeriodDTO, 0, w.Len()),
	}
	for i, p := range w.Previous {
		dto.Previous[i] = NewPeriodDTO(p, -(i + 1), today, now)
	}
	for i, p := range w.Next {
		dto.Next[i] = NewPeriodDTO(p, i+1, today, now)
	}
	for _, off := range w.Offsets() {
		p, _ := w.At(off)
		dto.Periods = append(dto.Periods, NewPeriodDTO(p, off, today, now))
	}
	return dto
}

func toCalendarDTO(cal release.Calendar) CalendarDTO {
	dto := CalendarDTO{
		ID:      cal.ID,
		Name:    cal.Name,
		Config:  factory.ToJSON(cal),
		Version: cal.Version,
	}
	if !cal.CreatedAt.IsZero() {
		dto.CreatedAt = cal.CreatedAt.Format(time.RFC3339)
	}
	if !cal.UpdatedAt.IsZero() {
		dto.UpdatedAt = cal.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRolloverDTO(r Rollover) RolloverDTO {
	return RolloverDTO{
		CalendarID: r.CalendarID,
		From:       r.From,
		To:         r.To,
		DetectedAt: r.DetectedAt.Format(time.RFC3339),
	}
}
