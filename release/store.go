/*
store.go - Persistence interface for calendar definitions

PURPOSE:
  Defines the interface between the calendar registry and the database.
  The period arithmetic itself is stateless; only named calendar
  definitions are persisted.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - release/store/memory.go: In-memory for testing

CONTRACT:
  - SaveCalendar upserts by ID and bumps Version on update
  - GetCalendar / DeleteCalendar return ErrCalendarNotFound for unknown IDs
  - ListCalendars orders by name
*/
package release

import "context"

// CalendarStore persists calendar definitions.
type CalendarStore interface {
	SaveCalendar(ctx context.Context, cal Calendar) error
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendars(ctx context.Context) ([]Calendar, error)
	DeleteCalendar(ctx context.Context, id string) error
}
