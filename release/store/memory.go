// Package store provides CalendarStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/qrelease/release"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	calendars map[string]release.Calendar
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		calendars: make(map[string]release.Calendar),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SaveCalendar inserts or replaces a calendar, bumping its version.
func (m *Memory) SaveCalendar(_ context.Context, cal release.Calendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.calendars[cal.ID]; ok {
		cal.CreatedAt = existing.CreatedAt
		cal.Version = existing.Version + 1
	} else {
		cal.CreatedAt = now
		if cal.Version < 1 {
			cal.Version = 1
		}
	}
	cal.UpdatedAt = now
	m.calendars[cal.ID] = cal
	return nil
}

func (m *Memory) GetCalendar(_ context.Context, id string) (release.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cal, ok := m.calendars[id]
	if !ok {
		return release.Calendar{}, release.ErrCalendarNotFound
	}
	return cal, nil
}

func (m *Memory) ListCalendars(_ context.Context) ([]release.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]release.Calendar, 0, len(m.calendars))
	for _, cal := range m.calendars {
		result = append(result, cal)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *Memory) DeleteCalendar(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calendars[id]; !ok {
		return release.ErrCalendarNotFound
	}
	delete(m.calendars, id)
	return nil
}

// Compile-time check
var _ release.CalendarStore = (*Memory)(nil)
