/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Ad-hoc window and period endpoints (both alignments, error mapping)
- Calendar CRUD, preset seeding and per-calendar windows
- iCalendar export
- Rollover watcher detection and listing
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qrelease/release"
	"github.com/warp/qrelease/release/store"
)

var aug12 = time.Date(2024, time.August, 12, 9, 30, 0, 0, time.UTC)

type testServer struct {
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	h := NewHandler(store.NewMemory(), release.FixedClock{At: aug12}, nil)
	return &testServer{handler: h, router: NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func releases(periods []PeriodDTO) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.Release
	}
	return out
}

// =============================================================================
// WINDOW ENDPOINTS
// =============================================================================

func TestGetWindow_DefaultsToTodayQuarterly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/window", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	win := decode[WindowDTO](t, rec)
	assert.Equal(t, "2024-08-12", win.Anchor)
	assert.Equal(t, 3, win.Width)
	assert.Equal(t, "calendar", win.Alignment)
	assert.Equal(t, "2024.07", win.Current.Release)
	assert.Equal(t, "2407", win.Current.Abbreviation)
	assert.Equal(t, "2024_07", win.Current.Folder)
	assert.Equal(t, "2024-07-01", win.Current.Start)
	assert.Equal(t, "2024-09-30", win.Current.End)
	assert.Equal(t, 92, win.Current.Days)
	assert.Equal(t, "Current", win.Current.Label)
	assert.InDelta(t, 0.4674, win.Current.Progress, 1e-9)
	assert.Equal(t, 49, win.Current.Remaining)
	assert.NotEmpty(t, win.Current.Starts)

	assert.Equal(t, []string{"2024.04"}, releases(win.Previous))
	assert.Equal(t, []string{"2024.10"}, releases(win.Next))
	assert.Equal(t, []string{"2024.04", "2024.07", "2024.10"}, releases(win.Periods))
	assert.Equal(t, -1, win.Periods[0].Offset)
}

func TestGetWindow_LegacyBimonthly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/window?date=2024-08-12&width=2&align=legacy&previous=2&next=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	win := decode[WindowDTO](t, rec)
	assert.Equal(t, "2024.08", win.Current.Release)
	assert.Equal(t, []string{"2024.06", "2024.04"}, releases(win.Previous))
	assert.Equal(t, []string{"2024.10", "2024.12"}, releases(win.Next))
	assert.Equal(t, "2 back", win.Previous[1].Label)
}

func TestGetWindow_AcceptsCadenceAndReleaseAnchor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/window?date=2024.12&width=semiannual&previous=0&next=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	win := decode[WindowDTO](t, rec)
	assert.Equal(t, 6, win.Width)
	assert.Equal(t, "2024.07", win.Current.Release)
	assert.Empty(t, win.Previous)
	assert.NotNil(t, win.Previous)
	assert.Equal(t, []string{"2025.01"}, releases(win.Next))
}

func TestGetWindow_ClientErrors(t *testing.T) {
	s := newTestServer(t)

	tests := map[string]string{
		"zero width":        "/api/window?width=0",
		"unknown cadence":   "/api/window?width=fortnightly",
		"bad date":          "/api/window?date=2024-13-01",
		"garbage date":      "/api/window?date=yesterday",
		"negative previous": "/api/window?previous=-1",
		"non-numeric next":  "/api/window?next=many",
		"bad alignment":     "/api/window?align=fiscal",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestGetPeriod(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/periods/-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[PeriodDTO](t, rec)
	assert.Equal(t, "2024.04", p.Release)
	assert.Equal(t, "Previous", p.Label)
	assert.Equal(t, 1.0, p.Progress)
	assert.Equal(t, 0, p.Remaining)

	rec = s.do(t, http.MethodGet, "/api/periods/8?date=2024-11-05&width=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = decode[PeriodDTO](t, rec)
	assert.Equal(t, "2025.07", p.Release)
	assert.Equal(t, "8 ahead", p.Label)
	assert.Equal(t, 0.0, p.Progress)

	rec = s.do(t, http.MethodGet, "/api/periods/soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CALENDAR ENDPOINTS
// =============================================================================

func TestCalendarLifecycle(t *testing.T) {
	// GIVEN: an empty store
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/calendars", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]CalendarDTO](t, rec))

	// WHEN: creating a monthly calendar without an explicit ID
	rec = s.do(t, http.MethodPost, "/api/calendars", `{"name":"Mobile Train","cadence":"monthly","previous":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: the ID is derived from the name and version starts at 1
	created := decode[CalendarDTO](t, rec)
	assert.Equal(t, "mobile-train", created.ID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, 1, created.Config.Width)
	require.NotNil(t, created.Config.Previous)
	assert.Equal(t, 2, *created.Config.Previous)

	// Saving again bumps the version
	rec = s.do(t, http.MethodPost, "/api/calendars", `{"id":"mobile-train","name":"Mobile Train","width":1,"previous":2,"next":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[CalendarDTO](t, rec).Version)

	rec = s.do(t, http.MethodGet, "/api/calendars/mobile-train", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mobile Train", decode[CalendarDTO](t, rec).Name)

	// The calendar's own window size applies
	rec = s.do(t, http.MethodGet, "/api/calendars/mobile-train/window", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	win := decode[WindowDTO](t, rec)
	assert.Equal(t, "2024.08", win.Current.Release)
	assert.Equal(t, []string{"2024.07", "2024.06"}, releases(win.Previous))
	assert.Equal(t, []string{"2024.09", "2024.10", "2024.11"}, releases(win.Next))

	// Query parameters still override it
	rec = s.do(t, http.MethodGet, "/api/calendars/mobile-train/window?date=2025-01-20&previous=0&next=0", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	win = decode[WindowDTO](t, rec)
	assert.Equal(t, "2025.01", win.Current.Release)
	assert.Equal(t, 1, len(win.Periods))

	// Delete, then everything is 404
	rec = s.do(t, http.MethodDelete, "/api/calendars/mobile-train", "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, target := range []string{
		"/api/calendars/mobile-train",
		"/api/calendars/mobile-train/window",
		"/api/calendars/mobile-train/calendar.ics",
	} {
		rec = s.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	rec = s.do(t, http.MethodDelete, "/api/calendars/mobile-train", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCalendar_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := map[string]string{
		"malformed json":   `{"name":`,
		"missing name":     `{"width":3}`,
		"cadence conflict": `{"name":"x","cadence":"monthly","width":3}`,
		"unknown cadence":  `{"name":"x","cadence":"weekly"}`,
		"negative width":   `{"name":"x","width":-2}`,
		"negative next":    `{"name":"x","next":-1}`,
		"bad alignment":    `{"name":"x","alignment":"fiscal"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/calendars", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodGet, "/api/calendars", "")
	assert.Empty(t, decode[[]CalendarDTO](t, rec))
}

func TestAddDefaultCalendars(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/calendars/defaults", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Count     int      `json:"count"`
		Calendars []string `json:"calendars"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	assert.ElementsMatch(t, []string{"quarterly", "monthly", "bimonthly", "semiannual"}, resp.Calendars)

	rec = s.do(t, http.MethodGet, "/api/calendars", "")
	cals := decode[[]CalendarDTO](t, rec)
	require.Len(t, cals, 4)
	// Ordered by name
	assert.Equal(t, "Bimonthly", cals[0].Name)
	assert.Equal(t, "Semiannual", cals[3].Name)
}

func TestGetCalendarICS(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/calendars/defaults", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/calendars/quarterly/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "quarterly.ics")

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Release 2024.07")
	// Quarterly preset: two back, one ahead
	assert.Equal(t, 4, strings.Count(body, "BEGIN:VEVENT"))
}

// =============================================================================
// ROLLOVER WATCHER
// =============================================================================

type movableClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = t
}

func TestRolloverWatcher_DetectsNewPeriod(t *testing.T) {
	ctx := context.Background()
	clock := &movableClock{at: time.Date(2024, time.September, 30, 23, 0, 0, 0, time.UTC)}
	mem := store.NewMemory()

	h := NewHandler(mem, clock, nil)
	h.Watcher = NewRolloverWatcher(mem, clock, nil)
	router := NewRouter(h, nil)

	for _, body := range []string{
		`{"id":"quarterly","name":"Quarterly","width":3}`,
		`{"id":"semi","name":"Semi","width":6}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/calendars", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// First pass primes state only
	events, err := h.Watcher.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	// Same day again: nothing
	events, err = h.Watcher.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	// October starts a new quarter; the half-year runs until January
	clock.Set(time.Date(2024, time.October, 1, 0, 5, 0, 0, time.UTC))
	events, err = h.Watcher.Check(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, Rollover{
		CalendarID: "quarterly",
		From:       "2024.07",
		To:         "2024.10",
		DetectedAt: clock.Now(),
	}, events[0])

	// January rolls both
	clock.Set(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	events, err = h.Watcher.Check(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]Rollover{}
	for _, ev := range events {
		byID[ev.CalendarID] = ev
	}
	assert.Equal(t, "2025.01", byID["quarterly"].To)
	assert.Equal(t, "2024.07", byID["semi"].From)
	assert.Equal(t, "2025.01", byID["semi"].To)

	req := httptest.NewRequest(http.MethodGet, "/api/rollovers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	recent := decode[[]RolloverDTO](t, rec)
	require.Len(t, recent, 3)
	assert.Equal(t, "2024.10", recent[2].To) // oldest last
}

func TestRolloverWatcher_ForgetsDeletedCalendars(t *testing.T) {
	ctx := context.Background()
	clock := &movableClock{at: time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemory()
	w := NewRolloverWatcher(mem, clock, nil)

	cal := release.Calendar{ID: "q", Name: "Q", Width: 3, Alignment: release.AlignCalendar, Previous: 1, Next: 1}
	require.NoError(t, mem.SaveCalendar(ctx, cal))
	_, err := w.Check(ctx)
	require.NoError(t, err)

	require.NoError(t, mem.DeleteCalendar(ctx, "q"))
	_, err = w.Check(ctx)
	require.NoError(t, err)

	// Re-created after the quarter changed: primed again, no event
	clock.Set(time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, mem.SaveCalendar(ctx, cal))
	events, err := w.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRolloverWatcher_StartStop(t *testing.T) {
	w := NewRolloverWatcher(store.NewMemory(), release.FixedClock{At: aug12}, nil)
	w.CheckInterval = 10 * time.Millisecond

	w.Start()
	w.Start()
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	w.Stop()

	assert.Empty(t, w.Recent())
}

func TestListRollovers_WithoutWatcher(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/rollovers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

// =============================================================================
// ACCESS LOG
// =============================================================================

func TestRouter_AccessLogUsesHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := NewHandler(store.NewMemory(), release.FixedClock{At: aug12}, logger)
	router := NewRouter(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calendars/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		if m["msg"] == "request completed" {
			entry = m
		}
	}
	require.NotNil(t, entry, "no access log line in %s", buf.String())
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/calendars/missing", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}
