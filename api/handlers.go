/*
handlers.go - HTTP API handlers for the release calendar engine

PURPOSE:
  Exposes the period calculator and the calendar registry via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the release package for all date arithmetic.

ENDPOINTS:
  Ad-hoc windows:
    GET    /api/window                      Window around ?date= (default today)
    GET    /api/periods/{offset}            One period relative to ?date=

  Calendars:
    GET    /api/calendars                   List stored calendars
    POST   /api/calendars                   Create or update from JSON
    POST   /api/calendars/defaults          Seed the preset calendars
    GET    /api/calendars/{id}              Calendar details
    DELETE /api/calendars/{id}              Remove calendar
    GET    /api/calendars/{id}/window       Window using the calendar's settings
    GET    /api/calendars/{id}/calendar.ics iCalendar feed of that window

  Watcher:
    GET    /api/rollovers                   Recent period rollovers

QUERY PARAMETERS:
  date      YYYY-MM-DD, YYYY.MM or YYMM
  width     months per period, or a cadence name ("quarterly")
  align     "calendar" (default) or "legacy"
  previous  periods before the current one (>= 0)
  next      periods after the current one (>= 0)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid width, date, window size, alignment or calendar
  - 404: calendar not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Rollover watcher
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/warp/qrelease/export"
	"github.com/warp/qrelease/factory"
	"github.com/warp/qrelease/logging"
	"github.com/warp/qrelease/release"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Defaults fill in query parameters a request leaves out.
type Defaults struct {
	Width     int
	Alignment release.Alignment
	Previous  int
	Next      int
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    release.CalendarStore
	Factory  *factory.CalendarFactory
	Clock    release.Clock
	Logger   *slog.Logger
	Defaults Defaults

	// Optional; /api/rollovers returns an empty list without it.
	Watcher *RolloverWatcher
}

// NewHandler creates a new handler with the given store and clock.
func NewHandler(store release.CalendarStore, clock release.Clock, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = release.SystemClock{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		Store:   store,
		Factory: factory.NewCalendarFactory(),
		Clock:   clock,
		Logger:  logger,
		Defaults: Defaults{
			Width:     factory.DefaultWidth,
			Alignment: release.AlignCalendar,
			Previous:  factory.DefaultPrevious,
			Next:      factory.DefaultNext,
		},
	}
}

// =============================================================================
// WINDOW HANDLERS
// =============================================================================

// GetWindow computes an ad-hoc window.
// GET /api/window?date=&width=&align=&previous=&next=
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	calc, err := h.calculatorFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid window parameters", err)
		return
	}
	anchor, err := h.anchorFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}
	previous, err := intParam(r, "previous", h.Defaults.Previous)
	if err != nil {
		writeDomainError(w, "Invalid window size", err)
		return
	}
	next, err := intParam(r, "next", h.Defaults.Next)
	if err != nil {
		writeDomainError(w, "Invalid window size", err)
		return
	}

	win, err := calc.Window(anchor, previous, next)
	if err != nil {
		writeDomainError(w, "Failed to compute window", err)
		return
	}

	h.Logger.Debug("window computed",
		"anchor", anchor.String(),
		"width", calc.Width(),
		"alignment", calc.Alignment(),
		"current", win.Current.Release,
	)
	writeJSON(w, http.StatusOK, NewWindowDTO(win, h.today(), h.Clock.Now()))
}

// GetPeriod returns a single period relative to the anchor.
// GET /api/periods/{offset}?date=&width=&align=
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(chi.URLParam(r, "offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}
	calc, err := h.calculatorFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period parameters", err)
		return
	}
	anchor, err := h.anchorFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	p := calc.PeriodAt(anchor, offset)
	writeJSON(w, http.StatusOK, NewPeriodDTO(p, offset, h.today(), h.Clock.Now()))
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListCalendars returns all stored calendars.
// GET /api/calendars
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := h.Store.ListCalendars(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list calendars", err)
		return
	}

	dtos := make([]CalendarDTO, len(cals))
	for i, cal := range cals {
		dtos[i] = toCalendarDTO(cal)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCalendar creates or updates a calendar from its JSON definition.
// POST /api/calendars
func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req factory.CalendarJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cal, err := h.Factory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid calendar", err)
		return
	}
	if err := h.Store.SaveCalendar(ctx, cal); err != nil {
		writeDomainError(w, "Failed to save calendar", err)
		return
	}

	saved, err := h.Store.GetCalendar(ctx, cal.ID)
	if err != nil {
		writeDomainError(w, "Failed to reload calendar", err)
		return
	}

	h.Logger.Info("calendar saved", "id", saved.ID, "width", saved.Width, "version", saved.Version)
	writeJSON(w, http.StatusCreated, toCalendarDTO(saved))
}

// GetCalendar returns a single calendar.
// GET /api/calendars/{id}
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Store.GetCalendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Calendar not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(cal))
}

// DeleteCalendar removes a calendar.
// DELETE /api/calendars/{id}
func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteCalendar(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete calendar", err)
		return
	}

	h.Logger.Info("calendar deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// AddDefaultCalendars stores the preset calendars.
// POST /api/calendars/defaults
func (h *Handler) AddDefaultCalendars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defaults := factory.DefaultCalendars()
	ids := make([]string, 0, len(defaults))
	for _, cal := range defaults {
		if err := h.Store.SaveCalendar(ctx, cal); err != nil {
			writeDomainError(w, "Failed to save default calendars", err)
			return
		}
		ids = append(ids, cal.ID)
	}

	h.Logger.Info("default calendars seeded", "count", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":    "created",
		"count":     len(ids),
		"calendars": ids,
	})
}

// GetCalendarWindow computes the window for a stored calendar.
// GET /api/calendars/{id}/window?date=
func (h *Handler) GetCalendarWindow(w http.ResponseWriter, r *http.Request) {
	win, _, ok := h.calendarWindow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewWindowDTO(win, h.today(), h.Clock.Now()))
}

// GetCalendarICS exports a stored calendar's window as iCalendar.
// GET /api/calendars/{id}/calendar.ics?date=
func (h *Handler) GetCalendarICS(w http.ResponseWriter, r *http.Request) {
	win, cal, ok := h.calendarWindow(w, r)
	if !ok {
		return
	}

	body := export.ICS(win, cal.Name, h.Clock.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cal.ID+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// calendarWindow loads the {id} calendar and computes its window, writing
// the error response itself when it fails.
func (h *Handler) calendarWindow(w http.ResponseWriter, r *http.Request) (release.Window, release.Calendar, bool) {
	cal, err := h.Store.GetCalendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Calendar not found", err)
		return release.Window{}, release.Calendar{}, false
	}
	calc, err := cal.Calculator(h.Clock)
	if err != nil {
		writeDomainError(w, "Invalid calendar", err)
		return release.Window{}, release.Calendar{}, false
	}
	anchor, err := h.anchorFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return release.Window{}, release.Calendar{}, false
	}
	previous, err := intParam(r, "previous", cal.Previous)
	if err != nil {
		writeDomainError(w, "Invalid window size", err)
		return release.Window{}, release.Calendar{}, false
	}
	next, err := intParam(r, "next", cal.Next)
	if err != nil {
		writeDomainError(w, "Invalid window size", err)
		return release.Window{}, release.Calendar{}, false
	}

	win, err := calc.Window(anchor, previous, next)
	if err != nil {
		writeDomainError(w, "Failed to compute window", err)
		return release.Window{}, release.Calendar{}, false
	}
	return win, cal, true
}

// =============================================================================
// WATCHER HANDLERS
// =============================================================================

// ListRollovers returns the rollovers recorded by the watcher, newest first.
// GET /api/rollovers
func (h *Handler) ListRollovers(w http.ResponseWriter, r *http.Request) {
	dtos := []RolloverDTO{}
	if h.Watcher != nil {
		for _, ev := range h.Watcher.Recent() {
			dtos = append(dtos, toRolloverDTO(ev))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) today() release.Date {
	return release.Today(h.Clock)
}

func (h *Handler) calculatorFromQuery(r *http.Request) (*release.Calculator, error) {
	q := r.URL.Query()

	width := h.Defaults.Width
	if raw := strings.TrimSpace(q.Get("width")); raw != "" {
		parsed, err := parseWidth(raw)
		if err != nil {
			return nil, err
		}
		width = parsed
	}

	align := h.Defaults.Alignment
	if raw := q.Get("align"); raw != "" {
		parsed, err := release.ParseAlignment(raw)
		if err != nil {
			return nil, err
		}
		align = parsed
	}

	return release.NewCalculator(width, release.WithAlignment(align), release.WithClock(h.Clock))
}

func (h *Handler) anchorFromQuery(r *http.Request) (release.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.today(), nil
	}
	return release.ParseAnchor(raw)
}

// parseWidth accepts a positive integer or a cadence name.
func parseWidth(raw string) (int, error) {
	if n, ok := release.WidthForName(raw); ok {
		return n, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither a number nor a cadence", release.ErrInvalidPeriodWidth, raw)
	}
	if n < 1 {
		return 0, &release.PeriodWidthError{Width: n}
	}
	return n, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", release.ErrInvalidWindowSize, name, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case release.IsNotFound(err):
		return http.StatusNotFound
	case release.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
