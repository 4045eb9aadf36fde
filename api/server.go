/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through the handler's slog logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for dashboards embedding the feed

ROUTE GROUPS:
  /api/window, /api/periods/*  Ad-hoc calculations
  /api/calendars/*             Stored calendar definitions
  /api/rollovers               Watcher events
  /                            Plain index of the endpoints

SECURITY NOTE:
  No authentication middleware. Calendar definitions are not sensitive,
  but the write endpoints should sit behind a proxy in shared deployments.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/qrelease/serve_command.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/qrelease/logging"
)

// DefaultAllowedOrigins is used when NewRouter gets no origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	accessLog := h.Logger
	if accessLog == nil {
		accessLog = logging.NewNop()
	}
	r.Use(middleware.RequestLogger(&slogFormatter{logger: accessLog}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/window", h.GetWindow)
		r.Get("/periods/{offset}", h.GetPeriod)

		// Calendar routes
		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", h.ListCalendars)
			r.Post("/", h.CreateCalendar)
			r.Post("/defaults", h.AddDefaultCalendars)
			r.Get("/{id}", h.GetCalendar)
			r.Delete("/{id}", h.DeleteCalendar)
			r.Get("/{id}/window", h.GetCalendarWindow)
			r.Get("/{id}/calendar.ics", h.GetCalendarICS)
		})

		r.Get("/rollovers", h.ListRollovers)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>qrelease</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>qrelease API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/window">/api/window</a> - Current release window</li>
<li><a href="/api/periods/0">/api/periods/0</a> - Current release period</li>
<li><a href="/api/calendars">/api/calendars</a> - Stored calendars</li>
<li><a href="/api/rollovers">/api/rollovers</a> - Recent period rollovers</li>
</ul>
</body>
</html>`))
	})

	return r
}

// slogFormatter routes chi's access log through slog so it follows the
// configured level and format.
type slogFormatter struct {
	logger *slog.Logger
}

func (f *slogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &slogEntry{
		logger: f.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type slogEntry struct {
	logger *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Info("request completed",
		"status", status,
		"bytes", bytes,
		"elapsed", elapsed,
	)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("request panicked", "panic", v, "stack", string(stack))
}
