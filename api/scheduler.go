/*
scheduler.go - Period rollover watcher

PURPOSE:
  Periodically computes the current period of every stored calendar and
  records when it changes, so clients (and the log) can see that a new
  release cycle has begun without polling each calendar themselves.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The first pass only primes the last-seen period per calendar
  - A calendar whose current release differs from the last pass yields a
    Rollover event
  - Deleted calendars are forgotten; re-created ones are primed again
  - Keeps the most recent events in a bounded buffer for GET /api/rollovers

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the watcher is active (default: true)

USAGE:
  watcher := NewRolloverWatcher(store, clock, logger)
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - handlers.go: ListRollovers endpoint
  - release/calendar.go: Calendar.Calculator
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/qrelease/logging"
	"github.com/warp/qrelease/release"
)

const (
	defaultCheckInterval = time.Hour
	maxRecentRollovers   = 100
)

// Rollover records a calendar moving from one period to the next.
type Rollover struct {
	CalendarID string
	From       string // release label, e.g. "2024.04"
	To         string
	DetectedAt time.Time
}

// RolloverWatcher detects period changes across stored calendars.
type RolloverWatcher struct {
	Store         release.CalendarStore
	Clock         release.Clock
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // guards ticker/stop
	stateMu sync.Mutex // guards seen/recent
	seen    map[string]string
	recent  []Rollover
}

// NewRolloverWatcher creates a new watcher.
func NewRolloverWatcher(store release.CalendarStore, clock release.Clock, logger *slog.Logger) *RolloverWatcher {
	if clock == nil {
		clock = release.SystemClock{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RolloverWatcher{
		Store:         store,
		Clock:         clock,
		Logger:        logger,
		CheckInterval: defaultCheckInterval,
		Enabled:       true,
		seen:          make(map[string]string),
	}
}

// Start begins the watcher. Calling Start on a running watcher is a no-op.
func (rw *RolloverWatcher) Start() {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if !rw.Enabled {
		rw.Logger.Info("rollover watcher disabled")
		return
	}
	if rw.ticker != nil {
		return
	}

	interval := rw.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	rw.ticker = time.NewTicker(interval)
	rw.stop = make(chan struct{})
	rw.wg.Add(1)

	go rw.run(rw.ticker, rw.stop)

	rw.Logger.Info("rollover watcher started", "interval", interval)
}

// Stop stops the watcher and waits for an in-flight check to finish.
func (rw *RolloverWatcher) Stop() {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.ticker == nil {
		return
	}
	rw.ticker.Stop()
	close(rw.stop)
	rw.wg.Wait()
	rw.ticker = nil
	rw.stop = nil
	rw.Logger.Info("rollover watcher stopped")
}

func (rw *RolloverWatcher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rw.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Prime immediately so the first tick can already detect a change.
	rw.check(ctx)

	for {
		select {
		case <-ticker.C:
			rw.check(ctx)
		case <-stop:
			return
		}
	}
}

func (rw *RolloverWatcher) check(ctx context.Context) {
	if _, err := rw.Check(ctx); err != nil && ctx.Err() == nil {
		rw.Logger.Warn("rollover check failed", "error", err)
	}
}

// Check runs one pass and returns the rollovers it detected.
func (rw *RolloverWatcher) Check(ctx context.Context) ([]Rollover, error) {
	cals, err := rw.Store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	now := rw.Clock.Now()
	today := release.DateOf(now)

	rw.stateMu.Lock()
	defer rw.stateMu.Unlock()

	var detected []Rollover
	present := make(map[string]bool, len(cals))
	for _, cal := range cals {
		present[cal.ID] = true

		calc, err := cal.Calculator(rw.Clock)
		if err != nil {
			rw.Logger.Warn("skipping invalid calendar", "id", cal.ID, "error", err)
			continue
		}
		current := calc.PeriodAt(today, 0).Release

		last, ok := rw.seen[cal.ID]
		rw.seen[cal.ID] = current
		if !ok || last == current {
			continue
		}

		ev := Rollover{CalendarID: cal.ID, From: last, To: current, DetectedAt: now}
		detected = append(detected, ev)
		rw.recent = append(rw.recent, ev)
		rw.Logger.Info("release period rolled over",
			"calendar", cal.ID,
			"from", last,
			"to", current,
		)
	}

	for id := range rw.seen {
		if !present[id] {
			delete(rw.seen, id)
		}
	}
	if n := len(rw.recent); n > maxRecentRollovers {
		rw.recent = append([]Rollover(nil), rw.recent[n-maxRecentRollovers:]...)
	}
	return detected, nil
}

// Recent returns the recorded rollovers, newest first.
func (rw *RolloverWatcher) Recent() []Rollover {
	rw.stateMu.Lock()
	defer rw.stateMu.Unlock()

	out := make([]Rollover, len(rw.recent))
	for i, ev := range rw.recent {
		out[len(rw.recent)-1-i] = ev
	}
	return out
}
