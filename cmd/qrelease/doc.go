// Package main hosts the qrelease CLI entrypoint and command graph.
//
// The Cobra command tree covers ad-hoc release windows (window, period),
// iCalendar export (ics), the stored calendar registry (calendars), the HTTP
// API (serve) and configuration scaffolding (config). Configuration and the
// logger are resolved once per invocation in commandContext.
//
// Date arithmetic lives in the release package; commands only merge flags
// with config defaults and render the result.
package main
