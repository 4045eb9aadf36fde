// Package config loads, normalizes, and validates qrelease configuration.
//
// It supplies repository defaults, reads TOML files, expands user paths
// (including tilde shortcuts) and honours the QRELEASE_DB / QRELEASE_BIND
// environment overrides. The calendar section carries the default period
// width, grid alignment, window size and the time zone used to resolve
// "today" when no anchor date is supplied.
package config
