package release

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	releasePattern      = regexp.MustCompile(`^(\d{4})\.(\d{2})$`)
	abbreviationPattern = regexp.MustCompile(`^(\d{2})(\d{2})$`)
)

// ParseDate parses a YYYY-MM-DD anchor. Impossible dates such as 2024-02-30
// are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &InvalidDateError{Input: s, Layout: "YYYY-MM-DD", Err: err}
	}
	return DateOf(t), nil
}

// ParseRelease parses a dotted release label ("2024.07") into day 1 of that
// month.
func ParseRelease(s string) (Date, error) {
	s = strings.TrimSpace(s)
	m := releasePattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, &InvalidDateError{Input: s, Layout: "YYYY.MM"}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Date{}, &InvalidDateError{Input: s, Layout: "YYYY.MM"}
	}
	return NewDate(year, time.Month(month), 1), nil
}

// ParseAbbreviation parses a compact label ("2407") into day 1 of that month.
// Two-digit years are taken to be in 2000-2099.
func ParseAbbreviation(s string) (Date, error) {
	s = strings.TrimSpace(s)
	m := abbreviationPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, &InvalidDateError{Input: s, Layout: "YYMM"}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Date{}, &InvalidDateError{Input: s, Layout: "YYMM"}
	}
	return NewDate(2000+year, time.Month(month), 1), nil
}

// ParseAnchor accepts any of YYYY-MM-DD, YYYY.MM or YYMM.
func ParseAnchor(s string) (Date, error) {
	s = strings.TrimSpace(s)
	switch {
	case releasePattern.MatchString(s):
		return ParseRelease(s)
	case abbreviationPattern.MatchString(s):
		return ParseAbbreviation(s)
	case strings.Contains(s, "-"):
		return ParseDate(s)
	default:
		return Date{}, &InvalidDateError{Input: s, Layout: "YYYY-MM-DD, YYYY.MM or YYMM"}
	}
}
