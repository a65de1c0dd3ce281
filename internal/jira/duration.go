package jira

import (
	"regexp"
	"strings"
)

// durationPattern is Jira's duration grammar: one or more <integer><unit>
// tokens where unit is w/d/h/m, separated by optional whitespace. Token shape
// only: repeated units ("1h 2h") are accepted, matching tracker behavior.
var durationPattern = regexp.MustCompile(`(?i)^(\d+[wdhm]\s*)+$`)

// ValidDuration reports whether s matches the tracker's duration grammar
// (e.g. "2h 30m", "1d", "1w 2d 3h 4m"). The empty string is not valid here;
// callers treat absent values separately from malformed ones.
func ValidDuration(s string) bool {
	return durationPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeDuration lowercases units and collapses whitespace so the value
// round-trips cleanly through estimate and worklog fields.
func NormalizeDuration(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
