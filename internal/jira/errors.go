package jira

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectivityError indicates the tracker could not be reached at all
// (DNS, TLS, timeout, connection refused).
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("jira unreachable during %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the tracker.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API error (status %d): %s", e.StatusCode, e.Body)
}

// IsAuth reports whether the error is an authentication/authorization failure.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// NotFoundError means an identifier matched zero candidates.
type NotFoundError struct {
	Kind  string // "project", "issue", "user"
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found for '%s'", e.Kind, e.Query)
}

// AmbiguousError means an identifier matched more than one candidate. It is a
// valid terminal outcome requiring user clarification, not a fault: callers
// distinguish it from NotFoundError with errors.As and present the choices.
//
// Candidates always holds the full matched list in discovery order. Detail,
// when set, holds richer per-candidate display lines (the issue resolver fills
// it with status/assignee/link info); otherwise candidates are rendered as
// 'Name' (KEY) pairs. Display is capped at maxAmbiguousDisplay entries.
type AmbiguousError struct {
	Kind       string
	Query      string
	Candidates []Candidate
	Detail     []string
	Hint       string
}

func (e *AmbiguousError) Error() string {
	var lines []string
	if len(e.Detail) > 0 {
		lines = e.Detail
	} else {
		lines = make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			lines[i] = fmt.Sprintf("'%s' (%s)", c.Name, c.Key)
		}
	}

	shown := lines
	var more string
	if len(shown) > maxAmbiguousDisplay {
		shown = shown[:maxAmbiguousDisplay]
		more = fmt.Sprintf(" and %d more", len(lines)-maxAmbiguousDisplay)
	}

	msg := fmt.Sprintf("multiple %ss match '%s': %s%s",
		e.Kind, e.Query, strings.Join(shown, ", "), more)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// ValidationError is malformed caller input: a bad duration, an unparseable
// date, or a missing required companion field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguous reports whether err is an AmbiguousError.
func IsAmbiguous(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
