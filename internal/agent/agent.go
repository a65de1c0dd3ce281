// Package agent composes the tracker client and the identifier resolvers
// into the operations the conversational caller binds to. Every operation
// takes flat string parameters and returns a human-readable summary; expected
// failures (not found, ambiguous, malformed input) come back as typed errors
// from the jira package, never as panics.
package agent

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

const maxSummaryLength = 200

// Agent executes tracker operations on behalf of the conversational caller.
type Agent struct {
	client   *jira.Client
	resolver *jira.Resolver
	now      func() time.Time
}

// New creates an agent backed by the given client.
func New(client *jira.Client) *Agent {
	return &Agent{
		client:   client,
		resolver: jira.NewResolver(client),
		now:      time.Now,
	}
}

// Me returns the authenticated user's identity.
func (a *Agent) Me() (string, error) {
	user, err := a.client.GetCurrentUser()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return fmt.Sprintf("Logged in as %s (%s, account ID %s)",
		user.DisplayName, user.EmailAddress, user.AccountID), nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// sanitizeSummary collapses whitespace and truncates over-long titles.
// Truncation counts runes, not bytes, so multibyte text is never cut
// mid-character.
func sanitizeSummary(summary string) string {
	s := whitespacePattern.ReplaceAllString(strings.TrimSpace(summary), " ")
	if utf8.RuneCountInString(s) > maxSummaryLength {
		runes := []rune(s)
		s = string(runes[:maxSummaryLength-3]) + "..."
	}
	return s
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validEmail reports whether s looks like an email address.
func validEmail(s string) bool {
	return emailPattern.MatchString(s)
}
