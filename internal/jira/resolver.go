package jira

import (
	"fmt"
	"regexp"
	"strings"
)

// issueKeyPattern matches the tracker's issue-key grammar: letters, a hyphen,
// digits. Input is accepted case-insensitively and normalized to uppercase.
var issueKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-\d+$`)

// issueSearchPageSize caps the slow-path title search.
const issueSearchPageSize = 20

// IsIssueKey reports whether s is syntactically an issue key (e.g. PROJ-123).
func IsIssueKey(s string) bool {
	return issueKeyPattern.MatchString(strings.TrimSpace(s))
}

// Resolver maps free-text identifiers to exactly one tracker entity key, or
// to a typed NotFound/Ambiguous outcome. Candidate lists are fetched fresh
// from the tracker on every call so resolution always reflects current
// state; nothing is cached between calls.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// ResolveProject resolves a project identifier (key, name fragment, or
// description fragment) to a project key. An exact key match always wins;
// otherwise a unique partial match resolves, multiple matches return an
// AmbiguousError listing 'name' (KEY) pairs, and zero matches return a
// NotFoundError. Project resolution failure is terminal for any
// issue-scoped operation.
func (r *Resolver) ResolveProject(identifier string) (string, error) {
	query := strings.TrimSpace(identifier)
	if query == "" {
		return "", &ValidationError{Field: "project", Reason: "identifier must not be empty"}
	}

	projects, err := r.client.ListProjects()
	if err != nil {
		return "", fmt.Errorf("failed to list projects: %w", err)
	}

	candidates := make([]Candidate, len(projects))
	for i, p := range projects {
		candidates[i] = Candidate{Key: p.Key, Name: p.Name, Description: p.Description}
	}

	res := Match(query, candidates)
	switch res.State {
	case StateResolved:
		return res.Key, nil
	case StateAmbiguous:
		return "", &AmbiguousError{
			Kind:       "project",
			Query:      query,
			Candidates: res.Matches,
			Hint:       "Please be more specific or use the project key",
		}
	default:
		return "", &NotFoundError{Kind: "project", Query: query}
	}
}

// ResolveIssue resolves an issue identifier within a project.
//
// Fast path: identifiers already shaped like an issue key are returned
// uppercased without querying the tracker; existence is validated later at
// the point of use. Slow path: the identifier is treated as a title
// fragment and searched within the project, newest first, capped at
// issueSearchPageSize. Multiple matches return an AmbiguousError whose
// detail lines carry status, assignee, type and a deep link per candidate.
func (r *Resolver) ResolveIssue(projectKey, identifier string) (string, error) {
	query := strings.TrimSpace(identifier)
	if query == "" {
		return "", &ValidationError{Field: "issue", Reason: "identifier must not be empty"}
	}

	if IsIssueKey(query) {
		return strings.ToUpper(query), nil
	}

	jql := fmt.Sprintf(`project = "%s" AND summary ~ "%s" ORDER BY created DESC`,
		escapeJQL(projectKey), escapeJQL(query))
	issues, _, err := r.client.SearchIssues(jql, issueSearchPageSize)
	if err != nil {
		return "", fmt.Errorf("failed to search issues: %w", err)
	}

	switch len(issues) {
	case 0:
		return "", &NotFoundError{Kind: "issue", Query: query}
	case 1:
		return issues[0].Key, nil
	}

	candidates := make([]Candidate, len(issues))
	detail := make([]string, len(issues))
	for i, issue := range issues {
		candidates[i] = Candidate{Key: issue.Key, Name: issue.Fields.Summary}
		detail[i] = fmt.Sprintf("%s [%s]: %s - %s (%s) %s",
			issue.Key, issue.StatusName(), issue.Fields.Summary,
			issue.AssigneeName(), issue.TypeName(), r.client.BrowseURL(issue.Key))
	}

	return "", &AmbiguousError{
		Kind:       "issue",
		Query:      query,
		Candidates: candidates,
		Detail:     detail,
		Hint:       "Please resubmit with the exact issue key",
	}
}

// escapeJQL escapes quotes and backslashes inside a JQL string literal.
func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
