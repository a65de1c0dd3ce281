package agent

import (
	"fmt"
	"strings"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

// ListProjectIssues lists issues in a project, optionally filtered by status.
func (a *Agent) ListProjectIssues(project, status string, limit int) (string, error) {
	key, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	if limit <= 0 {
		limit = 50
	}

	jql := fmt.Sprintf(`project = "%s"`, key)
	if status != "" {
		jql += fmt.Sprintf(` AND status = "%s"`, strings.ReplaceAll(status, `"`, `\"`))
	}
	jql += " ORDER BY created DESC"

	issues, total, err := a.client.SearchIssues(jql, limit)
	if err != nil {
		return "", fmt.Errorf("failed to list issues: %w", err)
	}

	if len(issues) == 0 {
		if status != "" {
			return fmt.Sprintf("No issues found in project '%s' with status '%s'", key, status), nil
		}
		return fmt.Sprintf("No issues found in project '%s'", key), nil
	}

	var b strings.Builder
	if status != "" {
		fmt.Fprintf(&b, "Issues in project '%s' with status '%s' (%d of %d):\n\n", key, status, len(issues), total)
	} else {
		fmt.Fprintf(&b, "Issues in project '%s' (%d of %d):\n\n", key, len(issues), total)
	}
	for _, issue := range issues {
		a.writeIssueLine(&b, issue)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// SearchIssuesBySummary lists issues in a project whose title contains the
// given fragment.
func (a *Agent) SearchIssuesBySummary(project, fragment string) (string, error) {
	key, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", &jira.ValidationError{Field: "summary", Reason: "search term must not be empty"}
	}

	jql := fmt.Sprintf(`project = "%s" AND summary ~ "%s" ORDER BY created DESC`,
		key, strings.ReplaceAll(fragment, `"`, `\"`))
	issues, total, err := a.client.SearchIssues(jql, 20)
	if err != nil {
		return "", fmt.Errorf("failed to search issues: %w", err)
	}

	if len(issues) == 0 {
		return fmt.Sprintf("No issues found in project '%s' with title containing '%s'", key, fragment), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Issues in project '%s' matching '%s' (%d of %d):\n\n", key, fragment, len(issues), total)
	for _, issue := range issues {
		a.writeIssueLine(&b, issue)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *Agent) writeIssueLine(b *strings.Builder, issue jira.Issue) {
	status := ""
	if issue.StatusName() != "" {
		status = fmt.Sprintf(" [%s]", issue.StatusName())
	}
	typ := ""
	if issue.TypeName() != "" {
		typ = fmt.Sprintf(" (%s)", issue.TypeName())
	}
	fmt.Fprintf(b, "• %s%s: %s - %s%s\n", issue.Key, status, issue.Fields.Summary, issue.AssigneeName(), typ)
	fmt.Fprintf(b, "  %s\n", a.client.BrowseURL(issue.Key))
}

// GetIssueDetails resolves an issue within a project and returns its details.
func (a *Agent) GetIssueDetails(project, identifier string) (string, error) {
	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	issueKey, err := a.resolver.ResolveIssue(projectKey, identifier)
	if err != nil {
		return "", err
	}

	issue, err := a.client.GetIssue(issueKey)
	if err != nil {
		return "", fmt.Errorf("failed to get issue %s: %w", issueKey, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", issue.Key, issue.Fields.Summary)
	if issue.StatusName() != "" {
		fmt.Fprintf(&b, "Status: %s\n", issue.StatusName())
	}
	if issue.TypeName() != "" {
		fmt.Fprintf(&b, "Type: %s\n", issue.TypeName())
	}
	fmt.Fprintf(&b, "Assignee: %s\n", issue.AssigneeName())
	if issue.Fields.Priority != nil {
		fmt.Fprintf(&b, "Priority: %s\n", issue.Fields.Priority.Name)
	}
	if tt := issue.Fields.TimeTracking; tt != nil {
		if tt.OriginalEstimate != "" {
			fmt.Fprintf(&b, "Original estimate: %s\n", tt.OriginalEstimate)
		}
		if tt.RemainingEstimate != "" {
			fmt.Fprintf(&b, "Remaining estimate: %s\n", tt.RemainingEstimate)
		}
		if tt.TimeSpent != "" {
			fmt.Fprintf(&b, "Time spent: %s\n", tt.TimeSpent)
		}
	}
	if issue.Fields.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", issue.Fields.Description)
	}
	fmt.Fprintf(&b, "%s\n", a.client.BrowseURL(issue.Key))

	return strings.TrimRight(b.String(), "\n"), nil
}

// CreateIssueInput holds the parameters for creating a single issue,
// optionally with an initial worklog.
type CreateIssueInput struct {
	Project           string
	Summary           string
	Description       string
	IssueType         string
	OriginalEstimate  string
	RemainingEstimate string
	AssigneeEmail     string
	TimeSpent         string
	WorkDate          string
	WorkDescription   string
}

// CreateIssue validates, creates an issue, and optionally logs initial work
// against it. Creation and work logging are sequential but independent: when
// creation succeeds and the worklog fails, the result is a partial-success
// warning, not a failure.
func (a *Agent) CreateIssue(input CreateIssueInput) (string, error) {
	projectKey, err := a.resolver.ResolveProject(input.Project)
	if err != nil {
		return "", err
	}

	summary := sanitizeSummary(input.Summary)
	if len(summary) < 3 {
		return "", &jira.ValidationError{Field: "summary", Reason: "title must have at least 3 characters"}
	}

	for _, est := range []struct{ field, value string }{
		{"original_estimate", input.OriginalEstimate},
		{"remaining_estimate", input.RemainingEstimate},
	} {
		if est.value != "" && !jira.ValidDuration(est.value) {
			return "", &jira.ValidationError{
				Field:  est.field,
				Reason: fmt.Sprintf("'%s' is not a valid duration. Use a format like '2h 30m', '1d', '4h'", est.value),
			}
		}
	}

	// Validate the optional initial worklog before any write happens.
	var workStarted *jiraWorklogPlan
	if input.TimeSpent != "" {
		plan, err := a.planWorklog(input.TimeSpent, input.WorkDate)
		if err != nil {
			return "", err
		}
		workStarted = plan
	}

	issueType := input.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]any{
		"project":   map[string]any{"key": projectKey},
		"summary":   summary,
		"issuetype": map[string]any{"name": issueType},
	}
	if input.Description != "" {
		fields["description"] = input.Description
	}

	timetracking := map[string]any{}
	if input.OriginalEstimate != "" {
		timetracking["originalEstimate"] = jira.NormalizeDuration(input.OriginalEstimate)
	}
	if input.RemainingEstimate != "" {
		timetracking["remainingEstimate"] = jira.NormalizeDuration(input.RemainingEstimate)
	}
	if len(timetracking) > 0 {
		fields["timetracking"] = timetracking
	}

	if input.AssigneeEmail != "" {
		email := strings.ToLower(strings.TrimSpace(input.AssigneeEmail))
		if !validEmail(email) {
			return "", &jira.ValidationError{Field: "assignee_email", Reason: fmt.Sprintf("'%s' is not a valid email address", email)}
		}
		users, err := a.client.SearchUsers(email, 1)
		if err != nil {
			return "", fmt.Errorf("failed to resolve assignee: %w", err)
		}
		if len(users) == 0 {
			return "", &jira.NotFoundError{Kind: "user", Query: email}
		}
		fields["assignee"] = map[string]any{"accountId": users[0].AccountID}
	}

	created, err := a.client.CreateIssue(fields)
	if err != nil {
		return "", fmt.Errorf("failed to create issue '%s': %w", summary, err)
	}

	message := fmt.Sprintf("✅ Issue %s created: %s\n%s", created.Key, summary, a.client.BrowseURL(created.Key))

	if workStarted != nil {
		if _, err := a.client.AddWorklog(created.Key, workStarted.timeSpent, workStarted.started, input.WorkDescription); err != nil {
			// The issue exists; report the failed secondary step as a warning.
			return fmt.Sprintf("⚠️ Issue %s created, but logging initial work failed: %v", created.Key, err), nil
		}
		message += fmt.Sprintf("\n✅ Initial work logged: %s on %s",
			workStarted.timeSpent, workStarted.started.Format("2006-01-02"))
	}

	return message, nil
}

// UpdateEstimates updates an issue's original and/or remaining estimate.
func (a *Agent) UpdateEstimates(project, identifier, originalEstimate, remainingEstimate string) (string, error) {
	if originalEstimate == "" && remainingEstimate == "" {
		return "", &jira.ValidationError{Field: "estimates", Reason: "no estimate provided"}
	}

	timetracking := map[string]any{}
	for _, est := range []struct{ field, value, key string }{
		{"original_estimate", originalEstimate, "originalEstimate"},
		{"remaining_estimate", remainingEstimate, "remainingEstimate"},
	} {
		if est.value == "" {
			continue
		}
		if !jira.ValidDuration(est.value) {
			return "", &jira.ValidationError{
				Field:  est.field,
				Reason: fmt.Sprintf("'%s' is not a valid duration. Use a format like '2h 30m', '1d', '4h'", est.value),
			}
		}
		timetracking[est.key] = jira.NormalizeDuration(est.value)
	}

	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	issueKey, err := a.resolver.ResolveIssue(projectKey, identifier)
	if err != nil {
		return "", err
	}

	if err := a.client.UpdateIssueFields(issueKey, map[string]any{"timetracking": timetracking}); err != nil {
		return "", fmt.Errorf("failed to update estimates on %s: %w", issueKey, err)
	}

	var lines []string
	if originalEstimate != "" {
		lines = append(lines, fmt.Sprintf("✅ Original estimate of %s updated to %s", issueKey, jira.NormalizeDuration(originalEstimate)))
	}
	if remainingEstimate != "" {
		lines = append(lines, fmt.Sprintf("✅ Remaining estimate of %s updated to %s", issueKey, jira.NormalizeDuration(remainingEstimate)))
	}
	return strings.Join(lines, "\n"), nil
}

// UpdateStatus moves an issue to a new status by matching the desired status
// against the transitions currently available on the issue.
func (a *Agent) UpdateStatus(project, identifier, status string) (string, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return "", &jira.ValidationError{Field: "status", Reason: "status must not be empty"}
	}

	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	issueKey, err := a.resolver.ResolveIssue(projectKey, identifier)
	if err != nil {
		return "", err
	}

	transitions, err := a.client.ListTransitions(issueKey)
	if err != nil {
		return "", fmt.Errorf("failed to list transitions for %s: %w", issueKey, err)
	}

	target, err := matchTransition(status, transitions)
	if err != nil {
		return "", err
	}

	if err := a.client.ExecuteTransition(issueKey, target.ID); err != nil {
		return "", fmt.Errorf("failed to transition %s: %w", issueKey, err)
	}

	message := fmt.Sprintf("✅ Issue %s moved to '%s'", issueKey, target.To.Name)
	if !strings.EqualFold(status, target.To.Name) {
		message += fmt.Sprintf(" (matched from '%s')", status)
	}
	return message, nil
}

// matchTransition finds the transition whose target status matches the
// requested name, exact match first, then unique substring match.
func matchTransition(status string, transitions []jira.Transition) (*jira.Transition, error) {
	query := strings.ToLower(status)

	for i, t := range transitions {
		if strings.ToLower(t.To.Name) == query {
			return &transitions[i], nil
		}
	}

	var matches []*jira.Transition
	for i, t := range transitions {
		if strings.Contains(strings.ToLower(t.To.Name), query) {
			matches = append(matches, &transitions[i])
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		names := make([]string, len(transitions))
		for i, t := range transitions {
			names[i] = fmt.Sprintf("'%s'", t.To.Name)
		}
		return nil, &jira.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("no transition to '%s' is available. Allowed: %s", status, strings.Join(names, ", ")),
		}
	default:
		candidates := make([]jira.Candidate, len(matches))
		for i, t := range matches {
			candidates[i] = jira.Candidate{Key: t.ID, Name: t.To.Name}
		}
		return nil, &jira.AmbiguousError{
			Kind:       "transition",
			Query:      status,
			Candidates: candidates,
			Hint:       "Please use the exact status name",
		}
	}
}
