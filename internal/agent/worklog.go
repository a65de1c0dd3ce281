package agent

import (
	"fmt"
	"time"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

// jiraWorklogPlan is a fully validated worklog waiting to be written.
type jiraWorklogPlan struct {
	timeSpent string
	started   time.Time
}

// planWorklog validates the duration and date of a worklog before any write.
// Dates in the future are rejected: work can only be logged for time already
// spent.
func (a *Agent) planWorklog(timeSpent, workDate string) (*jiraWorklogPlan, error) {
	if timeSpent == "" {
		return nil, &jira.ValidationError{Field: "time_spent", Reason: "time spent is required"}
	}
	if !jira.ValidDuration(timeSpent) {
		return nil, &jira.ValidationError{
			Field:  "time_spent",
			Reason: fmt.Sprintf("'%s' is not a valid duration. Use a format like '2h 30m', '1d', '4h'", timeSpent),
		}
	}

	started, ok := ParseWorkDate(workDate, a.now())
	if !ok {
		return nil, &jira.ValidationError{
			Field:  "work_date",
			Reason: fmt.Sprintf("could not understand the date '%s'. Try 'yesterday', 'last friday' or a date like '15/03/2024'", workDate),
		}
	}

	today := midnight(a.now())
	if started.After(today) {
		return nil, &jira.ValidationError{
			Field:  "work_date",
			Reason: fmt.Sprintf("'%s' is in the future. Work can only be logged for today or past dates", started.Format("2006-01-02")),
		}
	}

	return &jiraWorklogPlan{timeSpent: jira.NormalizeDuration(timeSpent), started: started}, nil
}

// LogWork resolves the project and issue, validates the duration and date,
// and records a single worklog. Every validation happens before the one
// write; a failure anywhere leaves the tracker untouched.
func (a *Agent) LogWork(project, identifier, timeSpent, workDate, description string) (string, error) {
	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	issueKey, err := a.resolver.ResolveIssue(projectKey, identifier)
	if err != nil {
		return "", err
	}

	plan, err := a.planWorklog(timeSpent, workDate)
	if err != nil {
		return "", err
	}

	if _, err := a.client.AddWorklog(issueKey, plan.timeSpent, plan.started, description); err != nil {
		return "", fmt.Errorf("failed to log work on %s: %w", issueKey, err)
	}

	return fmt.Sprintf("✅ Logged %s on %s (%s)\n%s",
		plan.timeSpent, issueKey, plan.started.Format("2006-01-02"), a.client.BrowseURL(issueKey)), nil
}
