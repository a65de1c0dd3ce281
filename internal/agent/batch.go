package agent

import (
	"fmt"
	"strings"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

// maxBatchSize bounds the number of items accepted in a single batch call.
const maxBatchSize = 50

// BatchStatus classifies the outcome of one batch item.
type BatchStatus int

const (
	BatchSuccess BatchStatus = iota
	BatchPartial
	BatchFailure
)

func (s BatchStatus) symbol() string {
	switch s {
	case BatchSuccess:
		return "✅"
	case BatchPartial:
		return "⚠️"
	default:
		return "❌"
	}
}

// BatchItemResult is the outcome of a single item within a batch. Results
// keep the order of the input items.
type BatchItemResult struct {
	Item    int
	Status  BatchStatus
	Message string
}

// WorklogItem is one entry of a batch worklog request.
type WorklogItem struct {
	Issue       string
	TimeSpent   string
	WorkDate    string
	Description string
}

// BatchLogWork logs work against several issues of the same project. The
// project is resolved once; each item is then processed independently, so
// one bad item never blocks the rest.
func (a *Agent) BatchLogWork(project string, items []WorklogItem) (string, error) {
	if err := checkBatchSize(len(items)); err != nil {
		return "", err
	}

	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	results := make([]BatchItemResult, 0, len(items))
	for i, item := range items {
		results = append(results, a.logWorkItem(projectKey, i+1, item))
	}

	return formatBatchReport(fmt.Sprintf("Batch worklog for project '%s'", projectKey), results), nil
}

func (a *Agent) logWorkItem(projectKey string, n int, item WorklogItem) BatchItemResult {
	issueKey, err := a.resolver.ResolveIssue(projectKey, item.Issue)
	if err != nil {
		return BatchItemResult{Item: n, Status: BatchFailure, Message: err.Error()}
	}

	plan, err := a.planWorklog(item.TimeSpent, item.WorkDate)
	if err != nil {
		return BatchItemResult{Item: n, Status: BatchFailure, Message: err.Error()}
	}

	if _, err := a.client.AddWorklog(issueKey, plan.timeSpent, plan.started, item.Description); err != nil {
		return BatchItemResult{Item: n, Status: BatchFailure, Message: fmt.Sprintf("failed to log work on %s: %v", issueKey, err)}
	}

	return BatchItemResult{
		Item:    n,
		Status:  BatchSuccess,
		Message: fmt.Sprintf("%s: %s on %s", issueKey, plan.timeSpent, plan.started.Format("2006-01-02")),
	}
}

// IssueItem is one entry of a batch issue creation request.
type IssueItem struct {
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

// BatchCreateIssues creates several issues in the same project. Items are
// processed independently and in order; an item whose issue was created but
// whose initial worklog failed counts as a partial success.
func (a *Agent) BatchCreateIssues(project string, items []IssueItem) (string, error) {
	if err := checkBatchSize(len(items)); err != nil {
		return "", err
	}

	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	results := make([]BatchItemResult, 0, len(items))
	for i, item := range items {
		results = append(results, a.createIssueItem(projectKey, i+1, item))
	}

	return formatBatchReport(fmt.Sprintf("Batch creation for project '%s'", projectKey), results), nil
}

func (a *Agent) createIssueItem(projectKey string, n int, item IssueItem) BatchItemResult {
	summary := sanitizeSummary(item.Summary)
	if len(summary) < 3 {
		return BatchItemResult{Item: n, Status: BatchFailure, Message: "title must have at least 3 characters"}
	}

	for _, est := range []string{item.OriginalEstimate, item.RemainingEstimate} {
		if est != "" && !jira.ValidDuration(est) {
			return BatchItemResult{Item: n, Status: BatchFailure,
				Message: fmt.Sprintf("'%s': invalid duration '%s'", summary, est)}
		}
	}

	var plan *jiraWorklogPlan
	if item.TimeSpent != "" {
		p, err := a.planWorklog(item.TimeSpent, item.WorkDate)
		if err != nil {
			return BatchItemResult{Item: n, Status: BatchFailure, Message: fmt.Sprintf("'%s': %v", summary, err)}
		}
		plan = p
	}

	issueType := item.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]any{
		"project":   map[string]any{"key": projectKey},
		"summary":   summary,
		"issuetype": map[string]any{"name": issueType},
	}
	if item.Description != "" {
		fields["description"] = item.Description
	}

	timetracking := map[string]any{}
	if item.OriginalEstimate != "" {
		timetracking["originalEstimate"] = jira.NormalizeDuration(item.OriginalEstimate)
	}
	if item.RemainingEstimate != "" {
		timetracking["remainingEstimate"] = jira.NormalizeDuration(item.RemainingEstimate)
	}
	if len(timetracking) > 0 {
		fields["timetracking"] = timetracking
	}

	if item.AssigneeEmail != "" {
		email := strings.ToLower(strings.TrimSpace(item.AssigneeEmail))
		if !validEmail(email) {
			return BatchItemResult{Item: n, Status: BatchFailure,
				Message: fmt.Sprintf("'%s': invalid email '%s'", summary, email)}
		}
		users, err := a.client.SearchUsers(email, 1)
		if err != nil {
			return BatchItemResult{Item: n, Status: BatchFailure,
				Message: fmt.Sprintf("'%s': failed to resolve assignee: %v", summary, err)}
		}
		if len(users) == 0 {
			return BatchItemResult{Item: n, Status: BatchFailure,
				Message: fmt.Sprintf("'%s': no user found for '%s'", summary, email)}
		}
		fields["assignee"] = map[string]any{"accountId": users[0].AccountID}
	}

	created, err := a.client.CreateIssue(fields)
	if err != nil {
		return BatchItemResult{Item: n, Status: BatchFailure, Message: fmt.Sprintf("'%s': %v", summary, err)}
	}

	if plan != nil {
		if _, err := a.client.AddWorklog(created.Key, plan.timeSpent, plan.started, item.WorkDescription); err != nil {
			return BatchItemResult{Item: n, Status: BatchPartial,
				Message: fmt.Sprintf("%s created, but logging initial work failed: %v", created.Key, err)}
		}
	}

	return BatchItemResult{Item: n, Status: BatchSuccess, Message: fmt.Sprintf("%s: %s", created.Key, summary)}
}

func checkBatchSize(n int) error {
	if n == 0 {
		return &jira.ValidationError{Field: "items", Reason: "batch must contain at least one item"}
	}
	if n > maxBatchSize {
		return &jira.ValidationError{
			Field:  "items",
			Reason: fmt.Sprintf("batch has %d items, the maximum is %d", n, maxBatchSize),
		}
	}
	return nil
}

// formatBatchReport renders per-item lines in input order followed by a
// success/partial/failure tally.
func formatBatchReport(title string, results []BatchItemResult) string {
	var ok, partial, failed int
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d items):\n\n", title, len(results))
	for _, r := range results {
		switch r.Status {
		case BatchSuccess:
			ok++
		case BatchPartial:
			partial++
		default:
			failed++
		}
		fmt.Fprintf(&b, "%s Item %d: %s\n", r.Status.symbol(), r.Item, r.Message)
	}
	fmt.Fprintf(&b, "\nTotal: %d succeeded", ok)
	if partial > 0 {
		fmt.Fprintf(&b, ", %d partial", partial)
	}
	fmt.Fprintf(&b, ", %d failed", failed)
	return b.String()
}
