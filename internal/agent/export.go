package agent

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

// worklogRow is one line of an exported timesheet.
type worklogRow struct {
	IssueKey string
	Summary  string
	Author   string
	Date     string
	Spent    string
	Seconds  int
	Comment  string
}

var exportHeader = []string{"Issue", "Summary", "Author", "Date", "Time Spent", "Hours", "Comment"}

// ExportWorklogs collects every worklog of a project within a date range and
// renders a timesheet. Format is "csv" or "xlsx"; the XLSX payload is
// returned base64 encoded since tool results are text.
func (a *Agent) ExportWorklogs(project, from, to, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return "", &jira.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format '%s', use 'csv' or 'xlsx'", format)}
	}

	fromDate, ok := ParseWorkDate(from, a.now())
	if !ok {
		return "", &jira.ValidationError{Field: "from", Reason: fmt.Sprintf("could not understand the date '%s'", from)}
	}
	toDate, ok := ParseWorkDate(to, a.now())
	if !ok {
		return "", &jira.ValidationError{Field: "to", Reason: fmt.Sprintf("could not understand the date '%s'", to)}
	}
	if toDate.Before(fromDate) {
		return "", &jira.ValidationError{Field: "to", Reason: "end date is before start date"}
	}

	projectKey, err := a.resolver.ResolveProject(project)
	if err != nil {
		return "", err
	}

	rows, note, err := a.collectWorklogs(projectKey, fromDate, toDate)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No worklogs found in project '%s' between %s and %s",
			projectKey, fromDate.Format("2006-01-02"), toDate.Format("2006-01-02")), nil
	}

	var out string
	if format == "xlsx" {
		out, err = renderXLSX(projectKey, rows)
	} else {
		out, err = renderCSV(rows)
	}
	if err != nil {
		return "", err
	}
	if note != "" {
		out = "⚠️ " + note + "\n\n" + out
	}
	return out, nil
}

// exportIssuePageSize bounds how many issues one export fetches worklogs for.
const exportIssuePageSize = 100

// collectWorklogs queries issues with worklogs in the range, then fetches and
// filters each issue's worklog entries. Jira's worklogDate clause narrows the
// issue set but the entries themselves still need date filtering. The note
// flags anything left out: issues beyond the page cap, entries with
// unreadable timestamps.
func (a *Agent) collectWorklogs(projectKey string, from, to time.Time) ([]worklogRow, string, error) {
	jql := fmt.Sprintf(`project = "%s" AND worklogDate >= "%s" AND worklogDate <= "%s"`,
		projectKey, from.Format("2006-01-02"), to.Format("2006-01-02"))
	issues, total, err := a.client.SearchIssues(jql, exportIssuePageSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to search worklogs: %w", err)
	}

	end := to.AddDate(0, 0, 1)
	var rows []worklogRow
	var skipped int
	for _, issue := range issues {
		worklogs, err := a.client.ListWorklogs(issue.Key)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list worklogs for %s: %w", issue.Key, err)
		}
		for _, w := range worklogs {
			started, err := time.Parse("2006-01-02T15:04:05.000-0700", w.Started)
			if err != nil {
				skipped++
				continue
			}
			if started.Before(from) || !started.Before(end) {
				continue
			}
			author := ""
			if w.Author != nil {
				author = w.Author.DisplayName
			}
			rows = append(rows, worklogRow{
				IssueKey: issue.Key,
				Summary:  issue.Fields.Summary,
				Author:   author,
				Date:     started.Format("2006-01-02"),
				Spent:    w.TimeSpent,
				Seconds:  w.TimeSpentSeconds,
				Comment:  w.Comment,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].IssueKey < rows[j].IssueKey
	})

	var notes []string
	if total > len(issues) {
		notes = append(notes, fmt.Sprintf("only the first %d of %d issues with worklogs were exported", len(issues), total))
	}
	if skipped > 0 {
		notes = append(notes, fmt.Sprintf("%d worklog entries with unreadable timestamps were skipped", skipped))
	}
	return rows, strings.Join(notes, "; "), nil
}

func hoursOf(seconds int) string {
	return fmt.Sprintf("%.2f", float64(seconds)/3600)
}

func renderCSV(rows []worklogRow) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	for _, r := range rows {
		record := []string{r.IssueKey, r.Summary, r.Author, r.Date, r.Spent, hoursOf(r.Seconds), r.Comment}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.String(), nil
}

func renderXLSX(projectKey string, rows []worklogRow) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Worklogs"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to build xlsx: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return "", fmt.Errorf("failed to build xlsx: %w", err)
		}
	}

	var totalSeconds int
	for i, r := range rows {
		values := []any{r.IssueKey, r.Summary, r.Author, r.Date, r.Spent, float64(r.Seconds) / 3600, r.Comment}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return "", fmt.Errorf("failed to build xlsx: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return "", fmt.Errorf("failed to build xlsx: %w", err)
			}
		}
		totalSeconds += r.Seconds
	}

	totalRow := len(rows) + 2
	totalLabel, _ := excelize.CoordinatesToCellName(5, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(6, totalRow)
	f.SetCellValue(sheet, totalLabel, "Total")
	f.SetCellValue(sheet, totalCell, float64(totalSeconds)/3600)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("failed to build xlsx: %w", err)
	}

	return fmt.Sprintf("Timesheet for '%s' (%d entries), base64 xlsx:\n%s",
		projectKey, len(rows), base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
