package agent

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

func exportMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := projectMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		jql := r.URL.Query().Get("jql")
		assert.Contains(t, jql, `worklogDate >= "2024-03-01"`)
		assert.Contains(t, jql, `worklogDate <= "2024-03-15"`)
		json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"issues": []map[string]any{
				{"key": "DEMO-2", "fields": map[string]any{"summary": "Improve onboarding"}},
				{"key": "DEMO-1", "fields": map[string]any{"summary": "Fix login page"}},
			},
		})
	})
	mux.HandleFunc("/rest/api/2/issue/DEMO-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"worklogs": []map[string]any{
				{
					"id":               "1",
					"author":           map[string]any{"displayName": "Ana Silva"},
					"started":          "2024-03-04T00:00:00.000+0000",
					"timeSpent":        "2h",
					"timeSpentSeconds": 7200,
					"comment":          "code review",
				},
				{
					// Outside the range, must be filtered out.
					"id":               "2",
					"started":          "2024-02-20T00:00:00.000+0000",
					"timeSpent":        "5h",
					"timeSpentSeconds": 18000,
				},
			},
		})
	})
	mux.HandleFunc("/rest/api/2/issue/DEMO-2/worklog", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"worklogs": []map[string]any{
				{
					"id":               "3",
					"author":           map[string]any{"displayName": "Rui Costa"},
					"started":          "2024-03-06T00:00:00.000+0000",
					"timeSpent":        "30m",
					"timeSpentSeconds": 1800,
				},
			},
		})
	})
	return mux
}

func TestExportWorklogsCSV(t *testing.T) {
	a := projectAgent(t, exportMux(t))

	out, err := a.ExportWorklogs("demo", "2024-03-01", "15/03/2024", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two in-range rows")

	assert.Equal(t, exportHeader, records[0])
	// Rows come out sorted by date.
	assert.Equal(t, []string{"DEMO-1", "Fix login page", "Ana Silva", "2024-03-04", "2h", "2.00", "code review"}, records[1])
	assert.Equal(t, "DEMO-2", records[2][0])
	assert.Equal(t, "0.50", records[2][5])
}

func TestExportWorklogsXLSX(t *testing.T) {
	a := projectAgent(t, exportMux(t))

	out, err := a.ExportWorklogs("demo", "01/03/2024", "2024-03-15", "xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "Timesheet for 'DEMO' (2 entries)")
	assert.Contains(t, out, "base64 xlsx:")
}

func TestExportWorklogsNotesDroppedData(t *testing.T) {
	mux := projectMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		// More matching issues than one export page fetches.
		json.NewEncoder(w).Encode(map[string]any{
			"total": 150,
			"issues": []map[string]any{
				{"key": "DEMO-1", "fields": map[string]any{"summary": "Fix login page"}},
			},
		})
	})
	mux.HandleFunc("/rest/api/2/issue/DEMO-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"worklogs": []map[string]any{
				{
					"id":               "1",
					"started":          "2024-03-04T00:00:00.000+0000",
					"timeSpent":        "2h",
					"timeSpentSeconds": 7200,
				},
				{
					"id":        "2",
					"started":   "yesterday at noon",
					"timeSpent": "1h",
				},
			},
		})
	})
	a := projectAgent(t, mux)

	out, err := a.ExportWorklogs("demo", "2024-03-01", "2024-03-15", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "⚠️ only the first 1 of 150 issues with worklogs were exported")
	assert.Contains(t, out, "1 worklog entries with unreadable timestamps were skipped")

	// The timesheet itself still follows after a blank line.
	parts := strings.SplitN(out, "\n\n", 2)
	require.Len(t, parts, 2)
	records, err := csv.NewReader(strings.NewReader(parts[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "DEMO-1", records[1][0])
}

func TestExportWorklogsValidation(t *testing.T) {
	a := projectAgent(t, projectMux())

	var verr *jira.ValidationError

	_, err := a.ExportWorklogs("demo", "2024-03-01", "2024-03-15", "pdf")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "unsupported format")

	_, err = a.ExportWorklogs("demo", "not a date", "2024-03-15", "csv")
	require.ErrorAs(t, err, &verr)

	_, err = a.ExportWorklogs("demo", "2024-03-15", "2024-03-01", "csv")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "before start date")
}
