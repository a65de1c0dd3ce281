package jira

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func projectListServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/api/2/project" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"id": "10000", "key": "DEMO", "name": "Demo Project"},
				{"id": "10001", "key": "DEV", "name": "Development", "description": "Internal development work"}
			]`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestResolver_ResolveProject(t *testing.T) {
	server := projectListServer(t)
	defer server.Close()

	client := NewClient(server.URL, "user@example.com", "token")
	resolver := NewResolver(client)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"exact key", "DEMO", "DEMO", false},
		{"exact key lowercase", "demo", "DEMO", false},
		{"name fragment", "velopm", "DEV", false},
		{"description fragment", "internal dev", "DEV", false},
		{"not found", "zzz", "", true},
		{"ambiguous", "e", "", true},
		{"empty", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveProject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResolveProject() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ResolveProject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveProject_ErrorTypes(t *testing.T) {
	server := projectListServer(t)
	defer server.Close()

	resolver := NewResolver(NewClient(server.URL, "u", "t"))

	_, err := resolver.ResolveProject("zzz")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %T: %v", err, err)
	}
	if nf.Query != "zzz" {
		t.Errorf("NotFoundError query = %q, want zzz", nf.Query)
	}

	_, err = resolver.ResolveProject("e")
	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("want AmbiguousError, got %T: %v", err, err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("AmbiguousError candidates = %d, want 2", len(amb.Candidates))
	}
	if !strings.Contains(amb.Error(), "'Demo Project' (DEMO)") {
		t.Errorf("AmbiguousError message missing candidate pair: %s", amb.Error())
	}

	var vErr *ValidationError
	if _, err := resolver.ResolveProject(""); !errors.As(err, &vErr) {
		t.Errorf("want ValidationError for empty identifier, got %v", err)
	}
}

func TestResolver_ResolveIssue_FastPath(t *testing.T) {
	// Any tracker call fails the test: key-shaped input must not search.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected tracker call: %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := NewResolver(NewClient(server.URL, "u", "t"))

	tests := []struct {
		input string
		want  string
	}{
		{"PROJ-123", "PROJ-123"},
		{"abc-7", "ABC-7"},
		{"  demo-42  ", "DEMO-42"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := resolver.ResolveIssue("PROJ", tt.input)
			if err != nil {
				t.Fatalf("ResolveIssue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveIssue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func issueSearchServer(t *testing.T, count int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		jql := r.URL.Query().Get("jql")
		if !strings.Contains(jql, `project = "DEMO"`) || !strings.Contains(jql, "ORDER BY created DESC") {
			t.Errorf("unexpected jql: %s", jql)
		}

		var issues []string
		for i := 0; i < count; i++ {
			issues = append(issues, fmt.Sprintf(`{
				"id": "%d", "key": "DEMO-%d",
				"fields": {
					"summary": "Fix login page %d",
					"status": {"name": "In Progress"},
					"assignee": {"displayName": "Ana Silva"},
					"issuetype": {"name": "Bug"}
				}
			}`, 1000+i, i+1, i+1))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"issues": [%s], "total": %d}`, strings.Join(issues, ","), count)
	}))
}

func TestResolver_ResolveIssue_SlowPath(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		want      string
		wantErr   bool
		ambiguous bool
	}{
		{"no match", 0, "", true, false},
		{"unique match", 1, "DEMO-1", false, false},
		{"three matches", 3, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := issueSearchServer(t, tt.count)
			defer server.Close()

			resolver := NewResolver(NewClient(server.URL, "u", "t"))
			got, err := resolver.ResolveIssue("DEMO", "login")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveIssue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveIssue() = %q, want %q", got, tt.want)
			}
			if tt.ambiguous {
				var amb *AmbiguousError
				if !errors.As(err, &amb) {
					t.Fatalf("want AmbiguousError, got %T", err)
				}
				if len(amb.Candidates) != tt.count {
					t.Errorf("candidates = %d, want %d", len(amb.Candidates), tt.count)
				}
				msg := amb.Error()
				if !strings.Contains(msg, "DEMO-1 [In Progress]: Fix login page 1 - Ana Silva (Bug)") {
					t.Errorf("disambiguation line malformed: %s", msg)
				}
				if !strings.Contains(msg, "/browse/DEMO-1") {
					t.Errorf("disambiguation missing deep link: %s", msg)
				}
				if !strings.Contains(msg, "exact issue key") {
					t.Errorf("disambiguation missing resubmit instruction: %s", msg)
				}
			}
		})
	}
}

func TestResolver_ResolveIssue_Empty(t *testing.T) {
	resolver := NewResolver(NewClient("http://127.0.0.1:0", "u", "t"))
	var vErr *ValidationError
	if _, err := resolver.ResolveIssue("DEMO", ""); !errors.As(err, &vErr) {
		t.Errorf("want ValidationError for empty identifier, got %v", err)
	}
}
