package jira

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := r.BasicAuth()
		if !ok || user != "ana@example.com" || token != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accountId": "abc123", "displayName": "Ana Silva", "emailAddress": "ana@example.com"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "ana@example.com", "secret")
	user, err := client.GetCurrentUser()
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.DisplayName != "Ana Silva" {
		t.Errorf("DisplayName = %q, want Ana Silva", user.DisplayName)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessages": ["bad credentials"]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "bad")
	_, err := client.GetCurrentUser()

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !apiErr.IsAuth() {
		t.Error("IsAuth() = false, want true")
	}
}

func TestClient_ConnectivityError(t *testing.T) {
	// Closed server: the transport error must surface as ConnectivityError.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "u", "t")
	_, err := client.GetCurrentUser()

	var connErr *ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("want ConnectivityError, got %T: %v", err, err)
	}
}

func TestClient_AddWorklog(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/DEMO-1/worklog" || r.Method != "POST" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "900", "timeSpent": "2h 30m"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "t")
	started := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	worklog, err := client.AddWorklog("DEMO-1", "2h 30m", started, "pairing session")
	if err != nil {
		t.Fatalf("AddWorklog() error = %v", err)
	}
	if worklog.TimeSpent != "2h 30m" {
		t.Errorf("TimeSpent = %q, want 2h 30m", worklog.TimeSpent)
	}
	if got["timeSpent"] != "2h 30m" {
		t.Errorf("request timeSpent = %v", got["timeSpent"])
	}
	if got["started"] != "2024-03-14T00:00:00.000+0000" {
		t.Errorf("request started = %v", got["started"])
	}
	if got["comment"] != "pairing session" {
		t.Errorf("request comment = %v", got["comment"])
	}
}

func TestClient_ListTransitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/DEMO-1/transitions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transitions": [
			{"id": "11", "name": "Start Progress", "to": {"id": "3", "name": "In Progress"}},
			{"id": "21", "name": "Done", "to": {"id": "5", "name": "Done"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "t")
	transitions, err := client.ListTransitions("DEMO-1")
	if err != nil {
		t.Fatalf("ListTransitions() error = %v", err)
	}
	if len(transitions) != 2 {
		t.Fatalf("transitions = %d, want 2", len(transitions))
	}
	if transitions[0].To.Name != "In Progress" {
		t.Errorf("To.Name = %q, want In Progress", transitions[0].To.Name)
	}
}

func TestClient_BrowseURL(t *testing.T) {
	client := NewClient("https://example.atlassian.net/", "u", "t")
	if got := client.BrowseURL("DEMO-1"); got != "https://example.atlassian.net/browse/DEMO-1" {
		t.Errorf("BrowseURL() = %q", got)
	}
}
