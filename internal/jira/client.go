package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a Jira REST API client (API v2, basic auth with API token).
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a new Jira client.
func NewClient(baseURL, username, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BrowseURL returns the human-facing deep link for an issue key.
func (c *Client) BrowseURL(issueKey string) string {
	return c.baseURL + "/browse/" + issueKey
}

// doRequest performs an HTTP request against the Jira REST API.
func (c *Client) doRequest(method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// User represents a Jira user.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

// GetCurrentUser returns the authenticated user.
func (c *Client) GetCurrentUser() (*User, error) {
	data, err := c.doRequest("GET", "/rest/api/2/myself", nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &user, nil
}

// Project represents a Jira project.
type Project struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ProjectTypeKey string `json:"projectTypeKey,omitempty"`
	Self           string `json:"self,omitempty"`
	Lead           *User  `json:"lead,omitempty"`
	IssueTypes     []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Subtask bool   `json:"subtask"`
	} `json:"issueTypes,omitempty"`
}

// ListProjects returns all projects visible to the authenticated user.
func (c *Client) ListProjects() ([]Project, error) {
	data, err := c.doRequest("GET", "/rest/api/2/project", nil)
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return projects, nil
}

// GetProject returns a project by key, including its issue types.
func (c *Client) GetProject(key string) (*Project, error) {
	data, err := c.doRequest("GET", "/rest/api/2/project/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}

	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &project, nil
}

// NamedField is a name-bearing issue field (status, priority, issue type).
type NamedField struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// TimeTracking holds an issue's estimate fields.
type TimeTracking struct {
	OriginalEstimate  string `json:"originalEstimate,omitempty"`
	RemainingEstimate string `json:"remainingEstimate,omitempty"`
	TimeSpent         string `json:"timeSpent,omitempty"`
}

// IssueFields is the subset of issue fields the server depends on.
type IssueFields struct {
	Summary      string        `json:"summary"`
	Description  string        `json:"description,omitempty"`
	Status       *NamedField   `json:"status,omitempty"`
	Priority     *NamedField   `json:"priority,omitempty"`
	IssueType    *NamedField   `json:"issuetype,omitempty"`
	Assignee     *User         `json:"assignee,omitempty"`
	Reporter     *User         `json:"reporter,omitempty"`
	Created      string        `json:"created,omitempty"`
	Updated      string        `json:"updated,omitempty"`
	TimeTracking *TimeTracking `json:"timetracking,omitempty"`
}

// Issue represents a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// StatusName returns the issue's status name, or "" when absent.
func (i *Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}

// AssigneeName returns the assignee display name, or "Unassigned".
func (i *Issue) AssigneeName() string {
	if i.Fields.Assignee == nil {
		return "Unassigned"
	}
	return i.Fields.Assignee.DisplayName
}

// TypeName returns the issue type name, or "" when absent.
func (i *Issue) TypeName() string {
	if i.Fields.IssueType == nil {
		return ""
	}
	return i.Fields.IssueType.Name
}

// SearchResponse is the response from /rest/api/2/search.
type SearchResponse struct {
	Issues     []Issue `json:"issues"`
	Total      int     `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
}

// SearchIssues runs a JQL query and returns matching issues plus the total
// match count (which may exceed the page returned).
func (c *Client) SearchIssues(jql string, maxResults int) ([]Issue, int, error) {
	if maxResults <= 0 {
		maxResults = 50
	}

	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", strconv.Itoa(maxResults))

	data, err := c.doRequest("GET", "/rest/api/2/search?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to parse response: %w", err)
	}

	return resp.Issues, resp.Total, nil
}

// GetIssue returns an issue by key.
func (c *Client) GetIssue(key string) (*Issue, error) {
	data, err := c.doRequest("GET", "/rest/api/2/issue/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}

	var issue Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &issue, nil
}

// CreatedIssue is the response from issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// CreateIssue creates an issue from a fields payload.
func (c *Client) CreateIssue(fields map[string]any) (*CreatedIssue, error) {
	data, err := c.doRequest("POST", "/rest/api/2/issue", map[string]any{
		"fields": fields,
	})
	if err != nil {
		return nil, err
	}

	var created CreatedIssue
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &created, nil
}

// UpdateIssueFields updates issue fields (e.g. timetracking estimates).
func (c *Client) UpdateIssueFields(key string, fields map[string]any) error {
	_, err := c.doRequest("PUT", "/rest/api/2/issue/"+url.PathEscape(key), map[string]any{
		"fields": fields,
	})
	return err
}

// jiraTimestamp is the timestamp layout Jira expects for worklog starts.
const jiraTimestamp = "2006-01-02T15:04:05.000-0700"

// Worklog represents a worklog entry on an issue.
type Worklog struct {
	ID               string `json:"id"`
	Author           *User  `json:"author,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Started          string `json:"started,omitempty"`
	TimeSpent        string `json:"timeSpent"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
}

// AddWorklog records time spent on an issue starting at the given moment.
func (c *Client) AddWorklog(issueKey, timeSpent string, started time.Time, comment string) (*Worklog, error) {
	body := map[string]any{
		"timeSpent": timeSpent,
		"started":   started.Format(jiraTimestamp),
	}
	if comment != "" {
		body["comment"] = comment
	}

	data, err := c.doRequest("POST", "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/worklog", body)
	if err != nil {
		return nil, err
	}

	var worklog Worklog
	if err := json.Unmarshal(data, &worklog); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &worklog, nil
}

// ListWorklogs returns all worklog entries for an issue.
func (c *Client) ListWorklogs(issueKey string) ([]Worklog, error) {
	data, err := c.doRequest("GET", "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/worklog", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Worklogs []Worklog `json:"worklogs"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return resp.Worklogs, nil
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	To   NamedField `json:"to"`
}

// ListTransitions returns the transitions currently available on an issue.
func (c *Client) ListTransitions(issueKey string) ([]Transition, error) {
	data, err := c.doRequest("GET", "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/transitions", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return resp.Transitions, nil
}

// ExecuteTransition moves an issue through the given workflow transition.
func (c *Client) ExecuteTransition(issueKey, transitionID string) error {
	_, err := c.doRequest("POST", "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/transitions", map[string]any{
		"transition": map[string]any{"id": transitionID},
	})
	return err
}

// SearchUsers searches users by email or display name fragment.
func (c *Client) SearchUsers(query string, maxResults int) ([]User, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("maxResults", strconv.Itoa(maxResults))

	data, err := c.doRequest("GET", "/rest/api/2/user/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return users, nil
}
