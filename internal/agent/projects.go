package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcouto/jira-mcp-server/internal/jira"
)

// SearchProjects lists projects matching a free-text term across key, name
// and description, or all projects when the term is empty.
func (a *Agent) SearchProjects(query string) (string, error) {
	projects, err := a.client.ListProjects()
	if err != nil {
		return "", fmt.Errorf("failed to search projects: %w", err)
	}

	term := strings.ToLower(strings.TrimSpace(query))
	var matched []jira.Project
	for _, p := range projects {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Key), term) ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			matched = append(matched, p)
		}
	}

	if len(matched) == 0 {
		if term != "" {
			return fmt.Sprintf("No projects found matching '%s'", query), nil
		}
		return "No projects found", nil
	}

	var b strings.Builder
	if term != "" {
		fmt.Fprintf(&b, "Projects matching '%s' (%d found):\n\n", query, len(matched))
	} else {
		fmt.Fprintf(&b, "All available projects (%d found):\n\n", len(matched))
	}
	for _, p := range matched {
		line := fmt.Sprintf("• %s - %s", p.Key, p.Name)
		if p.ProjectTypeKey != "" {
			line += fmt.Sprintf(" (Type: %s)", p.ProjectTypeKey)
		}
		b.WriteString(line + "\n")
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// GetProjectDetails resolves a project identifier and returns its details.
func (a *Agent) GetProjectDetails(identifier string) (string, error) {
	key, err := a.resolver.ResolveProject(identifier)
	if err != nil {
		return "", err
	}

	project, err := a.client.GetProject(key)
	if err != nil {
		return "", fmt.Errorf("failed to get project details: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (%s)\n", project.Name, project.Key)
	if project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", project.Description)
	}
	if project.ProjectTypeKey != "" {
		fmt.Fprintf(&b, "Type: %s\n", project.ProjectTypeKey)
	}
	if project.Lead != nil {
		fmt.Fprintf(&b, "Lead: %s\n", project.Lead.DisplayName)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// ListIssueTypes returns the issue types available in a project.
func (a *Agent) ListIssueTypes(identifier string) (string, error) {
	key, err := a.resolver.ResolveProject(identifier)
	if err != nil {
		return "", err
	}

	project, err := a.client.GetProject(key)
	if err != nil {
		return "", fmt.Errorf("failed to get issue types: %w", err)
	}

	if len(project.IssueTypes) == 0 {
		return fmt.Sprintf("No issue types found for project '%s'", key), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Issue types for project '%s':\n", key)
	for _, it := range project.IssueTypes {
		if it.Subtask {
			fmt.Fprintf(&b, "• %s (subtask)\n", it.Name)
		} else {
			fmt.Fprintf(&b, "• %s\n", it.Name)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// FindUserByEmail looks up a tracker user by email address.
func (a *Agent) FindUserByEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return "", &jira.ValidationError{Field: "email", Reason: fmt.Sprintf("'%s' is not a valid email address", email)}
	}

	users, err := a.client.SearchUsers(email, 1)
	if err != nil {
		var apiErr *jira.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 403 {
			return "", fmt.Errorf("permission denied: cannot search for users")
		}
		return "", fmt.Errorf("failed to search users: %w", err)
	}

	if len(users) == 0 {
		return "", &jira.NotFoundError{Kind: "user", Query: email}
	}

	return fmt.Sprintf("User found: %s (account ID: %s)", users[0].DisplayName, users[0].AccountID), nil
}
