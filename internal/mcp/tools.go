package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcouto/jira-mcp-server/internal/agent"
)

// ToolHandlers contains all MCP tool handlers
type ToolHandlers struct {
	agent    *agent.Agent
	readOnly bool
}

// NewToolHandlers creates new tool handlers
func NewToolHandlers(a *agent.Agent) *ToolHandlers {
	readOnly := os.Getenv("JIRA_MCP_READ_ONLY") == "true"
	if readOnly {
		slog.Info("read-only mode enabled - all write operations will be blocked")
	}
	return &ToolHandlers{
		agent:    a,
		readOnly: readOnly,
	}
}

// checkReadOnly returns an error if the server is in read-only mode.
func (h *ToolHandlers) checkReadOnly() error {
	if h.readOnly {
		return fmt.Errorf("server is in read-only mode - write operations are disabled")
	}
	return nil
}

// RegisterTools registers all MCP tools on the server
func (h *ToolHandlers) RegisterTools(s McpServer) {
	// Account
	s.AddTool(mcp.NewTool("me",
		mcp.WithDescription("Get current user information"),
	), h.handleMe)

	// Projects
	s.AddTool(mcp.NewTool("projects_search",
		mcp.WithDescription("Search projects by key, name or description"),
		mcp.WithString("query",
			mcp.Description("Search term; omit to list all projects"),
		),
	), h.handleProjectsSearch)

	s.AddTool(mcp.NewTool("projects_get",
		mcp.WithDescription("Get details of a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name, exact or partial"),
		),
	), h.handleProjectsGet)

	s.AddTool(mcp.NewTool("issuetypes_list",
		mcp.WithDescription("List the issue types available in a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
	), h.handleIssueTypesList)

	// Issues
	s.AddTool(mcp.NewTool("issues_list",
		mcp.WithDescription("List issues in a project, optionally filtered by status"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("status",
			mcp.Description("Only issues in this status (e.g. 'In Progress')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of issues to return (default: 50)"),
		),
	), h.handleIssuesList)

	s.AddTool(mcp.NewTool("issues_search",
		mcp.WithDescription("Search issues in a project by title"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Fragment of the issue title to search for"),
		),
	), h.handleIssuesSearch)

	s.AddTool(mcp.NewTool("issues_get",
		mcp.WithDescription("Get details of an issue"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue key (e.g. DEMO-123) or title fragment"),
		),
	), h.handleIssuesGet)

	s.AddTool(mcp.NewTool("issues_create",
		mcp.WithDescription("Create an issue, optionally logging initial work on it"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Issue title (at least 3 characters)"),
		),
		mcp.WithString("description",
			mcp.Description("Issue description"),
		),
		mcp.WithString("issue_type",
			mcp.Description("Issue type name (default: Task)"),
		),
		mcp.WithString("original_estimate",
			mcp.Description("Original estimate, e.g. '2h 30m', '1d'"),
		),
		mcp.WithString("remaining_estimate",
			mcp.Description("Remaining estimate, e.g. '4h'"),
		),
		mcp.WithString("assignee_email",
			mcp.Description("Email of the user to assign the issue to"),
		),
		mcp.WithString("time_spent",
			mcp.Description("Initial work to log after creation, e.g. '3h'"),
		),
		mcp.WithString("work_date",
			mcp.Description("Date of the initial work: 'yesterday', 'ontem', '15/03/2024'... (default: today)"),
		),
		mcp.WithString("work_description",
			mcp.Description("Comment for the initial worklog"),
		),
	), h.handleIssuesCreate)

	s.AddTool(mcp.NewTool("issues_createBatch",
		mcp.WithDescription("Create up to 50 issues in one project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("Issues to create; each item has summary and optionally description, issue_type, original_estimate, remaining_estimate, assignee_email, time_spent, work_date, work_description"),
		),
	), h.handleIssuesCreateBatch)

	s.AddTool(mcp.NewTool("issues_updateStatus",
		mcp.WithDescription("Move an issue to another status"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue key or title fragment"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Target status name, e.g. 'In Progress', 'Done'"),
		),
	), h.handleIssuesUpdateStatus)

	s.AddTool(mcp.NewTool("issues_updateEstimates",
		mcp.WithDescription("Update the original and/or remaining estimate of an issue"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue key or title fragment"),
		),
		mcp.WithString("original_estimate",
			mcp.Description("New original estimate, e.g. '1d 4h'"),
		),
		mcp.WithString("remaining_estimate",
			mcp.Description("New remaining estimate, e.g. '6h'"),
		),
	), h.handleIssuesUpdateEstimates)

	// Users
	s.AddTool(mcp.NewTool("users_findByEmail",
		mcp.WithDescription("Find a user by email address"),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email address of the user"),
		),
	), h.handleUsersFindByEmail)

	// Worklogs
	s.AddTool(mcp.NewTool("worklog_add",
		mcp.WithDescription("Log time spent on an issue"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue key or title fragment"),
		),
		mcp.WithString("time_spent",
			mcp.Required(),
			mcp.Description("Time spent, e.g. '2h 30m', '1d'"),
		),
		mcp.WithString("work_date",
			mcp.Description("When the work happened: 'yesterday', 'ontem', 'last friday', '15/03/2024'... (default: today)"),
		),
		mcp.WithString("description",
			mcp.Description("Worklog comment"),
		),
	), h.handleWorklogAdd)

	s.AddTool(mcp.NewTool("worklog_addBatch",
		mcp.WithDescription("Log time on up to 50 issues of one project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("Worklogs to record; each item has issue, time_spent and optionally work_date, description"),
		),
	), h.handleWorklogAddBatch)

	s.AddTool(mcp.NewTool("worklogs_export",
		mcp.WithDescription("Export a project's worklogs within a date range as a timesheet"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project key or name"),
		),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Start date (inclusive), e.g. '2024-03-01' or '01/03/2024'"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("End date (inclusive)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'csv' (default) or 'xlsx' (base64)"),
			mcp.Enum("csv", "xlsx"),
		),
	), h.handleWorklogsExport)
}

// McpServer interface for registering tools
type McpServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// Handler implementations

func (h *ToolHandlers) handleMe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(h.agent.Me())
}

func (h *ToolHandlers) handleProjectsSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	return textResult(h.agent.SearchProjects(query))
}

func (h *ToolHandlers) handleProjectsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(h.agent.GetProjectDetails(project))
}

func (h *ToolHandlers) handleIssueTypesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(h.agent.ListIssueTypes(project))
}

func (h *ToolHandlers) handleIssuesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := req.GetString("status", "")
	limit := req.GetInt("limit", 50)
	return textResult(h.agent.ListProjectIssues(project, status, limit))
}

func (h *ToolHandlers) handleIssuesSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(h.agent.SearchIssuesBySummary(project, title))
}

func (h *ToolHandlers) handleIssuesGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err := req.RequireString("issue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(h.agent.GetIssueDetails(project, issue))
}

func (h *ToolHandlers) handleIssuesCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := req.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return textResult(h.agent.CreateIssue(agent.CreateIssueInput{
		Project:           project,
		Summary:           summary,
		Description:       req.GetString("description", ""),
		IssueType:         req.GetString("issue_type", ""),
		OriginalEstimate:  req.GetString("original_estimate", ""),
		RemainingEstimate: req.GetString("remaining_estimate", ""),
		AssigneeEmail:     req.GetString("assignee_email", ""),
		TimeSpent:         req.GetString("time_spent", ""),
		WorkDate:          req.GetString("work_date", ""),
		WorkDescription:   req.GetString("work_description", ""),
	}))
}

func (h *ToolHandlers) handleIssuesCreateBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rawItems, err := getListArg(req, "items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items := make([]agent.IssueItem, len(rawItems))
	for i, raw := range rawItems {
		items[i] = agent.IssueItem{
			Summary:           getString(raw, "summary"),
			Description:       getString(raw, "description"),
			IssueType:         getString(raw, "issue_type"),
			OriginalEstimate:  getString(raw, "original_estimate"),
			RemainingEstimate: getString(raw, "remaining_estimate"),
			AssigneeEmail:     getString(raw, "assignee_email"),
			TimeSpent:         getString(raw, "time_spent"),
			WorkDate:          getString(raw, "work_date"),
			WorkDescription:   getString(raw, "work_description"),
		}
	}

	return textResult(h.agent.BatchCreateIssues(project, items))
}

func (h *ToolHandlers) handleIssuesUpdateStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err := req.RequireString("issue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return textResult(h.agent.UpdateStatus(project, issue, status))
}

func (h *ToolHandlers) handleIssuesUpdateEstimates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err := req.RequireString("issue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return textResult(h.agent.UpdateEstimates(project, issue,
		req.GetString("original_estimate", ""),
		req.GetString("remaining_estimate", ""),
	))
}

func (h *ToolHandlers) handleUsersFindByEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(h.agent.FindUserByEmail(email))
}

func (h *ToolHandlers) handleWorklogAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err := req.RequireString("issue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeSpent, err := req.RequireString("time_spent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return textResult(h.agent.LogWork(project, issue, timeSpent,
		req.GetString("work_date", ""),
		req.GetString("description", ""),
	))
}

func (h *ToolHandlers) handleWorklogAddBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rawItems, err := getListArg(req, "items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items := make([]agent.WorklogItem, len(rawItems))
	for i, raw := range rawItems {
		items[i] = agent.WorklogItem{
			Issue:       getString(raw, "issue"),
			TimeSpent:   getString(raw, "time_spent"),
			WorkDate:    getString(raw, "work_date"),
			Description: getString(raw, "description"),
		}
	}

	return textResult(h.agent.BatchLogWork(project, items))
}

func (h *ToolHandlers) handleWorklogsExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return textResult(h.agent.ExportWorklogs(project, from, to, req.GetString("format", "csv")))
}

// textResult maps an agent call to a tool result: expected failures become
// error results, never protocol errors.
func textResult(text string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// getListArg extracts an array-of-objects argument.
func getListArg(req mcp.CallToolRequest, key string) ([]map[string]any, error) {
	args := req.GetArguments()
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing required argument: %s", key)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %s must be an array of objects", key)
	}
	items := make([]map[string]any, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("argument %s must be an array of objects", key)
		}
		items[i] = m
	}
	return items, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
