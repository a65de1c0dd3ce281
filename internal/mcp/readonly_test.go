package mcp

import (
	"context"
	"os"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/mcouto/jira-mcp-server/internal/agent"
	"github.com/mcouto/jira-mcp-server/internal/jira"
)

func TestReadOnlyMode(t *testing.T) {
	// Save original env var
	originalValue := os.Getenv("JIRA_MCP_READ_ONLY")
	defer os.Setenv("JIRA_MCP_READ_ONLY", originalValue)

	os.Setenv("JIRA_MCP_READ_ONLY", "true")

	client := jira.NewClient("http://jira.invalid", "user", "token")
	handlers := NewToolHandlers(agent.New(client))

	err := handlers.checkReadOnly()
	if err == nil {
		t.Fatal("expected error in read-only mode, got nil")
	}
	if err.Error() != "server is in read-only mode - write operations are disabled" {
		t.Errorf("unexpected error message: %v", err)
	}

	// Every write tool is blocked before any request leaves the process.
	ctx := context.Background()
	writeHandlers := map[string]func(context.Context, gomcp.CallToolRequest) (*gomcp.CallToolResult, error){
		"issues_create":          handlers.handleIssuesCreate,
		"issues_createBatch":     handlers.handleIssuesCreateBatch,
		"issues_updateStatus":    handlers.handleIssuesUpdateStatus,
		"issues_updateEstimates": handlers.handleIssuesUpdateEstimates,
		"worklog_add":            handlers.handleWorklogAdd,
		"worklog_addBatch":       handlers.handleWorklogAddBatch,
	}

	req := gomcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"project":    "demo",
		"issue":      "DEMO-1",
		"summary":    "test issue",
		"status":     "Done",
		"time_spent": "1h",
		"items":      []any{},
	}

	for name, handler := range writeHandlers {
		result, err := handler(ctx, req)
		if err != nil {
			t.Fatalf("%s: handler should not return error: %v", name, err)
		}
		if !result.IsError {
			t.Fatalf("%s: expected error result in read-only mode", name)
		}
		errorText := ""
		for _, content := range result.Content {
			if textContent, ok := content.(gomcp.TextContent); ok {
				errorText = textContent.Text
				break
			}
		}
		if errorText != "server is in read-only mode - write operations are disabled" {
			t.Errorf("%s: unexpected error text: %s", name, errorText)
		}
	}

	// Disable read-only mode
	os.Setenv("JIRA_MCP_READ_ONLY", "false")
	handlers = NewToolHandlers(agent.New(client))

	if err := handlers.checkReadOnly(); err != nil {
		t.Fatalf("expected no error when read-only mode is disabled, got: %v", err)
	}
}
