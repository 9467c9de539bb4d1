package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/tasks"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  *storage.Store
	Tasks  *tasks.Service
	UserID int64
}

// NewMCPServer creates an MCP server exposing the assistant's task and
// archive operations to external agents.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"adjutant",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("adjutant — personal assistant task list, note archive, and recall."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("create_task",
			mcp.WithDescription("Create a task on the user's list."),
			mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
			mcp.WithString("due_date", mcp.Description("Due date: today, tomorrow, YYYY-MM-DD, or YYYY-MM-DD HH:MM:SS")),
			mcp.WithNumber("priority", mcp.Description("Priority 0 (low) to 3 (urgent)")),
			mcp.WithString("effort", mcp.Description("Estimated effort: 15m, 30m, 1h, 2h, or 4h")),
			mcp.WithString("recurrence", mcp.Description("Recurrence: daily, weekly, or monthly")),
		),
		mcpCreateTask(deps),
	)

	s.AddTool(
		mcp.NewTool("pending_tasks",
			mcp.WithDescription("List the user's open tasks, highest priority first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 20)")),
		),
		mcpPendingTasks(deps),
	)

	s.AddTool(
		mcp.NewTool("save_note",
			mcp.WithDescription("Save a note to the user's archive."),
			mcp.WithString("content", mcp.Description("The note text"), mcp.Required()),
			mcp.WithArray("tags", mcp.Description("Optional tags for categorization")),
		),
		mcpSaveNote(deps),
	)

	s.AddTool(
		mcp.NewTool("recall",
			mcp.WithDescription("Search the user's note archive by keyword."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpRecall(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"adjutant://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 message exchanges (truncated)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpCreateTask(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}

		task, err := deps.Tasks.Create(deps.UserID, tasks.CreateInput{
			Title:      title,
			DueDate:    req.GetString("due_date", ""),
			Priority:   req.GetInt("priority", 0),
			Effort:     req.GetString("effort", ""),
			Recurrence: req.GetString("recurrence", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create task: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Created task %s: %s", task.ID, task.Title)), nil
	}
}

func mcpPendingTasks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		list, err := deps.Tasks.Pending(deps.UserID, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list tasks: %v", err)), nil
		}

		type taskResult struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			DueAt    string `json:"due_at,omitempty"`
			Priority int    `json:"priority"`
			Effort   string `json:"effort,omitempty"`
		}
		results := make([]taskResult, len(list))
		for i, t := range list {
			results[i] = taskResult{ID: t.ID, Title: t.Title, Priority: t.Priority, Effort: t.Effort}
			if !t.DueAt.IsZero() {
				results[i].DueAt = t.DueAt.Format(time.RFC3339)
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSaveNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		tags := req.GetStringSlice("tags", nil)

		note := storage.Note{
			ID:      uuid.NewString(),
			UserID:  deps.UserID,
			Content: content,
			Tags:    tags,
		}
		if err := deps.Store.SaveNote(note); err != nil {
			return mcpError(fmt.Sprintf("failed to save note: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Saved note %s", note.ID)), nil
	}
}

func mcpRecall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		notes, err := deps.Store.SearchArchive(deps.UserID, query, time.Time{}, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("recall failed: %v", err)), nil
		}
		if len(notes) == 0 {
			return mcpText("[]"), nil
		}

		type noteResult struct {
			ID        string   `json:"id"`
			Content   string   `json:"content"`
			Tags      []string `json:"tags,omitempty"`
			CreatedAt string   `json:"created_at"`
		}
		results := make([]noteResult, len(notes))
		for i, n := range notes {
			results[i] = noteResult{
				ID:        n.ID,
				Content:   n.Content,
				Tags:      n.Tags,
				CreatedAt: n.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.RecentInteractions(deps.UserID, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Message   string `json:"message"`
			Response  string `json:"response"`
		}
		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Message:   truncate(ix.UserMessage, 200),
				Response:  truncate(ix.BotResponse, 200),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
