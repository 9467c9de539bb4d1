package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/tasks"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Store:  store,
		Tasks:  tasks.NewService(store, time.UTC),
		UserID: 7,
	}, store
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func mcpResultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestMCPCreateTask(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpCreateTask(deps)

	res, err := handler(context.Background(), makeCallToolRequest("create_task", map[string]any{
		"title":    "Review the quarterly numbers",
		"priority": 2,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", mcpResultText(t, res))
	}

	pending, err := store.PendingTasks(7, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d (err %v)", len(pending), err)
	}
	if pending[0].Priority != 2 {
		t.Errorf("expected priority 2, got %d", pending[0].Priority)
	}
}

func TestMCPCreateTask_MissingTitle(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCreateTask(deps)

	res, err := handler(context.Background(), makeCallToolRequest("create_task", map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for missing title")
	}
}

func TestMCPPendingTasks(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	for _, title := range []string{"One", "Two"} {
		if _, err := deps.Tasks.Create(7, tasks.CreateInput{Title: title}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	res, err := mcpPendingTasks(deps)(context.Background(), makeCallToolRequest("pending_tasks", map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(mcpResultText(t, res)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(out))
	}
}

func TestMCPSaveNoteAndRecall(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	res, err := mcpSaveNote(deps)(context.Background(), makeCallToolRequest("save_note", map[string]any{
		"content": "The staging database password rotates monthly",
		"tags":    []any{"infra"},
	}))
	if err != nil {
		t.Fatalf("save handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", mcpResultText(t, res))
	}

	res, err = mcpRecall(deps)(context.Background(), makeCallToolRequest("recall", map[string]any{
		"query": "staging password",
	}))
	if err != nil {
		t.Fatalf("recall handler error: %v", err)
	}
	text := mcpResultText(t, res)
	if !strings.Contains(text, "staging database password") {
		t.Errorf("expected recall to find the note, got %s", text)
	}
}

func TestMCPResourceRecent(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	if err := store.SaveInteraction(storage.Interaction{
		ID: "i1", UserID: 7, UserMessage: "hello", BotResponse: "hi", ActionType: "chat",
	}); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	contents, err := mcpResourceRecent(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "adjutant://recent"},
	})
	if err != nil {
		t.Fatalf("resource error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if !strings.Contains(text.Text, "hello") {
		t.Errorf("expected interaction in resource, got %s", text.Text)
	}
}
