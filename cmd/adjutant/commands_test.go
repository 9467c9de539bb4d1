package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func swapAPIClient(t *testing.T, ts *testServer) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

func TestAPIClient_SendsBearerToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /tasks": `[]`,
	})

	resp, err := ts.client().get(ctx, "/tasks?limit=10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var out []any
	if err := decodeJSON(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(ts.requests))
	}
	if got := ts.requests[0].Auth; got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
	if got := ts.requests[0].Path; got != "/tasks?limit=10" {
		t.Errorf("path = %q, want %q", got, "/tasks?limit=10")
	}
}

func TestDecodeJSON_ErrorStatus(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var out any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention status code: %v", err)
	}
}

func TestTasksCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /tasks": `[{"id":"11111111-aaaa","title":"Write report","priority":2,"effort":"1h"}]`,
	})
	swapAPIClient(t, ts)

	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs([]string{"tasks"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("tasks command: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(ts.requests))
	}
	if !strings.HasPrefix(ts.requests[0].Path, "/tasks?limit=") {
		t.Errorf("path = %q, want /tasks?limit=...", ts.requests[0].Path)
	}
}

func TestInteractionsCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /interactions": `[{"id":"22222222-bbbb","user_message":"buy milk","action_type":"task","created_at":"2025-06-01T10:00:00Z"}]`,
	})
	swapAPIClient(t, ts)

	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs([]string{"interactions", "--limit", "5"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("interactions command: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(ts.requests))
	}
	if ts.requests[0].Path != "/interactions?limit=5" {
		t.Errorf("path = %q, want /interactions?limit=5", ts.requests[0].Path)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "hello"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "hello"); !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}
