package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRun_FailureIsolation verifies that with 3 fetchers where the 2nd
// fails, all 3 results come back and only the 2nd carries its fallback.
func TestRun_FailureIsolation(t *testing.T) {
	fetchers := []Fetcher{
		{Name: "calendar", Fetch: func(ctx context.Context) (string, error) { return "two meetings", nil }},
		{Name: "email", Fetch: func(ctx context.Context) (string, error) { return "", errors.New("imap down") }, Fallback: "email unavailable"},
		{Name: "tasks", Fetch: func(ctx context.Context) (string, error) { return "three open tasks", nil }},
	}

	results := Run(context.Background(), fetchers)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Value != "two meetings" || results[0].Err != nil {
		t.Errorf("result[0] = %+v, want unaffected success", results[0])
	}
	if results[1].Value != "email unavailable" {
		t.Errorf("result[1].Value = %q, want fallback", results[1].Value)
	}
	if results[1].Err == nil {
		t.Error("result[1].Err = nil, want recorded failure")
	}
	if results[2].Value != "three open tasks" || results[2].Err != nil {
		t.Errorf("result[2] = %+v, want unaffected success", results[2])
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	fetchers := []Fetcher{
		{Name: "slow", Fetch: func(ctx context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "slow value", nil
		}},
		{Name: "fast", Fetch: func(ctx context.Context) (string, error) { return "fast value", nil }},
	}

	results := Run(context.Background(), fetchers)

	if results[0].Name != "slow" || results[1].Name != "fast" {
		t.Errorf("order = [%s %s], want input order", results[0].Name, results[1].Name)
	}
}

// TestRun_PanicIsolated verifies a panicking fetch degrades to its fallback
// instead of crashing the aggregator.
func TestRun_PanicIsolated(t *testing.T) {
	fetchers := []Fetcher{
		{Name: "bad", Fetch: func(ctx context.Context) (string, error) { panic("boom") }, Fallback: ""},
		{Name: "good", Fetch: func(ctx context.Context) (string, error) { return "fine", nil }},
	}

	results := Run(context.Background(), fetchers)

	if results[0].Err == nil {
		t.Error("panicking fetch did not record an error")
	}
	if results[1].Value != "fine" {
		t.Errorf("sibling value = %q, want %q", results[1].Value, "fine")
	}
}

func TestRun_Empty(t *testing.T) {
	if got := Run(context.Background(), nil); len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}
