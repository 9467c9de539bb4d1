package sources

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/naborsk/adjutant/internal/cache"
	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/storage"
)

// briefingCompleter captures the request so tests can inspect the prompt.
type briefingCompleter struct {
	response string
	err      error
	last     llm.Request
}

func (c *briefingCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.last = req
	return c.response, c.err
}

// newBriefingRegistry wires a registry whose fetchers make no network calls:
// the news fetcher has no feeds, the market fetcher has no symbols, and
// calendar and email are the unconfigured stubs.
func newBriefingRegistry(t *testing.T, chain Completer, at time.Time) (*Registry, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	news := NewNewsFetcher(cache.New())
	news.feeds = nil

	return &Registry{
		store:    store,
		memory:   memory.NewService(store),
		chain:    chain,
		news:     news,
		market:   NewMarketFetcher("", ""),
		calendar: UnconfiguredCalendar{},
		email:    UnconfiguredEmail{},
		loc:      time.UTC,
		now:      func() time.Time { return at },
	}, store
}

func TestMorningBriefing(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC) // a Monday
	chain := &briefingCompleter{response: "Good morning! One thing on the plate today."}
	r, store := newBriefingRegistry(t, chain, now)

	if _, err := store.CreateTask(storage.Task{
		ID: "task-1", UserID: 42, Title: "Ship the release",
		DueAt: now.Add(6 * time.Hour),
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := store.CreateFollowUp(storage.FollowUp{
		ID: "fu-1", UserID: 42, Commitment: "send the deck to Dana",
		DueAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("create follow-up: %v", err)
	}

	got, err := r.MorningBriefing(context.Background(), 42)
	if err != nil {
		t.Fatalf("MorningBriefing: %v", err)
	}
	if got != chain.response {
		t.Errorf("expected the chain response, got %q", got)
	}

	user := chain.last.Messages[len(chain.last.Messages)-1].Content
	for _, want := range []string{
		"✅ Open Tasks", "Ship the release",
		"🔄 Open Follow-ups", "send the deck to Dana", "(due: 2026-03-05)",
		"🤖 AI News:\nNo new AI news.",
		"📊 Market:\nNo market data.",
		"📅 Today's Events:\nNo events today.",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("briefing context missing %q:\n%s", want, user)
		}
	}

	system := chain.last.Messages[0].Content
	if !strings.Contains(system, "Today is Monday.") {
		t.Errorf("system prompt missing day profile:\n%s", system)
	}
	if !strings.Contains(system, "🔄 Follow-ups") {
		t.Errorf("system prompt missing follow-ups section:\n%s", system)
	}
	if chain.last.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", chain.last.Temperature)
	}
}

func TestMorningBriefing_OverdueAlert(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	chain := &briefingCompleter{response: "Morning."}
	r, store := newBriefingRegistry(t, chain, now)

	if _, err := store.CreateTask(storage.Task{
		ID: "task-late", UserID: 42, Title: "File the report",
		DueAt: now.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := r.MorningBriefing(context.Background(), 42); err != nil {
		t.Fatalf("MorningBriefing: %v", err)
	}

	system := chain.last.Messages[0].Content
	if !strings.Contains(system, "Overdue alert") || !strings.Contains(system, "File the report") {
		t.Errorf("system prompt missing overdue alert:\n%s", system)
	}
}

func TestMorningBriefing_ChainFailureFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	chain := &briefingCompleter{err: errors.New("all providers down")}
	r, store := newBriefingRegistry(t, chain, now)

	if _, err := store.CreateTask(storage.Task{
		ID: "task-1", UserID: 42, Title: "Ship the release",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := r.MorningBriefing(context.Background(), 42)
	if err != nil {
		t.Fatalf("MorningBriefing: %v", err)
	}
	if !strings.HasPrefix(got, "Morning briefing") {
		t.Errorf("expected the raw fallback, got %q", got)
	}
	if !strings.Contains(got, "Ship the release") {
		t.Errorf("fallback missing task title: %q", got)
	}
}
