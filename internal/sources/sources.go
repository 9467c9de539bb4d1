// Package sources implements the named context fetchers the query path can
// draw on: store-backed data (tasks, archive, conversation), external feeds
// (web, news, market), and the calendar/email collaborators.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naborsk/adjutant/internal/aggregate"
	"github.com/naborsk/adjutant/internal/cache"
	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/storage"
)

// Completer runs a chat completion through the provider chain.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Slot is a free calendar window offered for scheduling.
type Slot struct {
	Day   string
	Time  string
	Start time.Time
	End   time.Time
}

// Calendar is the external calendar collaborator. Implementations must be
// safe to call when unauthenticated and report it via Authenticated.
type Calendar interface {
	Authenticated(ctx context.Context) bool
	EventsForDate(ctx context.Context, date string) ([]string, error)
	CreateEvent(ctx context.Context, summary string, start, end time.Time, location, description string) (string, error)
	FindFreeSlots(ctx context.Context, duration time.Duration, daysAhead, maxSlots int) ([]Slot, error)
}

// Email is the external mailbox collaborator.
type Email interface {
	RecentEmails(ctx context.Context, max int) ([]EmailSummary, error)
}

// EmailSummary is one inbox entry.
type EmailSummary struct {
	From    string
	Subject string
	Snippet string
}

// ErrNotConnected is returned by collaborator stubs when no external account
// is configured.
var ErrNotConnected = errors.New("external account not connected")

// UnconfiguredCalendar is the Calendar used when no provider is wired up.
type UnconfiguredCalendar struct{}

func (UnconfiguredCalendar) Authenticated(context.Context) bool { return false }

func (UnconfiguredCalendar) EventsForDate(context.Context, string) ([]string, error) {
	return nil, ErrNotConnected
}

func (UnconfiguredCalendar) CreateEvent(context.Context, string, time.Time, time.Time, string, string) (string, error) {
	return "", ErrNotConnected
}

func (UnconfiguredCalendar) FindFreeSlots(context.Context, time.Duration, int, int) ([]Slot, error) {
	return nil, ErrNotConnected
}

// UnconfiguredEmail is the Email used when no provider is wired up.
type UnconfiguredEmail struct{}

func (UnconfiguredEmail) RecentEmails(context.Context, int) ([]EmailSummary, error) {
	return nil, ErrNotConnected
}

// Registry builds the fetcher list for a query from its requested source
// names.
type Registry struct {
	store    *storage.Store
	memory   *memory.Service
	chain    Completer
	web      *WebSearcher
	news     *NewsFetcher
	market   *MarketFetcher
	calendar Calendar
	email    Email
	loc      *time.Location
	now      func() time.Time
}

// NewRegistry wires the registry. calendar and email may be the Unconfigured
// stubs.
func NewRegistry(store *storage.Store, mem *memory.Service, chain Completer, c *cache.Cache,
	braveKey, watchlist, indices string, calendar Calendar, email Email, loc *time.Location) *Registry {
	return &Registry{
		store:    store,
		memory:   mem,
		chain:    chain,
		web:      NewWebSearcher(braveKey),
		news:     NewNewsFetcher(c),
		market:   NewMarketFetcher(watchlist, indices),
		calendar: calendar,
		email:    email,
		loc:      loc,
		now:      time.Now,
	}
}

// Query describes one context-gathering request.
type Query struct {
	UserID       int64
	Text         string
	Sources      []string
	TargetDate   string // YYYY-MM-DD, empty means today
	ArchiveSince string // "", "today", "week", "month", "year"
}

// Fetchers returns one aggregate.Fetcher per requested source, in request
// order, with unknown names dropped.
func (r *Registry) Fetchers(q Query) []aggregate.Fetcher {
	var fetchers []aggregate.Fetcher
	seen := make(map[string]bool)
	for _, name := range q.Sources {
		if name == "notes" {
			name = "archive"
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "calendar":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchCalendar(q)})
		case "tasks":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchTasks(q)})
		case "archive":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchArchive(q)})
		case "email":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchEmail(q)})
		case "web":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchWeb(q)})
		case "news":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchNews()})
		case "market":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchMarket(q)})
		case "synergy":
			fetchers = append(fetchers, aggregate.Fetcher{Name: name, Fetch: r.fetchSynergy(q)})
		}
	}
	return fetchers
}

// Conversation returns the recent exchange block for continuity.
func (r *Registry) Conversation(userID int64) string {
	exchanges := r.memory.RecentExchanges(userID, 5)
	if len(exchanges) == 0 {
		return ""
	}
	var lines []string
	for _, ex := range exchanges {
		lines = append(lines, "User: "+clip(ex[0], 100))
		lines = append(lines, "You: "+clip(ex[1], 150))
	}
	return strings.Join(lines, "\n")
}

func (r *Registry) fetchCalendar(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		events, err := r.calendar.EventsForDate(ctx, q.TargetDate)
		if err != nil {
			return "", err
		}
		label := q.TargetDate
		if label == "" {
			label = "today"
		}
		if len(events) == 0 {
			return fmt.Sprintf("Events for %s: none.", label), nil
		}
		return fmt.Sprintf("Events for %s:\n%s", label, strings.Join(events, "\n")), nil
	}
}

func (r *Registry) fetchTasks(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		tasks, err := r.store.PendingTasks(q.UserID, 50)
		if err != nil {
			return "", err
		}
		if len(tasks) == 0 {
			return "No open tasks.", nil
		}
		var lines []string
		for _, t := range tasks {
			line := "- " + t.Title
			if !t.DueAt.IsZero() {
				line += " (due " + t.DueAt.In(r.loc).Format("Mon Jan 2 15:04") + ")"
			}
			if t.Effort != "" {
				line += " [" + t.Effort + "]"
			}
			lines = append(lines, line)
		}
		return "Open tasks:\n" + strings.Join(lines, "\n"), nil
	}
}

func (r *Registry) fetchArchive(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		notes, err := r.store.SearchArchive(q.UserID, q.Text, r.sinceTime(q.ArchiveSince), 10)
		if err != nil {
			return "", err
		}
		if len(notes) == 0 {
			return "No matching notes found in archive.", nil
		}
		var lines []string
		for _, n := range notes {
			line := "- " + clip(n.Content, 150)
			if len(n.Tags) > 0 {
				line += " (tags: " + strings.Join(n.Tags, ", ") + ")"
			}
			lines = append(lines, line)
		}
		return "Saved notes:\n" + strings.Join(lines, "\n"), nil
	}
}

func (r *Registry) fetchEmail(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		emails, err := r.email.RecentEmails(ctx, 5)
		if errors.Is(err, ErrNotConnected) {
			return "Email is not connected.", nil
		}
		if err != nil {
			return "", err
		}
		if len(emails) == 0 {
			return "No recent emails.", nil
		}
		var lines []string
		for _, e := range emails {
			lines = append(lines, fmt.Sprintf("- From: %s | Subject: %s\n  %s", e.From, e.Subject, clip(e.Snippet, 100)))
		}
		return "Recent emails:\n" + strings.Join(lines, "\n"), nil
	}
}

func (r *Registry) fetchWeb(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		results, err := r.web.Search(ctx, q.Text, 5)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No search results found.", nil
		}
		return "Search results:\n" + FormatSearchResults(results), nil
	}
}

func (r *Registry) fetchNews() func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		items, err := r.news.Fetch(ctx, 5, 24*time.Hour)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return "No recent AI news found.", nil
		}
		var lines []string
		for _, n := range items {
			line := fmt.Sprintf("- %s (%s)", n.Title, n.Source)
			if n.Summary != "" {
				line += "\n  " + clip(n.Summary, 120)
			}
			lines = append(lines, line)
		}
		return "AI News (live):\n" + strings.Join(lines, "\n"), nil
	}
}

func (r *Registry) fetchMarket(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		snapshot, err := r.market.Fetch(ctx, ExtractTickers(q.Text))
		if err != nil {
			return "", err
		}
		formatted := FormatMarket(snapshot)
		if formatted == "" {
			return "No market data available.", nil
		}
		return "Market Data (live):\n" + formatted, nil
	}
}

func (r *Registry) fetchSynergy(q Query) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		text, err := r.Synergy(ctx, q.UserID, q.Text)
		if err != nil {
			return "", err
		}
		return "Market-AI Synergy:\n" + text, nil
	}
}

// sinceTime maps the classifier's archive window name to a cutoff.
func (r *Registry) sinceTime(since string) time.Time {
	now := r.now().In(r.loc)
	switch since {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, 0, -30)
	case "year":
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
