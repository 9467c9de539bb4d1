// Package memory manages conversational memory: the interaction log and the
// permanent insights distilled from it.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naborsk/adjutant/internal/storage"
)

const maxInsights = 8

// categoryMap narrows insight retrieval by action type. A nil entry means
// all categories.
var categoryMap = map[string][]string{
	"task":     {"goal", "habit", "work", "preference"},
	"calendar": {"relationship", "work", "health", "preference"},
	"note":     {"preference", "work", "goal"},
	"query":    nil,
}

// Service reads and writes conversational memory.
type Service struct {
	store *storage.Store
	newID func() string
}

// NewService creates a memory service over the store.
func NewService(store *storage.Store) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

// LogInteraction appends one exchange to the interaction log. Errors are
// logged and swallowed, the user's response never blocks on this write.
func (s *Service) LogInteraction(i storage.Interaction) {
	if i.ID == "" {
		i.ID = s.newID()
	}
	if err := s.store.SaveInteraction(i); err != nil {
		slog.Error("failed to log interaction", "error", err)
	}
}

// RelevantInsights returns active insights formatted for prompt injection:
// a category-filtered tier plus a keyword tier over the query text,
// deduplicated and capped. Empty string on no data or any failure.
func (s *Service) RelevantInsights(ctx context.Context, userID int64, actionType, queryText string) string {
	var results []storage.Insight

	categories, known := categoryMap[actionType]
	if !known {
		categories = nil
	}
	byCategory, err := s.store.ActiveInsights(userID, categories, maxInsights)
	if err != nil {
		slog.Warn("insight category lookup failed", "error", err)
	} else {
		results = append(results, byCategory...)
	}

	if len(strings.TrimSpace(queryText)) > 2 {
		byKeyword, err := s.store.SearchInsights(userID, queryText, maxInsights)
		if err != nil {
			slog.Warn("insight keyword search failed, skipping", "error", err)
		} else {
			results = append(results, byKeyword...)
		}
	}

	if len(results) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	var lines []string
	for _, r := range results {
		if seen[r.Insight] {
			continue
		}
		seen[r.Insight] = true
		lines = append(lines, "- ["+r.Category+"] "+r.Insight)
		if len(lines) == maxInsights {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// RecentExchanges returns the last n exchanges oldest-first, for prompt
// context.
func (s *Service) RecentExchanges(userID int64, n int) [][2]string {
	recent, err := s.store.RecentInteractions(userID, n)
	if err != nil {
		slog.Warn("failed to fetch recent interactions", "error", err)
		return nil
	}
	exchanges := make([][2]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		exchanges = append(exchanges, [2]string{recent[i].UserMessage, recent[i].BotResponse})
	}
	return exchanges
}

// unprocessedBatch bounds how many interactions one reflection run reads.
const unprocessedBatch = 50

// UnprocessedInteractions returns interactions not yet analysed by
// reflection, along with a helper to mark them processed.
func (s *Service) UnprocessedInteractions(userID int64) ([]storage.Interaction, error) {
	return s.store.UnprocessedInteractions(userID, unprocessedBatch)
}

// MarkProcessed flags interactions as analysed.
func (s *Service) MarkProcessed(ids []string) error {
	return s.store.MarkReflectionProcessed(ids)
}

// AddInsight stores a newly extracted insight.
func (s *Service) AddInsight(userID int64, category, insight, sourceSummary string) error {
	return s.store.InsertInsight(storage.Insight{
		ID:            s.newID(),
		UserID:        userID,
		Category:      category,
		Insight:       insight,
		SourceSummary: sourceSummary,
		CreatedAt:     time.Time{},
	})
}

// AddFollowUp records an open commitment. due may be zero.
func (s *Service) AddFollowUp(userID int64, commitment string, due time.Time) error {
	_, err := s.store.CreateFollowUp(storage.FollowUp{
		ID:         s.newID(),
		UserID:     userID,
		Commitment: commitment,
		DueAt:      due,
	})
	return err
}

// ActiveInsights lists all active insights for reflection dedup.
func (s *Service) ActiveInsights(userID int64) ([]storage.Insight, error) {
	return s.store.ActiveInsights(userID, nil, 200)
}

// Reinforce bumps an existing insight's confidence.
func (s *Service) Reinforce(id string) error {
	return s.store.ReinforceInsight(id)
}
