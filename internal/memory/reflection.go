package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/storage"
)

const reflectionPrompt = `You analyze interactions between a user and their personal assistant.
Goal: extract permanent facts, preferences, habits, and important information about the user.

Rules:
- Extract only factual, durable information (not one-off events)
- Each insight must be one short, clear sentence
- Allowed categories: goal, habit, work, preference, health, relationship, finance
- Do not repeat insights already listed under "Existing insights"
- If an interaction reinforces an existing insight, report that
- Separately, list open commitments the user made to other people or to
  themselves ("I'll send the deck tomorrow") as follow_ups, with a due date
  when one was stated
- Do not repeat commitments already listed under "Open follow-ups"

Return JSON in this format:
{
  "new_insights": [
    {"category": "...", "insight": "...", "source_summary": "..."}
  ],
  "reinforced_insights": [
    {"insight_text": "...", "reason": "..."}
  ],
  "follow_ups": [
    {"commitment": "...", "due_date": "YYYY-MM-DD"}
  ]
}

If there are no new insights, return empty lists.`

// Completer runs a chat completion through the provider chain.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// ReflectionSummary reports what a reflection run did.
type ReflectionSummary struct {
	InteractionsAnalyzed int
	NewInsights          int
	ReinforcedInsights   int
	NewFollowUps         int
}

type reflectionResult struct {
	NewInsights []struct {
		Category      string `json:"category"`
		Insight       string `json:"insight"`
		SourceSummary string `json:"source_summary"`
	} `json:"new_insights"`
	ReinforcedInsights []struct {
		InsightText string `json:"insight_text"`
		Reason      string `json:"reason"`
	} `json:"reinforced_insights"`
	FollowUps []struct {
		Commitment string `json:"commitment"`
		DueDate    string `json:"due_date"`
	} `json:"follow_ups"`
}

// Reflect analyses unprocessed interactions, extracts durable insights via
// the provider chain, and marks the batch processed. Individual insert or
// reinforce failures are logged and skipped; only total failures error out.
func (s *Service) Reflect(ctx context.Context, chain Completer, userID int64) (ReflectionSummary, error) {
	var summary ReflectionSummary

	interactions, err := s.UnprocessedInteractions(userID)
	if err != nil {
		return summary, fmt.Errorf("fetching unprocessed interactions: %w", err)
	}
	if len(interactions) == 0 {
		return summary, nil
	}
	summary.InteractionsAnalyzed = len(interactions)

	existing, err := s.ActiveInsights(userID)
	if err != nil {
		return summary, fmt.Errorf("fetching existing insights: %w", err)
	}

	open, err := s.store.PendingFollowUps(userID, 50)
	if err != nil {
		return summary, fmt.Errorf("fetching open follow-ups: %w", err)
	}

	raw, err := chain.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: reflectionPrompt},
			{Role: llm.RoleUser, Content: buildReflectionInput(existing, open, interactions)},
		},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return summary, fmt.Errorf("reflection completion: %w", err)
	}

	var result reflectionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return summary, fmt.Errorf("parsing reflection output: %w", err)
	}

	for _, ins := range result.NewInsights {
		if err := s.AddInsight(userID, ins.Category, ins.Insight, ins.SourceSummary); err != nil {
			slog.Error("failed to insert insight", "error", err)
			continue
		}
		summary.NewInsights++
	}

	for _, reinf := range result.ReinforcedInsights {
		needle := strings.ToLower(strings.TrimSpace(reinf.InsightText))
		if needle == "" {
			continue
		}
		for _, ex := range existing {
			if strings.Contains(strings.ToLower(ex.Insight), needle) {
				if err := s.Reinforce(ex.ID); err != nil {
					slog.Error("failed to reinforce insight", "id", ex.ID, "error", err)
				} else {
					summary.ReinforcedInsights++
				}
				break
			}
		}
	}

	for _, fu := range result.FollowUps {
		commitment := strings.TrimSpace(fu.Commitment)
		if commitment == "" || hasFollowUp(open, commitment) {
			continue
		}
		var due time.Time
		if fu.DueDate != "" {
			if d, err := time.Parse("2006-01-02", fu.DueDate); err == nil {
				due = d
			}
		}
		if err := s.AddFollowUp(userID, commitment, due); err != nil {
			slog.Error("failed to insert follow-up", "error", err)
			continue
		}
		summary.NewFollowUps++
	}

	ids := make([]string, len(interactions))
	for i, ix := range interactions {
		ids[i] = ix.ID
	}
	if err := s.MarkProcessed(ids); err != nil {
		slog.Error("failed to mark interactions processed", "error", err)
	}

	return summary, nil
}

func hasFollowUp(open []storage.FollowUp, commitment string) bool {
	for _, fu := range open {
		if strings.EqualFold(strings.TrimSpace(fu.Commitment), commitment) {
			return true
		}
	}
	return false
}

func buildReflectionInput(existing []storage.Insight, open []storage.FollowUp, interactions []storage.Interaction) string {
	var sb strings.Builder

	sb.WriteString("Existing insights:\n")
	if len(existing) == 0 {
		sb.WriteString("none yet")
	} else {
		for _, e := range existing {
			fmt.Fprintf(&sb, "- [%s] %s\n", e.Category, e.Insight)
		}
	}

	sb.WriteString("\n\nOpen follow-ups:\n")
	if len(open) == 0 {
		sb.WriteString("none")
	} else {
		for _, fu := range open {
			fmt.Fprintf(&sb, "- %s\n", fu.Commitment)
		}
	}

	sb.WriteString("\n\nNew interactions:\n")
	for i, ix := range interactions {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "User: %s\nBot: %s\nType: %s", ix.UserMessage, ix.BotResponse, ix.ActionType)
	}

	return sb.String()
}
