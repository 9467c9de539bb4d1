package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/storage"
)

const (
	classifyTimeout = 10 * time.Second

	recentExchanges = 3
	contextTasks    = 10
)

// Completer runs a chat completion through the provider chain.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// ContextStore supplies the conversational context the classifier sees.
type ContextStore interface {
	RecentInteractions(userID int64, limit int) ([]storage.Interaction, error)
	PendingTasks(userID int64, limit int) ([]storage.Task, error)
}

// Router classifies user messages into structured intents.
type Router struct {
	chain Completer
	store ContextStore
	now   func() time.Time
}

// NewRouter creates a Router backed by the given provider chain and store.
func NewRouter(chain Completer, store ContextStore) *Router {
	return &Router{chain: chain, store: store, now: time.Now}
}

// Classify analyses the message and returns a structured Intent. On any
// failure (timeout, provider exhaustion, malformed JSON) it returns the
// low-confidence query fallback so a classification failure never blocks
// the message.
func (r *Router) Classify(ctx context.Context, userID int64, text string) Intent {
	if text == "" {
		return Fallback(text)
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	messages := BuildPrompt(text, r.now(), r.recentContext(userID))

	raw, err := r.chain.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		slog.Warn("intent classification failed", "error", err)
		return Fallback(text)
	}

	var result Intent
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("failed to unmarshal intent from LLM response", "error", err, "response", raw)
		return Fallback(text)
	}
	if !validAction(result.Classification.ActionType) {
		slog.Warn("classifier returned unknown action type", "action_type", result.Classification.ActionType)
		return Fallback(text)
	}
	return result
}

// recentContext fetches the last exchanges and open tasks. Both reads are
// best-effort; a store error degrades to less context, not a failed turn.
func (r *Router) recentContext(userID int64) string {
	var exchanges [][2]string
	recent, err := r.store.RecentInteractions(userID, recentExchanges)
	if err != nil {
		slog.Warn("failed to fetch recent conversation for router", "error", err)
	} else {
		// Oldest first so the prompt reads chronologically.
		for i := len(recent) - 1; i >= 0; i-- {
			exchanges = append(exchanges, [2]string{recent[i].UserMessage, recent[i].BotResponse})
		}
	}

	var titles []string
	tasks, err := r.store.PendingTasks(userID, contextTasks)
	if err != nil {
		slog.Warn("failed to fetch tasks for router", "error", err)
	} else {
		for _, t := range tasks {
			titles = append(titles, t.Title)
		}
	}

	return FormatConversation(exchanges, titles)
}

func validAction(actionType string) bool {
	switch actionType {
	case ActionTask, ActionCalendar, ActionNote, ActionQuery, ActionChat:
		return true
	}
	return false
}
