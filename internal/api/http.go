// Package api is the HTTP surface: the Telegram webhook, health probes,
// bearer-authenticated read endpoints, and the MCP tool server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naborsk/adjutant/internal/pipeline"
	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/telegram"
)

const maxWebhookBodySize = 1 << 20 // 1MB

// UpdateHandler runs the processing pipeline for one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd pipeline.Update)
}

type AppDeps struct {
	Store    *storage.Store
	Pipeline UpdateHandler
	Token    string // bearer token for the read endpoints
	UserID   int64
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Post("/webhook", handleWebhook(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/tasks", handleListTasks(deps))
		r.Get("/notes", handleListNotes(deps))
		r.Get("/interactions", handleListInteractions(deps))
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"service": "adjutant", "status": "running"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWebhook acks Telegram immediately and processes the update in a
// detached goroutine with its own context, so a slow turn never stalls
// webhook delivery.
func handleWebhook(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unreadable body: %v", err)
			return
		}

		if upd, ok := telegram.ParseUpdate(body); ok {
			go deps.Pipeline.HandleUpdate(context.Background(), upd)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

func handleListTasks(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 50)
		list, err := deps.Store.PendingTasks(deps.UserID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list tasks: %v", err)
			return
		}

		type taskOut struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			DueAt    string `json:"due_at,omitempty"`
			Priority int    `json:"priority"`
			Effort   string `json:"effort,omitempty"`
			Category string `json:"category,omitempty"`
		}
		out := make([]taskOut, len(list))
		for i, t := range list {
			out[i] = taskOut{ID: t.ID, Title: t.Title, Priority: t.Priority, Effort: t.Effort, Category: t.Category}
			if !t.DueAt.IsZero() {
				out[i].DueAt = t.DueAt.Format(time.RFC3339)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleListNotes(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 20)
		notes, err := deps.Store.RecentNotes(deps.UserID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notes: %v", err)
			return
		}

		type noteOut struct {
			ID        string   `json:"id"`
			Content   string   `json:"content"`
			Tags      []string `json:"tags,omitempty"`
			CreatedAt string   `json:"created_at"`
		}
		out := make([]noteOut, len(notes))
		for i, n := range notes {
			out[i] = noteOut{ID: n.ID, Content: n.Content, Tags: n.Tags, CreatedAt: n.CreatedAt.Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 20)
		list, err := deps.Store.RecentInteractions(deps.UserID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		type interactionOut struct {
			ID          string `json:"id"`
			UserMessage string `json:"user_message"`
			BotResponse string `json:"bot_response"`
			ActionType  string `json:"action_type"`
			CreatedAt   string `json:"created_at"`
		}
		out := make([]interactionOut, len(list))
		for i, ix := range list {
			out[i] = interactionOut{
				ID:          ix.ID,
				UserMessage: ix.UserMessage,
				BotResponse: ix.BotResponse,
				ActionType:  ix.ActionType,
				CreatedAt:   ix.CreatedAt.Format(time.RFC3339),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func queryLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			return n
		}
	}
	return def
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
