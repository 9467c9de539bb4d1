package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Task statuses.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
	TaskCancelled = "cancelled"
)

// Recurrence intervals.
const (
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// Interaction is one request/response exchange, append-only. Rows double as
// the webhook deduplication ledger via TelegramUpdateID.
type Interaction struct {
	ID                  string
	UserID              int64
	UserMessage         string
	BotResponse         string
	ActionType          string
	IntentSummary       string
	TelegramUpdateID    int64 // 0 means not delivered via webhook
	ReflectionProcessed bool
	CreatedAt           time.Time
}

// Confirmation is a pending user-assent exchange. At most one exists per user.
type Confirmation struct {
	UserID     int64
	ActionName string
	ActionData map[string]any
	CreatedAt  time.Time
}

type Task struct {
	ID         string
	UserID     int64
	Title      string
	DueAt      time.Time // zero means no due date
	Priority   int       // 0=low 1=medium 2=high 3=urgent
	Status     string
	Recurrence string // "", "daily", "weekly", "monthly"
	Effort     string // "15m", "30m", "1h", "2h", "4h"
	Category   string
	CreatedAt  time.Time
}

// TaskUpdate carries the mutable task fields for Edit. Nil pointers leave the
// field untouched.
type TaskUpdate struct {
	Title    *string
	DueAt    *time.Time
	Priority *int
}

// Note is a saved piece of knowledge in the archive.
type Note struct {
	ID        string
	UserID    int64
	Content   string
	Tags      []string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Insight is a durable fact about the user extracted by reflection.
// FollowUp is an open commitment surfaced from past conversations, reminded
// in the morning briefing until resolved.
type FollowUp struct {
	ID         string
	UserID     int64
	Commitment string
	DueAt      time.Time // zero means no due date
	Status     string
	CreatedAt  time.Time
}

// Follow-up statuses.
const (
	FollowUpPending = "pending"
	FollowUpDone    = "done"
)

type Insight struct {
	ID               string
	UserID           int64
	Category         string
	Insight          string
	SourceSummary    string
	Confidence       float64
	TimesReinforced  int
	IsActive         bool
	CreatedAt        time.Time
	LastReinforcedAt time.Time
}
