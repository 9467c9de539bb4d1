// Package pipeline wraps message processing in its delivery envelope: the
// webhook dedup gate, the status placeholder, one overall deadline, and
// fixed replies for timeout and failure. The envelope never lets a panic or
// error reach the transport.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	processTimeout = 55 * time.Second

	timeoutReply = "This took too long. Please try again."
	failureReply = "Something went wrong. Please try again."
)

// Update is one incoming message, already reduced to the fields the
// pipeline needs.
type Update struct {
	UpdateID int64
	ChatID   int64
	UserID   int64
	Text     string
}

// Transport is the chat surface the pipeline answers on.
type Transport interface {
	Send(chatID int64, text string) (int, error)
	Edit(chatID int64, messageID int, text string)
	Typing(chatID int64)
}

// Processor handles a deduplicated message and edits the status message
// with its reply.
type Processor interface {
	Process(ctx context.Context, userID, updateID int64, text string, edit func(string))
}

// Pipeline owns the per-update envelope.
type Pipeline struct {
	store     DedupStore
	transport Transport
	processor Processor
	userID    int64 // the single allowed user

	timeout time.Duration
}

func New(store DedupStore, transport Transport, processor Processor, userID int64) *Pipeline {
	return &Pipeline{
		store:     store,
		transport: transport,
		processor: processor,
		userID:    userID,
		timeout:   processTimeout,
	}
}

// HandleUpdate processes one update end to end. It never returns an error
// and never panics; every outcome ends with at most one status edit.
func (p *Pipeline) HandleUpdate(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("update handling panicked", "panic", r, "update_id", upd.UpdateID)
		}
	}()

	if upd.ChatID == 0 || upd.Text == "" {
		return
	}
	if upd.UserID != p.userID {
		slog.Warn("message from unauthorized user", "user_id", upd.UserID)
		return
	}

	p.transport.Typing(upd.ChatID)
	statusID, err := p.transport.Send(upd.ChatID, "⏳")
	if err != nil {
		slog.Error("failed to send status message", "error", err)
		return
	}

	if p.isDuplicate(upd.UpdateID) {
		slog.Info("duplicate update, skipping", "update_id", upd.UpdateID)
		return
	}

	// At most one terminal edit, whoever gets there first.
	var edited atomic.Bool
	edit := func(text string) {
		if edited.CompareAndSwap(false, true) {
			p.transport.Edit(upd.ChatID, statusID, text)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("processing panicked", "panic", r, "update_id", upd.UpdateID)
				edit(failureReply)
			}
		}()
		p.processor.Process(ctx, upd.UserID, upd.UpdateID, upd.Text, edit)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Error("processing deadline exceeded", "update_id", upd.UpdateID)
		edit(timeoutReply)
	}
}
