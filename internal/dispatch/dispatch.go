// Package dispatch routes classified messages to their handlers: the
// confirmation flow, URL capture, and the task/calendar/note/query/chat
// branches. Every terminal branch edits the status message exactly once and
// logs the interaction.
package dispatch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/naborsk/adjutant/internal/intent"
	"github.com/naborsk/adjutant/internal/links"
	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/sources"
	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/tasks"
)

const disambiguationThreshold = 0.55

// Router classifies a message into an intent. It never fails; classification
// errors surface as a low-confidence query.
type Router interface {
	Classify(ctx context.Context, userID int64, text string) intent.Intent
}

// Completer runs a chat completion through the provider chain.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Linker intercepts messages that carry a URL.
type Linker interface {
	Process(ctx context.Context, userID int64, url string) string
}

// Dispatcher owns the per-message routing logic.
type Dispatcher struct {
	store    *storage.Store
	tasks    *tasks.Service
	memory   *memory.Service
	router   Router
	chain    Completer
	registry *sources.Registry
	links    Linker
	calendar sources.Calendar
	loc      *time.Location

	newID func() string
}

func New(store *storage.Store, taskSvc *tasks.Service, mem *memory.Service, router Router,
	chain Completer, registry *sources.Registry, linkSvc *links.Service,
	calendar sources.Calendar, loc *time.Location) *Dispatcher {
	return &Dispatcher{
		store:    store,
		tasks:    taskSvc,
		memory:   mem,
		router:   router,
		chain:    chain,
		registry: registry,
		links:    linkSvc,
		calendar: calendar,
		loc:      loc,
		newID:    uuid.NewString,
	}
}

// Process handles one message end to end. edit replaces the status message
// shown to the user; it is called exactly once per terminal branch.
func (d *Dispatcher) Process(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
	if d.handleConfirmation(ctx, userID, updateID, text, edit) {
		return
	}
	d.store.CancelConfirmation(userID)

	if urls := links.ExtractURLs(text); len(urls) > 0 {
		reply := d.links.Process(ctx, userID, urls[0])
		edit(reply)
		d.log(userID, updateID, text, reply, "note", "URL save")
		return
	}

	var (
		in        intent.Intent
		memoryCtx string
	)
	var g errgroup.Group
	g.Go(func() error {
		in = d.router.Classify(ctx, userID, text)
		return nil
	})
	g.Go(func() error {
		memoryCtx = d.memory.RelevantInsights(ctx, userID, "query", text)
		return nil
	})
	g.Wait()

	d.dispatchIntent(ctx, userID, updateID, text, in, memoryCtx, edit)
}

func (d *Dispatcher) dispatchIntent(ctx context.Context, userID, updateID int64, text string,
	in intent.Intent, memoryCtx string, edit func(string)) {
	actionType := in.Classification.ActionType

	if in.Classification.Confidence < disambiguationThreshold && actionType != intent.ActionChat {
		reply := d.askDisambiguation(userID, text, in)
		edit(reply)
		d.log(userID, updateID, text, reply, "system", "Ambiguous input")
		return
	}

	var reply string
	switch {
	case actionType == intent.ActionTask && in.Task != nil:
		reply = d.handleTask(ctx, userID, in.Task)
	case actionType == intent.ActionCalendar && in.Calendar != nil:
		reply = d.handleCalendar(ctx, in.Calendar)
	case actionType == intent.ActionNote && in.Note != nil:
		reply = d.handleNote(userID, in.Note)
	case actionType == intent.ActionChat:
		reply = d.handleChat(ctx, text)
	case actionType == intent.ActionQuery:
		reply = d.answerQuery(ctx, userID, text, in.Query, memoryCtx)
	default:
		reply = "Not sure what to do with that."
	}

	edit(reply)
	d.log(userID, updateID, text, reply, actionType, in.Classification.Summary)
}

// askDisambiguation offers numbered readings of a low-confidence message and
// parks the original text so a digit reply can resume it.
func (d *Dispatcher) askDisambiguation(userID int64, text string, in intent.Intent) string {
	var suggestions []string
	options := map[string]any{}
	if in.Task != nil {
		options[strconv.Itoa(len(suggestions)+1)] = intent.ActionTask
		suggestions = append(suggestions, strconv.Itoa(len(suggestions)+1)+". Task: \""+in.Task.Title+"\"")
	}
	if in.Query != nil {
		options[strconv.Itoa(len(suggestions)+1)] = intent.ActionQuery
		suggestions = append(suggestions, strconv.Itoa(len(suggestions)+1)+". Question: \""+clip(in.Query.Query, 50)+"\"")
	}
	options[strconv.Itoa(len(suggestions)+1)] = intent.ActionChat
	suggestions = append(suggestions, strconv.Itoa(len(suggestions)+1)+". Free chat")

	if err := d.store.SaveConfirmation(userID, "disambiguate", map[string]any{
		"original_text": text,
		"options":       options,
	}); err != nil {
		return "Not sure what you meant. Could you rephrase?"
	}
	return "Not sure what you meant. Options:\n" + strings.Join(suggestions, "\n") +
		"\n\nSend the number or rephrase."
}

// resumeDisambiguation re-dispatches the parked message with the chosen
// reading forced.
func (d *Dispatcher) resumeDisambiguation(ctx context.Context, userID, updateID int64,
	conf storage.Confirmation, choice int, edit func(string)) {
	original, _ := conf.ActionData["original_text"].(string)
	options, _ := conf.ActionData["options"].(map[string]any)
	forced, _ := options[strconv.Itoa(choice)].(string)
	if original == "" || forced == "" {
		edit("Cancelled.")
		return
	}

	in := d.router.Classify(ctx, userID, original)
	in.Classification.ActionType = forced
	in.Classification.Confidence = 1.0
	if forced == intent.ActionQuery && in.Query == nil {
		in.Query = &intent.QueryPayload{Query: original}
	}

	memoryCtx := d.memory.RelevantInsights(ctx, userID, "query", original)
	d.dispatchIntent(ctx, userID, updateID, original, in, memoryCtx, edit)
}

func (d *Dispatcher) log(userID, updateID int64, userMessage, botResponse, actionType, summary string) {
	d.memory.LogInteraction(storage.Interaction{
		UserID:           userID,
		UserMessage:      userMessage,
		BotResponse:      botResponse,
		ActionType:       actionType,
		IntentSummary:    summary,
		TelegramUpdateID: updateID,
	})
}

var affirmatives = map[string]bool{"yes": true, "confirm": true, "כן": true, "אישור": true}

// handleConfirmation consumes a pending confirmation when the reply is an
// affirmative or a slot/option digit. Returns true if the message was
// handled.
func (d *Dispatcher) handleConfirmation(ctx context.Context, userID, updateID int64, text string, edit func(string)) bool {
	lower := strings.ToLower(strings.TrimSpace(text))

	if choice, ok := digitReply(lower); ok {
		conf, err := d.store.TakeConfirmation(userID)
		if err != nil {
			return false
		}
		switch conf.ActionName {
		case "disambiguate":
			d.resumeDisambiguation(ctx, userID, updateID, conf, choice, edit)
		case "schedule_task":
			reply := d.bookSlot(ctx, conf, choice)
			edit(reply)
			d.log(userID, updateID, text, reply, "task", "Confirmed schedule_task")
		default:
			edit("Cancelled.")
			d.log(userID, updateID, text, "Cancelled.", "task", "Cancelled "+conf.ActionName)
		}
		return true
	}

	if !affirmatives[lower] {
		return false
	}
	conf, err := d.store.TakeConfirmation(userID)
	if err != nil {
		return false
	}

	var reply string
	switch conf.ActionName {
	case "complete_all":
		count, err := d.tasks.CompleteAll(userID)
		switch {
		case err != nil:
			reply = "Something went wrong. Please try again."
		case count > 0:
			reply = "Done! Marked " + strconv.Itoa(count) + " tasks as completed ✅"
		default:
			reply = "No open tasks."
		}
	case "delete":
		title, _ := conf.ActionData["title"].(string)
		task, err := d.tasks.Delete(userID, title)
		if err != nil {
			reply = "Couldn't find \"" + title + "\"."
		} else {
			reply = "Deleted: " + task.Title + " 🗑"
		}
	case "create_task":
		task, err := d.tasks.Create(userID, createInputFromData(conf.ActionData))
		if err != nil {
			reply = "Something went wrong saving the task."
		} else {
			reply = "Added: " + task.Title
		}
	case "schedule_task":
		reply = "Cancelled."
	default:
		reply = "Done."
	}

	edit(reply)
	d.log(userID, updateID, text, reply, "task", "Confirmed "+conf.ActionName)
	return true
}

// digitReply reports whether the message is a bare option number 1-3.
func digitReply(lower string) (int, bool) {
	if len(lower) != 1 {
		return 0, false
	}
	if lower[0] >= '1' && lower[0] <= '3' {
		return int(lower[0] - '0'), true
	}
	return 0, false
}

func createInputFromData(data map[string]any) tasks.CreateInput {
	in := tasks.CreateInput{}
	in.Title, _ = data["title"].(string)
	in.DueDate, _ = data["due_date"].(string)
	in.Recurrence, _ = data["recurrence"].(string)
	in.Effort, _ = data["effort"].(string)
	in.Category, _ = data["category"].(string)
	if p, ok := data["priority"].(float64); ok {
		in.Priority = int(p)
	}
	return in
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
