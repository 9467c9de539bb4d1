package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/naborsk/adjutant/internal/intent"
	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/tasks"
)

var effortMinutes = map[string]int{
	"15m": 15, "30m": 30, "1h": 60, "2h": 120, "4h": 240,
}

func (d *Dispatcher) handleTask(ctx context.Context, userID int64, payload *intent.TaskPayload) string {
	switch payload.Action {
	case intent.TaskComplete:
		return d.completeTask(userID, payload.Title)
	case intent.TaskCompleteAll:
		return d.confirmCompleteAll(userID)
	case intent.TaskDelete:
		return d.confirmDelete(userID, payload.Title)
	case intent.TaskSchedule:
		return d.offerSlots(ctx, userID, payload.Title)
	case intent.TaskEdit:
		return d.editTask(userID, payload)
	default:
		return d.createTask(userID, payload)
	}
}

func (d *Dispatcher) completeTask(userID int64, title string) string {
	task, err := d.tasks.Complete(userID, title)
	if err == nil {
		return "Done: " + task.Title + " ✅"
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "Something went wrong. Please try again."
	}
	pending, _ := d.tasks.Pending(userID, 20)
	if len(pending) == 0 {
		return fmt.Sprintf("Couldn't find %q, there are no open tasks at all.", title)
	}
	return fmt.Sprintf("Couldn't find %q in your open tasks.\n\nYour tasks:\n%s",
		title, numberedTitles(pending))
}

func (d *Dispatcher) confirmCompleteAll(userID int64) string {
	pending, err := d.tasks.Pending(userID, 50)
	if err != nil {
		return "Something went wrong. Please try again."
	}
	if len(pending) == 0 {
		return "No open tasks."
	}
	if err := d.store.SaveConfirmation(userID, "complete_all", map[string]any{}); err != nil {
		return "Something went wrong. Please try again."
	}

	shown := pending
	if len(shown) > 10 {
		shown = shown[:10]
	}
	var lines []string
	for _, t := range shown {
		lines = append(lines, "  - "+t.Title)
	}
	extra := ""
	if len(pending) > 10 {
		extra = "\n  ... and " + strconv.Itoa(len(pending)-10) + " more"
	}
	return fmt.Sprintf("About to mark %d tasks as completed:\n%s%s\n\nSend 'yes' to confirm.",
		len(pending), strings.Join(lines, "\n"), extra)
}

func (d *Dispatcher) confirmDelete(userID int64, title string) string {
	if err := d.store.SaveConfirmation(userID, "delete", map[string]any{"title": title}); err != nil {
		return "Something went wrong. Please try again."
	}
	return fmt.Sprintf("About to delete: %q\nSend 'yes' to confirm.", title)
}

// offerSlots matches the task, finds free calendar windows sized to its
// effort, and parks them behind a schedule_task confirmation.
func (d *Dispatcher) offerSlots(ctx context.Context, userID int64, title string) string {
	match, err := d.tasks.FindMatch(userID, title)
	if err != nil {
		return fmt.Sprintf("Couldn't find a task named %q to schedule.", title)
	}
	if !d.calendar.Authenticated(ctx) {
		return "You need to connect your calendar first."
	}

	effort := match.Effort
	if effort == "" {
		effort = "1h"
	}
	duration := effortMinutes["1h"]
	if mins, ok := effortMinutes[effort]; ok {
		duration = mins
	}

	slots, err := d.calendar.FindFreeSlots(ctx, time.Duration(duration)*time.Minute, 3, 3)
	if err != nil || len(slots) == 0 {
		return "No free slots in the next 3 days."
	}

	slotData := make([]any, 0, len(slots))
	lines := []string{fmt.Sprintf("Free slots for %q (%s):", match.Title, effort)}
	for i, s := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, s.Day, s.Time))
		slotData = append(slotData, map[string]any{
			"day":   s.Day,
			"time":  s.Time,
			"start": s.Start.Format(time.RFC3339),
			"end":   s.End.Format(time.RFC3339),
		})
	}
	lines = append(lines, "\nSend the number to book, or say 'no' to cancel.")

	if err := d.store.SaveConfirmation(userID, "schedule_task", map[string]any{
		"task_title": match.Title,
		"slots":      slotData,
	}); err != nil {
		return "Something went wrong. Please try again."
	}
	return strings.Join(lines, "\n")
}

// bookSlot creates the calendar event for the slot the user picked.
func (d *Dispatcher) bookSlot(ctx context.Context, conf storage.Confirmation, choice int) string {
	title, _ := conf.ActionData["task_title"].(string)
	slots, _ := conf.ActionData["slots"].([]any)
	if choice < 1 || choice > len(slots) {
		return "Cancelled."
	}
	slot, _ := slots[choice-1].(map[string]any)
	startStr, _ := slot["start"].(string)
	endStr, _ := slot["end"].(string)
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return "Cancelled."
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return "Cancelled."
	}

	if !d.calendar.Authenticated(ctx) {
		return "You need to connect your calendar first."
	}
	link, err := d.calendar.CreateEvent(ctx, title, start, end, "", "")
	if err != nil {
		return "Couldn't create the calendar event."
	}
	day, _ := slot["day"].(string)
	at, _ := slot["time"].(string)
	return fmt.Sprintf("Booked: %s\n%s %s\n%s", title, day, at, link)
}

func (d *Dispatcher) editTask(userID int64, payload *intent.TaskPayload) string {
	in := tasks.EditInput{
		NewTitle:    payload.NewTitle,
		NewDueDate:  payload.NewDueDate,
		NewPriority: payload.NewPriority,
	}
	task, err := d.tasks.Edit(userID, payload.Title, in)
	if err == nil {
		var changes []string
		if payload.NewTitle != nil {
			changes = append(changes, fmt.Sprintf("new title: %q", *payload.NewTitle))
		}
		if payload.NewDueDate != nil {
			changes = append(changes, "moved to "+*payload.NewDueDate)
		}
		if payload.NewPriority != nil {
			changes = append(changes, "priority: "+strconv.Itoa(*payload.NewPriority))
		}
		return "Updated: " + task.Title + "\n" + strings.Join(changes, ", ")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "Something went wrong. Please try again."
	}
	pending, _ := d.tasks.Pending(userID, 20)
	if len(pending) == 0 {
		return fmt.Sprintf("Couldn't find %q, there are no open tasks.", payload.Title)
	}
	return fmt.Sprintf("Couldn't find %q.\n\nYour tasks:\n%s", payload.Title, numberedTitles(pending))
}

func (d *Dispatcher) createTask(userID int64, payload *intent.TaskPayload) string {
	if dup, found, err := d.tasks.FindDuplicate(userID, payload.Title); err == nil && found {
		if saveErr := d.store.SaveConfirmation(userID, "create_task", map[string]any{
			"title":      payload.Title,
			"due_date":   payload.DueDate,
			"priority":   payload.Priority,
			"recurrence": payload.Recurrence,
			"effort":     payload.Effort,
			"category":   payload.Category,
		}); saveErr == nil {
			return fmt.Sprintf("There's already a similar task: %q\nWant me to add it anyway?", dup.Title)
		}
	}

	task, err := d.tasks.Create(userID, tasks.CreateInput{
		Title:      payload.Title,
		DueDate:    payload.DueDate,
		Priority:   payload.Priority,
		Recurrence: payload.Recurrence,
		Effort:     payload.Effort,
		Category:   payload.Category,
	})
	if err != nil {
		return "Something went wrong saving the task. Try again?"
	}

	reply := "Added: " + task.Title
	if !task.DueAt.IsZero() {
		reply += "\n📅 " + task.DueAt.In(d.loc).Format("Mon Jan 2, 15:04")
	}
	if task.Recurrence != "" {
		reply += "\n🔄 repeats " + task.Recurrence
	}
	if task.Effort != "" {
		reply += "\n⏱ " + task.Effort
	}
	return reply
}

func numberedTitles(list []storage.Task) string {
	var lines []string
	for i, t := range list {
		lines = append(lines, strconv.Itoa(i+1)+". "+t.Title)
	}
	return strings.Join(lines, "\n")
}
