package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/naborsk/adjutant/internal/aggregate"
	"github.com/naborsk/adjutant/internal/intent"
	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/persona"
	"github.com/naborsk/adjutant/internal/sources"
	"github.com/naborsk/adjutant/internal/storage"
)

const (
	chatTimeout  = 10 * time.Second
	queryTimeout = 15 * time.Second
)

func (d *Dispatcher) handleCalendar(ctx context.Context, payload *intent.CalendarPayload) string {
	if !d.calendar.Authenticated(ctx) {
		return "You need to connect your calendar first."
	}

	start, ok := parseEventTime(payload.StartTime, d.loc)
	if !ok {
		return "Couldn't parse the date: " + payload.StartTime
	}
	var end time.Time
	if payload.EndTime != "" {
		end, _ = parseEventTime(payload.EndTime, d.loc)
	}

	link, err := d.calendar.CreateEvent(ctx, payload.Summary, start, end, payload.Location, payload.Description)
	if err != nil {
		return "Couldn't create the calendar event."
	}

	reply := "Scheduled: " + payload.Summary + "\n" + start.Format("02/01 15:04")
	if !end.IsZero() {
		reply += " (" + durationLabel(end.Sub(start)) + ")"
	}
	if payload.Location != "" {
		reply += "\n📍 " + payload.Location
	}
	if link != "" {
		reply += "\n" + link
	}
	return reply
}

// parseEventTime accepts the classifier's canonical timestamp layout first
// and falls back to ISO forms.
func parseEventTime(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func durationLabel(dur time.Duration) string {
	mins := int(dur.Minutes())
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins%60 == 0 {
		return fmt.Sprintf("%dh", mins/60)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

func (d *Dispatcher) handleNote(userID int64, payload *intent.NotePayload) string {
	err := d.store.SaveNote(storage.Note{
		ID:      d.newID(),
		UserID:  userID,
		Content: payload.Content,
		Tags:    payload.Tags,
	})
	if err != nil {
		return "Couldn't save that. Please try again."
	}

	reply := "Saved: " + payload.Content
	if len(payload.Tags) > 0 {
		var tags []string
		for _, t := range payload.Tags {
			tags = append(tags, "#"+t)
		}
		reply += "\n" + strings.Join(tags, " ")
	}
	return reply
}

func (d *Dispatcher) handleChat(ctx context.Context, text string) string {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	resp, err := d.chain.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: persona.Identity},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: 0.8,
	})
	if err != nil || strings.TrimSpace(resp) == "" {
		return "I'm here — what's up?"
	}
	return resp
}

// answerQuery gathers the requested context sources in parallel and
// synthesizes an answer.
func (d *Dispatcher) answerQuery(ctx context.Context, userID int64, text string,
	payload *intent.QueryPayload, memoryCtx string) string {
	queryText := text
	var contextNeeded []string
	var targetDate, archiveSince string
	if payload != nil {
		if payload.Query != "" {
			queryText = payload.Query
		}
		contextNeeded = payload.ContextNeeded
		targetDate = payload.TargetDate
		archiveSince = payload.ArchiveSince
	}

	fetchers := d.registry.Fetchers(sources.Query{
		UserID:       userID,
		Text:         queryText,
		Sources:      contextNeeded,
		TargetDate:   targetDate,
		ArchiveSince: archiveSince,
	})

	var contextBlocks []string
	var conversation string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conversation = d.registry.Conversation(userID)
	}()
	for _, res := range aggregate.Run(ctx, fetchers) {
		if res.Value != "" {
			contextBlocks = append(contextBlocks, res.Value)
		}
	}
	wg.Wait()

	system := persona.Identity
	if conversation != "" {
		system += "\n\n=== Recent Conversation (for continuity) ===\n" + conversation
	}
	if memoryCtx != "" {
		system += "\n\n=== What You Know About The User ===\n" + memoryCtx
	}

	userContent := queryText
	if len(contextBlocks) > 0 {
		userContent = "Relevant data:\n" + strings.Join(contextBlocks, "\n\n") + "\n\nThe user says: " + queryText
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	resp, err := d.chain.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: userContent},
		},
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(resp) == "" {
		return "Something went wrong. Please try again."
	}
	return resp
}
