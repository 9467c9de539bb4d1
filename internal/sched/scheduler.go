// Package sched runs the background jobs: the morning briefing, the nightly
// memory reflection, overdue task reminders, and a keep-alive self-ping for
// hosts that put idle services to sleep.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/storage"
)

const (
	briefingHour     = 7
	briefingMinute   = 30
	reflectionHour   = 3
	reflectionMinute = 30
	remindEvery      = 1 * time.Hour
	pingEvery        = 10 * time.Minute
)

// Briefer builds the proactive morning summary.
type Briefer interface {
	MorningBriefing(ctx context.Context, userID int64) (string, error)
}

// Reflector distills unprocessed interactions into long-lived insights.
type Reflector interface {
	Reflect(ctx context.Context, chain memory.Completer, userID int64) (memory.ReflectionSummary, error)
}

// TaskLister reports tasks whose due date has passed.
type TaskLister interface {
	Overdue(userID int64) ([]storage.Task, error)
}

// Sender delivers a message to the user.
type Sender interface {
	Send(chatID int64, text string) (int, error)
}

// Runner owns the background jobs. Build one with New and call Start;
// Shutdown the returned scheduler on exit.
type Runner struct {
	memory  Reflector
	chain   memory.Completer
	briefer Briefer
	tasks   TaskLister
	sender  Sender
	userID  int64
	pingURL string
	loc     *time.Location

	httpClient *http.Client
	now        func() time.Time
}

// New wires a Runner. pingURL may be empty, in which case the keep-alive
// job is not registered.
func New(mem Reflector, chain memory.Completer, briefer Briefer, tasks TaskLister, sender Sender, userID int64, pingURL string, loc *time.Location) *Runner {
	return &Runner{
		memory:     mem,
		chain:      chain,
		briefer:    briefer,
		tasks:      tasks,
		sender:     sender,
		userID:     userID,
		pingURL:    pingURL,
		loc:        loc,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (r *Runner) Start() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(r.loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(briefingHour, briefingMinute, 0))),
		gocron.NewTask(r.runBriefing),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule briefing: %w", err)
	}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(reflectionHour, reflectionMinute, 0))),
		gocron.NewTask(r.runReflection),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reflection: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(remindEvery),
		gocron.NewTask(r.remindOverdue),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}

	if r.pingURL != "" {
		_, err = s.NewJob(
			gocron.DurationJob(pingEvery),
			gocron.NewTask(r.selfPing),
		)
		if err != nil {
			return nil, fmt.Errorf("schedule keep-alive: %w", err)
		}
	}

	s.Start()
	return s, nil
}

func (r *Runner) runBriefing() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	text, err := r.briefer.MorningBriefing(ctx, r.userID)
	if err != nil {
		slog.Error("morning briefing failed", "error", err)
		return
	}
	if _, err := r.sender.Send(r.userID, text); err != nil {
		slog.Error("morning briefing send failed", "error", err)
	}
}

func (r *Runner) runReflection() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, err := r.memory.Reflect(ctx, r.chain, r.userID)
	if err != nil {
		slog.Error("daily reflection failed", "error", err)
		return
	}
	slog.Info("daily reflection done",
		"analyzed", summary.InteractionsAnalyzed,
		"new_insights", summary.NewInsights,
		"reinforced", summary.ReinforcedInsights)
}

func (r *Runner) remindOverdue() {
	overdue, err := r.tasks.Overdue(r.userID)
	if err != nil {
		slog.Error("overdue check failed", "error", err)
		return
	}
	if len(overdue) == 0 {
		return
	}
	if _, err := r.sender.Send(r.userID, formatOverdue(overdue, r.loc)); err != nil {
		slog.Error("overdue reminder send failed", "error", err)
	}
}

func formatOverdue(tasks []storage.Task, loc *time.Location) string {
	out := "🚨 Overdue:\n"
	for _, t := range tasks {
		out += fmt.Sprintf("  - %s (due %s)\n", t.Title, t.DueAt.In(loc).Format("Mon Jan 2, 15:04"))
	}
	return out
}

func (r *Runner) selfPing() {
	resp, err := r.httpClient.Get(r.pingURL)
	if err != nil {
		slog.Warn("keep-alive ping failed", "url", r.pingURL, "error", err)
		return
	}
	resp.Body.Close()
}
