package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/persona"
	"github.com/naborsk/adjutant/internal/storage"
)

const briefingTimeout = 30 * time.Second

// MorningBriefing aggregates calendar, emails, news, market, tasks, and open
// follow-ups into one proactive message. Every fetch degrades to an empty
// section; a chain failure degrades to the raw formatted data.
func (r *Registry) MorningBriefing(ctx context.Context, userID int64) (string, error) {
	var (
		events    []string
		emails    []EmailSummary
		news      []NewsItem
		snapshot  MarketSnapshot
		tasks     []storage.Task
		followUps []storage.FollowUp
	)
	today := r.now().In(r.loc).Format("2006-01-02")

	var g errgroup.Group
	g.Go(func() error {
		if !r.calendar.Authenticated(ctx) {
			return nil
		}
		ev, err := r.calendar.EventsForDate(ctx, today)
		if err != nil {
			slog.Warn("briefing calendar fetch failed", "error", err)
			return nil
		}
		events = ev
		return nil
	})
	g.Go(func() error {
		es, err := r.email.RecentEmails(ctx, 5)
		if err != nil {
			if !errors.Is(err, ErrNotConnected) {
				slog.Warn("briefing email fetch failed", "error", err)
			}
			return nil
		}
		emails = es
		return nil
	})
	g.Go(func() error {
		items, err := r.news.Fetch(ctx, 5, 24*time.Hour)
		if err != nil {
			slog.Warn("briefing news fetch failed", "error", err)
			return nil
		}
		news = items
		return nil
	})
	g.Go(func() error {
		s, err := r.market.Fetch(ctx, nil)
		if err != nil {
			slog.Warn("briefing market fetch failed", "error", err)
			return nil
		}
		snapshot = s
		return nil
	})
	g.Go(func() error {
		list, err := r.store.PendingTasks(userID, 7)
		if err != nil {
			slog.Warn("briefing tasks fetch failed", "error", err)
			return nil
		}
		tasks = list
		return nil
	})
	g.Go(func() error {
		list, err := r.store.PendingFollowUps(userID, 5)
		if err != nil {
			slog.Warn("briefing follow-ups fetch failed", "error", err)
			return nil
		}
		followUps = list
		return nil
	})
	g.Wait()

	synergy := ""
	if s, err := r.synthesizeSynergy(ctx, userID, "", news, snapshot); err == nil {
		synergy = s
	} else {
		slog.Warn("briefing synergy failed", "error", err)
	}

	dataBlock := briefingData(events, emails, news, snapshot, synergy, tasks, followUps, r.loc)
	system := persona.Identity + briefingInstructions(r.dayProfile(tasks))

	cctx, cancel := context.WithTimeout(ctx, briefingTimeout)
	defer cancel()
	resp, err := r.chain.Complete(cctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: "Here's the data for the morning briefing:\n\n" + dataBlock},
		},
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(resp) == "" {
		if err != nil {
			slog.Warn("briefing completion failed", "error", err)
		}
		return briefingFallback(events, emails, tasks, r.loc), nil
	}
	return resp, nil
}

// dayProfile returns day-of-week framing for the briefing prompt. The work
// week runs Sunday to Friday, matching the default timezone.
func (r *Registry) dayProfile(tasks []storage.Task) string {
	now := r.now().In(r.loc)
	parts := []string{"Today is " + now.Weekday().String() + "."}

	switch now.Weekday() {
	case time.Sunday:
		parts = append(parts, "Start of the work week: focus on setting priorities. Call out 2-3 main things for this week.")
	case time.Friday:
		parts = append(parts, "End of the work week: close loose ends. Flag what can't wait until Sunday.")
	case time.Saturday:
		parts = append(parts, "Weekend: keep it light, only truly urgent items.")
	}

	var overdue []string
	for _, t := range tasks {
		if !t.DueAt.IsZero() && t.DueAt.Before(now) {
			overdue = append(overdue, t.Title)
		}
	}
	if len(overdue) > 0 {
		shown := overdue
		if len(shown) > 3 {
			shown = shown[:3]
		}
		parts = append(parts, fmt.Sprintf("Overdue alert: %d tasks are late, flag them prominently: %s.",
			len(overdue), strings.Join(shown, ", ")))
	}

	return strings.Join(parts, " ")
}

func briefingInstructions(dayProfile string) string {
	return "\n\nMorning briefing instructions:\n" +
		"Today's context: " + dayProfile + "\n\n" +
		"Build a sharp morning briefing for Telegram. Keep it scannable and clean.\n\n" +
		"Sections (emoji as a header on its own line, bullets underneath):\n" +
		"1. 📋 Agenda\n" +
		"2. 🤖 AI News\n" +
		"3. 📊 Market\n" +
		"4. 💡 Synergy\n" +
		"5. ✅ Tasks\n" +
		"6. 🔄 Follow-ups (remind open commitments from past conversations, only if any)\n\n" +
		"Format rules (strict):\n" +
		"- Each section header on one line with its emoji, then a blank line\n" +
		"- Short bullets (one line each), starting with an arrow or a dash\n" +
		"- At most 1-2 sentences per bullet. No long paragraphs. Ever.\n" +
		"- Numbers and tickers on their own line: 🟢 NVDA $190.50 (+0.8%)\n" +
		"- Blank line between sections\n" +
		"- No markdown (no **, no ##, no __)\n" +
		"- Talk like a sharp friend, not a newsreader\n" +
		"- Synergy insights are already analyzed. Present them as short bullets, don't re-analyze.\n" +
		"- Skip a section entirely when it has nothing\n"
}

func briefingData(events []string, emails []EmailSummary, news []NewsItem, snapshot MarketSnapshot,
	synergy string, tasks []storage.Task, followUps []storage.FollowUp, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("📅 Today's Events:\n" + briefingEvents(events) + "\n\n")
	sb.WriteString("📧 Recent Emails:\n" + briefingEmails(emails) + "\n\n")
	sb.WriteString("🤖 AI News:\n" + briefingNews(news) + "\n\n")
	sb.WriteString("📊 Market:\n" + briefingMarket(snapshot) + "\n\n")
	sb.WriteString("💡 Market-AI Synergy:\n" + synergy + "\n\n")
	sb.WriteString("✅ Open Tasks:\n" + briefingTasks(tasks, loc))
	if len(followUps) > 0 {
		sb.WriteString("\n\n🔄 Open Follow-ups:\n" + briefingFollowUps(followUps))
	}
	return sb.String()
}

func briefingFallback(events []string, emails []EmailSummary, tasks []storage.Task, loc *time.Location) string {
	return "Morning briefing\n\n" +
		"📅 Calendar:\n" + briefingEvents(events) + "\n\n" +
		"📧 Emails:\n" + briefingEmails(emails) + "\n\n" +
		"✅ Tasks:\n" + briefingTasks(tasks, loc)
}

func briefingEvents(events []string) string {
	if len(events) == 0 {
		return "No events today."
	}
	var lines []string
	for _, ev := range events {
		lines = append(lines, "• "+ev)
	}
	return strings.Join(lines, "\n")
}

func briefingEmails(emails []EmailSummary) string {
	if len(emails) == 0 {
		return "No new emails."
	}
	var lines []string
	for _, e := range emails {
		lines = append(lines, fmt.Sprintf("• From: %s | Subject: %s", e.From, e.Subject))
	}
	return strings.Join(lines, "\n")
}

func briefingNews(news []NewsItem) string {
	if len(news) == 0 {
		return "No new AI news."
	}
	var lines []string
	for _, n := range news {
		lines = append(lines, fmt.Sprintf("• %s (%s)", n.Title, n.Source))
	}
	return strings.Join(lines, "\n")
}

func briefingMarket(s MarketSnapshot) string {
	var lines []string
	for _, q := range s.Indices {
		lines = append(lines, fmt.Sprintf("%s %s: %.0f (%+.1f%%)", marketMark(q.ChangePct), q.Name, q.Price, q.ChangePct))
	}
	for _, q := range s.Tickers {
		lines = append(lines, fmt.Sprintf("%s %s: $%.2f (%+.1f%%)", marketMark(q.ChangePct), q.Name, q.Price, q.ChangePct))
	}
	if len(lines) == 0 {
		return "No market data."
	}
	return strings.Join(lines, "\n")
}

func marketMark(changePct float64) string {
	if changePct >= 0 {
		return "🟢"
	}
	return "🔴"
}

func briefingTasks(tasks []storage.Task, loc *time.Location) string {
	if len(tasks) == 0 {
		return "No open tasks."
	}
	var lines []string
	for _, t := range tasks {
		line := "• " + t.Title
		if !t.DueAt.IsZero() {
			line += " (due: " + t.DueAt.In(loc).Format("Mon Jan 2, 15:04") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func briefingFollowUps(followUps []storage.FollowUp) string {
	var lines []string
	for _, fu := range followUps {
		line := "• " + fu.Commitment
		if !fu.DueAt.IsZero() {
			line += " (due: " + fu.DueAt.Format("2006-01-02") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
