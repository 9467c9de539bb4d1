package sched

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/storage"
)

type fakeTasks struct {
	tasks []storage.Task
	err   error
}

func (f *fakeTasks) Overdue(userID int64) ([]storage.Task, error) {
	return f.tasks, f.err
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(chatID int64, text string) (int, error) {
	f.sent = append(f.sent, text)
	return 1, nil
}

type fakeReflector struct {
	calls int
}

type fakeBriefer struct {
	text  string
	err   error
	calls int
}

func (f *fakeBriefer) MorningBriefing(ctx context.Context, userID int64) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeReflector) Reflect(ctx context.Context, chain memory.Completer, userID int64) (memory.ReflectionSummary, error) {
	f.calls++
	return memory.ReflectionSummary{}, nil
}

func TestRemindOverdue(t *testing.T) {
	due := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	r := New(&fakeReflector{}, nil, &fakeBriefer{}, &fakeTasks{tasks: []storage.Task{
		{Title: "Write report", DueAt: due},
		{Title: "Pay rent", DueAt: due.Add(time.Hour)},
	}}, sender, 42, "", time.UTC)

	r.remindOverdue()

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if !strings.Contains(msg, "Write report") || !strings.Contains(msg, "Pay rent") {
		t.Errorf("reminder missing task titles: %q", msg)
	}
	if !strings.Contains(msg, "Mon Jun 2, 09:00") {
		t.Errorf("reminder missing due time: %q", msg)
	}
}

func TestRemindOverdue_NothingDue(t *testing.T) {
	sender := &fakeSender{}
	r := New(&fakeReflector{}, nil, &fakeBriefer{}, &fakeTasks{}, sender, 42, "", time.UTC)

	r.remindOverdue()

	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestRunReflection(t *testing.T) {
	ref := &fakeReflector{}
	r := New(ref, nil, &fakeBriefer{}, &fakeTasks{}, &fakeSender{}, 42, "", time.UTC)

	r.runReflection()

	if ref.calls != 1 {
		t.Errorf("reflect called %d times, want 1", ref.calls)
	}
}

func TestRunBriefing(t *testing.T) {
	briefer := &fakeBriefer{text: "Good morning. One task today."}
	sender := &fakeSender{}
	r := New(&fakeReflector{}, nil, briefer, &fakeTasks{}, sender, 42, "", time.UTC)

	r.runBriefing()

	if briefer.calls != 1 {
		t.Fatalf("briefing built %d times, want 1", briefer.calls)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "Good morning. One task today." {
		t.Errorf("sent = %v, want the briefing text", sender.sent)
	}
}

func TestRunBriefing_Error(t *testing.T) {
	sender := &fakeSender{}
	r := New(&fakeReflector{}, nil, &fakeBriefer{err: errors.New("chain down")}, &fakeTasks{}, sender, 42, "", time.UTC)

	r.runBriefing()

	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestSelfPing(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
	}))
	defer srv.Close()

	r := New(&fakeReflector{}, nil, &fakeBriefer{}, &fakeTasks{}, &fakeSender{}, 42, srv.URL+"/health", time.UTC)
	r.selfPing()

	if hits != 1 {
		t.Errorf("ping hit server %d times, want 1", hits)
	}
}
