package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []string
	edits  []string
	typing int
}

func (t *fakeTransport) Send(chatID int64, text string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, text)
	return len(t.sent), nil
}

func (t *fakeTransport) Edit(chatID int64, messageID int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edits = append(t.edits, text)
}

func (t *fakeTransport) Typing(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing++
}

func (t *fakeTransport) editCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.edits)
}

func (t *fakeTransport) lastEdit() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.edits) == 0 {
		return ""
	}
	return t.edits[len(t.edits)-1]
}

type fakeDedup struct {
	seen map[int64]bool
	err  error
}

func (d *fakeDedup) HasUpdateID(updateID int64) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.seen[updateID], nil
}

type funcProcessor struct {
	fn    func(ctx context.Context, userID, updateID int64, text string, edit func(string))
	calls int
	mu    sync.Mutex
}

func (p *funcProcessor) Process(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.fn != nil {
		p.fn(ctx, userID, updateID, text, edit)
	}
}

func (p *funcProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testUpdate(id int64) Update {
	return Update{UpdateID: id, ChatID: 10, UserID: 7, Text: "hello"}
}

func TestHandleUpdate_HappyPath(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{fn: func(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
		edit("done: " + text)
	}}
	p := New(&fakeDedup{seen: map[int64]bool{}}, transport, proc, 7)

	p.HandleUpdate(context.Background(), testUpdate(1))

	if transport.typing != 1 {
		t.Errorf("expected 1 typing indicator, got %d", transport.typing)
	}
	if transport.editCount() != 1 || transport.lastEdit() != "done: hello" {
		t.Errorf("unexpected edits: %v", transport.edits)
	}
}

func TestHandleUpdate_DuplicateSkipped(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{}
	p := New(&fakeDedup{seen: map[int64]bool{5: true}}, transport, proc, 7)

	p.HandleUpdate(context.Background(), testUpdate(5))

	if proc.callCount() != 0 {
		t.Errorf("duplicate update should not be processed")
	}
	if transport.editCount() != 0 {
		t.Errorf("duplicate update should not edit status, got %v", transport.edits)
	}
}

func TestHandleUpdate_DedupFailsOpen(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{fn: func(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
		edit("ok")
	}}
	p := New(&fakeDedup{err: errors.New("db down")}, transport, proc, 7)

	p.HandleUpdate(context.Background(), testUpdate(5))

	if proc.callCount() != 1 {
		t.Errorf("dedup failure should not block processing")
	}
}

func TestHandleUpdate_ZeroUpdateIDNeverDuplicate(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{fn: func(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
		edit("ok")
	}}
	dedup := &fakeDedup{seen: map[int64]bool{}}
	p := New(dedup, transport, proc, 7)

	p.HandleUpdate(context.Background(), testUpdate(0))
	p.HandleUpdate(context.Background(), testUpdate(0))

	if proc.callCount() != 2 {
		t.Errorf("zero update IDs must both process, got %d calls", proc.callCount())
	}
}

func TestHandleUpdate_UnauthorizedUserIgnored(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{}
	p := New(&fakeDedup{}, transport, proc, 7)

	p.HandleUpdate(context.Background(), Update{UpdateID: 1, ChatID: 10, UserID: 99, Text: "hi"})

	if proc.callCount() != 0 || len(transport.sent) != 0 {
		t.Errorf("unauthorized user must be ignored")
	}
}

func TestHandleUpdate_TimeoutEditsFixedMessage(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{fn: func(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
		time.Sleep(200 * time.Millisecond)
		edit("too late")
	}}
	p := New(&fakeDedup{}, transport, proc, 7)
	p.timeout = 20 * time.Millisecond

	p.HandleUpdate(context.Background(), testUpdate(1))
	time.Sleep(250 * time.Millisecond)

	if transport.editCount() != 1 {
		t.Fatalf("expected exactly one edit, got %v", transport.edits)
	}
	if transport.lastEdit() != timeoutReply {
		t.Errorf("expected timeout reply, got %q", transport.lastEdit())
	}
}

func TestHandleUpdate_PanicEditsFailureMessage(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{fn: func(ctx context.Context, userID, updateID int64, text string, edit func(string)) {
		panic("boom")
	}}
	p := New(&fakeDedup{}, transport, proc, 7)

	p.HandleUpdate(context.Background(), testUpdate(1))

	if transport.editCount() != 1 || transport.lastEdit() != failureReply {
		t.Errorf("expected failure reply, got %v", transport.edits)
	}
}

func TestHandleUpdate_EmptyTextIgnored(t *testing.T) {
	transport := &fakeTransport{}
	proc := &funcProcessor{}
	p := New(&fakeDedup{}, transport, proc, 7)

	p.HandleUpdate(context.Background(), Update{UpdateID: 1, ChatID: 10, UserID: 7})

	if proc.callCount() != 0 || len(transport.sent) != 0 {
		t.Errorf("empty text must be ignored")
	}
}
