package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hooknotify/internal/debounce"
	"hooknotify/internal/event"
	"hooknotify/internal/eventbus"
	"hooknotify/internal/session"
	"hooknotify/internal/storage"
	"hooknotify/pkg/logx"
)

type fakeRemote struct {
	mu       sync.Mutex
	messages []string
}

func (r *fakeRemote) Dispatch(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *fakeRemote) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type fakeLocal struct {
	mu         sync.Mutex
	messages   []string
	categories []string
}

func (l *fakeLocal) Dispatch(message, category string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
	l.categories = append(l.categories, category)
}

// recordingStore wraps a real store and counts audit appends, optionally
// failing them.
type recordingStore struct {
	storage.Store
	mu         sync.Mutex
	appends    []storage.NotificationRecord
	appendErr  error
	dispatches int
}

func (s *recordingStore) AppendNotification(ctx context.Context, rec storage.NotificationRecord) error {
	s.mu.Lock()
	s.appends = append(s.appends, rec)
	err := s.appendErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.AppendNotification(ctx, rec)
}

func (s *recordingStore) RecordDispatch(ctx context.Context, sessionID, category string, at time.Time) error {
	s.mu.Lock()
	s.dispatches++
	s.mu.Unlock()
	return s.Store.RecordDispatch(ctx, sessionID, category, at)
}

func newTestPipeline(t *testing.T, st storage.Store) (*Pipeline, *fakeRemote, *fakeLocal) {
	t.Helper()
	remote := &fakeRemote{}
	local := &fakeLocal{}
	gate := debounce.NewGate(debounce.NewMemoryStore(), logx.Nop())
	tracker := session.NewTracker(st, logx.Nop())
	p := New(tracker, gate, st, remote, local, eventbus.New(), logx.Nop())
	return p, remote, local
}

func openTestStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "engine.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestHandleRejectsMalformedInput(t *testing.T) {
	t.Parallel()
	p, remote, _ := newTestPipeline(t, openTestStore(t))

	if err := p.Handle(context.Background(), []byte(`{broken`)); err == nil {
		t.Fatal("expected parse error")
	}
	if err := p.Handle(context.Background(), []byte(`{"category":"session-stop"}`)); err == nil {
		t.Fatal("expected missing session_id error")
	}
	if got := remote.sent(); len(got) != 0 {
		t.Fatalf("dispatched despite rejection: %v", got)
	}
}

func TestProcessDropsIneligibleAfterSessionUpdate(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	p, remote, local := newTestPipeline(t, st)
	ctx := context.Background()

	p.Process(ctx, event.Event{
		Category:  event.CategoryPromptSubmitted,
		SessionID: "s1",
		Prompt:    "fix the tests",
	})

	// Session state mutated even though nothing was dispatched.
	rec, ok, err := st.Session(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Session = (%v, %v, %v)", rec, ok, err)
	}
	if rec.LastPrompt != "fix the tests" {
		t.Fatalf("LastPrompt = %q", rec.LastPrompt)
	}
	if len(remote.sent()) != 0 || len(local.messages) != 0 {
		t.Fatal("ineligible category was dispatched")
	}
	if rec.NotificationCount != 0 {
		t.Fatalf("NotificationCount = %d, want 0", rec.NotificationCount)
	}
}

func TestProcessBurstDebounce(t *testing.T) {
	t.Parallel()
	base := openTestStore(t)
	st := &recordingStore{Store: base}
	p, remote, _ := newTestPipeline(t, st)
	ctx := context.Background()

	// Three rapid tool uses in one session: one notification, three counts.
	for i := 0; i < 3; i++ {
		p.Process(ctx, event.Event{
			Category:         event.CategoryToolUsed,
			SessionID:        "s1",
			WorkingDirectory: "/w/proj",
			ToolName:         "Bash",
		})
	}

	if got := remote.sent(); len(got) != 1 {
		t.Fatalf("remote messages = %v, want exactly one", got)
	} else if got[0] != "⚙️ proj: Used Bash (#1)" {
		t.Fatalf("message = %q", got[0])
	}

	st.mu.Lock()
	appends, dispatches := len(st.appends), st.dispatches
	st.mu.Unlock()
	if appends != 1 {
		t.Fatalf("audit rows = %d, want 1", appends)
	}
	if dispatches != 1 {
		t.Fatalf("dispatch records = %d, want 1", dispatches)
	}

	rec, ok, err := base.Session(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Session = (%v, %v, %v)", rec, ok, err)
	}
	if rec.ToolUseCount != 3 {
		t.Fatalf("ToolUseCount = %d, want 3", rec.ToolUseCount)
	}
	if rec.NotificationCount != 1 {
		t.Fatalf("NotificationCount = %d, want 1", rec.NotificationCount)
	}
}

func TestProcessSessionStopNeverSuppressed(t *testing.T) {
	t.Parallel()
	p, remote, local := newTestPipeline(t, openTestStore(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p.Process(ctx, event.Event{
			Category:         event.CategorySessionStop,
			SessionID:        "s1",
			WorkingDirectory: "/w/proj",
		})
	}
	if got := remote.sent(); len(got) != 2 {
		t.Fatalf("remote messages = %d, want 2 (zero window)", len(got))
	}
	// session-stop is on the local whitelist too.
	if len(local.messages) != 2 {
		t.Fatalf("local messages = %d, want 2", len(local.messages))
	}
	if local.categories[0] != event.CategorySessionStop {
		t.Fatalf("local category = %q", local.categories[0])
	}
}

func TestProcessAuditFailureDoesNotStopCounters(t *testing.T) {
	t.Parallel()
	base := openTestStore(t)
	st := &recordingStore{Store: base, appendErr: errors.New("audit disk full")}
	p, remote, _ := newTestPipeline(t, st)
	ctx := context.Background()

	p.Process(ctx, event.Event{
		Category:         event.CategorySessionStop,
		SessionID:        "s1",
		WorkingDirectory: "/w/proj",
	})

	if len(remote.sent()) != 1 {
		t.Fatal("dispatch must precede the audit write")
	}
	rec, ok, err := base.Session(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Session = (%v, %v, %v)", rec, ok, err)
	}
	// The counter bump still happened despite the failed audit append.
	if rec.NotificationCount != 1 {
		t.Fatalf("NotificationCount = %d, want 1", rec.NotificationCount)
	}
}

func TestProcessUsesStoredWorkingDirectory(t *testing.T) {
	t.Parallel()
	p, remote, _ := newTestPipeline(t, openTestStore(t))
	ctx := context.Background()

	p.Process(ctx, event.Event{
		Category:         event.CategoryPromptSubmitted,
		SessionID:        "s1",
		Prompt:           "start",
		WorkingDirectory: "/home/dev/alpha",
	})
	// The stop event carries no directory; the session's last known one is used.
	p.Process(ctx, event.Event{
		Category:  event.CategorySessionStop,
		SessionID: "s1",
	})

	got := remote.sent()
	if len(got) != 1 {
		t.Fatalf("remote messages = %v", got)
	}
	if !strings.Contains(got[0], "alpha") {
		t.Fatalf("message %q missing project label from session state", got[0])
	}
}

func TestProcessPublishesSignals(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	gate := debounce.NewGate(debounce.NewMemoryStore(), logx.Nop())
	tracker := session.NewTracker(st, logx.Nop())
	p := New(tracker, gate, st, &fakeRemote{}, &fakeLocal{}, bus, logx.Nop())

	p.Process(context.Background(), event.Event{
		Category:  event.CategorySessionStop,
		SessionID: "s1",
	})

	want := []string{SignalReceived, SignalDispatched, SignalRecorded}
	seen := map[string]bool{}
	for len(seen) < len(want) {
		select {
		case sig := <-ch:
			seen[sig.Type] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out; saw %v", seen)
		}
	}
	for _, w := range want {
		if !seen[w] {
			t.Fatalf("missing signal %s; saw %v", w, seen)
		}
	}
}
