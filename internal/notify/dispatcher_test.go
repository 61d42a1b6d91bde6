package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nhle/taskflow/tests/testutil"
)

// recordingTransport captures sends and optionally fails the first n
// attempts per recipient.
type recordingTransport struct {
	mu        sync.Mutex
	sends     []string // recipient ids in delivery order, attempts included
	failFirst int
	attempts  map[string]int
}

func (r *recordingTransport) Send(_ context.Context, recipientID, _ string, _ map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attempts == nil {
		r.attempts = make(map[string]int)
	}
	r.attempts[recipientID]++
	r.sends = append(r.sends, recipientID)

	if r.attempts[recipientID] <= r.failFirst {
		return errors.New("transport unavailable")
	}
	return nil
}

func TestDispatch_DeduplicatesRecipients(t *testing.T) {
	st := testutil.NewTestStore(t)
	tr := &recordingTransport{}
	d := NewDispatcher(st, tr, nil, Config{})

	d.Dispatch(context.Background(), []string{"a", "a", "b", "", "a"}, "task_submitted", "hello", nil)

	if len(tr.sends) != 2 {
		t.Fatalf("got %d sends, want 2: %v", len(tr.sends), tr.sends)
	}

	for _, recipient := range []string{"a", "b"} {
		ns, err := st.GetUnreadNotifications(context.Background(), recipient)
		if err != nil {
			t.Fatalf("loading notifications for %s: %v", recipient, err)
		}
		if len(ns) != 1 {
			t.Errorf("%s has %d notifications, want 1", recipient, len(ns))
		}
	}
}

func TestDispatch_RetriesThenSucceeds(t *testing.T) {
	st := testutil.NewTestStore(t)
	tr := &recordingTransport{failFirst: 2}
	d := NewDispatcher(st, tr, nil, Config{MaxRetries: 2})

	d.Dispatch(context.Background(), []string{"a"}, "task_accepted", "done", nil)

	if got := tr.attempts["a"]; got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDispatch_FailureIsSwallowed(t *testing.T) {
	st := testutil.NewTestStore(t)
	tr := &recordingTransport{failFirst: 100}
	d := NewDispatcher(st, tr, nil, Config{MaxRetries: 1})

	// Must not panic or surface the error; the record still persists.
	d.Dispatch(context.Background(), []string{"a"}, "task_accepted", "done", nil)

	if got := tr.attempts["a"]; got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	ns, err := st.GetUnreadNotifications(context.Background(), "a")
	if err != nil {
		t.Fatalf("loading notifications: %v", err)
	}
	if len(ns) != 1 {
		t.Errorf("got %d persisted notifications, want 1", len(ns))
	}
}

func TestDispatch_NilTransportPersistsOnly(t *testing.T) {
	st := testutil.NewTestStore(t)
	d := NewDispatcher(st, nil, nil, Config{})

	d.Dispatch(context.Background(), []string{"a"}, "blocker_declared", "stuck", map[string]string{"task_id": "t1"})

	ns, err := st.GetUnreadNotifications(context.Background(), "a")
	if err != nil {
		t.Fatalf("loading notifications: %v", err)
	}
	if len(ns) != 1 {
		t.Fatalf("got %d notifications, want 1", len(ns))
	}
	if ns[0].Type != "blocker_declared" || ns[0].Message != "stuck" {
		t.Errorf("notification = %+v", ns[0])
	}
}

func TestDispatch_CancelledContextAbandonsRetry(t *testing.T) {
	st := testutil.NewTestStore(t)
	tr := &recordingTransport{failFirst: 100}
	d := NewDispatcher(st, tr, nil, Config{MaxRetries: 5, Backoff: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, []string{"a"}, "task_accepted", "done", nil)

	// The first attempt runs; the retry loop must then observe the dead
	// context before waiting or sending again.
	if got := tr.attempts["a"]; got != 1 {
		t.Errorf("attempts = %d, want exactly 1", got)
	}
}
