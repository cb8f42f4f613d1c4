package toggle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeWriter struct {
	mu      sync.Mutex
	entries map[string]bool
	err     error
	calls   int
	gate    chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{entries: make(map[string]bool)}
}

func (w *fakeWriter) wait() {
	if w.gate != nil {
		<-w.gate
	}
}

func (w *fakeWriter) Add(ctx context.Context, userID, symbol, company string) error {
	w.wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.entries[userID+"/"+symbol] = true
	return nil
}

func (w *fakeWriter) Remove(ctx context.Context, userID, symbol string) error {
	w.wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	delete(w.entries, userID+"/"+symbol)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	success  []string
	failures []string
}

func (n *recordingNotifier) Success(userID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, message)
}

func (n *recordingNotifier) Error(userID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func settle(t *testing.T, ch <-chan Row) Row {
	t.Helper()
	select {
	case row := <-ch:
		return row
	case <-time.After(2 * time.Second):
		t.Fatal("toggle did not settle")
		return Row{}
	}
}

func TestToggleAdd(t *testing.T) {
	w := newFakeWriter()
	n := &recordingNotifier{}
	c := NewController("user-1", w, n, nil)
	c.Track("aapl", "Apple Inc", false)

	ch, err := c.Toggle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	row := settle(t, ch)

	if !row.InWatchlist() || row.Processing {
		t.Errorf("row = %+v, want present and settled", row)
	}
	if !w.entries["user-1/AAPL"] {
		t.Error("store has no entry after add")
	}
	if len(n.success) != 1 || n.success[0] != "AAPL added to your watchlist" {
		t.Errorf("success notifications = %v", n.success)
	}
}

func TestToggleOptimisticFlipPrecedesWrite(t *testing.T) {
	w := newFakeWriter()
	w.gate = make(chan struct{})
	c := NewController("user-1", w, &recordingNotifier{}, nil)
	c.Track("MSFT", "", true)

	ch, err := c.Toggle(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	row, _ := c.Row("MSFT")
	if row.InWatchlist() || !row.Processing {
		t.Errorf("row before write = %+v, want absent and processing", row)
	}

	close(w.gate)
	settled := settle(t, ch)
	if settled.InWatchlist() || settled.Processing {
		t.Errorf("settled row = %+v, want absent", settled)
	}
}

func TestToggleWithoutIdentity(t *testing.T) {
	w := newFakeWriter()
	n := &recordingNotifier{}
	c := NewController("", w, n, nil)
	c.Track("AAPL", "Apple Inc", false)

	var changes []Row
	c.OnChange = func(r Row) { changes = append(changes, r) }

	ch, err := c.Toggle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	row := settle(t, ch)

	if row.InWatchlist() {
		t.Error("row still present after rejected toggle")
	}
	if w.calls != 0 {
		t.Errorf("store calls = %d, want 0", w.calls)
	}
	if len(w.entries) != 0 {
		t.Errorf("store entries = %v, want none", w.entries)
	}
	if len(n.failures) != 1 || n.failures[0] != MsgSignIn {
		t.Errorf("failure notifications = %v, want [%q]", n.failures, MsgSignIn)
	}
	if len(changes) != 2 || !changes[0].InWatchlist() || changes[1].InWatchlist() {
		t.Errorf("changes = %+v, want flip then revert", changes)
	}
}

func TestToggleRemoveFailure(t *testing.T) {
	w := newFakeWriter()
	w.err = errors.New("connection refused")
	n := &recordingNotifier{}
	c := NewController("user-1", w, n, nil)
	c.Track("TSLA", "Tesla", true)

	ch, err := c.Toggle(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	row := settle(t, ch)

	if !row.InWatchlist() {
		t.Error("row not reverted to present")
	}
	current, _ := c.Row("TSLA")
	if !current.InWatchlist() || current.Processing {
		t.Errorf("tracked row = %+v, want present and settled", current)
	}
	if len(n.failures) != 1 || n.failures[0] != MsgFailed {
		t.Errorf("failure notifications = %v, want exactly one %q", n.failures, MsgFailed)
	}
	if len(n.success) != 0 {
		t.Errorf("success notifications = %v, want none", n.success)
	}
}

func TestToggleUntracked(t *testing.T) {
	c := NewController("user-1", newFakeWriter(), nil, nil)
	if _, err := c.Toggle(context.Background(), "NOPE"); err == nil {
		t.Error("Toggle() on untracked row returned nil error")
	}
}

type callKey struct{}

// gatedWriter blocks each call until the test sends its result on the gate
// named by the call's context.
type gatedWriter struct {
	mu      sync.Mutex
	gates   map[string]chan error
	entries map[string]bool
}

func (w *gatedWriter) result(ctx context.Context) error {
	w.mu.Lock()
	gate := w.gates[ctx.Value(callKey{}).(string)]
	w.mu.Unlock()
	return <-gate
}

func (w *gatedWriter) Add(ctx context.Context, userID, symbol, company string) error {
	if err := w.result(ctx); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[userID+"/"+symbol] = true
	return nil
}

func (w *gatedWriter) Remove(ctx context.Context, userID, symbol string) error {
	if err := w.result(ctx); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, userID+"/"+symbol)
	return nil
}

func TestToggleStaleFailureKeepsNewestState(t *testing.T) {
	w := &gatedWriter{
		gates: map[string]chan error{
			"add-1":  make(chan error, 1),
			"remove": make(chan error, 1),
			"add-2":  make(chan error, 1),
		},
		entries: make(map[string]bool),
	}
	n := &recordingNotifier{}
	c := NewController("user-1", w, n, nil)
	c.Track("AAPL", "Apple Inc", false)

	toggle := func(id string) <-chan Row {
		ctx := context.WithValue(context.Background(), callKey{}, id)
		ch, err := c.Toggle(ctx, "AAPL")
		if err != nil {
			t.Fatalf("Toggle(%s) error = %v", id, err)
		}
		return ch
	}
	first := toggle("add-1")
	second := toggle("remove")
	third := toggle("add-2")

	w.gates["remove"] <- nil
	settle(t, second)
	w.gates["add-1"] <- errors.New("connection reset")
	if got := settle(t, first); got.InWatchlist() {
		t.Errorf("failed add reported %+v, want its own reverted result", got)
	}

	row, _ := c.Row("AAPL")
	if !row.InWatchlist() || !row.Processing {
		t.Errorf("row after stale completions = %+v, want present and processing", row)
	}

	w.gates["add-2"] <- nil
	settled := settle(t, third)
	if !settled.InWatchlist() || settled.Processing {
		t.Errorf("settled row = %+v, want present and settled", settled)
	}
	if row, _ := c.Row("AAPL"); !row.InWatchlist() || row.Processing {
		t.Errorf("tracked row = %+v, want present and settled", row)
	}
	if !w.entries["user-1/AAPL"] {
		t.Error("store has no entry after newest add")
	}
	if len(n.failures) != 1 || n.failures[0] != MsgFailed {
		t.Errorf("failure notifications = %v, want one %q", n.failures, MsgFailed)
	}
}

func TestRetrackKeepsToggleCount(t *testing.T) {
	c := NewController("user-1", newFakeWriter(), nil, nil)
	c.Track("AAPL", "", false)
	c.Toggle(context.Background(), "AAPL")
	before, _ := c.Row("AAPL")

	after := c.Track("AAPL", "", true)
	if after.Seq != before.Seq {
		t.Errorf("Seq after re-track = %d, want %d", after.Seq, before.Seq)
	}
}
