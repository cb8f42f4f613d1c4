package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/services"
	"github.com/vikasavnish/stockwatch/internal/toggle"
)

type headerSessions struct{}

func (headerSessions) GetSession(r *http.Request) *services.Session {
	id := r.Header.Get("X-Test-User")
	if id == "" {
		return nil
	}
	return &services.Session{User: services.SessionUser{ID: id}}
}

type memoryWriter struct {
	mu      sync.Mutex
	entries map[string]bool
	calls   int
}

func (w *memoryWriter) Add(ctx context.Context, userID, symbol, company string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.entries[userID+"/"+symbol] = true
	return nil
}

func (w *memoryWriter) Remove(ctx context.Context, userID, symbol string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	delete(w.entries, userID+"/"+symbol)
	return nil
}

type writerFactory struct{ w *memoryWriter }

func (f writerFactory) NewController(userID string, notifier toggle.Notifier) *toggle.Controller {
	return toggle.NewController(userID, f.w, notifier, nil)
}

type wireMessage struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

func startHub(t *testing.T) (*Hub, *memoryWriter, string) {
	t.Helper()
	w := &memoryWriter{entries: map[string]bool{}}
	hub := NewHub(headerSessions{}, writerFactory{w}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if userID != "" {
		header.Set("X-Test-User", userID)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessages(t *testing.T, conn *websocket.Conn, n int) []wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	out := make([]wireMessage, 0, n)
	for len(out) < n {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read message %d: %v", len(out), err)
		}
		out = append(out, msg)
	}
	return out
}

func sendToggle(t *testing.T, conn *websocket.Conn, req models.ToggleRequest) {
	t.Helper()
	if err := conn.WriteJSON(models.Message{Type: models.MessageToggle, Content: req}); err != nil {
		t.Fatalf("write toggle: %v", err)
	}
}

type rowView struct {
	Symbol      string `json:"symbol"`
	InWatchlist bool   `json:"inWatchlist"`
	Processing  bool   `json:"processing"`
}

func decodeRow(t *testing.T, m wireMessage) rowView {
	t.Helper()
	if m.Type != models.MessageRow {
		t.Fatalf("message type = %q, want %q", m.Type, models.MessageRow)
	}
	var row rowView
	if err := json.Unmarshal(m.Content, &row); err != nil {
		t.Fatal(err)
	}
	return row
}

func decodeToast(t *testing.T, m wireMessage) models.Notification {
	t.Helper()
	if m.Type != models.MessageToast {
		t.Fatalf("message type = %q, want %q", m.Type, models.MessageToast)
	}
	var n models.Notification
	if err := json.Unmarshal(m.Content, &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func waitForUser(t *testing.T, hub *Hub, userID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, id := range hub.ConnectedUsers() {
			if id == userID {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %s never registered", userID)
}

func TestAnonymousToggleIsRejected(t *testing.T) {
	hub, w, url := startHub(t)
	conn := dial(t, url, "")

	sendToggle(t, conn, models.ToggleRequest{Symbol: "aapl", InWatchlist: false})
	msgs := readMessages(t, conn, 3)

	if row := decodeRow(t, msgs[0]); !row.InWatchlist || !row.Processing {
		t.Errorf("first row = %+v, want optimistic present", row)
	}
	if row := decodeRow(t, msgs[1]); row.InWatchlist || row.Processing {
		t.Errorf("second row = %+v, want reverted absent", row)
	}
	if n := decodeToast(t, msgs[2]); n.Level != "error" || n.Message != toggle.MsgSignIn {
		t.Errorf("toast = %+v, want sign-in error", n)
	}

	w.mu.Lock()
	calls := w.calls
	w.mu.Unlock()
	if calls != 0 {
		t.Errorf("store calls = %d, want 0", calls)
	}
	if users := hub.ConnectedUsers(); len(users) != 0 {
		t.Errorf("ConnectedUsers() = %v, want none for anonymous connection", users)
	}
}

func TestSignedInToggleAdds(t *testing.T) {
	hub, w, url := startHub(t)
	conn := dial(t, url, "user-1")
	waitForUser(t, hub, "user-1")

	sendToggle(t, conn, models.ToggleRequest{Symbol: "MSFT", Company: "Microsoft", InWatchlist: false})
	msgs := readMessages(t, conn, 3)

	if row := decodeRow(t, msgs[0]); !row.InWatchlist || !row.Processing {
		t.Errorf("first row = %+v, want optimistic present", row)
	}
	if row := decodeRow(t, msgs[1]); !row.InWatchlist || row.Processing {
		t.Errorf("second row = %+v, want confirmed present", row)
	}
	if n := decodeToast(t, msgs[2]); n.Level != "success" || n.Message != "MSFT added to your watchlist" {
		t.Errorf("toast = %+v", n)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.entries["user-1/MSFT"] {
		t.Error("MSFT not written")
	}
}

func TestSendToUserAndBroadcast(t *testing.T) {
	hub, _, url := startHub(t)
	mine := dial(t, url, "user-1")
	other := dial(t, url, "user-2")
	waitForUser(t, hub, "user-1")
	waitForUser(t, hub, "user-2")

	hub.Success("user-1", "hello")
	if n := decodeToast(t, readMessages(t, mine, 1)[0]); n.Message != "hello" {
		t.Errorf("toast = %+v", n)
	}

	hub.Broadcast(context.Background(), models.Message{Type: models.MessageQuotes, Content: "tick"})
	for _, conn := range []*websocket.Conn{mine, other} {
		if m := readMessages(t, conn, 1)[0]; m.Type != models.MessageQuotes {
			t.Errorf("broadcast type = %q, want %q", m.Type, models.MessageQuotes)
		}
	}
}
