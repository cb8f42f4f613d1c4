package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/toggle"
)

type toast struct {
	userID, level, message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

func (n *recordingNotifier) Success(userID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{userID, "success", message})
}

func (n *recordingNotifier) Error(userID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{userID, "error", message})
}

func TestSymbolsForEmail(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	store := NewGormWatchlistStore(db)
	svc := NewWatchlistService(store, users, nil)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, models.User{Email: "a@example.com", Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	store.Add(ctx, user.ID, "AAPL", "")
	store.Add(ctx, user.ID, "TSLA", "")

	got := svc.SymbolsForEmail(ctx, "A@example.com")
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "TSLA" {
		t.Errorf("SymbolsForEmail() = %v, want [AAPL TSLA]", got)
	}

	for _, email := range []string{"", "nobody@example.com"} {
		got := svc.SymbolsForEmail(ctx, email)
		if got == nil || len(got) != 0 {
			t.Errorf("SymbolsForEmail(%q) = %v, want empty list", email, got)
		}
	}
}

func TestSymbolsForEmailStoreFailure(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	ctx := context.Background()
	if _, err := users.CreateUser(ctx, models.User{Email: "a@example.com"}); err != nil {
		t.Fatal(err)
	}

	svc := NewWatchlistService(failingStore{err: context.DeadlineExceeded}, users, nil)
	if got := svc.SymbolsForEmail(ctx, "a@example.com"); got == nil || len(got) != 0 {
		t.Errorf("SymbolsForEmail() = %v, want empty list", got)
	}
}

func TestWatchlistToggle(t *testing.T) {
	db := newTestDB(t)
	store := NewGormWatchlistStore(db)
	svc := NewWatchlistService(store, NewUserService(db), nil)
	notifier := &recordingNotifier{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row, err := svc.Toggle(ctx, "u1", "nvda", "NVIDIA", false, notifier)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if row.State != toggle.Present || row.Processing {
		t.Errorf("row = %+v, want settled present", row)
	}
	if ok, _ := store.Exists(ctx, "u1", "NVDA"); !ok {
		t.Error("NVDA not stored after add toggle")
	}

	row, err = svc.Toggle(ctx, "u1", "NVDA", "NVIDIA", true, notifier)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if row.State != toggle.Absent {
		t.Errorf("row = %+v, want absent", row)
	}
	if ok, _ := store.Exists(ctx, "u1", "NVDA"); ok {
		t.Error("NVDA still stored after remove toggle")
	}

	want := []toast{
		{"u1", "success", "NVDA added to your watchlist"},
		{"u1", "success", "NVDA removed from your watchlist"},
	}
	if len(notifier.toasts) != len(want) {
		t.Fatalf("toasts = %+v, want %+v", notifier.toasts, want)
	}
	for i := range want {
		if notifier.toasts[i] != want[i] {
			t.Errorf("toast[%d] = %+v, want %+v", i, notifier.toasts[i], want[i])
		}
	}
}

func TestWatchlistToggleWithoutIdentity(t *testing.T) {
	db := newTestDB(t)
	store := NewGormWatchlistStore(db)
	svc := NewWatchlistService(store, NewUserService(db), nil)
	notifier := &recordingNotifier{}

	row, err := svc.Toggle(context.Background(), "", "AAPL", "", false, notifier)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if row.State != toggle.Absent {
		t.Errorf("row = %+v, want reverted to absent", row)
	}

	var count int64
	db.Model(&models.WatchlistEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("store has %d entries, want 0", count)
	}
	if len(notifier.toasts) != 1 || notifier.toasts[0].message != toggle.MsgSignIn {
		t.Errorf("toasts = %+v, want one sign-in prompt", notifier.toasts)
	}
}
