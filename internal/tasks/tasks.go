package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/services"
)

// Manager handles the execution of scheduled tasks
type Manager struct {
	tasks  []Task
	logger *slog.Logger
}

// Task represents a scheduled task that needs to be executed
type Task interface {
	Name() string
	Start(ctx context.Context)
	Stop()
}

// NewManager creates a new task manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tasks:  make([]Task, 0),
		logger: logger,
	}
}

// RegisterTask registers a task with the manager
func (m *Manager) RegisterTask(task Task) {
	m.tasks = append(m.tasks, task)
}

// StartScheduledTasks starts all registered tasks
func (m *Manager) StartScheduledTasks(ctx context.Context) {
	for _, task := range m.tasks {
		task.Start(ctx)
		m.logger.Info("task started", "task", task.Name())
	}
}

// StopAllTasks stops all running tasks
func (m *Manager) StopAllTasks() {
	for _, task := range m.tasks {
		task.Stop()
	}
	m.logger.Info("stopped all scheduled tasks", "count", len(m.tasks))
}

// PageBuilder assembles a user's watchlist page
type PageBuilder interface {
	Build(ctx context.Context, userID string) *services.WatchlistPage
}

// Pusher delivers live updates to connected users
type Pusher interface {
	ConnectedUsers() []string
	SendToUser(userID string, msg models.Message)
}

// QuoteRefreshTask periodically rebuilds the watchlist of every connected
// user and pushes the fresh rows over the websocket.
type QuoteRefreshTask struct {
	pages    PageBuilder
	pusher   Pusher
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewQuoteRefreshTask creates a new quote refresh task
func NewQuoteRefreshTask(pages PageBuilder, pusher Pusher, interval time.Duration, logger *slog.Logger) *QuoteRefreshTask {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteRefreshTask{
		pages:    pages,
		pusher:   pusher,
		interval: interval,
		logger:   logger,
	}
}

func (t *QuoteRefreshTask) Name() string { return "quote-refresh" }

// Start begins refreshing on every tick. Calling Start on a running task
// does nothing.
func (t *QuoteRefreshTask) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.stopped = make(chan struct{})
	go t.loop(ctx, t.stopped)
}

// Stop terminates the task and waits for an in-flight refresh to finish
func (t *QuoteRefreshTask) Stop() {
	t.mu.Lock()
	cancel, stopped := t.cancel, t.stopped
	t.cancel, t.stopped = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (t *QuoteRefreshTask) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh pushes a rebuilt page to every connected user. Pages that failed
// to build are skipped so a transient upstream error does not blank the
// table a user is looking at.
func (t *QuoteRefreshTask) Refresh(ctx context.Context) {
	users := t.pusher.ConnectedUsers()
	if len(users) == 0 {
		return
	}

	pushed := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		page := t.pages.Build(ctx, userID)
		if page.Failed() {
			continue
		}
		t.pusher.SendToUser(userID, models.Message{Type: models.MessageQuotes, Content: page})
		pushed++
	}
	t.logger.Debug("quote refresh", "users", len(users), "pushed", pushed)
}
