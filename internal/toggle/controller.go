package toggle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Writer is the subset of the watchlist store a toggle needs.
type Writer interface {
	Add(ctx context.Context, userID, symbol, company string) error
	Remove(ctx context.Context, userID, symbol string) error
}

// Notifier shows a toast to a user. Calls are fire-and-forget.
type Notifier interface {
	Success(userID, message string)
	Error(userID, message string)
}

const (
	MsgSignIn = "Please sign in to modify your watchlist"
	MsgFailed = "Failed to update watchlist - please try again"
)

// Controller owns the rows of one watchlist view and runs toggles on them.
type Controller struct {
	userID   string
	writer   Writer
	notifier Notifier
	logger   *slog.Logger

	// OnChange is called with every row change, including reverts and the
	// end of processing.
	OnChange func(Row)

	mu   sync.Mutex
	rows map[string]Row
}

// NewController creates a controller for userID. An empty userID means the
// viewer is not signed in; every toggle is then rejected.
func NewController(userID string, writer Writer, notifier Notifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		userID:   userID,
		writer:   writer,
		notifier: notifier,
		logger:   logger,
		rows:     make(map[string]Row),
	}
}

// Track registers a row with its current state. Re-tracking replaces it but
// keeps its toggle count, so writes still in flight stay stale.
func (c *Controller) Track(symbol, company string, inWatchlist bool) Row {
	row := Row{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Company: company}
	if inWatchlist {
		row.State = Present
	}
	c.mu.Lock()
	if prev, ok := c.rows[row.Symbol]; ok {
		row.Seq = prev.Seq
	}
	c.rows[row.Symbol] = row
	c.mu.Unlock()
	return row
}

// Row returns the current state of symbol's row.
func (c *Controller) Row(symbol string) (Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rows[strings.ToUpper(strings.TrimSpace(symbol))]
	return row, ok
}

// Toggle flips symbol's row optimistically and starts the store write. The
// returned channel receives the settled row once and is then closed.
// Toggling a row that is still processing is allowed.
func (c *Controller) Toggle(ctx context.Context, symbol string) (<-chan Row, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	optimistic, ok := c.apply(key, Toggled)
	if !ok {
		return nil, fmt.Errorf("row %s is not tracked", key)
	}

	done := make(chan Row, 1)

	if c.userID == "" {
		reverted, _ := c.apply(key, Rejected)
		c.notifyError(MsgSignIn)
		done <- reverted
		close(done)
		return done, nil
	}

	go func() {
		defer close(done)

		var err error
		if optimistic.Pending == Present {
			err = c.writer.Add(ctx, c.userID, key, optimistic.Company)
		} else {
			err = c.writer.Remove(ctx, c.userID, key)
		}

		if err != nil {
			c.logger.Error("watchlist toggle failed", "user_id", c.userID, "symbol", key, "error", err)
			settled := c.settle(key, optimistic, Failed)
			c.notifyError(MsgFailed)
			done <- settled
			return
		}

		settled := c.settle(key, optimistic, Confirmed)
		if optimistic.Pending == Present {
			c.notifySuccess(fmt.Sprintf("%s added to your watchlist", key))
		} else {
			c.notifySuccess(fmt.Sprintf("%s removed from your watchlist", key))
		}
		done <- settled
	}()

	return done, nil
}

func (c *Controller) apply(key string, kind EventKind) (Row, bool) {
	c.mu.Lock()
	row, ok := c.rows[key]
	if !ok {
		c.mu.Unlock()
		return Row{}, false
	}
	before := row
	row = Reduce(row, Event{Kind: kind})
	c.rows[key] = row
	c.mu.Unlock()

	if row != before && c.OnChange != nil {
		c.OnChange(row)
	}
	return row, true
}

// settle applies a completion event for the toggle that produced
// optimistic. A later toggle on the same row owns the row's state; the
// completion then only reports its own outcome and leaves the row alone.
func (c *Controller) settle(key string, optimistic Row, kind EventKind) Row {
	reported := optimistic
	reported.Processing = false
	if kind == Failed {
		reported.State = optimistic.Pending.flip()
	}

	c.mu.Lock()
	row, ok := c.rows[key]
	if !ok || row.Seq != optimistic.Seq {
		c.mu.Unlock()
		return reported
	}
	before := row
	row = Reduce(row, Event{Kind: kind})
	c.rows[key] = row
	c.mu.Unlock()

	if row != before && c.OnChange != nil {
		c.OnChange(row)
	}
	return row
}

func (c *Controller) notifySuccess(msg string) {
	if c.notifier != nil {
		c.notifier.Success(c.userID, msg)
	}
}

func (c *Controller) notifyError(msg string) {
	if c.notifier != nil {
		c.notifier.Error(c.userID, msg)
	}
}
