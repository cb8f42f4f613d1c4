package services

import (
	"context"
	"log/slog"

	"github.com/vikasavnish/stockwatch/internal/toggle"
)

// WatchlistService ties the store to users and to live toggles
type WatchlistService struct {
	Store  WatchlistStore
	users  UserService
	logger *slog.Logger
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(store WatchlistStore, users UserService, logger *slog.Logger) *WatchlistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistService{
		Store:  store,
		users:  users,
		logger: logger,
	}
}

// SymbolsForEmail returns the symbols on the watchlist of the user with the
// given email. Unknown users and lookup failures yield an empty list.
func (s *WatchlistService) SymbolsForEmail(ctx context.Context, email string) []string {
	symbols := []string{}
	if email == "" {
		return symbols
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Debug("symbols for email: user lookup", "error", err)
		return symbols
	}

	entries, err := s.Store.ListForUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("symbols for email", "user_id", user.ID, "error", err)
		return symbols
	}
	for _, e := range entries {
		symbols = append(symbols, e.Symbol)
	}
	return symbols
}

// NewController starts a toggle controller for userID. An empty userID
// produces a controller that rejects every toggle.
func (s *WatchlistService) NewController(userID string, notifier toggle.Notifier) *toggle.Controller {
	return toggle.NewController(userID, s.Store, notifier, s.logger)
}

// Toggle flips one row and waits for it to settle.
func (s *WatchlistService) Toggle(ctx context.Context, userID, symbol, company string, inWatchlist bool, notifier toggle.Notifier) (toggle.Row, error) {
	c := s.NewController(userID, notifier)
	c.Track(symbol, company, inWatchlist)

	done, err := c.Toggle(ctx, symbol)
	if err != nil {
		return toggle.Row{}, err
	}
	select {
	case row := <-done:
		return row, nil
	case <-ctx.Done():
		return toggle.Row{}, ctx.Err()
	}
}
