package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/vikasavnish/stockwatch/internal/models"
)

// WatchlistStore is the sole writer of watchlist entries.
//
// Add and Remove check for the entry before writing and are not atomic with
// that check; two concurrent adds may both pass it. The (user_id, symbol)
// unique index turns the losing insert into a no-op.
type WatchlistStore interface {
	Exists(ctx context.Context, userID, symbol string) (bool, error)
	Add(ctx context.Context, userID, symbol, company string) error
	Remove(ctx context.Context, userID, symbol string) error
	ListForUser(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
}

// gormWatchlistStore implements WatchlistStore on a relational database
type gormWatchlistStore struct {
	db *gorm.DB
}

// NewGormWatchlistStore creates a watchlist store backed by gorm. The db
// should be opened with TranslateError so duplicate inserts are detectable.
func NewGormWatchlistStore(db *gorm.DB) WatchlistStore {
	return &gormWatchlistStore{db: db}
}

// Exists reports whether userID has symbol on their watchlist
func (s *gormWatchlistStore) Exists(ctx context.Context, userID, symbol string) (bool, error) {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return false, nil
	}

	var count int64
	result := s.db.WithContext(ctx).Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("check watchlist entry: %w", result.Error)
	}
	return count > 0, nil
}

// Add inserts symbol into the user's watchlist unless it is already there
func (s *gormWatchlistStore) Add(ctx context.Context, userID, symbol, company string) error {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return nil
	}

	exists, err := s.Exists(ctx, userID, symbol)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.insert(ctx, userID, symbol, company)
}

// insert creates the entry without checking for it first. A duplicate that
// trips the unique index is not an error.
func (s *gormWatchlistStore) insert(ctx context.Context, userID, symbol, company string) error {
	entry := models.WatchlistEntry{
		UserID:  userID,
		Symbol:  symbol,
		Company: strings.TrimSpace(company),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("add watchlist entry: %w", err)
	}
	return nil
}

// Remove deletes symbol from the user's watchlist if it is there
func (s *gormWatchlistStore) Remove(ctx context.Context, userID, symbol string) error {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return nil
	}

	exists, err := s.Exists(ctx, userID, symbol)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Delete(&models.WatchlistEntry{})
	if result.Error != nil {
		return fmt.Errorf("remove watchlist entry: %w", result.Error)
	}
	return nil
}

// ListForUser returns the user's entries in insertion order
func (s *gormWatchlistStore) ListForUser(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("list watchlist: %w", result.Error)
	}

	for i := range entries {
		entries[i] = normalizeEntry(entries[i])
	}
	return entries, nil
}

func normalizeKey(userID, symbol string) (string, string) {
	return strings.TrimSpace(userID), strings.ToUpper(strings.TrimSpace(symbol))
}

// normalizeEntry enforces the entry schema on rows read back from storage.
func normalizeEntry(e models.WatchlistEntry) models.WatchlistEntry {
	e.UserID = strings.TrimSpace(e.UserID)
	e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
	e.Company = strings.TrimSpace(e.Company)
	return e
}
