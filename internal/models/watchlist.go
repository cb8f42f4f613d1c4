package models

import (
	"time"
)

// WatchlistEntry is a user's saved interest in one ticker symbol.
// (UserID, Symbol) is unique.
type WatchlistEntry struct {
	ID      uint      `gorm:"primaryKey" json:"-" bson:"-"`
	UserID  string    `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_watchlist_user_symbol" json:"userId" bson:"userId"`
	Symbol  string    `gorm:"column:symbol;size:16;not null;uniqueIndex:idx_watchlist_user_symbol" json:"symbol" bson:"symbol"`
	Company string    `gorm:"column:company" json:"company" bson:"company"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime" json:"addedAt" bson:"addedAt"`
}

// TableName specifies the table name for WatchlistEntry model
func (WatchlistEntry) TableName() string {
	return "watchlists"
}

// WatchlistRequest is used for adding symbols to the watchlist
type WatchlistRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// ToggleRequest describes a toggle on a watchlist row. InWatchlist is the
// state the client currently shows, before the toggle.
type ToggleRequest struct {
	Symbol      string `json:"symbol"`
	Company     string `json:"company"`
	InWatchlist bool   `json:"inWatchlist"`
}
