package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/vikasavnish/stockwatch/internal/format"
	"github.com/vikasavnish/stockwatch/internal/market"
	"github.com/vikasavnish/stockwatch/internal/models"
)

// MsgLoadFailed replaces the table when the page cannot be assembled
const MsgLoadFailed = "Could not load your watchlist. Please try again later."

// QuoteSource returns quotes keyed by upper-case symbol
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]market.Quote, error)
}

// WatchlistRow is one rendered table row
type WatchlistRow struct {
	Symbol      string       `json:"symbol"`
	Company     string       `json:"company"`
	Price       string       `json:"price"`
	Change      string       `json:"change"`
	PERatio     string       `json:"peRatio"`
	MarketCap   string       `json:"marketCap"`
	Trend       format.Trend `json:"trend"`
	AddedAt     time.Time    `json:"addedAt"`
	InWatchlist bool         `json:"inWatchlist"`

	// StoredCompany is the company saved with the entry, used for toggles
	StoredCompany string       `json:"-"`
	Quote         market.Quote `json:"quote"`
}

// WatchlistPage is the assembled watchlist. Error is set, and Rows empty,
// when assembly failed.
type WatchlistPage struct {
	UserID string         `json:"-"`
	Rows   []WatchlistRow `json:"rows"`
	Error  string         `json:"error,omitempty"`
}

// Failed reports whether the page is the fallback page
func (p *WatchlistPage) Failed() bool {
	return p.Error != ""
}

// PageService joins stored entries with live quotes
type PageService struct {
	store  WatchlistStore
	quotes QuoteSource
	logger *slog.Logger
}

// NewPageService creates a new page service
func NewPageService(store WatchlistStore, quotes QuoteSource, logger *slog.Logger) *PageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageService{
		store:  store,
		quotes: quotes,
		logger: logger,
	}
}

// Build assembles the watchlist for an authenticated user. Store and market
// failures are logged and turned into the fallback page.
func (s *PageService) Build(ctx context.Context, userID string) *WatchlistPage {
	page := &WatchlistPage{UserID: userID, Rows: []WatchlistRow{}}

	entries, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error("load watchlist", "user_id", userID, "error", err)
		page.Error = MsgLoadFailed
		return page
	}

	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		symbols = append(symbols, e.Symbol)
	}

	quotes, err := s.quotes.Quotes(ctx, symbols)
	if err != nil {
		s.logger.Error("load market data", "user_id", userID, "symbols", len(symbols), "error", err)
		page.Error = MsgLoadFailed
		return page
	}

	for _, e := range entries {
		q, ok := quotes[e.Symbol]
		if !ok {
			q = market.EmptyQuote()
		}
		page.Rows = append(page.Rows, BuildRow(e, q))
	}
	return page
}

// BuildRow formats one entry with its quote
func BuildRow(e models.WatchlistEntry, q market.Quote) WatchlistRow {
	return WatchlistRow{
		Symbol:        e.Symbol,
		Company:       format.CompanyName(e.Company, e.Symbol, q.CompanyName),
		Price:         format.Price(q.CurrentPrice),
		Change:        format.Change(q.Change, q.PercentChange),
		PERatio:       format.Ratio(q.PERatio),
		MarketCap:     format.Magnitude(q.MarketCap),
		Trend:         format.Classify(q.Change, q.PercentChange),
		AddedAt:       e.AddedAt,
		InWatchlist:   true,
		StoredCompany: e.Company,
		Quote:         q,
	}
}
