// Package market fetches per-symbol market data from an upstream provider and
// aggregates it into quotes keyed by symbol.
package market

import "context"

// Quote is a snapshot of price and valuation metrics for a symbol. A nil
// field means the provider had no value for it.
type Quote struct {
	CurrentPrice  *float64 `json:"currentPrice"`
	Change        *float64 `json:"change"`
	PercentChange *float64 `json:"percentChange"`
	PERatio       *float64 `json:"peRatio"`
	MarketCap     *float64 `json:"marketCap"`
	CompanyName   *string  `json:"companyName"`
}

// EmptyQuote returns a quote with every field unset.
func EmptyQuote() Quote {
	return Quote{}
}

// IsEmpty reports whether none of the quote's fields are set.
func (q Quote) IsEmpty() bool {
	return q.CurrentPrice == nil && q.Change == nil && q.PercentChange == nil &&
		q.PERatio == nil && q.MarketCap == nil && q.CompanyName == nil
}

// Provider fetches a quote for one symbol. found is false when the provider
// has no data for the symbol, which is not an error.
type Provider interface {
	Quote(ctx context.Context, symbol string) (q Quote, found bool, err error)
}

// ProviderFunc is a function adapter for Provider.
type ProviderFunc func(ctx context.Context, symbol string) (Quote, bool, error)

func (f ProviderFunc) Quote(ctx context.Context, symbol string) (Quote, bool, error) {
	return f(ctx, symbol)
}
