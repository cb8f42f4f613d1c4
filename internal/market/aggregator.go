package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Aggregator fans a symbol set out to a Provider and collects the results.
// It holds no state between calls.
type Aggregator struct {
	provider    Provider
	concurrency int
	logger      *slog.Logger
}

// NewAggregator creates an aggregator that runs at most concurrency provider
// calls at once.
func NewAggregator(provider Provider, concurrency int, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		provider:    provider,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Quotes returns a quote for every requested symbol, keyed by the upper-cased
// symbol. Symbols the provider has no data for map to EmptyQuote. Any
// provider error fails the whole batch.
func (a *Aggregator) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	unique := normalizeSymbols(symbols)
	out := make(map[string]Quote, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	if a.provider == nil {
		return nil, fmt.Errorf("market provider not configured")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, sym := range unique {
		g.Go(func() error {
			q, found, err := a.provider.Quote(gctx, sym)
			if err != nil {
				return fmt.Errorf("quote %s: %w", sym, err)
			}
			if !found {
				q = EmptyQuote()
			}
			mu.Lock()
			out[sym] = q
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Warn("market data batch failed", "symbols", len(unique), "error", err)
		return nil, err
	}
	return out, nil
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
