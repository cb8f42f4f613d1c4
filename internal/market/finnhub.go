package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// APIError represents a non-2xx response from Finnhub.
type APIError struct {
	StatusCode int
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finnhub %s: %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// FinnhubClient implements Provider against the Finnhub REST API.
type FinnhubClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// FinnhubOption configures a FinnhubClient.
type FinnhubOption func(*FinnhubClient)

// NewFinnhubClient creates a new Finnhub client.
func NewFinnhubClient(apiKey string, opts ...FinnhubOption) *FinnhubClient {
	c := &FinnhubClient{
		baseURL: DefaultFinnhubURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) FinnhubOption {
	return func(c *FinnhubClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) FinnhubOption {
	return func(c *FinnhubClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FinnhubOption {
	return func(c *FinnhubClient) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FinnhubOption {
	return func(c *FinnhubClient) {
		c.logger = logger
	}
}

type finnhubQuote struct {
	Current       *float64 `json:"c"`
	Change        *float64 `json:"d"`
	PercentChange *float64 `json:"dp"`
}

type finnhubProfile struct {
	Name      string   `json:"name"`
	Ticker    string   `json:"ticker"`
	MarketCap *float64 `json:"marketCapitalization"` // millions
}

type finnhubMetrics struct {
	Metric struct {
		PETTM                *float64 `json:"peTTM"`
		PEBasicExclExtraTTM  *float64 `json:"peBasicExclExtraItemsTTM"`
		MarketCapitalization *float64 `json:"marketCapitalization"` // millions
	} `json:"metric"`
}

// Quote fetches price, profile and metrics for symbol. A symbol Finnhub does
// not know comes back with found == false.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (Quote, bool, error) {
	query := url.Values{"symbol": {symbol}}

	var fq finnhubQuote
	quoteFound, err := c.get(ctx, "/quote", query, &fq)
	if err != nil {
		return Quote{}, false, err
	}

	var fp finnhubProfile
	profileFound, err := c.get(ctx, "/stock/profile2", query, &fp)
	if err != nil {
		return Quote{}, false, err
	}

	var fm finnhubMetrics
	metricQuery := url.Values{"symbol": {symbol}, "metric": {"all"}}
	metricsFound, err := c.get(ctx, "/stock/metric", metricQuery, &fm)
	if err != nil {
		return Quote{}, false, err
	}

	var q Quote

	// An unknown symbol returns c == 0 with a null change.
	if quoteFound && fq.Current != nil && (*fq.Current != 0 || fq.Change != nil) {
		q.CurrentPrice = fq.Current
		q.Change = fq.Change
		q.PercentChange = fq.PercentChange
	}

	if profileFound {
		if name := strings.TrimSpace(fp.Name); name != "" {
			q.CompanyName = &name
		}
		q.MarketCap = scaleMillions(fp.MarketCap)
	}

	if metricsFound {
		q.PERatio = firstNonNil(fm.Metric.PETTM, fm.Metric.PEBasicExclExtraTTM)
		if q.MarketCap == nil {
			q.MarketCap = scaleMillions(fm.Metric.MarketCapitalization)
		}
	}

	if q.IsEmpty() {
		c.logger.Debug("no market data", "symbol", symbol)
		return Quote{}, false, nil
	}
	return q, true, nil
}

// get performs a GET and decodes the JSON body into result. A 404 reports
// found == false without an error.
func (c *FinnhubClient) get(ctx context.Context, path string, query url.Values, result any) (bool, error) {
	if c.apiKey != "" {
		query.Set("token", c.apiKey)
	}
	fullURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request finnhub %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read finnhub %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, &APIError{StatusCode: resp.StatusCode, Path: path, Body: body}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return false, fmt.Errorf("decode finnhub %s: %w", path, err)
	}
	return true, nil
}

// IsAPIError reports whether err carries a Finnhub status code.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func scaleMillions(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	scaled := *v * 1e6
	return &scaled
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
