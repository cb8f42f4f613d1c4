// Package format renders market data for the watchlist table. Every function
// accepts nil for "no data" and never fails.
package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder is shown in place of a missing value.
const Placeholder = "-"

// Trend classifies a daily move for display.
type Trend string

const (
	Positive Trend = "positive"
	Negative Trend = "negative"
	Neutral  Trend = "neutral"
)

// Price renders v as dollars with two decimals.
func Price(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return "$" + fixed(*v)
}

// Change renders the absolute change followed by the signed percentage in
// parentheses, e.g. "+2.00 (+1.35%)".
func Change(change, percentChange *float64) string {
	if change == nil && percentChange == nil {
		return Placeholder
	}

	abs := Placeholder
	if change != nil {
		sign := ""
		if *change > 0 {
			sign = "+"
		}
		abs = sign + fixed(*change)
	}

	pct := ""
	if percentChange != nil {
		sign := ""
		if *percentChange >= 0 {
			sign = "+"
		}
		pct = " (" + sign + fixed(*percentChange) + "%)"
	}
	return abs + pct
}

var magnitudes = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "k"},
}

// Magnitude renders n with a T/B/M/k suffix, choosing the largest threshold
// |n| reaches. Values below 1000 are rendered as-is with two decimals.
func Magnitude(n *float64) string {
	if n == nil {
		return Placeholder
	}
	abs := math.Abs(*n)
	for _, m := range magnitudes {
		if abs >= m.threshold {
			return fixed(*n/m.threshold) + m.suffix
		}
	}
	return fixed(*n)
}

// Ratio renders a plain ratio such as P/E with two decimals.
func Ratio(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fixed(*v)
}

// Classify picks the trend from percentChange, falling back to change.
func Classify(change, percentChange *float64) Trend {
	var v float64
	switch {
	case percentChange != nil:
		v = *percentChange
	case change != nil:
		v = *change
	default:
		return Neutral
	}

	switch {
	case v > 0:
		return Positive
	case v < 0:
		return Negative
	default:
		return Neutral
	}
}

// CompanyName picks the display name for a row. The stored company wins
// unless it is empty or just repeats the symbol.
func CompanyName(company, symbol string, quoteName *string) string {
	if company != "" && !strings.EqualFold(company, symbol) {
		return company
	}
	if quoteName != nil && *quoteName != "" {
		return *quoteName
	}
	return Placeholder
}

// fixed rounds the shortest decimal form of v half away from zero, so 1.005
// renders as "1.01" rather than the "1.00" binary rounding would give.
func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
