// Package format provides pure display conversions for market values:
// probabilities to one-decimal percentage strings, monetary amounts to
// abbreviated currency, and timestamps to card-friendly dates. Every
// function is total: malformed input degrades to a safe default instead of
// an error, because a single bad upstream field must never fail a render.
package format

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Percent converts a probability value into a one-decimal percentage string.
// The upstream API delivers probabilities as decimal strings, native floats,
// or not at all, so the input is deliberately loose: nil, unparseable, and
// NaN inputs all map to "0.0".
func Percent(v interface{}) string {
	p, ok := toFloat(v)
	if !ok || math.IsNaN(p) || math.IsInf(p, 0) {
		return "0.0"
	}
	return strconv.FormatFloat(math.Round(p*1000)/10, 'f', 1, 64)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Money abbreviates a dollar amount: "$0" for zero or invalid input,
// millions with one decimal and an "M" suffix from $1,000,000, thousands
// with a "K" suffix from $1,000, otherwise whole dollars.
func Money(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "$0"
	}
	switch {
	case v >= 1_000_000:
		return "$" + strconv.FormatFloat(v/1_000_000, 'f', 1, 64) + "M"
	case v >= 1_000:
		return "$" + strconv.FormatFloat(v/1_000, 'f', 1, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
}

// MoneyString abbreviates a decimal amount serialized as a string, the way
// the Gamma API reports liquidity and volume. Unparseable input renders as
// "$0".
func MoneyString(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "$0"
	}
	return Money(d.InexactFloat64())
}

// Date renders an event end timestamp for display.
func Date(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04 MST")
}

// DateString renders an RFC 3339 timestamp string, falling back to "TBD"
// when the field is missing or malformed.
func DateString(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "TBD"
	}
	return Date(t)
}
