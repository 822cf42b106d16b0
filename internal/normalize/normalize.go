// Package normalize turns a raw Gamma market into its display-ready view.
//
// The Gamma API encodes outcome labels and outcome prices as JSON strings
// containing serialized arrays ("[\"Yes\",\"No\"]"), though prices are also
// seen as native arrays. Decoding is defensive and total: a field that fails
// to decode degrades to a safe default rather than failing the card.
package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/rewired-gh/pitchoracle/internal/models"
)

// defaultOutcomes is the two-element fallback used when the encoded label
// list cannot be decoded.
var defaultOutcomes = []string{"Yes", "No"}

// Market produces the normalized view of a raw market. Outcome labels that
// fail to decode fall back to {"Yes","No"}; prices that fail to decode fall
// back to an empty list, which renders as 0.0% everywhere.
func Market(m models.Market) models.NormalizedView {
	return models.NormalizedView{
		Outcomes: Outcomes(m.Outcomes),
		Prices:   Prices(m.OutcomePrices),
	}
}

// Outcomes decodes the encoded outcome-label field. A decode failure or a
// non-list result substitutes the Yes/No default.
func Outcomes(encoded string) []string {
	var labels []string
	if err := json.Unmarshal([]byte(encoded), &labels); err != nil || labels == nil {
		out := make([]string, len(defaultOutcomes))
		copy(out, defaultOutcomes)
		return out
	}
	return labels
}

// Prices decodes the outcome-price field. A native array of numbers or
// decimal strings is used directly; a JSON string is decoded a second time
// (the upstream double-encoding quirk). Any failure, or any other shape,
// yields an empty list.
func Prices(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return []float64{}
	}

	// Native array first: elements may be numbers or decimal strings.
	var native []interface{}
	if err := json.Unmarshal(raw, &native); err == nil {
		return toFloats(native)
	}

	// String-wrapped array: decode the outer string, then the inner array.
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return []float64{}
	}
	var wrapped []interface{}
	if err := json.Unmarshal([]byte(inner), &wrapped); err != nil {
		return []float64{}
	}
	return toFloats(wrapped)
}

func toFloats(vals []interface{}) []float64 {
	prices := make([]float64, 0, len(vals))
	for _, v := range vals {
		switch x := v.(type) {
		case float64:
			prices = append(prices, x)
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				f = 0
			}
			prices = append(prices, f)
		default:
			prices = append(prices, 0)
		}
	}
	return prices
}
