// Package models defines the domain entities for the pitchoracle dashboard.
// The raw Event and Market types mirror the Polymarket Gamma API's loosely
// typed JSON, including its habit of serializing arrays as JSON strings; the
// derived and AI-produced types carry built-in validation.
//
// Terminology (matching Polymarket's own naming):
//   - Event: a Gamma event page — here, one soccer match — grouping one or
//     more markets.
//   - Market: a single question within an event (match winner, over/under,
//     and so on). This is the unit the analyzer works on.
package models

import (
	"encoding/json"
	"time"
)

// Event represents a soccer event as returned by the Gamma API.
// Events are immutable after decoding and are fully replaced on every fetch;
// there are no merge or update semantics.
type Event struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	EndDate     string   `json:"endDate"`
	Markets     []Market `json:"markets"`
}

// Market represents one question within an event. Outcomes is a JSON string
// containing a serialized array (the upstream quirk); OutcomePrices is kept
// raw because the API returns it either as the same kind of serialized
// string or as a native array, and both are observed in practice. Liquidity
// and Volume are decimal values serialized as strings.
type Market struct {
	ID             string          `json:"id"`
	Question       string          `json:"question"`
	Outcomes       string          `json:"outcomes"`
	OutcomePrices  json.RawMessage `json:"outcomePrices"`
	Liquidity      string          `json:"liquidity"`
	Volume         string          `json:"volume"`
	GroupItemTitle string          `json:"groupItemTitle,omitempty"`
}

// eventBaseURL is the public trading page prefix for deep links.
const eventBaseURL = "https://polymarket.com/event/"

// URL builds the deep link to the event's public trading page from its slug.
// Returns an empty string when the event has no slug.
func (e *Event) URL() string {
	if e.Slug == "" {
		return ""
	}
	return eventBaseURL + e.Slug
}

// EndTime parses the event's end timestamp. The Gamma API emits RFC 3339;
// an unparseable or absent value yields the zero time, which callers treat
// as "already ended".
func (e *Event) EndTime() time.Time {
	t, err := time.Parse(time.RFC3339, e.EndDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Eligible reports whether the event qualifies for display: it must carry at
// least one market and its end timestamp must be strictly in the future.
func (e *Event) Eligible(now time.Time) bool {
	if len(e.Markets) == 0 {
		return false
	}
	return e.EndTime().After(now)
}

// DisplayQuestion returns the market's group-item title when the question is
// part of a multi-outcome family, otherwise the question text itself.
func (m *Market) DisplayQuestion() string {
	if m.GroupItemTitle != "" {
		return m.GroupItemTitle
	}
	return m.Question
}

// NormalizedView is the display-ready projection of a market: outcome labels
// paired by index with outcome probabilities in [0, 1]. Produced by the
// normalize package, never persisted.
type NormalizedView struct {
	Outcomes []string  `json:"outcomes"`
	Prices   []float64 `json:"prices"`
}

// PriceAt returns the probability paired with outcome index i, defaulting to
// 0 when the price list is shorter than the label list.
func (v NormalizedView) PriceAt(i int) float64 {
	if i < 0 || i >= len(v.Prices) {
		return 0
	}
	return v.Prices[i]
}
