package gamma

import (
	"encoding/json"
	"time"

	"github.com/rewired-gh/pitchoracle/internal/models"
)

// SampleEvents returns the fixed two-event set served when the live feed is
// unreachable or empty. End dates are pinned relative to now so the sample
// always passes the eligibility filter.
func SampleEvents(now time.Time) []models.Event {
	return []models.Event{
		{
			ID:          "sample-epl-1",
			Slug:        "epl-arsenal-vs-liverpool",
			Title:       "Arsenal vs Liverpool",
			Description: "English Premier League matchday fixture at the Emirates Stadium.",
			Category:    "Soccer",
			EndDate:     now.Add(36 * time.Hour).UTC().Format(time.RFC3339),
			Markets: []models.Market{
				{
					ID:            "sample-epl-1-winner",
					Question:      "Who will win Arsenal vs Liverpool?",
					Outcomes:      `["Arsenal","Liverpool","Draw"]`,
					OutcomePrices: json.RawMessage(`"[\"0.41\",\"0.33\",\"0.26\"]"`),
					Liquidity:     "184230.55",
					Volume:        "1278450.10",
				},
			},
		},
		{
			ID:          "sample-ucl-1",
			Slug:        "ucl-real-madrid-vs-bayern-munich",
			Title:       "Real Madrid vs Bayern Munich",
			Description: "UEFA Champions League knockout tie at the Santiago Bernabéu.",
			Category:    "Soccer",
			EndDate:     now.Add(72 * time.Hour).UTC().Format(time.RFC3339),
			Markets: []models.Market{
				{
					ID:            "sample-ucl-1-winner",
					Question:      "Who will win Real Madrid vs Bayern Munich?",
					Outcomes:      `["Real Madrid","Bayern Munich","Draw"]`,
					OutcomePrices: json.RawMessage(`"[\"0.47\",\"0.29\",\"0.24\"]"`),
					Liquidity:     "96540.00",
					Volume:        "842116.40",
				},
			},
		},
	}
}
