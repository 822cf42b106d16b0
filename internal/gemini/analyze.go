package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/pitchoracle/internal/format"
	"github.com/rewired-gh/pitchoracle/internal/logger"
	"github.com/rewired-gh/pitchoracle/internal/models"
)

// analystPersona is the fixed system instruction for the analysis stage.
const analystPersona = `You are a professional soccer betting analyst. Weigh evidence in this order:
1. Recent form and momentum, with the most recent matches weighted heaviest.
2. Advanced metrics (expected goals, shot quality) and regression to the mean for over- or under-performing sides.
3. Tactical matchups, squad availability, and rotation risk.
4. Conversion of the market's odds into implied probability, compared against your own estimate.
Always respond with JSON that conforms exactly to the provided schema. Probabilities are on a 0-100 scale. edgePercent is your model probability minus the market's implied probability for the predicted outcome; positive means the market undervalues it. kellyFraction, if you include one, is a stake fraction between 0 and 1.`

// verdictSchema constrains the analysis response to the Verdict shape.
var verdictSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "matchAnalysis": {
      "type": "OBJECT",
      "properties": {
        "homeFormSummary": {"type": "STRING"},
        "awayFormSummary": {"type": "STRING"},
        "tacticalNote": {"type": "STRING"}
      },
      "required": ["homeFormSummary", "awayFormSummary", "tacticalNote"]
    },
    "prediction": {
      "type": "OBJECT",
      "properties": {
        "outcome": {"type": "STRING"},
        "scoreline": {"type": "STRING"}
      },
      "required": ["outcome", "scoreline"]
    },
    "valueAssessment": {
      "type": "OBJECT",
      "properties": {
        "status": {"type": "STRING", "enum": ["UNDERVALUED", "OVERVALUED", "FAIR"]},
        "marketProbability": {"type": "NUMBER"},
        "modelProbability": {"type": "NUMBER"},
        "edgePercent": {"type": "NUMBER"},
        "kellyFraction": {"type": "NUMBER"}
      },
      "required": ["status", "marketProbability", "modelProbability", "edgePercent"]
    },
    "confidence": {"type": "INTEGER"},
    "keyInsights": {"type": "ARRAY", "items": {"type": "STRING"}},
    "riskFactors": {"type": "ARRAY", "items": {"type": "STRING"}},
    "dataSource": {"type": "STRING"}
  },
  "required": ["matchAnalysis", "prediction", "valueAssessment", "confidence", "keyInsights", "riskFactors"]
}`)

// Analyze runs the two-stage protocol for one market and returns the parsed
// verdict. A research-stage failure aborts before the analysis stage; a
// malformed analysis response is surfaced, never swallowed. The caller owns
// user-facing notification and must clear its in-flight guard regardless of
// outcome.
func (c *Client) Analyze(ctx context.Context, event models.Event, market models.Market, view models.NormalizedView) (*models.Verdict, error) {
	research, err := c.generate(ctx, c.researchModel, generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: researchPrompt(event)}},
		}},
		Tools: []tool{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("research failed: %w", err)
	}
	logger.Debug("research stage complete for market %s (%d chars)", market.ID, len(research))

	raw, err := c.generate(ctx, c.analysisModel, generateRequest{
		SystemInstruction: &content{
			Parts: []part{{Text: analystPersona}},
		},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: analysisPrompt(event, market, view, research)}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   verdictSchema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	var verdict models.Verdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &verdict); err != nil {
		return nil, fmt.Errorf("analysis response did not parse: %w", err)
	}

	verdict.ID = uuid.New().String()
	verdict.MarketID = market.ID
	verdict.CreatedAt = time.Now()
	if verdict.DataSource == "" {
		verdict.DataSource = "gemini web research"
	}

	if err := verdict.Validate(); err != nil {
		return nil, fmt.Errorf("analysis response failed validation: %w", err)
	}
	return &verdict, nil
}

// researchPrompt asks for verified facts only. Predictions are the analysis
// stage's job; mixing them here would let unverified speculation leak into
// the grounding text.
func researchPrompt(event models.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research the upcoming soccer match %q", event.Title)
	if event.Description != "" {
		fmt.Fprintf(&sb, " (%s)", event.Description)
	}
	fmt.Fprintf(&sb, ", scheduled around %s.\n\n", format.DateString(event.EndDate))
	fmt.Fprintf(&sb, "Today's date is %s. Using web search, compile a verified factual summary covering:\n", time.Now().Format("January 2, 2006"))
	sb.WriteString("- The last 5 matches for each side across all competitions, with exact scorelines and results.\n")
	sb.WriteString("- Current injuries and suspensions for both squads.\n")
	sb.WriteString("- Head-to-head history between the sides.\n")
	sb.WriteString("- Situational motivation context (league position, cup stakes, fixture congestion).\n\n")
	sb.WriteString("Report facts only. Do not make any predictions.")
	return sb.String()
}

// analysisPrompt embeds the market's identifying fields, the priced outcome
// pairs, and the verbatim research text.
func analysisPrompt(event models.Event, market models.Market, view models.NormalizedView, research string) string {
	pairs := make([]string, len(view.Outcomes))
	for i, label := range view.Outcomes {
		pairs[i] = fmt.Sprintf("%s: %s%%", label, format.Percent(view.PriceAt(i)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH: %s\n", event.Title)
	fmt.Fprintf(&sb, "EVENT ID: %s\n", event.ID)
	fmt.Fprintf(&sb, "KICKOFF: %s\n", format.DateString(event.EndDate))
	fmt.Fprintf(&sb, "MARKET QUESTION: %s\n", market.Question)
	fmt.Fprintf(&sb, "MARKET PRICES (implied probabilities): %s\n\n", strings.Join(pairs, ", "))
	sb.WriteString("RESEARCH FINDINGS:\n")
	sb.WriteString(research)
	sb.WriteString("\n\nAssess whether this market offers value and produce your structured verdict.")
	return sb.String()
}
