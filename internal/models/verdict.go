package models

import (
	"errors"
	"time"
)

// ValueStatus is the analyzer's enumerated judgement of a market price.
type ValueStatus string

const (
	StatusUndervalued ValueStatus = "UNDERVALUED"
	StatusOvervalued  ValueStatus = "OVERVALUED"
	StatusFair        ValueStatus = "FAIR"
)

// MatchAnalysis summarizes the research stage's factual findings.
type MatchAnalysis struct {
	HomeFormSummary string `json:"homeFormSummary"`
	AwayFormSummary string `json:"awayFormSummary"`
	TacticalNote    string `json:"tacticalNote"`
}

// Prediction is the model's outcome call for the match.
type Prediction struct {
	Outcome   string `json:"outcome"`
	Scoreline string `json:"scoreline"`
}

// ValueAssessment compares the model's probability against the market's
// implied probability. EdgePercent = ModelProbability - MarketProbability,
// both on the 0-100 scale; a positive edge means the model considers the
// outcome undervalued. KellyFraction, when present, is a suggested stake as
// a fraction of bankroll in [0, 1]; display conversion to a percentage is a
// plain multiply-by-100 and is not re-derived here.
type ValueAssessment struct {
	Status            ValueStatus `json:"status"`
	MarketProbability float64     `json:"marketProbability"`
	ModelProbability  float64     `json:"modelProbability"`
	EdgePercent       float64     `json:"edgePercent"`
	KellyFraction     *float64    `json:"kellyFraction,omitempty"`
}

// Verdict is the structured output of one analysis request. A verdict is
// created once per market, held in memory keyed by market ID, and never
// invalidated automatically.
type Verdict struct {
	ID              string          `json:"id"`
	MarketID        string          `json:"market_id"`
	MatchAnalysis   MatchAnalysis   `json:"matchAnalysis"`
	Prediction      Prediction      `json:"prediction"`
	ValueAssessment ValueAssessment `json:"valueAssessment"`
	Confidence      int             `json:"confidence"`
	KeyInsights     []string        `json:"keyInsights"`
	RiskFactors     []string        `json:"riskFactors"`
	DataSource      string          `json:"dataSource"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate checks that all verdict fields are valid.
func (v *Verdict) Validate() error {
	if v.ID == "" {
		return errors.New("verdict ID must not be empty")
	}
	if v.MarketID == "" {
		return errors.New("market ID must not be empty")
	}
	switch v.ValueAssessment.Status {
	case StatusUndervalued, StatusOvervalued, StatusFair:
	default:
		return errors.New("value status must be UNDERVALUED, OVERVALUED, or FAIR")
	}
	if v.ValueAssessment.MarketProbability < 0.0 || v.ValueAssessment.MarketProbability > 100.0 {
		return errors.New("market probability must be between 0 and 100")
	}
	if v.ValueAssessment.ModelProbability < 0.0 || v.ValueAssessment.ModelProbability > 100.0 {
		return errors.New("model probability must be between 0 and 100")
	}
	if k := v.ValueAssessment.KellyFraction; k != nil && (*k < 0.0 || *k > 1.0) {
		return errors.New("kelly fraction must be between 0.0 and 1.0")
	}
	if v.Confidence < 1 || v.Confidence > 10 {
		return errors.New("confidence must be between 1 and 10")
	}
	if v.Prediction.Outcome == "" {
		return errors.New("prediction outcome must not be empty")
	}
	if v.CreatedAt.After(time.Now()) {
		return errors.New("created at must not be in the future")
	}
	return nil
}
