package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/pitchoracle/internal/models"
)

const verdictJSON = `{
	"matchAnalysis": {
		"homeFormSummary": "Won 4 of last 5.",
		"awayFormSummary": "Two defeats in a row.",
		"tacticalNote": "High press against a back three."
	},
	"prediction": {"outcome": "Home", "scoreline": "2-1"},
	"valueAssessment": {
		"status": "UNDERVALUED",
		"marketProbability": 52.0,
		"modelProbability": 60.0,
		"edgePercent": 8.0,
		"kellyFraction": 0.05
	},
	"confidence": 7,
	"keyInsights": ["Home xG trending up"],
	"riskFactors": ["Key striker doubtful"],
	"dataSource": "web search"
}`

func testEvent() models.Event {
	return models.Event{
		ID:      "evt-1",
		Slug:    "test-match",
		Title:   "Test Match",
		EndDate: time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func testMarket() (models.Market, models.NormalizedView) {
	m := models.Market{ID: "mkt-1", Question: "Who will win?"}
	view := models.NormalizedView{
		Outcomes: []string{"Home", "Away", "Draw"},
		Prices:   []float64{0.52, 0.24, 0.24},
	}
	return m, view
}

// twoStageServer fakes both generateContent endpoints and records what each
// stage received.
type twoStageServer struct {
	*httptest.Server
	researchCalls int
	analysisCalls int
	researchBody  generateRequest
	analysisBody  generateRequest
}

func newTwoStageServer(t *testing.T, researchStatus int, researchResp, analysisResp string) *twoStageServer {
	t.Helper()
	ts := &twoStageServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		switch r.URL.Path {
		case "/v1beta/models/research-model:generateContent":
			ts.researchCalls++
			ts.researchBody = req
			if researchStatus != http.StatusOK {
				w.WriteHeader(researchStatus)
			}
			w.Write([]byte(researchResp))
		case "/v1beta/models/analysis-model:generateContent":
			ts.analysisCalls++
			ts.analysisBody = req
			w.Write([]byte(analysisResp))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return ts
}

func candidateResponse(text string) string {
	b, _ := json.Marshal(text)
	return `{"candidates":[{"content":{"parts":[{"text":` + string(b) + `}]}}]}`
}

func TestAnalyzeTwoStageSuccess(t *testing.T) {
	research := "Home side won 4 of the last 5 meetings."
	server := newTwoStageServer(t, http.StatusOK,
		candidateResponse(research),
		candidateResponse(verdictJSON))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "research-model", "analysis-model", 5*time.Second)
	market, view := testMarket()

	verdict, err := client.Analyze(context.Background(), testEvent(), market, view)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if server.researchCalls != 1 || server.analysisCalls != 1 {
		t.Errorf("calls = %d research, %d analysis; want 1 each", server.researchCalls, server.analysisCalls)
	}

	// Stage 1 must carry the web-search tool; stage 2 the schema constraint.
	if len(server.researchBody.Tools) != 1 || server.researchBody.Tools[0].GoogleSearch == nil {
		t.Error("research request is missing the google_search tool")
	}
	if server.analysisBody.GenerationConfig == nil ||
		server.analysisBody.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Error("analysis request is missing the JSON generation config")
	}
	if server.analysisBody.SystemInstruction == nil {
		t.Error("analysis request is missing the system instruction")
	}

	prompt := server.analysisBody.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, research) {
		t.Error("analysis prompt does not embed the research findings verbatim")
	}
	if !strings.Contains(prompt, "Home: 52.0%") || !strings.Contains(prompt, "Draw: 24.0%") {
		t.Errorf("analysis prompt is missing priced outcome pairs:\n%s", prompt)
	}

	if verdict.ID == "" {
		t.Error("verdict ID not assigned")
	}
	if verdict.MarketID != "mkt-1" {
		t.Errorf("verdict market ID = %q", verdict.MarketID)
	}
	if verdict.ValueAssessment.Status != models.StatusUndervalued {
		t.Errorf("status = %s", verdict.ValueAssessment.Status)
	}
	if verdict.Prediction.Outcome != "Home" || verdict.Prediction.Scoreline != "2-1" {
		t.Errorf("unexpected prediction: %+v", verdict.Prediction)
	}
	if k := verdict.ValueAssessment.KellyFraction; k == nil || *k != 0.05 {
		t.Errorf("kelly fraction = %v", k)
	}
	if verdict.CreatedAt.IsZero() {
		t.Error("created at not set")
	}
}

func TestAnalyzeResearchFailureAborts(t *testing.T) {
	server := newTwoStageServer(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
		candidateResponse(verdictJSON))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", "research-model", "analysis-model", 5*time.Second)
	market, view := testMarket()

	_, err := client.Analyze(context.Background(), testEvent(), market, view)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "research failed") {
		t.Errorf("error should name the research stage, got: %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("upstream message should be preserved, got: %v", err)
	}
	if server.analysisCalls != 0 {
		t.Errorf("analysis stage ran %d times after research failure, want 0", server.analysisCalls)
	}
}

func TestAnalyzeStripsFencedVerdict(t *testing.T) {
	fenced := "```json\n" + verdictJSON + "\n```"
	server := newTwoStageServer(t, http.StatusOK,
		candidateResponse("research text"),
		candidateResponse(fenced))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "research-model", "analysis-model", 5*time.Second)
	market, view := testMarket()

	verdict, err := client.Analyze(context.Background(), testEvent(), market, view)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if verdict.Confidence != 7 {
		t.Errorf("confidence = %d, want 7", verdict.Confidence)
	}
}

func TestAnalyzeRejectsInvalidVerdict(t *testing.T) {
	// Confidence outside 1-10 fails validation after a clean parse.
	bad := strings.Replace(verdictJSON, `"confidence": 7`, `"confidence": 14`, 1)
	server := newTwoStageServer(t, http.StatusOK,
		candidateResponse("research text"),
		candidateResponse(bad))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "research-model", "analysis-model", 5*time.Second)
	market, view := testMarket()

	_, err := client.Analyze(context.Background(), testEvent(), market, view)
	if err == nil || !strings.Contains(err.Error(), "failed validation") {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestAnalyzeRejectsUnparseableVerdict(t *testing.T) {
	server := newTwoStageServer(t, http.StatusOK,
		candidateResponse("research text"),
		candidateResponse("I think the home side wins."))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "research-model", "analysis-model", 5*time.Second)
	market, view := testMarket()

	_, err := client.Analyze(context.Background(), testEvent(), market, view)
	if err == nil || !strings.Contains(err.Error(), "did not parse") {
		t.Errorf("expected parse error, got: %v", err)
	}
}

func TestResearchPromptForbidsPredictions(t *testing.T) {
	prompt := researchPrompt(testEvent())
	if !strings.Contains(prompt, "Do not make any predictions") {
		t.Error("research prompt must forbid predictions")
	}
	if !strings.Contains(prompt, "Test Match") {
		t.Error("research prompt must name the match")
	}
}
