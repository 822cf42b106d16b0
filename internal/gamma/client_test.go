package gamma

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rewired-gh/pitchoracle/internal/format"
	"github.com/rewired-gh/pitchoracle/internal/logger"
	"github.com/rewired-gh/pitchoracle/internal/models"
	"github.com/rewired-gh/pitchoracle/internal/normalize"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func liveEvent(id string, endsIn time.Duration) models.Event {
	return models.Event{
		ID:      id,
		Slug:    id + "-slug",
		Title:   "Test Match",
		EndDate: testNow.Add(endsIn).Format(time.RFC3339),
		Markets: []models.Market{
			{
				ID:            id + "-winner",
				Question:      "Who will win?",
				Outcomes:      `["Home","Away","Draw"]`,
				OutcomePrices: json.RawMessage(`"[\"0.52\",\"0.24\",\"0.24\"]"`),
				Liquidity:     "184230.55",
				Volume:        "1278450.10",
			},
		},
	}
}

func newTestClient(baseURL string, relays []string) *Client {
	c := NewClient(baseURL, relays, "soccer", 20, 5*time.Second)
	c.now = func() time.Time { return testNow }
	return c
}

func TestFetchEventsDirect(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"tag":       q.Get("tag"),
			"active":    q.Get("active"),
			"closed":    q.Get("closed"),
			"limit":     q.Get("limit"),
			"order":     q.Get("order"),
			"ascending": q.Get("ascending"),
		}
		json.NewEncoder(w).Encode([]models.Event{liveEvent("evt-1", 24*time.Hour)})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	events, source, advisory := client.FetchEvents(context.Background())

	if source != SourceLive {
		t.Fatalf("source = %s, want LIVE", source)
	}
	if advisory != "" {
		t.Errorf("unexpected advisory: %q", advisory)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %+v", events)
	}

	want := map[string]string{
		"tag": "soccer", "active": "true", "closed": "false",
		"limit": "20", "order": "volume24hr", "ascending": "false",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query param %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestFetchEventsRelayAfterDirectFailure(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer direct.Close()

	var relayTarget string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayTarget = r.URL.Query().Get("url")
		json.NewEncoder(w).Encode([]models.Event{liveEvent("evt-relay", 12*time.Hour)})
	}))
	defer relay.Close()

	client := newTestClient(direct.URL, []string{relay.URL + "/raw?url="})
	events, source, _ := client.FetchEvents(context.Background())

	if source != SourceLive {
		t.Fatalf("source = %s, want LIVE via relay", source)
	}
	if len(events) != 1 || events[0].ID != "evt-relay" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if relayTarget == "" {
		t.Error("relay did not receive the wrapped target URL")
	}
}

func TestFetchEventsFallbackOnExhaustion(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	client := newTestClient(failing.URL, []string{
		failing.URL + "/raw?url=",
		failing.URL + "/?",
	})
	events, source, advisory := client.FetchEvents(context.Background())

	if source != SourceFallback {
		t.Fatalf("source = %s, want FALLBACK", source)
	}
	if advisory != "" {
		t.Errorf("exhaustion should carry no advisory, got %q", advisory)
	}
	if len(events) != 2 {
		t.Fatalf("expected the two sample events, got %d", len(events))
	}
	if events[0].ID != "sample-epl-1" || events[1].ID != "sample-ucl-1" {
		t.Errorf("unexpected sample IDs: %s, %s", events[0].ID, events[1].ID)
	}
	for _, e := range events {
		if !e.Eligible(testNow) {
			t.Errorf("sample event %s is not eligible", e.ID)
		}
	}
}

func TestFetchEventsFallbackWhenNothingEligible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Event{
			liveEvent("evt-ended", -2*time.Hour),
			{ID: "evt-bare", EndDate: testNow.Add(time.Hour).Format(time.RFC3339)},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	events, source, advisory := client.FetchEvents(context.Background())

	if source != SourceFallback {
		t.Fatalf("source = %s, want FALLBACK", source)
	}
	if advisory != advisoryNoEligible {
		t.Errorf("advisory = %q, want %q", advisory, advisoryNoEligible)
	}
	if len(events) != 2 {
		t.Fatalf("expected sample events, got %d", len(events))
	}
}

func TestFetchEventsRejectsNonArrayBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, source, _ := client.FetchEvents(context.Background())
	if source != SourceFallback {
		t.Errorf("non-array body should exhaust the chain, got source %s", source)
	}
}

// End-to-end over the wire: a double-encoded price list renders as the
// expected percentage strings.
func TestFetchEventsPricePipeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"id": "evt-1",
			"slug": "evt-1-slug",
			"title": "Test Match",
			"endDate": "2026-06-02T18:00:00Z",
			"markets": [{
				"id": "mkt-1",
				"question": "Who will win?",
				"outcomes": "[\"Home\",\"Away\",\"Draw\"]",
				"outcomePrices": "[\"0.52\",\"0.24\",\"0.24\"]",
				"liquidity": "1000",
				"volume": "5000"
			}]
		}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	events, source, _ := client.FetchEvents(context.Background())
	if source != SourceLive || len(events) != 1 {
		t.Fatalf("unexpected fetch result: source=%s events=%d", source, len(events))
	}

	view := normalize.Market(events[0].Markets[0])
	wantPercents := []string{"52.0", "24.0", "24.0"}
	for i := range view.Outcomes {
		if got := format.Percent(view.PriceAt(i)); got != wantPercents[i] {
			t.Errorf("outcome %d percent = %q, want %q", i, got, wantPercents[i])
		}
	}
}
