// Package gamma fetches soccer events from the Polymarket Gamma API.
//
// Retrieval runs through an ordered strategy chain: a direct request first,
// then each configured CORS relay wrapping the same target URL. A strategy
// failure (network error, non-success status, non-array body) is caught
// locally and advances the chain; only exhaustion of every strategy is a
// hard failure. Hard failures and fetches that survive the network but
// yield zero eligible events both fall back to a fixed sample set, so the
// caller never sees a failed fetch.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/pitchoracle/internal/logger"
	"github.com/rewired-gh/pitchoracle/internal/models"
)

// Source tags where a fetch result came from.
type Source string

const (
	SourceLive     Source = "LIVE"
	SourceFallback Source = "FALLBACK"
)

// advisoryNoEligible is shown when the feed was reachable but nothing
// survived the eligibility filter. Total network failure shows no advisory
// beyond the fallback tag itself.
const advisoryNoEligible = "Live feed returned no upcoming soccer events; showing sample markets instead."

// Client provides access to the Gamma events endpoint.
type Client struct {
	baseURL    string
	relays     []string
	tag        string
	limit      int
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Gamma client. relays are CORS relay prefixes that
// wrap the target URL via query-parameter passthrough; they are tried in
// order after the direct request fails.
func NewClient(baseURL string, relays []string, tag string, limit int, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		relays:  relays,
		tag:     tag,
		limit:   limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// eventsURL builds the single query used by every strategy: active,
// non-closed events for the configured tag, ordered by trailing 24h volume
// descending, capped at the configured page size.
func (c *Client) eventsURL() string {
	params := url.Values{}
	params.Set("tag", c.tag)
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", fmt.Sprintf("%d", c.limit))
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")
	return fmt.Sprintf("%s/events?%s", c.baseURL, params.Encode())
}

// FetchEvents retrieves the current set of eligible events. It never returns
// an error to the caller: strategy exhaustion and empty-after-filter both
// yield the fallback sample set tagged SourceFallback, the latter with a
// human-readable advisory. Every invocation re-fetches from scratch.
func (c *Client) FetchEvents(ctx context.Context) ([]models.Event, Source, string) {
	target := c.eventsURL()

	attempts := make([]string, 0, 1+len(c.relays))
	attempts = append(attempts, target)
	for _, relay := range c.relays {
		attempts = append(attempts, relay+url.QueryEscape(target))
	}

	for i, attempt := range attempts {
		events, err := c.fetchOnce(ctx, attempt)
		if err != nil {
			logger.Warn("fetch strategy %d/%d failed: %v", i+1, len(attempts), err)
			continue
		}

		eligible := filterEligible(events, c.now())
		logger.Info("fetched %d events via strategy %d, %d eligible", len(events), i+1, len(eligible))

		if len(eligible) == 0 {
			return SampleEvents(c.now()), SourceFallback, advisoryNoEligible
		}
		return eligible, SourceLive, ""
	}

	logger.Warn("all %d fetch strategies exhausted, serving sample data", len(attempts))
	return SampleEvents(c.now()), SourceFallback, ""
}

// fetchOnce performs a single strategy attempt and insists on a well-formed
// array payload.
func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]models.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var events []models.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("response is not an event array: %w", err)
	}
	return events, nil
}

// filterEligible drops events with no markets or an end date at or before
// the evaluation time. Ineligible events are not errors; they are discarded
// silently.
func filterEligible(events []models.Event, now time.Time) []models.Event {
	eligible := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Eligible(now) {
			eligible = append(eligible, e)
		}
	}
	return eligible
}
