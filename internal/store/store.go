// Package store holds the dashboard's session state: the current event set,
// completed verdicts, and the per-market in-flight analysis set.
//
// The three slots have an explicit lifecycle: the event slot is fully
// replaced on every fetch (never merged), the verdict map only grows within
// a session, and the in-flight set is the system's single mutual-exclusion
// device — a second analysis request for a market that is already in flight
// or already analyzed is refused rather than queued.
package store

import (
	"sync"
	"time"

	"github.com/rewired-gh/pitchoracle/internal/gamma"
	"github.com/rewired-gh/pitchoracle/internal/models"
)

// BeginResult reports the outcome of an analysis admission check.
type BeginResult int

const (
	// Begun means the caller owns the analysis and must later call
	// CompleteAnalysis or FailAnalysis to release the market.
	Begun BeginResult = iota
	// InFlight means another analysis for this market is outstanding.
	InFlight
	// Done means a verdict is already cached; re-analysis is not offered.
	Done
)

// Store is the process-wide session state container.
type Store struct {
	mu        sync.RWMutex
	events    []models.Event
	source    gamma.Source
	advisory  string
	fetchedAt time.Time
	verdicts  map[string]*models.Verdict
	inFlight  map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		verdicts: make(map[string]*models.Verdict),
		inFlight: make(map[string]struct{}),
	}
}

// ReplaceEvents swaps in the result of a fetch cycle. The previous event set
// is discarded wholesale; cached verdicts survive so a re-fetch does not
// throw away paid-for analyses.
func (s *Store) ReplaceEvents(events []models.Event, source gamma.Source, advisory string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make([]models.Event, len(events))
	copy(s.events, events)
	s.source = source
	s.advisory = advisory
	s.fetchedAt = time.Now()
}

// Snapshot returns a copy of the current event set with its fetch metadata.
func (s *Store) Snapshot() ([]models.Event, gamma.Source, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.Event, len(s.events))
	copy(events, s.events)
	return events, s.source, s.advisory, s.fetchedAt
}

// FindMarket locates a market by ID within the current event set.
func (s *Store) FindMarket(marketID string) (models.Event, models.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		for _, m := range e.Markets {
			if m.ID == marketID {
				return e, m, true
			}
		}
	}
	return models.Event{}, models.Market{}, false
}

// BeginAnalysis admits at most one analysis per market ID. Duplicate
// requests while one is outstanding are refused (the caller treats this as
// a silent no-op), as are requests for markets that already have a verdict.
func (s *Store) BeginAnalysis(marketID string) BeginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.verdicts[marketID]; exists {
		return Done
	}
	if _, busy := s.inFlight[marketID]; busy {
		return InFlight
	}
	s.inFlight[marketID] = struct{}{}
	return Begun
}

// CompleteAnalysis records a verdict and releases the market.
func (s *Store) CompleteAnalysis(marketID string, v *models.Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, marketID)
	s.verdicts[marketID] = v
}

// FailAnalysis releases the market without caching anything, so a later
// request may try again. The guard is cleared on failure as well as success.
func (s *Store) FailAnalysis(marketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, marketID)
}

// Verdict returns the cached verdict for a market, if any.
func (s *Store) Verdict(marketID string) (*models.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verdicts[marketID]
	return v, ok
}

// Analyzing reports whether an analysis is currently in flight for a market.
func (s *Store) Analyzing(marketID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, busy := s.inFlight[marketID]
	return busy
}
