// Package server exposes the dashboard's JSON API over gin. It is the Go
// stand-in for the browser view layer: it drives fetch and analyze actions
// and serves display-ready projections of the session state.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewired-gh/pitchoracle/internal/format"
	"github.com/rewired-gh/pitchoracle/internal/gamma"
	"github.com/rewired-gh/pitchoracle/internal/logger"
	"github.com/rewired-gh/pitchoracle/internal/models"
	"github.com/rewired-gh/pitchoracle/internal/normalize"
	"github.com/rewired-gh/pitchoracle/internal/store"
)

// Fetcher retrieves the current event set.
type Fetcher interface {
	FetchEvents(ctx context.Context) ([]models.Event, gamma.Source, string)
}

// Analyzer produces a verdict for one market.
type Analyzer interface {
	Analyze(ctx context.Context, event models.Event, market models.Market, view models.NormalizedView) (*models.Verdict, error)
}

// Notifier pushes alerts for completed verdicts. Optional.
type Notifier interface {
	ShouldAlert(v *models.Verdict) bool
	SendAlert(event models.Event, market models.Market, v *models.Verdict) error
}

// Server wires the fetcher, analyzer, and session store behind the HTTP API.
type Server struct {
	state    *store.Store
	fetcher  Fetcher
	analyzer Analyzer
	notifier Notifier
	engine   *gin.Engine

	mu        sync.Mutex
	lastError map[string]string // last analysis failure per market ID
}

// New creates the server and registers its routes.
func New(state *store.Store, fetcher Fetcher, analyzer Analyzer, notifier Notifier) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		state:     state,
		fetcher:   fetcher,
		analyzer:  analyzer,
		notifier:  notifier,
		lastError: make(map[string]string),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	{
		api.POST("/refresh", s.handleRefresh)
		api.GET("/events", s.handleEvents)
		api.POST("/markets/:id/analyze", s.handleAnalyze)
		api.GET("/markets/:id/verdict", s.handleVerdict)
	}

	s.engine = engine
	return s
}

// Handler exposes the underlying router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware allows the dashboard frontend, served from another origin,
// to reach the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRefresh re-runs the fetcher and fully replaces the event slot. The
// fetcher never fails; a blocked network shows up as source=FALLBACK.
func (s *Server) handleRefresh(c *gin.Context) {
	events, source, advisory := s.fetcher.FetchEvents(c.Request.Context())
	s.state.ReplaceEvents(events, source, advisory)
	logger.Info("refreshed event set: %d events (source=%s)", len(events), source)
	s.respondEvents(c)
}

func (s *Server) handleEvents(c *gin.Context) {
	s.respondEvents(c)
}

func (s *Server) respondEvents(c *gin.Context) {
	events, source, advisory, fetchedAt := s.state.Snapshot()

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e, s.state))
	}

	c.JSON(http.StatusOK, gin.H{
		"events":     views,
		"count":      len(views),
		"source":     source,
		"advisory":   advisory,
		"fetched_at": fetchedAt,
	})
}

// handleAnalyze starts a background analysis for one market. A request for
// a market that is already in flight is a deliberate no-op; a market with a
// cached verdict returns it directly.
func (s *Server) handleAnalyze(c *gin.Context) {
	marketID := c.Param("id")

	event, market, found := s.state.FindMarket(marketID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not found"})
		return
	}

	switch s.state.BeginAnalysis(marketID) {
	case store.Done:
		v, _ := s.state.Verdict(marketID)
		c.JSON(http.StatusOK, gin.H{"status": "done", "verdict": v})
		return
	case store.InFlight:
		c.JSON(http.StatusAccepted, gin.H{"status": "in_flight"})
		return
	}

	s.mu.Lock()
	delete(s.lastError, marketID)
	s.mu.Unlock()

	// Detached from the request context: once issued, an analysis runs to
	// completion or failure with no abort path.
	go s.runAnalysis(event, market)

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) runAnalysis(event models.Event, market models.Market) {
	view := normalize.Market(market)

	verdict, err := s.analyzer.Analyze(context.Background(), event, market, view)
	if err != nil {
		logger.Error("analysis failed for market %s: %v", market.ID, err)
		s.state.FailAnalysis(market.ID)
		s.mu.Lock()
		s.lastError[market.ID] = err.Error()
		s.mu.Unlock()
		return
	}

	s.state.CompleteAnalysis(market.ID, verdict)
	logger.Info("analysis complete for market %s: %s %+.1f%% edge",
		market.ID, verdict.ValueAssessment.Status, verdict.ValueAssessment.EdgePercent)

	if s.notifier != nil && s.notifier.ShouldAlert(verdict) {
		if err := s.notifier.SendAlert(event, market, verdict); err != nil {
			logger.Warn("failed to send value alert for market %s: %v", market.ID, err)
		}
	}
}

// handleVerdict reports the analysis state for one market: the cached
// verdict, a pending marker, the last failure, or absence.
func (s *Server) handleVerdict(c *gin.Context) {
	marketID := c.Param("id")

	if v, ok := s.state.Verdict(marketID); ok {
		c.JSON(http.StatusOK, gin.H{"status": "done", "verdict": v})
		return
	}
	if s.state.Analyzing(marketID) {
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
		return
	}

	s.mu.Lock()
	msg, failed := s.lastError[marketID]
	s.mu.Unlock()
	if failed {
		c.JSON(http.StatusBadGateway, gin.H{"status": "failed", "error": msg})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"status": "none"})
}

// eventView is the display-ready projection of an event.
type eventView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	EndDate     string       `json:"end_date"`
	URL         string       `json:"url"`
	Markets     []marketView `json:"markets"`
}

type marketView struct {
	ID        string        `json:"id"`
	Question  string        `json:"question"`
	Outcomes  []outcomePair `json:"outcomes"`
	Liquidity string        `json:"liquidity"`
	Volume    string        `json:"volume"`
	Analyzed  bool          `json:"analyzed"`
	Analyzing bool          `json:"analyzing"`
}

type outcomePair struct {
	Label   string  `json:"label"`
	Price   float64 `json:"price"`
	Percent string  `json:"percent"`
}

func newEventView(e models.Event, state *store.Store) eventView {
	markets := make([]marketView, 0, len(e.Markets))
	for _, m := range e.Markets {
		view := normalize.Market(m)
		pairs := make([]outcomePair, len(view.Outcomes))
		for i, label := range view.Outcomes {
			price := view.PriceAt(i)
			pairs[i] = outcomePair{
				Label:   label,
				Price:   price,
				Percent: format.Percent(price),
			}
		}
		_, analyzed := state.Verdict(m.ID)
		markets = append(markets, marketView{
			ID:        m.ID,
			Question:  m.DisplayQuestion(),
			Outcomes:  pairs,
			Liquidity: format.MoneyString(m.Liquidity),
			Volume:    format.MoneyString(m.Volume),
			Analyzed:  analyzed,
			Analyzing: state.Analyzing(m.ID),
		})
	}

	return eventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		EndDate:     format.DateString(e.EndDate),
		URL:         e.URL(),
		Markets:     markets,
	}
}
