package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/filter"
	"github.com/williampepple1/listings-scraper/internal/storage"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// Fetcher produces the result set for one search
type Fetcher interface {
	Fetch(ctx context.Context, req models.SearchRequest) *models.ResultSet
}

// Pinger is a backing service the health check reports on
type Pinger interface {
	Ping(ctx context.Context) error
}

// ArchiveReader serves previously archived listings
type ArchiveReader interface {
	Recent(ctx context.Context, destination string, limit int) ([]storage.ArchivedListing, error)
}

// Dependencies are the collaborators the API serves from. Only Fetcher is
// required.
type Dependencies struct {
	Fetcher  Fetcher
	Filter   *filter.Filter
	Archive  ArchiveReader
	Checks   map[string]Pinger
	Gatherer prometheus.Gatherer
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.AppConfig
	router     http.Handler
	httpServer *http.Server
	fetcher    Fetcher
	filter     *filter.Filter
	archive    ArchiveReader
	checks     map[string]Pinger
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

// NewServer creates the API server. Without a Filter the configured thresholds
// are applied unmetered; Gatherer defaults to the global Prometheus registry.
func NewServer(cfg *config.AppConfig, deps Dependencies, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Filter == nil {
		deps.Filter = filter.New(&cfg.Filter, nil, l)
	}
	s := &Server{
		config:   cfg,
		fetcher:  deps.Fetcher,
		filter:   deps.Filter,
		archive:  deps.Archive,
		checks:   deps.Checks,
		gatherer: deps.Gatherer,
		logger:   l,
	}
	s.router = s.setupRouter()

	// a scrape may span every attempt plus page rendering
	writeTimeout := 2*cfg.Scraper.Timeout*time.Duration(max(cfg.Scraper.MaxRetries, 1)) + 30*time.Second
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
