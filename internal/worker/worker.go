package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// Fetcher produces the result set for one search
type Fetcher interface {
	Fetch(ctx context.Context, req models.SearchRequest) *models.ResultSet
}

// Job is one queued search; Index is its position in the batch
type Job struct {
	Index   int
	Request models.SearchRequest
}

// Result pairs a search with what was fetched for it
type Result struct {
	Index     int
	Request   models.SearchRequest
	ResultSet *models.ResultSet
	Duration  time.Duration
}

// Pool manages a pool of worker goroutines
type Pool struct {
	Config    *config.ScraperConfig
	Fetcher   Fetcher
	Jobs      chan Job
	Results   chan Result
	WaitGroup *sync.WaitGroup
	logger    *zap.Logger
}

// NewPool creates a new worker pool sized for n searches
func NewPool(config *config.ScraperConfig, fetcher Fetcher, n int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		Config:    config,
		Fetcher:   fetcher,
		Jobs:      make(chan Job, n),
		Results:   make(chan Result, n),
		WaitGroup: &sync.WaitGroup{},
		logger:    logger,
	}
}

// Start starts the workers. Results is closed once every worker has exited.
func (p *Pool) Start(ctx context.Context) {
	var limiter <-chan time.Time
	var ticker *time.Ticker
	if p.Config.RateLimit > 0 {
		ticker = time.NewTicker(p.Config.RateLimit)
		limiter = ticker.C
	}

	workers := p.Config.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 1; w <= workers; w++ {
		p.WaitGroup.Add(1)
		go p.worker(ctx, w, limiter)
	}

	go func() {
		p.WaitGroup.Wait()
		if ticker != nil {
			ticker.Stop()
		}
		close(p.Results)
	}()
}

// worker processes searches from the jobs channel until it is closed or ctx ends
func (p *Pool) worker(ctx context.Context, id int, limiter <-chan time.Time) {
	defer p.WaitGroup.Done()

	for job := range p.Jobs {
		if limiter != nil {
			select {
			case <-ctx.Done():
				return
			case <-limiter:
			}
		}
		if ctx.Err() != nil {
			return
		}

		req := job.Request
		p.logger.Info("processing search",
			zap.Int("worker", id),
			zap.String("destination", req.Destination),
			zap.String("checkin", req.CheckIn),
		)
		start := time.Now()
		rs := p.Fetcher.Fetch(ctx, req)
		p.Results <- Result{Index: job.Index, Request: req, ResultSet: rs, Duration: time.Since(start)}
	}
}

// AddJobs queues the searches and closes the jobs channel
func (p *Pool) AddJobs(reqs []models.SearchRequest) {
	for i, req := range reqs {
		p.Jobs <- Job{Index: i, Request: req}
	}
	close(p.Jobs)
}

// Run fetches every search with the pool and returns results in input order
func Run(ctx context.Context, config *config.ScraperConfig, fetcher Fetcher, reqs []models.SearchRequest, logger *zap.Logger) []Result {
	pool := NewPool(config, fetcher, len(reqs), logger)
	pool.Start(ctx)
	pool.AddJobs(reqs)

	results := make([]Result, len(reqs))
	filled := make([]bool, len(reqs))
	for r := range pool.Results {
		results[r.Index] = r
		filled[r.Index] = true
	}

	// searches skipped after cancellation have no result
	out := results[:0]
	for i, r := range results {
		if filled[i] {
			out = append(out, r)
		}
	}
	return out
}
