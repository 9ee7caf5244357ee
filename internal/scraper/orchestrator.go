package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/williampepple1/listings-scraper/internal/cache"
	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/extraction"
	"github.com/williampepple1/listings-scraper/internal/metrics"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// ErrMaxRetries is wrapped by the error of a retrieval that used every attempt
var ErrMaxRetries = errors.New("max retries reached")

// sideEffectTimeout bounds cache writes and archiving after a fetch
const sideEffectTimeout = 5 * time.Second

// Archiver receives every freshly fetched, non-empty result set
type Archiver interface {
	Save(ctx context.Context, rs *models.ResultSet) error
}

// FetchContext carries the collaborators an Orchestrator works with.
// Cache, Archive and Metrics are optional.
type FetchContext struct {
	Retriever Retriever
	Extractor *extraction.Extractor
	Cache     cache.Store
	Archive   Archiver
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Orchestrator runs the cache-first, retrying fetch of one search
type Orchestrator struct {
	Config *config.ScraperConfig
	fc     FetchContext
	group  singleflight.Group
	now    func() time.Time

	mu       sync.Mutex
	flights  map[string]*flight
	inflight sync.WaitGroup
}

// flight is one shared retrieval. It runs detached from any single caller and
// is cancelled once every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// fetchAttempt describes one try within a retry sequence
type fetchAttempt struct {
	URL      string
	Number   int
	Identity string
}

// NewOrchestrator creates an orchestrator over the given collaborators
func NewOrchestrator(cfg *config.ScraperConfig, fc FetchContext) *Orchestrator {
	if fc.Logger == nil {
		fc.Logger = zap.NewNop()
	}
	if fc.Cache == nil {
		fc.Cache = noCache{}
	}
	return &Orchestrator{
		Config:  cfg,
		fc:      fc,
		now:     func() time.Time { return time.Now().UTC().Round(0) },
		flights: make(map[string]*flight),
	}
}

// Fetch returns listings for a search. It never fails: on exhausted retries or
// cancellation it returns an empty result set whose metadata still describes
// the search. Concurrent calls for the same cache key share one retrieval, and
// the returned value must be treated as read-only. Each caller stops waiting
// when its own ctx ends; the shared retrieval stops when no caller is left.
func (o *Orchestrator) Fetch(ctx context.Context, req models.SearchRequest) *models.ResultSet {
	key := cache.Key(req.Destination, req.CheckIn)
	f, ch := o.join(ctx, key, req)
	defer o.leave(key, f)

	select {
	case res := <-ch:
		if ctx.Err() != nil {
			return o.abandoned(ctx, req, key)
		}
		if res.Shared {
			o.fc.Logger.Debug("joined in-flight fetch", zap.String("key", key))
		}
		return res.Val.(*models.ResultSet)
	case <-ctx.Done():
		return o.abandoned(ctx, req, key)
	}
}

// Wait blocks until every retrieval started by Fetch has finished
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// join registers the caller on the flight for key, starting one if none runs
func (o *Orchestrator) join(ctx context.Context, key string, req models.SearchRequest) (*flight, <-chan singleflight.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, ok := o.flights[key]
	if !ok {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: flightCtx, cancel: cancel}
		o.flights[key] = f
		o.inflight.Add(1)
	}
	f.waiters++

	// a registered flight always owns the group entry for key, so this closure
	// only runs when the flight was created above
	ch := o.group.DoChan(key, func() (interface{}, error) {
		defer o.inflight.Done()
		rs := o.fetch(f.ctx, req)
		o.release(key, f)
		return rs, nil
	})
	return f, ch
}

// leave drops the caller from f and cancels f when nobody else waits on it
func (o *Orchestrator) leave(key string, f *flight) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if o.flights[key] == f {
		delete(o.flights, key)
		o.group.Forget(key)
	}
	f.cancel()
}

// release unregisters a finished flight so the next caller starts a new one
func (o *Orchestrator) release(key string, f *flight) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flights[key] == f {
		delete(o.flights, key)
		o.group.Forget(key)
	}
}

func (o *Orchestrator) abandoned(ctx context.Context, req models.SearchRequest, key string) *models.ResultSet {
	o.fc.Logger.Warn("fetch cancelled by caller, returning empty result", zap.String("key", key), zap.Error(ctx.Err()))
	return models.NewResultSet(req, o.now(), nil)
}

func (o *Orchestrator) fetch(ctx context.Context, req models.SearchRequest) *models.ResultSet {
	start := time.Now()
	logger := o.fc.Logger.With(zap.String("destination", req.Destination), zap.String("checkin", req.CheckIn))

	if rs, ok := o.fc.Cache.Get(ctx, req.Destination, req.CheckIn); ok {
		o.fc.Metrics.IncCacheLookup(true)
		o.fc.Metrics.IncFetch("cache")
		logger.Info("retrieved cached data", zap.Duration("elapsed", time.Since(start)))
		return rs
	}
	o.fc.Metrics.IncCacheLookup(false)

	searchURL := o.SearchURL(req)
	html, err := o.retrieve(ctx, searchURL, logger)
	if err != nil {
		logger.Error("fetch failed, returning empty result", zap.String("url", searchURL), zap.Error(err))
		return o.degraded(req, start)
	}

	listings, err := o.fc.Extractor.ExtractHTML(html)
	if err != nil {
		logger.Error("could not parse page, returning empty result", zap.Error(err))
		return o.degraded(req, start)
	}
	if ctx.Err() != nil {
		logger.Warn("fetch cancelled during extraction, discarding partial listings", zap.Error(ctx.Err()))
		return o.degraded(req, start)
	}

	rs := models.NewResultSet(req, o.now(), listings)
	o.fc.Metrics.AddExtracted(len(listings))
	o.fc.Metrics.IncFetch("network")
	o.fc.Metrics.ObserveFetch(time.Since(start).Seconds())

	if len(listings) == 0 {
		logger.Warn("no listings found; possibly blocked or selectors changed", zap.String("url", searchURL))
		return rs
	}

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	o.fc.Cache.Put(sideCtx, req.Destination, req.CheckIn, rs)
	if o.fc.Archive != nil {
		if err := o.fc.Archive.Save(sideCtx, rs); err != nil {
			logger.Warn("archiving listings failed", zap.Error(err))
		}
	}

	logger.Info("completed scraping", zap.Int("listings", len(listings)), zap.Duration("elapsed", time.Since(start)))
	return rs
}

func (o *Orchestrator) degraded(req models.SearchRequest, start time.Time) *models.ResultSet {
	o.fc.Metrics.IncFetch("degraded")
	o.fc.Metrics.ObserveFetch(time.Since(start).Seconds())
	return models.NewResultSet(req, o.now(), nil)
}

// retrieve makes up to MaxRetries sequential attempts, each under its own timeout
func (o *Orchestrator) retrieve(ctx context.Context, searchURL string, logger *zap.Logger) (string, error) {
	var lastErr error
	for number := 1; number <= o.Config.MaxRetries; number++ {
		if number > 1 {
			if err := o.backoff(ctx); err != nil {
				return "", err
			}
		}

		attempt := fetchAttempt{URL: searchURL, Number: number, Identity: o.identity()}
		html, err := o.attempt(ctx, attempt)
		if err == nil {
			o.fc.Metrics.IncAttempt("success")
			return html, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			o.fc.Metrics.IncAttempt("http_error")
		} else {
			o.fc.Metrics.IncAttempt("transport_error")
		}
		logger.Warn("fetch attempt failed",
			zap.Int("attempt", attempt.Number),
			zap.Int("max_attempts", o.Config.MaxRetries),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, o.Config.MaxRetries, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, a fetchAttempt) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.Config.Timeout)
	defer cancel()
	headers := map[string]string{"User-Agent": a.Identity}
	return o.fc.Retriever.Retrieve(attemptCtx, a.URL, headers)
}

// backoff waits the fixed retry delay plus a random jitter, or until ctx ends
func (o *Orchestrator) backoff(ctx context.Context) error {
	delay := o.Config.RetryDelay
	if o.Config.RetryJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(o.Config.RetryJitter)))
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// identity picks a user agent at random from the configured pool
func (o *Orchestrator) identity() string {
	agents := o.Config.UserAgents
	if len(agents) == 0 {
		agents = config.DefaultUserAgents
	}
	return agents[rand.Intn(len(agents))]
}

// SearchURL builds the results page address for a search
func (o *Orchestrator) SearchURL(req models.SearchRequest) string {
	query := url.Values{}
	if req.CheckIn != "" {
		query.Set("checkin", req.CheckIn)
	}
	if req.CheckOut != "" {
		query.Set("checkout", req.CheckOut)
	}
	if req.Guests > 0 {
		query.Set("adults", strconv.Itoa(req.Guests))
	}
	if lo, hi := req.MinBudget(), req.MaxBudget(); lo != nil && hi != nil {
		query.Set("price_min", strconv.FormatFloat(*lo, 'f', 0, 64))
		query.Set("price_max", strconv.FormatFloat(*hi, 'f', 0, 64))
	}

	base := strings.TrimRight(o.Config.BaseURL, "/")
	u := base + "/s/" + url.PathEscape(strings.TrimSpace(req.Destination)) + "/homes"
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// noCache is used when no cache store is configured
type noCache struct{}

func (noCache) Get(context.Context, string, string) (*models.ResultSet, bool) { return nil, false }
func (noCache) Put(context.Context, string, string, *models.ResultSet)        {}
