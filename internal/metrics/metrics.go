package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the acquisition pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchAttempts     *prometheus.CounterVec
	Fetches           *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
	ListingsExtracted prometheus.Counter
	FilterDecisions   *prometheus.CounterVec
}

// New registers the instruments on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_fetch_attempts_total",
			Help: "Retrieval attempts by outcome.",
		}, []string{"outcome"}), // success, http_error, transport_error
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_fetches_total",
			Help: "Completed fetch requests by source.",
		}, []string{"source"}), // cache, network, degraded
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "listings_fetch_duration_seconds",
			Help:    "Duration of fetch requests that went to the network.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_cache_lookups_total",
			Help: "Cache lookups by result.",
		}, []string{"result"}), // hit, miss
		ListingsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "listings_extracted_total",
			Help: "Listings extracted from fetched pages.",
		}),
		FilterDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_filter_decisions_total",
			Help: "Listings kept or rejected by the rating filter.",
		}, []string{"decision"}), // kept, rejected
	}
}

func (m *Metrics) IncAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFetch(source string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) AddExtracted(n int) {
	if m == nil {
		return
	}
	m.ListingsExtracted.Add(float64(n))
}

func (m *Metrics) AddFilterDecisions(kept, rejected int) {
	if m == nil {
		return
	}
	m.FilterDecisions.WithLabelValues("kept").Add(float64(kept))
	m.FilterDecisions.WithLabelValues("rejected").Add(float64(rejected))
}
