// Package filter narrows a result set to well-reviewed listings.
package filter

import (
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/extraction"
	"github.com/williampepple1/listings-scraper/internal/metrics"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// Matches reports whether a listing meets both thresholds. The rating is
// re-read from the listing's rating text, so a listing without a parseable
// rating never matches a positive threshold.
func Matches(l models.Listing, criteria models.FilterCriteria) bool {
	rating, reviews := extraction.ParseRating(l.RatingText)
	return rating >= criteria.MinRating && reviews >= criteria.MinReviews
}

// Apply returns a new result set holding only the listings that match, in
// their original order. The input is not modified.
func Apply(rs *models.ResultSet, minRating float64, minReviews int) *models.ResultSet {
	if rs == nil {
		return nil
	}
	criteria := models.FilterCriteria{MinRating: minRating, MinReviews: minReviews}

	kept := make([]models.Listing, 0, len(rs.Listings))
	for _, l := range rs.Listings {
		if Matches(l, criteria) {
			kept = append(kept, l)
		}
	}

	metadata := rs.Metadata
	count := len(kept)
	metadata.FilterCriteria = &criteria
	metadata.FilteredCount = &count

	return &models.ResultSet{Metadata: metadata, Listings: kept}
}

// Filter applies the configured thresholds and records its decisions
type Filter struct {
	Criteria models.FilterCriteria
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates a filter from configuration; m may be nil
func New(cfg *config.FilterConfig, m *metrics.Metrics, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		Criteria: models.FilterCriteria{MinRating: cfg.MinRating, MinReviews: cfg.MinReviews},
		metrics:  m,
		logger:   logger,
	}
}

// WithCriteria returns a filter with other thresholds that records into the
// same metrics
func (f *Filter) WithCriteria(criteria models.FilterCriteria) *Filter {
	c := *f
	c.Criteria = criteria
	return &c
}

// Apply filters rs with the configured thresholds
func (f *Filter) Apply(rs *models.ResultSet) *models.ResultSet {
	filtered := Apply(rs, f.Criteria.MinRating, f.Criteria.MinReviews)
	if filtered == nil {
		return nil
	}

	kept := len(filtered.Listings)
	f.metrics.AddFilterDecisions(kept, len(rs.Listings)-kept)
	f.logger.Info("filtered listings",
		zap.String("destination", rs.Metadata.Destination),
		zap.Int("kept", kept),
		zap.Int("total", len(rs.Listings)),
		zap.Float64("min_rating", f.Criteria.MinRating),
		zap.Int("min_reviews", f.Criteria.MinReviews),
	)
	return filtered
}
