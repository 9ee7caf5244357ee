package models

import (
	"encoding/json"
	"time"
)

// Sentinel values for listing fields that could not be extracted
const (
	NoTitle  = "No title"
	NoPrice  = "No price"
	NoRating = "No rating"
	NoURL    = "No URL"
)

// Listing represents one listing card pulled out of a search results page
type Listing struct {
	Title       string  `json:"title"`
	PriceText   string  `json:"price_text"`
	RatingText  string  `json:"rating_text"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// IsEmpty reports whether every extracted field holds its sentinel
func (l Listing) IsEmpty() bool {
	return l.Title == NoTitle &&
		l.PriceText == NoPrice &&
		l.RatingText == NoRating &&
		l.URL == NoURL
}

// FilterCriteria records the thresholds a ResultSet was narrowed with
type FilterCriteria struct {
	MinRating  float64 `json:"min_rating"`
	MinReviews int     `json:"min_reviews"`
}

// Metadata describes the search a ResultSet was produced for.
// The listing count is not stored here; it is always derived from the
// listings it travels with (see ResultSet.TotalListings).
type Metadata struct {
	Destination    string          `json:"destination"`
	CheckIn        string          `json:"checkin"`
	CheckOut       string          `json:"checkout"`
	Guests         int             `json:"guests"`
	ScrapeTime     time.Time       `json:"scrape_time"`
	MinBudget      *float64        `json:"min_budget,omitempty"`
	MaxBudget      *float64        `json:"max_budget,omitempty"`
	FilterCriteria *FilterCriteria `json:"filter_criteria,omitempty"`
	FilteredCount  *int            `json:"filtered_count,omitempty"`
}

// ResultSet is the unit returned by a fetch and stored in the cache
type ResultSet struct {
	Metadata Metadata  `json:"metadata"`
	Listings []Listing `json:"listings"`
}

// NewResultSet creates a result set for the given search; listings may be nil
func NewResultSet(req SearchRequest, scrapeTime time.Time, listings []Listing) *ResultSet {
	if listings == nil {
		listings = []Listing{}
	}
	return &ResultSet{
		Metadata: Metadata{
			Destination: req.Destination,
			CheckIn:     req.CheckIn,
			CheckOut:    req.CheckOut,
			Guests:      req.Guests,
			ScrapeTime:  scrapeTime,
			MinBudget:   req.MinBudget(),
			MaxBudget:   req.MaxBudget(),
		},
		Listings: listings,
	}
}

// TotalListings returns the number of listings currently held
func (rs *ResultSet) TotalListings() int {
	return len(rs.Listings)
}

type metadataJSON struct {
	Metadata
	TotalListings int `json:"total_listings"`
}

type resultSetJSON struct {
	Metadata metadataJSON `json:"metadata"`
	Listings []Listing    `json:"listings"`
}

// MarshalJSON writes total_listings computed from the listings at encode time
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	listings := rs.Listings
	if listings == nil {
		listings = []Listing{}
	}
	return json.Marshal(resultSetJSON{
		Metadata: metadataJSON{Metadata: rs.Metadata, TotalListings: len(listings)},
		Listings: listings,
	})
}

// UnmarshalJSON ignores any stored total_listings value
func (rs *ResultSet) UnmarshalJSON(data []byte) error {
	var raw resultSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rs.Metadata = raw.Metadata.Metadata
	rs.Listings = raw.Listings
	if rs.Listings == nil {
		rs.Listings = []Listing{}
	}
	return nil
}

// SearchRequest holds what the caller asked for
type SearchRequest struct {
	Destination string   `json:"destination"`
	CheckIn     string   `json:"checkin"`
	CheckOut    string   `json:"checkout"`
	Guests      int      `json:"guests"`
	Budget      *float64 `json:"budget,omitempty"`
}

// budgetSpread is how far the price window extends on each side of the budget
const budgetSpread = 100

// MinBudget returns the lower bound of the price window, or nil without a budget
func (r SearchRequest) MinBudget() *float64 {
	if r.Budget == nil {
		return nil
	}
	v := *r.Budget - budgetSpread
	if v < 0 {
		v = 0
	}
	return &v
}

// MaxBudget returns the upper bound of the price window, or nil without a budget
func (r SearchRequest) MaxBudget() *float64 {
	if r.Budget == nil {
		return nil
	}
	v := *r.Budget + budgetSpread
	return &v
}

// Failure is the structured error object returned at the outer surfaces
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
