package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

// scrapeRequest is the body of POST /api/scrape
type scrapeRequest struct {
	Destination string      `json:"destination"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	Travelers   int         `json:"travelers"`
	Budget      budgetField `json:"budget"`
}

// budgetField accepts a number or a string such as "$1,200"
type budgetField struct {
	Value *float64
}

func (b *budgetField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		b.Value = &v
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("budget must be a number or a string")
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := models.ParseBudget(s)
	if err != nil {
		return err
	}
	b.Value = &v
	return nil
}

func (r scrapeRequest) search() (models.SearchRequest, error) {
	req := models.SearchRequest{
		Destination: strings.TrimSpace(r.Destination),
		CheckIn:     r.StartDate,
		CheckOut:    r.EndDate,
		Guests:      r.Travelers,
		Budget:      r.Budget.Value,
	}
	return req, req.Validate(true)
}

// listingsQuery is the decoded query of GET /api/listings
type listingsQuery struct {
	Search     models.SearchRequest
	MinRating  *float64
	MinReviews *int
}

func parseListingsQuery(q url.Values) (listingsQuery, error) {
	out := listingsQuery{
		Search: models.SearchRequest{
			Destination: strings.TrimSpace(q.Get("destination")),
			CheckIn:     q.Get("checkin"),
			CheckOut:    q.Get("checkout"),
			Guests:      1,
		},
	}

	if g := q.Get("guests"); g != "" {
		guests, err := strconv.Atoi(g)
		if err != nil {
			return out, fmt.Errorf("%w: guests %q is not a number", models.ErrInvalidRequest, g)
		}
		out.Search.Guests = guests
	}
	if b := q.Get("budget"); b != "" {
		budget, err := models.ParseBudget(b)
		if err != nil {
			return out, err
		}
		out.Search.Budget = &budget
	}
	if v := q.Get("min_rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			return out, fmt.Errorf("%w: min_rating %q must be between 0 and 5", models.ErrInvalidRequest, v)
		}
		out.MinRating = &rating
	}
	if v := q.Get("min_reviews"); v != "" {
		reviews, err := strconv.Atoi(v)
		if err != nil || reviews < 0 {
			return out, fmt.Errorf("%w: min_reviews %q must be a non-negative integer", models.ErrInvalidRequest, v)
		}
		out.MinReviews = &reviews
	}

	return out, out.Search.Validate(false)
}

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
)

// archiveQuery is the decoded query of GET /api/archive
type archiveQuery struct {
	Destination string
	Limit       int
}

func parseArchiveQuery(q url.Values) (archiveQuery, error) {
	out := archiveQuery{
		Destination: strings.TrimSpace(q.Get("destination")),
		Limit:       defaultArchiveLimit,
	}
	if out.Destination == "" {
		return out, fmt.Errorf("%w: destination is required", models.ErrInvalidRequest)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxArchiveLimit {
			return out, fmt.Errorf("%w: limit %q must be between 1 and %d", models.ErrInvalidRequest, v, maxArchiveLimit)
		}
		out.Limit = limit
	}
	return out, nil
}
