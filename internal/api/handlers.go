package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/storage"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// scrapeResponse is the success shape shared by the listing endpoints
type scrapeResponse struct {
	Success  bool              `json:"success"`
	Listings *models.ResultSet `json:"listings"`
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	query, err := parseListingsQuery(r.URL.Query())
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rs := s.fetcher.Fetch(r.Context(), query.Search)

	criteria := s.filter.Criteria
	apply := s.config.Filter.Enabled
	if query.MinRating != nil {
		criteria.MinRating = *query.MinRating
		apply = true
	}
	if query.MinReviews != nil {
		criteria.MinReviews = *query.MinReviews
		apply = true
	}
	if apply {
		rs = s.filter.WithCriteria(criteria).Apply(rs)
	}

	s.respondWithJSON(w, http.StatusOK, scrapeResponse{Success: true, Listings: rs})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req, err := body.search()
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("received scraping request",
		zap.String("destination", req.Destination),
		zap.String("checkin", req.CheckIn),
		zap.String("checkout", req.CheckOut),
		zap.Int("guests", req.Guests),
	)

	rs := s.fetcher.Fetch(r.Context(), req)
	if s.config.Filter.Enabled {
		rs = s.filter.Apply(rs)
	}
	s.respondWithJSON(w, http.StatusOK, scrapeResponse{Success: true, Listings: rs})
}

// archiveResponse lists archived listings, newest first
type archiveResponse struct {
	Success  bool                      `json:"success"`
	Listings []storage.ArchivedListing `json:"listings"`
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "listing archive is not configured")
		return
	}
	query, err := parseArchiveQuery(r.URL.Query())
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	listings, err := s.archive.Recent(r.Context(), query.Destination, query.Limit)
	if err != nil {
		s.logger.Error("could not read listing archive", zap.String("destination", query.Destination), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not read listing archive")
		return
	}
	if listings == nil {
		listings = []storage.ArchivedListing{}
	}
	s.respondWithJSON(w, http.StatusOK, archiveResponse{Success: true, Listings: listings})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"api": "healthy"}
	healthy := true
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, models.Failure{Success: false, Error: message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("could not encode response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"success":false,"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
