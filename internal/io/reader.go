package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"strconv"
	"strings"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// ErrNoSearches is returned when no input source yields a search
var ErrNoSearches = errors.New("no searches to run")

// SearchReader reads batch searches, one per line:
//
//	destination,checkin,checkout,guests[,budget]
//
// Blank lines and lines starting with # are skipped. A destination containing
// a comma must be quoted.
type SearchReader struct {
	Config *config.IOConfig
}

// NewSearchReader creates a new search reader
func NewSearchReader(config *config.IOConfig) *SearchReader {
	return &SearchReader{
		Config: config,
	}
}

// ReadFromFile reads searches from a file
func (r *SearchReader) ReadFromFile(filename string) ([]models.SearchRequest, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// GetSearches returns searches from the configured input file
func (r *SearchReader) GetSearches() ([]models.SearchRequest, error) {
	if r.Config.InputFile == "" {
		return nil, ErrNoSearches
	}
	return r.ReadFromFile(r.Config.InputFile)
}

// Parse reads every search from src
func Parse(src stdio.Reader) ([]models.SearchRequest, error) {
	reader := csv.NewReader(src)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var reqs []models.SearchRequest
	for {
		record, err := reader.Read()
		if errors.Is(err, stdio.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		req, err := ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ParseRecord turns the fields of one line into a search
func ParseRecord(fields []string) (models.SearchRequest, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	req := models.SearchRequest{
		Destination: field(0),
		CheckIn:     field(1),
		CheckOut:    field(2),
		Guests:      1,
	}
	if req.Destination == "" {
		return req, errors.New("destination is required")
	}
	if len(fields) > 5 {
		return req, fmt.Errorf("expected at most 5 fields, got %d", len(fields))
	}

	if g := field(3); g != "" {
		guests, err := strconv.Atoi(g)
		if err != nil || guests < 1 {
			return req, fmt.Errorf("invalid guests %q", g)
		}
		req.Guests = guests
	}

	if b := field(4); b != "" {
		budget, err := models.ParseBudget(b)
		if err != nil {
			return req, err
		}
		req.Budget = &budget
	}
	return req, req.Validate(false)
}
