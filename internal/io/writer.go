package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// ResultWriter writes results to various outputs
type ResultWriter struct {
	Config *config.IOConfig
}

// NewResultWriter creates a new result writer
func NewResultWriter(config *config.IOConfig) *ResultWriter {
	return &ResultWriter{
		Config: config,
	}
}

// SaveToFile saves the results to a file in the configured format
func (w *ResultWriter) SaveToFile(results []*models.ResultSet) error {
	if dir := filepath.Dir(w.Config.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	switch w.Config.OutputFormat {
	case "", "json":
		if results == nil {
			results = []*models.ResultSet{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(w.Config.OutputFile, data, 0644)

	case "csv":
		return w.saveCSV(results)

	default:
		return fmt.Errorf("unsupported output format: %s", w.Config.OutputFormat)
	}
}

// csvHeader names the columns of the csv output, one row per listing
var csvHeader = []string{
	"destination", "checkin", "checkout", "guests", "scrape_time",
	"title", "price_text", "rating_text", "rating", "review_count", "url",
}

func (w *ResultWriter) saveCSV(results []*models.ResultSet) error {
	file, err := os.Create(w.Config.OutputFile)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rs := range results {
		m := rs.Metadata
		for _, l := range rs.Listings {
			row := []string{
				m.Destination, m.CheckIn, m.CheckOut, strconv.Itoa(m.Guests), m.ScrapeTime.Format(time.RFC3339),
				l.Title, l.PriceText, l.RatingText,
				strconv.FormatFloat(l.Rating, 'f', -1, 64), strconv.Itoa(l.ReviewCount), l.URL,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
