package scraper

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
)

// Retriever fetches the raw content of one page
type Retriever interface {
	Retrieve(ctx context.Context, url string, headers map[string]string) (string, error)
}

// StatusError is returned when the origin answers with a non-success status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code %d for %s", e.StatusCode, e.URL)
}

// New creates a retriever based on the configuration
func New(config *config.AppConfig, logger *zap.Logger) Retriever {
	if config.Browser.Enabled {
		return NewBrowserRetriever(config, logger)
	}
	return NewHTTPRetriever(config, http.DefaultTransport.(*http.Transport).Clone(), logger)
}
