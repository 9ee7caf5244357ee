package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/proxy"
)

// maxBodySize bounds how much of a response is read into memory
const maxBodySize = 16 << 20

// ErrBodyTooLarge is returned for responses longer than maxBodySize
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPRetriever fetches pages with a plain HTTP client.
// The client is shared across calls and safe for concurrent use.
type HTTPRetriever struct {
	client  *http.Client
	Proxy   *proxy.Manager
	logger  *zap.Logger
	maxBody int64
}

// NewHTTPRetriever creates a retriever on top of transport, routing through
// the configured proxies when enabled
func NewHTTPRetriever(config *config.AppConfig, transport *http.Transport, logger *zap.Logger) *HTTPRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	manager := proxy.NewManager(&config.Proxies)
	if manager.Enabled() {
		transport.Proxy = manager.Func()
	}
	return &HTTPRetriever{
		client:  &http.Client{Transport: transport},
		Proxy:   manager,
		logger:  logger,
		maxBody: maxBodySize,
	}
}

// Retrieve performs one GET. Deadlines come from ctx.
func (r *HTTPRetriever) Retrieve(ctx context.Context, url string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > r.maxBody {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, r.maxBody)
	}
	return string(body), nil
}
