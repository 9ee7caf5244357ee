package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
)

func newTestHTTPRetriever() *HTTPRetriever {
	return NewHTTPRetriever(config.Default(), http.DefaultTransport.(*http.Transport).Clone(), zap.NewNop())
}

func TestHTTPRetrieverSendsHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	body, err := newTestHTTPRetriever().Retrieve(context.Background(), server.URL, map[string]string{"User-Agent": "agent-a"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if body != "<html>ok</html>" {
		t.Errorf("Retrieve() = %q", body)
	}
	if gotUA != "agent-a" {
		t.Errorf("User-Agent = %q, want agent-a", gotUA)
	}
	if gotLang == "" {
		t.Error("Accept-Language not sent")
	}
}

func TestHTTPRetrieverStatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"forbidden", http.StatusForbidden},
		{"server error", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestHTTPRetriever().Retrieve(context.Background(), server.URL, nil)
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Retrieve() error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.status)
			}
		})
	}
}

func TestHTTPRetrieverHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestHTTPRetriever().Retrieve(ctx, server.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Retrieve() error = %v, want deadline exceeded", err)
	}
}

func TestHTTPRetrieverRejectsOversizedBody(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", 64, false},
		{"over limit", 65, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("a", tt.size)))
			}))
			defer server.Close()

			r := newTestHTTPRetriever()
			r.maxBody = 64
			body, err := r.Retrieve(context.Background(), server.URL, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrBodyTooLarge) {
					t.Errorf("Retrieve() error = %v, want ErrBodyTooLarge", err)
				}
				return
			}
			if err != nil || len(body) != tt.size {
				t.Errorf("Retrieve() = %d bytes, %v; want %d bytes", len(body), err, tt.size)
			}
		})
	}
}

func TestOrchestratorOverHTTP(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/s/Miami/homes" || r.URL.Query().Get("adults") != "2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	o := newTestOrchestrator(newTestHTTPRetriever(), newMemoryStore())
	o.Config.BaseURL = server.URL

	rs := o.Fetch(context.Background(), testRequest)
	if rs.TotalListings() != 2 {
		t.Errorf("TotalListings() = %d, want 2", rs.TotalListings())
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
}
