package config

import "time"

const (
	DefaultBaseURL     = "https://www.airbnb.com"
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 1 * time.Second
	DefaultRetryJitter = 500 * time.Millisecond
	DefaultTimeout     = 10 * time.Second
	DefaultCacheTTL    = 24 * time.Hour
)

// DefaultUserAgents provides the identity pool rotated across attempts
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
}

// DefaultExtraction returns the selector cascades for the current listing card
// markup, followed by older layouts that still show up.
//
// A selector ending in "@attr" reads that attribute instead of the node text.
func DefaultExtraction() ExtractionConfig {
	return ExtractionConfig{
		Container: []string{
			`[data-testid="card-container"]`,
			`[itemprop="itemListElement"]`,
		},
		Title: []string{
			`[data-testid="listing-card-title"]`,
			`div[style*="--title"]`,
			`[data-testid="listing-card-name"]`,
			`[itemprop="name"]@content`,
		},
		Price: []string{
			`[data-testid="price-availability-row"]`,
			`span[style*="--pricing"]`,
			`[aria-label*="per night"]`,
		},
		Rating: []string{
			`span:contains("out of 5")`,
			`[aria-label*="out of 5"]@aria-label`,
		},
		URL: []string{
			`a[href*="/rooms/"]@href`,
			`meta[itemprop="url"]@content`,
		},
	}
}
