package extraction

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

const searchPage = `<html><body>
<div data-testid="card-container">
  <a href="/rooms/101?check_in=2025-03-09">
    <div data-testid="listing-card-title">Ocean view loft</div>
  </a>
  <div data-testid="price-availability-row"> $180 night · $900 total </div>
  <span>4.95 out of 5 average rating, 124 reviews</span>
  <span aria-hidden="true">4.95 (124)</span>
</div>
<div data-testid="card-container">
  <div style="--title: 1">Legacy layout studio</div>
  <span style="--pricing: 1">$95 night</span>
  <span aria-label="4.8 out of 5 (60 reviews)">★ 4.8</span>
  <a href="https://www.airbnb.com/rooms/202">view</a>
</div>
<div data-testid="card-container">
  <div class="decorative-banner">Explore more stays</div>
</div>
<div data-testid="card-container">
  <div data-testid="listing-card-title">   </div>
  <span>4.70 · 33 reviews</span>
</div>
</body></html>`

func newTestExtractor() *Extractor {
	cfg := config.DefaultExtraction()
	return NewExtractor(&cfg, "https://www.airbnb.com", zap.NewNop())
}

func TestExtractAll(t *testing.T) {
	listings, err := newTestExtractor().ExtractHTML(searchPage)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}

	want := []models.Listing{
		{
			Title:       "Ocean view loft",
			PriceText:   "$180 night · $900 total",
			RatingText:  "4.95 out of 5 average rating, 124 reviews",
			URL:         "https://www.airbnb.com/rooms/101?check_in=2025-03-09",
			Rating:      4.95,
			ReviewCount: 124,
		},
		{
			Title:       "Legacy layout studio",
			PriceText:   "$95 night",
			RatingText:  "4.8 out of 5 (60 reviews)",
			URL:         "https://www.airbnb.com/rooms/202",
			Rating:      4.8,
			ReviewCount: 60,
		},
		{
			Title:       models.NoTitle,
			PriceText:   models.NoPrice,
			RatingText:  "4.70 · 33 reviews",
			URL:         models.NoURL,
			Rating:      4.7,
			ReviewCount: 33,
		},
	}

	if len(listings) != len(want) {
		t.Fatalf("ExtractAll() returned %d listings, want %d: %+v", len(listings), len(want), listings)
	}
	for i := range want {
		if listings[i] != want[i] {
			t.Errorf("listing %d = %+v, want %+v", i, listings[i], want[i])
		}
	}
}

func TestExtractDropsAllSentinelCards(t *testing.T) {
	html := `<div data-testid="card-container"><p>nothing useful</p></div>`
	listings, err := newTestExtractor().ExtractHTML(html)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	for _, l := range listings {
		if l.IsEmpty() {
			t.Errorf("all-sentinel listing present in output: %+v", l)
		}
	}
	if len(listings) != 0 {
		t.Errorf("got %d listings, want 0", len(listings))
	}
}

func TestCardsFallsBackToLegacyContainer(t *testing.T) {
	html := `<ul>
<li itemprop="itemListElement"><meta itemprop="name" content="Cabin by the lake"><meta itemprop="url" content="/rooms/7"></li>
<li itemprop="itemListElement"><meta itemprop="name" content="Farm stay"></li>
</ul>`
	listings, err := newTestExtractor().ExtractHTML(html)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if listings[0].Title != "Cabin by the lake" || listings[0].URL != "https://www.airbnb.com/rooms/7" {
		t.Errorf("first listing = %+v", listings[0])
	}
	if listings[1].Title != "Farm stay" || listings[1].URL != models.NoURL {
		t.Errorf("second listing = %+v", listings[1])
	}
}

func TestNoContainersYieldsEmptySlice(t *testing.T) {
	listings, err := newTestExtractor().ExtractHTML(`<html><body><h1>Access denied</h1></body></html>`)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	if listings == nil || len(listings) != 0 {
		t.Errorf("listings = %#v, want empty non-nil slice", listings)
	}
}

func TestFieldResolveFirstSuccessWins(t *testing.T) {
	var calls []string
	record := func(name, value string, err error) Strategy {
		return StrategyFunc{Name: name, Fn: func(*goquery.Selection) (string, error) {
			calls = append(calls, name)
			return value, err
		}}
	}

	field := Field{
		Name:     "title",
		Sentinel: models.NoTitle,
		Strategies: []Strategy{
			record("primary", "", ErrNotFound),
			record("legacy", "Found it", nil),
			record("never", "unused", nil),
		},
	}

	got, err := field.Resolve(&goquery.Selection{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "Found it" {
		t.Errorf("Resolve() = %q, want %q", got, "Found it")
	}
	if strings.Join(calls, ",") != "primary,legacy" {
		t.Errorf("strategies called = %v, want [primary legacy]", calls)
	}
}

func TestFieldResolveAllFail(t *testing.T) {
	field := Field{
		Name: "price",
		Strategies: []Strategy{
			StrategyFunc{Name: "a", Fn: func(*goquery.Selection) (string, error) { return "", ErrNotFound }},
			StrategyFunc{Name: "b", Fn: func(*goquery.Selection) (string, error) { return "", ErrEmpty }},
		},
	}
	_, err := field.Resolve(&goquery.Selection{})
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, ErrEmpty) {
		t.Errorf("Resolve() error = %v, want both ErrNotFound and ErrEmpty", err)
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		expr string
		want Strategy
	}{
		{`[data-testid="listing-card-title"]`, TextStrategy{Selector: `[data-testid="listing-card-title"]`}},
		{`a[href*="/rooms/"]@href`, AttrStrategy{Selector: `a[href*="/rooms/"]`, Attr: "href"}},
		{`[aria-label*="out of 5"]@aria-label`, AttrStrategy{Selector: `[aria-label*="out of 5"]`, Attr: "aria-label"}},
		{`a[href*="@host"]`, TextStrategy{Selector: `a[href*="@host"]`}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := ParseSelector(tt.expr); got != tt.want {
				t.Errorf("ParseSelector(%q) = %#v, want %#v", tt.expr, got, tt.want)
			}
		})
	}
}
