package extraction

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

// Field is one listing attribute with its ordered fallback strategies
type Field struct {
	Name       string
	Sentinel   string
	Strategies []Strategy
}

// Resolve returns the value of the first strategy that succeeds.
// The returned error joins every strategy failure when none did.
func (f Field) Resolve(card *goquery.Selection) (string, error) {
	var errs []error
	for _, strategy := range f.Strategies {
		value, err := strategy.Extract(card)
		if err == nil {
			return value, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", strategy, err))
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("field %s: %w", f.Name, ErrNotFound)
	}
	return "", fmt.Errorf("field %s: %w", f.Name, errors.Join(errs...))
}

// Extractor handles turning listing cards into Listings
type Extractor struct {
	Containers []string
	Title      Field
	Price      Field
	Rating     Field
	Link       Field
	logger     *zap.Logger
}

// NewExtractor creates a new extractor from the configured selector cascades.
// Relative listing links are resolved against baseURL.
func NewExtractor(cfg *config.ExtractionConfig, baseURL string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		base = nil
	}

	link := make([]Strategy, 0, len(cfg.URL))
	for _, expr := range cfg.URL {
		link = append(link, LinkStrategy{Strategy: ParseSelector(expr), Base: base})
	}

	return &Extractor{
		Containers: cfg.Container,
		Title:      Field{Name: "title", Sentinel: models.NoTitle, Strategies: parseSelectors(cfg.Title)},
		Price:      Field{Name: "price", Sentinel: models.NoPrice, Strategies: parseSelectors(cfg.Price)},
		Rating: Field{
			Name:       "rating",
			Sentinel:   models.NoRating,
			Strategies: append(parseSelectors(cfg.Rating), ratingTextStrategy),
		},
		Link:   Field{Name: "url", Sentinel: models.NoURL, Strategies: link},
		logger: logger,
	}
}

func parseSelectors(exprs []string) []Strategy {
	strategies := make([]Strategy, 0, len(exprs))
	for _, expr := range exprs {
		strategies = append(strategies, ParseSelector(expr))
	}
	return strategies
}

// Extract builds a Listing from one card. The second result is false when
// every field fell back to its sentinel and the card should be skipped.
func (e *Extractor) Extract(card *goquery.Selection) (models.Listing, bool) {
	listing := models.Listing{
		Title:      e.resolve(e.Title, card),
		PriceText:  e.resolve(e.Price, card),
		RatingText: e.resolve(e.Rating, card),
		URL:        e.resolve(e.Link, card),
	}
	if listing.IsEmpty() {
		return models.Listing{}, false
	}
	listing.Rating, listing.ReviewCount = ParseRating(listing.RatingText)
	return listing, true
}

func (e *Extractor) resolve(field Field, card *goquery.Selection) string {
	value, err := field.Resolve(card)
	if err != nil {
		e.logger.Debug("field fell back to sentinel", zap.String("field", field.Name), zap.Error(err))
		return field.Sentinel
	}
	return value
}

// Cards returns the listing containers of a page using the first container
// selector that matches anything.
func (e *Extractor) Cards(doc *goquery.Document) *goquery.Selection {
	for _, selector := range e.Containers {
		cards := doc.Find(selector)
		if cards.Length() > 0 {
			e.logger.Debug("listing containers found", zap.String("selector", selector), zap.Int("count", cards.Length()))
			return cards
		}
	}
	return doc.Selection.Slice(0, 0)
}

// ExtractAll extracts every non-empty listing of a page in document order
func (e *Extractor) ExtractAll(doc *goquery.Document) []models.Listing {
	listings := []models.Listing{}
	cards := e.Cards(doc)
	cards.Each(func(_ int, card *goquery.Selection) {
		if listing, ok := e.Extract(card); ok {
			listings = append(listings, listing)
		}
	})
	e.logger.Debug("extracted listings", zap.Int("cards", cards.Length()), zap.Int("listings", len(listings)))
	return listings
}

// ExtractHTML parses raw page content and extracts its listings
func (e *Extractor) ExtractHTML(html string) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return e.ExtractAll(doc), nil
}
