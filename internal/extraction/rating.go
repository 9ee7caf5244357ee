package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

// RatingOutcome tells apart a missing rating from one that could not be read
type RatingOutcome int

const (
	RatingAbsent RatingOutcome = iota
	RatingParsed
	RatingUnparsed
)

func (o RatingOutcome) String() string {
	switch o {
	case RatingParsed:
		return "parsed"
	case RatingUnparsed:
		return "unparsed"
	default:
		return "absent"
	}
}

// RatingResult is the detailed outcome of parsing a rating text
type RatingResult struct {
	Rating  float64
	Reviews int
	Outcome RatingOutcome
}

// ratingPatterns are tried in order; each captures (rating, review count).
var ratingPatterns = []*regexp.Regexp{
	// "4.95 (124 reviews)" or "4.8 out of 5 (124)"
	regexp.MustCompile(`(\d+\.\d+)(?:\s+out of \d+)?\s*\(([\d,]+)[^\d]*\)`),
	// "4.95 (124)"
	regexp.MustCompile(`(\d+\.\d+)\s+\(([\d,]+)\)`),
	// "4.95 out of 5 (124 reviews)"
	regexp.MustCompile(`(\d+\.\d+)\s+out of \d+\s+\(([\d,]+)\s+reviews\)`),
	// "4.95 · 124 reviews"
	regexp.MustCompile(`(\d+\.\d+).*?([\d,]*\d)\s+reviews`),
}

// ParseRating extracts a rating and review count from free text.
// Absent or unreadable text yields (0, 0).
func ParseRating(text string) (float64, int) {
	res := ParseRatingResult(text)
	return res.Rating, res.Reviews
}

// ParseRatingResult is ParseRating with the outcome kept
func ParseRatingResult(text string) RatingResult {
	if text == models.NoRating || strings.TrimSpace(text) == "" {
		return RatingResult{Outcome: RatingAbsent}
	}

	for _, pattern := range ratingPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		rating, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		reviews, err := strconv.Atoi(strings.ReplaceAll(match[2], ",", ""))
		if err != nil {
			continue
		}
		return RatingResult{Rating: rating, Reviews: reviews, Outcome: RatingParsed}
	}

	return RatingResult{Outcome: RatingUnparsed}
}
