package extraction

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNotFound is returned by a strategy whose selector matched nothing
	ErrNotFound = errors.New("no matching node")
	// ErrEmpty is returned by a strategy whose node held only whitespace
	ErrEmpty = errors.New("matched node is empty")
)

// Strategy pulls one value out of a listing card
type Strategy interface {
	Extract(card *goquery.Selection) (string, error)
	String() string
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc struct {
	Name string
	Fn   func(card *goquery.Selection) (string, error)
}

func (f StrategyFunc) Extract(card *goquery.Selection) (string, error) { return f.Fn(card) }
func (f StrategyFunc) String() string                                  { return f.Name }

// TextStrategy reads the trimmed text of the first node matching Selector
type TextStrategy struct {
	Selector string
}

func (s TextStrategy) Extract(card *goquery.Selection) (string, error) {
	node := card.Find(s.Selector).First()
	if node.Length() == 0 {
		return "", ErrNotFound
	}
	return nonEmpty(node.Text())
}

func (s TextStrategy) String() string { return s.Selector }

// AttrStrategy reads an attribute of the first node matching Selector
type AttrStrategy struct {
	Selector string
	Attr     string
}

func (s AttrStrategy) Extract(card *goquery.Selection) (string, error) {
	node := card.Find(s.Selector).First()
	if node.Length() == 0 {
		return "", ErrNotFound
	}
	value, ok := node.Attr(s.Attr)
	if !ok {
		return "", fmt.Errorf("attribute %q: %w", s.Attr, ErrNotFound)
	}
	return nonEmpty(value)
}

func (s AttrStrategy) String() string { return s.Selector + "@" + s.Attr }

// LinkStrategy wraps a strategy and resolves its result against Base
type LinkStrategy struct {
	Strategy
	Base *url.URL
}

func (s LinkStrategy) Extract(card *goquery.Selection) (string, error) {
	raw, err := s.Strategy.Extract(card)
	if err != nil {
		return "", err
	}
	if s.Base == nil {
		return raw, nil
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", raw, err)
	}
	return s.Base.ResolveReference(ref).String(), nil
}

// ParseSelector turns a configured selector into a strategy.
// "css" reads node text, "css@attr" reads the attribute.
func ParseSelector(expr string) Strategy {
	if i := strings.LastIndex(expr, "@"); i > 0 && !strings.ContainsAny(expr[i+1:], `"]') `) {
		return AttrStrategy{Selector: expr[:i], Attr: expr[i+1:]}
	}
	return TextStrategy{Selector: expr}
}

// ratingTextStrategy scans spans for text the rating parser understands.
// It covers cards that drop both the "out of 5" wording and aria labels.
var ratingTextStrategy = StrategyFunc{
	Name: "span rating text",
	Fn: func(card *goquery.Selection) (string, error) {
		var found string
		card.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if ParseRatingResult(text).Outcome == RatingParsed {
				found = text
				return false
			}
			return true
		})
		if found == "" {
			return "", ErrNotFound
		}
		return found, nil
	},
}

func nonEmpty(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmpty
	}
	return value, nil
}
