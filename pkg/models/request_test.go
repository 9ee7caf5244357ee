package models

import (
	"errors"
	"testing"
)

func TestSearchRequestValidate(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name         string
		req          SearchRequest
		requireDates bool
		ok           bool
	}{
		{"complete", SearchRequest{Destination: "Miami", CheckIn: "2025-03-09", CheckOut: "2025-03-14", Guests: 2}, true, true},
		{"dates optional", SearchRequest{Destination: "Miami", Guests: 1}, false, true},
		{"dates required", SearchRequest{Destination: "Miami", Guests: 1}, true, false},
		{"blank destination", SearchRequest{Destination: "  ", Guests: 1}, false, false},
		{"bad date", SearchRequest{Destination: "Miami", CheckIn: "2025-13-01", Guests: 1}, false, false},
		{"checkout equals checkin", SearchRequest{Destination: "Miami", CheckIn: "2025-03-09", CheckOut: "2025-03-09", Guests: 1}, false, false},
		{"checkout before checkin", SearchRequest{Destination: "Miami", CheckIn: "2025-03-09", CheckOut: "2025-03-01", Guests: 1}, false, false},
		{"no guests", SearchRequest{Destination: "Miami"}, false, false},
		{"negative budget", SearchRequest{Destination: "Miami", Guests: 1, Budget: &negative}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.requireDates)
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Validate() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"$1,200", 1200, true},
		{" $ 99.50 ", 99.5, true},
		{"-5", 0, false},
		{"", 0, false},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBudget(tt.in)
			if (err == nil) != tt.ok || got != tt.want {
				t.Errorf("ParseBudget(%q) = %v, %v; want %v, ok=%v", tt.in, got, err, tt.want, tt.ok)
			}
		})
	}
}
