package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of check-in and check-out dates
const DateLayout = "2006-01-02"

// ErrInvalidRequest is wrapped by every search validation failure
var ErrInvalidRequest = errors.New("invalid search")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Validate checks a search. Dates are optional unless requireDates is set;
// when both are present checkout must fall after checkin.
func (r SearchRequest) Validate(requireDates bool) error {
	if strings.TrimSpace(r.Destination) == "" {
		return invalid("destination is required")
	}

	dates := []struct{ name, value string }{{"checkin", r.CheckIn}, {"checkout", r.CheckOut}}
	for _, d := range dates {
		if d.value == "" {
			if requireDates {
				return invalid("%s is required", d.name)
			}
			continue
		}
		if _, err := time.Parse(DateLayout, d.value); err != nil {
			return invalid("%s %q is not a YYYY-MM-DD date", d.name, d.value)
		}
	}
	if r.CheckIn != "" && r.CheckOut != "" && r.CheckOut <= r.CheckIn {
		return invalid("checkout %s must be after checkin %s", r.CheckOut, r.CheckIn)
	}

	if r.Guests < 1 {
		return invalid("guests must be at least 1")
	}
	if r.Budget != nil && *r.Budget < 0 {
		return invalid("budget must not be negative")
	}
	return nil
}

// ParseBudget reads amounts such as "150", "$1,200" or "1200.50"
func ParseBudget(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, invalid("budget %q is not an amount", s)
	}
	return v, nil
}
