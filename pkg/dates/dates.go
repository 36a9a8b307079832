// Package dates decides which requested calendar dates are bookable.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the ISO calendar date format accepted on input.
const Layout = "2006-01-02"

// ErrInvalidDateFormat is returned when an input is not an ISO calendar date.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Set is the result of partitioning a date request.
type Set struct {
	// Bookable keeps input order and duplicates.
	Bookable []string
	// Skipped holds the inputs that fall on a non-working day.
	Skipped []string
}

// Parse parses a single ISO date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDateFormat, s)
	}
	return t, nil
}

// IsBusinessDay reports whether t is a day desks can be booked for.
// Sunday is the only non-working day.
func IsBusinessDay(t time.Time) bool {
	return t.Weekday() != time.Sunday
}

// Partition splits dates into bookable and skipped. Any malformed input
// fails the whole call.
func Partition(dates []string) (Set, error) {
	var set Set
	for _, d := range dates {
		t, err := Parse(d)
		if err != nil {
			return Set{}, err
		}
		if IsBusinessDay(t) {
			set.Bookable = append(set.Bookable, d)
		} else {
			set.Skipped = append(set.Skipped, d)
		}
	}
	return set, nil
}

// FilterBookable returns the subset of dates that are business days, in
// input order.
func FilterBookable(dates []string) ([]string, error) {
	set, err := Partition(dates)
	if err != nil {
		return nil, err
	}
	return set.Bookable, nil
}
