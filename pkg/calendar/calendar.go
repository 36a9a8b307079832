// Package calendar computes month paging and day labels for the in-app date
// picker and drives the paging controls.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxPages bounds how far the picker may be paged in one direction.
const DefaultMaxPages = 24

var (
	// ErrNavigationSafetyLimitExceeded is returned when a target month is
	// further away than the configured page limit.
	ErrNavigationSafetyLimitExceeded = errors.New("navigation safety limit exceeded")

	// ErrPagingUnsupported is returned when paging in a direction that has no
	// control configured.
	ErrPagingUnsupported = errors.New("paging direction unsupported")
)

// MonthsToAdvance returns the number of month pages between the month of
// from and the month of to. Days are ignored.
func MonthsToAdvance(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// DayLabel returns the accessibility label the picker uses for a day cell,
// for example "11, Wednesday, February 11, 2026".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d, %s, %s %d, %d", t.Day(), t.Weekday(), t.Month(), t.Day(), t.Year())
}

// Activator activates a labelled control, waiting for it as needed.
type Activator interface {
	Activate(ctx context.Context, label string) error
}

// Pager pages the date picker by activating its next or previous controls.
type Pager struct {
	// NextLabel is the accessibility label of the forward control.
	NextLabel string
	// PrevLabel is the accessibility label of the backward control. Empty
	// means backward paging is not available.
	PrevLabel string
	MaxPages  int
}

// NewPager returns a Pager using the given labels and limit. A non-positive
// limit selects DefaultMaxPages.
func NewPager(next, prev string, maxPages int) *Pager {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Pager{NextLabel: next, PrevLabel: prev, MaxPages: maxPages}
}

// Check validates a page count against the limit and the configured
// controls without touching the UI.
func (p *Pager) Check(count int) error {
	_, _, err := p.resolve(count)
	return err
}

// Page activates the paging control |count| times, forward for positive
// counts. Limits and direction support are checked before any interaction.
func (p *Pager) Page(ctx context.Context, a Activator, count int) error {
	n, label, err := p.resolve(count)
	if err != nil || n == 0 {
		return err
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Activate(ctx, label); err != nil {
			return fmt.Errorf("page %d/%d: %w", i+1, n, err)
		}
	}
	return nil
}

func (p *Pager) resolve(count int) (int, string, error) {
	if count == 0 {
		return 0, "", nil
	}

	n, label, dir := count, p.NextLabel, "forward"
	if count < 0 {
		n, label, dir = -count, p.PrevLabel, "backward"
	}

	limit := p.MaxPages
	if limit <= 0 {
		limit = DefaultMaxPages
	}
	if n > limit {
		return 0, "", fmt.Errorf("%w: need %d pages, limit is %d", ErrNavigationSafetyLimitExceeded, n, limit)
	}
	if label == "" {
		return 0, "", fmt.Errorf("%w: no %s control to page %d month(s)", ErrPagingUnsupported, dir, n)
	}
	return n, label, nil
}
