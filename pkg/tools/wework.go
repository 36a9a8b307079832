package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/booking"
	"github.com/devender15/wework-claude-mcp-integration/pkg/dates"
)

// BookDesksToolName is the MCP name of the desk booking tool
const BookDesksToolName = "wework_book_desks"

// NoBookableDates is returned when every requested date is a non-working day
const NoBookableDates = "No bookable dates (all were non-working days)."

var bookDesksSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "dates": {
      "type": "array",
      "description": "Dates to book, as YYYY-MM-DD. Sundays are skipped.",
      "items": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
      "minItems": 1
    },
    "building": {
      "type": "string",
      "description": "Building name as shown in the app, matched by substring.",
      "minLength": 1
    }
  },
  "required": ["dates", "building"],
  "additionalProperties": false
}`)

// Booker runs a multi-date booking
type Booker interface {
	Run(ctx context.Context, dates []string, building string) (*booking.Report, error)
}

// BookDesksTool books desks in the WeWork app
type BookDesksTool struct {
	booker Booker
	logger *zap.Logger
}

// NewBookDesksTool creates the desk booking tool
func NewBookDesksTool(b Booker, logger *zap.Logger) *BookDesksTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookDesksTool{booker: b, logger: logger}
}

// Name returns the tool name
func (t *BookDesksTool) Name() string {
	return BookDesksToolName
}

// Description returns the tool description
func (t *BookDesksTool) Description() string {
	return "Book WeWork desks for the given dates at a building. Sundays are skipped automatically. " +
		"Requires an Android device with the WeWork app attached via adb and an Appium server."
}

func (t *BookDesksTool) InputSchema() json.RawMessage {
	return bookDesksSchema
}

// BookDesks books every business day in dateList and returns a summary
func (t *BookDesksTool) BookDesks(ctx context.Context, dateList []string, building string) (string, error) {
	msg, _, err := t.book(ctx, dateList, building)
	return msg, err
}

func (t *BookDesksTool) book(ctx context.Context, dateList []string, building string) (string, *booking.Report, error) {
	set, err := dates.Partition(dateList)
	if err != nil {
		return "", nil, err
	}
	if len(set.Bookable) == 0 {
		t.logger.Info("nothing to book", zap.Strings("skipped", set.Skipped))
		return NoBookableDates, nil, nil
	}

	report, err := t.booker.Run(ctx, set.Bookable, building)
	if err != nil {
		return "", nil, err
	}
	return Summarize(report, set.Skipped), report, nil
}

// Execute executes the booking with MCP arguments
func (t *BookDesksTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	rawDates, ok := args["dates"].([]interface{})
	if !ok {
		return ErrorResult("missing or invalid 'dates' parameter (array of YYYY-MM-DD strings)"), nil
	}
	dateList := make([]string, 0, len(rawDates))
	for _, d := range rawDates {
		s, ok := d.(string)
		if !ok {
			return ErrorResult(fmt.Sprintf("invalid date %v: must be a string", d)), nil
		}
		dateList = append(dateList, s)
	}

	building, ok := args["building"].(string)
	if !ok || strings.TrimSpace(building) == "" {
		return ErrorResult("missing or invalid 'building' parameter"), nil
	}

	msg, report, err := t.book(ctx, dateList, building)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	result := &Result{Success: true, Output: msg}
	if report != nil {
		result.Data = map[string]interface{}{
			"run_id":    report.RunID,
			"device_id": report.DeviceID,
			"booked":    report.Dates(booking.StatusBooked),
			"failed":    report.Dates(booking.StatusFailed),
			"rehearsed": report.Dates(booking.StatusRehearsed),
		}
	}
	return result, nil
}

// Summarize composes the user-facing message from per-date outcomes
func Summarize(report *booking.Report, skipped []string) string {
	var b strings.Builder

	booked := report.Dates(booking.StatusBooked)
	rehearsed := report.Dates(booking.StatusRehearsed)
	failures := report.Failures()

	switch {
	case len(booked) > 0:
		fmt.Fprintf(&b, "Booked desks for %s at %s.", strings.Join(booked, ", "), report.Building)
	case len(rehearsed) == 0:
		fmt.Fprintf(&b, "No desks were booked at %s.", report.Building)
	}

	if len(rehearsed) > 0 {
		sep(&b)
		fmt.Fprintf(&b, "Dry run: reached the booking step for %s at %s without booking.", strings.Join(rehearsed, ", "), report.Building)
	}

	if len(failures) > 0 {
		parts := make([]string, 0, len(failures))
		for _, f := range failures {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.Date, f.Reason))
		}
		sep(&b)
		fmt.Fprintf(&b, "Failed: %s.", strings.Join(parts, "; "))
	}

	if s := uniqueSorted(skipped); len(s) > 0 {
		sep(&b)
		fmt.Fprintf(&b, "Skipped non-working days: %s.", strings.Join(s, ", "))
	}
	return b.String()
}

func sep(b *strings.Builder) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
