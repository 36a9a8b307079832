// Package booking drives the desk booking flow in the app, one date at a
// time, and orchestrates runs over several dates.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/calendar"
	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/gesture"
	"github.com/devender15/wework-claude-mcp-integration/pkg/metrics"
	"github.com/devender15/wework-claude-mcp-integration/pkg/webdriver"
)

// Driver is the automation surface the flow needs. *session.Session
// implements it.
type Driver interface {
	Find(ctx context.Context, by webdriver.By) (webdriver.Element, error)
	Click(ctx context.Context, el webdriver.Element) error
	Interactable(ctx context.Context, el webdriver.Element) (bool, error)
	Rect(ctx context.Context, el webdriver.Element) (webdriver.Rect, error)
	PerformActions(ctx context.Context, seqs ...webdriver.ActionSequence) error
	Screenshot(ctx context.Context) ([]byte, error)
	Launch(ctx context.Context) error
	Relaunch(ctx context.Context) error
	Close(ctx context.Context) error
}

// State is a position in the per-date booking flow
type State int

const (
	Idle State = iota
	DeskMenuOpened
	DatePickerOpened
	MonthsPaged
	DaySelected
	DateConfirmed
	LocationSelected
	BookingConfirmed
	Failed
)

var stateNames = [...]string{
	Idle:             "idle",
	DeskMenuOpened:   "desk_menu_opened",
	DatePickerOpened: "date_picker_opened",
	MonthsPaged:      "months_paged",
	DaySelected:      "day_selected",
	DateConfirmed:    "date_confirmed",
	LocationSelected: "location_selected",
	BookingConfirmed: "booking_confirmed",
	Failed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// StepKind is how a step interacts with the UI
type StepKind int

const (
	Tap StepKind = iota
	Page
	Drag
)

// Step is one transition of the flow
type Step struct {
	Name    string
	To      State
	Kind    StepKind
	By      webdriver.By
	Pages   int
	Timeout time.Duration
	// Building marks the location step, whose timeout reports the building.
	Building string
}

// Timeouts bounds every wait in the flow
type Timeouts struct {
	Step     time.Duration
	Building time.Duration
	Page     time.Duration
	Poll     time.Duration
}

// Controller runs the booking flow for a single date
type Controller struct {
	ui         config.UIConfig
	timeouts   Timeouts
	pager      *calendar.Pager
	gesture    gesture.Params
	dryRun     bool
	returnHome bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewController creates a flow controller from configuration
func NewController(cfg *config.Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		ui: cfg.UI,
		timeouts: Timeouts{
			Step:     cfg.Booking.StepTimeout,
			Building: cfg.Booking.BuildingTimeout,
			Page:     cfg.Booking.PageTimeout,
			Poll:     cfg.Booking.PollInterval,
		},
		pager:      calendar.NewPager(cfg.UI.NextMonth, cfg.UI.PrevMonth, cfg.Booking.MaxMonthPages),
		gesture:    gesture.ParamsFrom(cfg.Gesture),
		dryRun:     cfg.Booking.DryRun,
		returnHome: cfg.Booking.ReturnHome,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the clock used to decide "today"
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// DryRun reports whether the flow stops before the final gesture
func (c *Controller) DryRun() bool { return c.dryRun }

// Plan returns the transition table for booking date at building
func (c *Controller) Plan(date time.Time, building string) []Step {
	t := c.timeouts
	return []Step{
		{Name: "desk_menu", To: DeskMenuOpened, Kind: Tap, By: webdriver.ByAccessibilityID(c.ui.DeskEntry), Timeout: t.Step},
		{Name: "date_picker", To: DatePickerOpened, Kind: Tap, By: webdriver.DescriptionContains(c.ui.DatePicker), Timeout: t.Step},
		{Name: "month_paging", To: MonthsPaged, Kind: Page, Pages: calendar.MonthsToAdvance(c.now(), date), Timeout: t.Page},
		{Name: "day", To: DaySelected, Kind: Tap, By: webdriver.ByAccessibilityID(calendar.DayLabel(date)), Timeout: t.Step},
		{Name: "confirm_date", To: DateConfirmed, Kind: Tap, By: webdriver.ByAccessibilityID(c.ui.ConfirmDate), Timeout: t.Step},
		{Name: "building", To: LocationSelected, Kind: Tap, By: webdriver.DescriptionContains(building), Timeout: t.Building, Building: building},
		{Name: "book", To: BookingConfirmed, Kind: Drag, By: webdriver.ByAccessibilityID(c.ui.BookDesk), Timeout: t.Step},
	}
}

// Attempt is the result of one per-date flow
type Attempt struct {
	Reached   State
	Rehearsed bool
	Plan      *gesture.Plan
}

// BookDate walks the flow for one date. On error, Reached is the last state
// completed.
func (c *Controller) BookDate(ctx context.Context, d Driver, date time.Time, building string) (Attempt, error) {
	steps := c.Plan(date, building)
	att := Attempt{Reached: Idle}

	for _, s := range steps {
		if s.Kind == Page {
			if err := c.pager.Check(s.Pages); err != nil {
				return att, fmt.Errorf("step %s: %w", s.Name, err)
			}
		}
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return att, err
		}
		if s.Kind == Drag && c.dryRun {
			c.logger.Info("dry run: stopping before booking gesture", zap.String("date", date.Format("2006-01-02")))
			att.Rehearsed = true
			return att, nil
		}

		start := time.Now()
		err := c.run(ctx, d, s, &att)
		metrics.StepDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			return att, err
		}

		att.Reached = s.To
		c.logger.Debug("step done", zap.String("step", s.Name), zap.Stringer("state", s.To))
	}
	return att, nil
}

func (c *Controller) run(ctx context.Context, d Driver, s Step, att *Attempt) error {
	switch s.Kind {
	case Tap:
		_, err := c.activate(ctx, d, s.Name, s.By, s.Timeout, true)
		var cnf *ControlNotFoundError
		if s.Building != "" && errors.As(err, &cnf) {
			return &BuildingNotFoundError{Building: s.Building, Control: cnf}
		}
		return err

	case Page:
		act := activatorFunc(func(ctx context.Context, label string) error {
			_, err := c.activate(ctx, d, s.Name, webdriver.ByAccessibilityID(label), s.Timeout, true)
			return err
		})
		if err := c.pager.Page(ctx, act, s.Pages); err != nil {
			return fmt.Errorf("step %s: %w", s.Name, err)
		}
		return nil

	case Drag:
		el, err := c.activate(ctx, d, s.Name, s.By, s.Timeout, false)
		if err != nil {
			return err
		}
		rect, err := d.Rect(ctx, el)
		if err != nil {
			return fmt.Errorf("step %s: read bounds: %w", s.Name, err)
		}
		plan, err := gesture.DragConfirm(ctx, d, rect, c.gesture)
		if err != nil {
			return fmt.Errorf("step %s: %w", s.Name, err)
		}
		att.Plan = &plan
		return nil
	}
	return fmt.Errorf("step %s: unknown kind %d", s.Name, s.Kind)
}

// activate waits until by is displayed and enabled, clicking it when click
// is set. The element is looked up again on every attempt.
func (c *Controller) activate(ctx context.Context, d Driver, step string, by webdriver.By, timeout time.Duration, click bool) (webdriver.Element, error) {
	var el webdriver.Element
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(c.timeouts.Poll))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		found, err := d.Find(ctx, by)
		if err != nil {
			return retryable(err)
		}
		ok, err := d.Interactable(ctx, found)
		if err != nil {
			return retryable(err)
		}
		if !ok {
			return retry.RetryableError(errNotInteractable)
		}
		if click {
			if err := d.Click(ctx, found); err != nil {
				return retryable(err)
			}
		}
		el = found
		return nil
	})
	if err == nil {
		return el, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return webdriver.Element{}, ctxErr
	}
	if webdriver.IsNoSuchElement(err) || errors.Is(err, errNotInteractable) {
		return webdriver.Element{}, &ControlNotFoundError{Step: step, Label: by.Value, Timeout: timeout, Err: err}
	}
	return webdriver.Element{}, fmt.Errorf("step %s: %s: %w", step, by, err)
}

func retryable(err error) error {
	if webdriver.IsNoSuchElement(err) {
		return retry.RetryableError(err)
	}
	return err
}

// ReturnHome dismisses the confirmation sheet and goes back to the home tab
func (c *Controller) ReturnHome(ctx context.Context, d Driver) error {
	if c.ui.Scrim != "" {
		if _, err := c.activate(ctx, d, "return_home", webdriver.ByAccessibilityID(c.ui.Scrim), c.timeouts.Step, true); err != nil {
			return err
		}
	}
	if c.ui.HomeButtonClass == "" {
		return nil
	}
	_, err := c.activate(ctx, d, "return_home", webdriver.ClassInstance(c.ui.HomeButtonClass, c.ui.HomeButtonIndex), c.timeouts.Step, true)
	return err
}

type activatorFunc func(ctx context.Context, label string) error

func (f activatorFunc) Activate(ctx context.Context, label string) error { return f(ctx, label) }
