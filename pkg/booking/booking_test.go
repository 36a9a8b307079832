package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/devender15/wework-claude-mcp-integration/pkg/calendar"
	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/dates"
	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/webdriver"
)

const building = "Two Horizon Center"

var buildingSelector = webdriver.DescriptionContains(building).Value

// fakeDriver pretends every control is on screen except the missing ones
type fakeDriver struct {
	mu         sync.Mutex
	missing    map[string]bool
	hidden     map[string]bool
	clicks     []string
	actions    []webdriver.ActionSequence
	launches   int
	relaunches int
	closes     int
	shots      int
}

func newFakeDriver(missing ...string) *fakeDriver {
	f := &fakeDriver{missing: map[string]bool{}, hidden: map[string]bool{}}
	for _, m := range missing {
		f.missing[m] = true
	}
	return f
}

func (f *fakeDriver) Find(_ context.Context, by webdriver.By) (webdriver.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[by.Value] {
		return webdriver.Element{}, &webdriver.Error{Status: 404, Code: webdriver.CodeNoSuchElement}
	}
	return webdriver.Element{ID: by.Value}, nil
}

func (f *fakeDriver) Click(_ context.Context, el webdriver.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, el.ID)
	return nil
}

func (f *fakeDriver) Interactable(_ context.Context, el webdriver.Element) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.hidden[el.ID], nil
}

func (f *fakeDriver) Rect(context.Context, webdriver.Element) (webdriver.Rect, error) {
	return webdriver.Rect{X: 40, Y: 1800, Width: 1000, Height: 120}, nil
}

func (f *fakeDriver) PerformActions(_ context.Context, seqs ...webdriver.ActionSequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, seqs...)
	return nil
}

func (f *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	f.shots++
	return []byte("png"), nil
}

func (f *fakeDriver) Launch(context.Context) error   { f.launches++; return nil }
func (f *fakeDriver) Relaunch(context.Context) error { f.relaunches++; return nil }
func (f *fakeDriver) Close(context.Context) error    { f.closes++; return nil }

type fakeLocator struct {
	dev   device.Device
	err   error
	calls int
}

func (l *fakeLocator) Locate(context.Context) (device.Device, error) {
	l.calls++
	return l.dev, l.err
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Booking.StepTimeout = 40 * time.Millisecond
	cfg.Booking.BuildingTimeout = 40 * time.Millisecond
	cfg.Booking.PageTimeout = 40 * time.Millisecond
	cfg.Booking.PollInterval = 5 * time.Millisecond
	return cfg
}

func fixedClock() time.Time {
	return time.Date(2026, time.January, 20, 9, 0, 0, 0, time.Local)
}

func newController(t *testing.T, cfg *config.Config) *Controller {
	c := NewController(cfg, zaptest.NewLogger(t))
	c.SetClock(fixedClock)
	return c
}

func mustDate(t *testing.T, s string) time.Time {
	d, err := dates.Parse(s)
	require.NoError(t, err)
	return d
}

func TestPlan(t *testing.T) {
	c := newController(t, testConfig())
	steps := c.Plan(mustDate(t, "2026-03-11"), building)

	var names []string
	var states []State
	for _, s := range steps {
		names = append(names, s.Name)
		states = append(states, s.To)
	}
	assert.Equal(t, []string{"desk_menu", "date_picker", "month_paging", "day", "confirm_date", "building", "book"}, names)
	assert.Equal(t, []State{DeskMenuOpened, DatePickerOpened, MonthsPaged, DaySelected, DateConfirmed, LocationSelected, BookingConfirmed}, states)

	assert.Equal(t, 2, steps[2].Pages)
	assert.Equal(t, webdriver.ByAccessibilityID("11, Wednesday, March 11, 2026"), steps[3].By)
	assert.Equal(t, building, steps[5].Building)
	assert.Equal(t, Drag, steps[6].Kind)
}

func TestBookDate_Success(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver()

	att, err := c.BookDate(context.Background(), d, mustDate(t, "2026-02-11"), building)
	require.NoError(t, err)

	assert.Equal(t, BookingConfirmed, att.Reached)
	assert.False(t, att.Rehearsed)
	assert.Equal(t, []string{
		"Desk",
		webdriver.DescriptionContains("All day").Value,
		"Next month",
		"11, Wednesday, February 11, 2026",
		"Confirm and proceed",
		buildingSelector,
	}, d.clicks)

	require.Len(t, d.actions, 1)
	require.NotNil(t, att.Plan)
	assert.Greater(t, att.Plan.End.X, 1040)
}

func TestBookDate_ControlNotFound(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver("Confirm and proceed")

	att, err := c.BookDate(context.Background(), d, mustDate(t, "2026-01-28"), building)
	require.Error(t, err)

	var cnf *ControlNotFoundError
	require.True(t, errors.As(err, &cnf))
	assert.Equal(t, "confirm_date", cnf.Step)
	assert.Equal(t, "Confirm and proceed", cnf.Label)
	assert.True(t, webdriver.IsNoSuchElement(err))
	assert.Equal(t, DaySelected, att.Reached)
	assert.Empty(t, d.actions)
}

func TestBookDate_NotInteractable(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver()
	d.hidden["Desk"] = true

	_, err := c.BookDate(context.Background(), d, mustDate(t, "2026-01-28"), building)
	var cnf *ControlNotFoundError
	require.True(t, errors.As(err, &cnf))
	assert.Equal(t, "desk_menu", cnf.Step)
	assert.Empty(t, d.clicks)
}

func TestBookDate_BuildingNotFound(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver(buildingSelector)

	att, err := c.BookDate(context.Background(), d, mustDate(t, "2026-01-28"), building)
	require.Error(t, err)

	var bnf *BuildingNotFoundError
	require.True(t, errors.As(err, &bnf))
	assert.Equal(t, building, bnf.Building)
	assert.Contains(t, err.Error(), building)

	var cnf *ControlNotFoundError
	assert.True(t, errors.As(err, &cnf))
	assert.Equal(t, DateConfirmed, att.Reached)
}

func TestBookDate_SafetyLimit(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver()

	att, err := c.BookDate(context.Background(), d, mustDate(t, "2028-06-01"), building)
	require.Error(t, err)
	assert.True(t, errors.Is(err, calendar.ErrNavigationSafetyLimitExceeded))
	assert.Equal(t, Idle, att.Reached)
	assert.Empty(t, d.clicks, "no UI interaction before the limit check")
}

func TestBookDate_PastMonth(t *testing.T) {
	c := newController(t, testConfig())
	d := newFakeDriver()

	_, err := c.BookDate(context.Background(), d, mustDate(t, "2025-12-10"), building)
	assert.True(t, errors.Is(err, calendar.ErrPagingUnsupported))
	assert.Empty(t, d.clicks)

	cfg := testConfig()
	cfg.UI.PrevMonth = "Previous month"
	c = newController(t, cfg)
	_, err = c.BookDate(context.Background(), d, mustDate(t, "2025-12-10"), building)
	require.NoError(t, err)
	assert.Contains(t, d.clicks, "Previous month")
}

func TestBookDate_DryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Booking.DryRun = true
	c := newController(t, cfg)
	d := newFakeDriver()

	att, err := c.BookDate(context.Background(), d, mustDate(t, "2026-01-28"), building)
	require.NoError(t, err)
	assert.True(t, att.Rehearsed)
	assert.Equal(t, LocationSelected, att.Reached)
	assert.Empty(t, d.actions)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "booking_confirmed", BookingConfirmed.String())
	assert.Equal(t, "state(42)", State(42).String())
}

// runner tests

type fakeScreenshots struct{ saved []string }

func (f *fakeScreenshots) Save(_ context.Context, runID string, index int, date string, _ []byte) (string, error) {
	p := fmt.Sprintf("/tmp/%s-%02d-%s.png", runID, index, date)
	f.saved = append(f.saved, p)
	return p, nil
}

type fakeRecorder struct{ reports []*Report }

func (f *fakeRecorder) Record(_ context.Context, r *Report) error {
	f.reports = append(f.reports, r)
	return nil
}

func newRunner(t *testing.T, cfg *config.Config, loc Locator, d *fakeDriver, opens *int, opts ...RunnerOption) *Runner {
	opener := OpenFunc(func(_ context.Context, id string) (Driver, error) {
		*opens++
		assert.Equal(t, "UORC", id)
		return d, nil
	})
	opts = append([]RunnerOption{WithClock(fixedClock)}, opts...)
	return NewRunner(NewController(cfg, zaptest.NewLogger(t)), loc, opener, zaptest.NewLogger(t), opts...)
}

func TestRun_FailedDateDoesNotStopLaterDates(t *testing.T) {
	d := newFakeDriver("12, Thursday, February 12, 2026")
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	rec := &fakeRecorder{}
	shots := &fakeScreenshots{}
	opens := 0

	r := newRunner(t, testConfig(), loc, d, &opens, WithRecorder(rec), WithScreenshots(shots))
	report, err := r.Run(context.Background(), []string{"2026-02-11", "2026-02-12", "2026-02-13"}, building)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, StatusBooked, report.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, StatusBooked, report.Outcomes[2].Status)
	assert.Equal(t, []string{"2026-02-11", "2026-02-13"}, report.Dates(StatusBooked))

	var cnf *ControlNotFoundError
	require.True(t, errors.As(report.Outcomes[1].Err, &cnf))
	assert.Equal(t, "day", cnf.Step)
	assert.Equal(t, MonthsPaged.String(), report.Outcomes[1].Reached)

	assert.Equal(t, 1, loc.calls)
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, d.launches)
	assert.Equal(t, 1, d.relaunches, "exactly one relaunch per failed date")
	assert.Equal(t, 1, report.Relaunches)
	assert.Equal(t, 1, d.closes)
	assert.Len(t, d.actions, 2)

	assert.Contains(t, d.clicks, "Scrim")
	assert.Contains(t, d.clicks, webdriver.ClassInstance("android.widget.Button", 0).Value)
	assert.Contains(t, d.clicks, "13, Friday, February 13, 2026")

	require.Len(t, shots.saved, 1)
	assert.Equal(t, shots.saved[0], report.Outcomes[1].Screenshot)
	require.Len(t, rec.reports, 1)
	assert.Equal(t, report.RunID, rec.reports[0].RunID)
	assert.Equal(t, "UORC", report.DeviceID)
}

func TestRun_RepeatedDateKeepsEachScreenshot(t *testing.T) {
	d := newFakeDriver("12, Thursday, February 12, 2026")
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	shots := &fakeScreenshots{}
	opens := 0

	report, err := newRunner(t, testConfig(), loc, d, &opens, WithScreenshots(shots)).Run(context.Background(),
		[]string{"2026-02-12", "2026-02-11", "2026-02-12"}, building)
	require.NoError(t, err)

	require.Len(t, report.Failures(), 2)
	require.Len(t, shots.saved, 2)
	assert.NotEqual(t, report.Outcomes[0].Screenshot, report.Outcomes[2].Screenshot)
	assert.Contains(t, report.Outcomes[0].Screenshot, "-00-2026-02-12")
	assert.Contains(t, report.Outcomes[2].Screenshot, "-02-2026-02-12")
	assert.Equal(t, 2, report.Relaunches)
}

func TestRun_RelaunchPerFailure(t *testing.T) {
	d := newFakeDriver(buildingSelector)
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	opens := 0

	report, err := newRunner(t, testConfig(), loc, d, &opens).Run(context.Background(),
		[]string{"2026-02-11", "2026-02-12", "2026-02-13", "2026-02-14"}, building)
	require.NoError(t, err)

	assert.Len(t, report.Failures(), 4)
	assert.Equal(t, 4, d.relaunches)
	for _, o := range report.Outcomes {
		var bnf *BuildingNotFoundError
		assert.True(t, errors.As(o.Err, &bnf), o.Date)
	}
}

func TestRun_NoDeviceFound(t *testing.T) {
	d := newFakeDriver()
	loc := &fakeLocator{err: device.ErrNoDeviceFound}
	opens := 0

	report, err := newRunner(t, testConfig(), loc, d, &opens).Run(context.Background(), []string{"2026-02-11"}, building)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, device.ErrNoDeviceFound))
	assert.Equal(t, 0, opens)
	assert.Equal(t, 0, d.relaunches)
	assert.Equal(t, 0, d.launches)
}

func TestRun_SessionFailure(t *testing.T) {
	sessionErr := errors.New("automation session creation failed")
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	opener := OpenFunc(func(context.Context, string) (Driver, error) { return nil, sessionErr })

	r := NewRunner(newController(t, testConfig()), loc, opener, nil)
	_, err := r.Run(context.Background(), []string{"2026-02-11"}, building)
	assert.ErrorIs(t, err, sessionErr)
}

func TestRun_InvalidInput(t *testing.T) {
	d := newFakeDriver()
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	opens := 0
	r := newRunner(t, testConfig(), loc, d, &opens)

	_, err := r.Run(context.Background(), []string{"2026-02-11", "Feb 12"}, building)
	assert.True(t, errors.Is(err, dates.ErrInvalidDateFormat))

	_, err = r.Run(context.Background(), nil, building)
	assert.ErrorIs(t, err, ErrNoDates)

	_, err = r.Run(context.Background(), []string{"2026-02-11"}, "  ")
	assert.ErrorIs(t, err, ErrNoBuilding)

	assert.Equal(t, 0, loc.calls)
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Booking.DryRun = true
	d := newFakeDriver()
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	opens := 0

	report, err := newRunner(t, cfg, loc, d, &opens).Run(context.Background(), []string{"2026-02-11", "2026-02-12"}, building)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{"2026-02-11", "2026-02-12"}, report.Dates(StatusRehearsed))
	assert.Empty(t, d.actions)
	assert.Equal(t, 0, report.Relaunches)
}

func TestRun_Cancelled(t *testing.T) {
	d := newFakeDriver()
	loc := &fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}}
	opens := 0

	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(t, testConfig(), loc, d, &opens)
	r.ctrl.returnHome = false

	// Cancel after the first booking gesture.
	cancelling := &cancelOnActions{fakeDriver: d, cancel: cancel}
	r.opener = OpenFunc(func(context.Context, string) (Driver, error) { return cancelling, nil })

	report, err := r.Run(ctx, []string{"2026-02-11", "2026-02-12", "2026-02-13"}, building)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, report.Outcomes[0].Status)
	for _, o := range report.Outcomes[1:] {
		assert.Equal(t, StatusFailed, o.Status)
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Equal(t, 0, d.relaunches)
	assert.Equal(t, 1, d.closes)
}

type cancelOnActions struct {
	*fakeDriver
	cancel context.CancelFunc
}

func (c *cancelOnActions) PerformActions(ctx context.Context, seqs ...webdriver.ActionSequence) error {
	err := c.fakeDriver.PerformActions(ctx, seqs...)
	c.cancel()
	return err
}
