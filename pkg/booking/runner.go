package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/dates"
	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/metrics"
)

// Status is the per-date result of a run
type Status string

const (
	StatusBooked    Status = "booked"
	StatusFailed    Status = "failed"
	StatusRehearsed Status = "rehearsed"
)

// Outcome records what happened to one date
type Outcome struct {
	Date       string        `json:"date"`
	Status     Status        `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Reached    string        `json:"reached"`
	Screenshot string        `json:"screenshot,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Report summarizes a run
type Report struct {
	RunID      string    `json:"run_id"`
	DeviceID   string    `json:"device_id"`
	Building   string    `json:"building"`
	DryRun     bool      `json:"dry_run"`
	Outcomes   []Outcome `json:"outcomes"`
	Relaunches int       `json:"relaunches"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Dates returns the dates that ended with status s, in run order
func (r *Report) Dates(s Status) []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == s {
			out = append(out, o.Date)
		}
	}
	return out
}

// Failures returns the failed outcomes
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Locator finds the device to automate
type Locator interface {
	Locate(ctx context.Context) (device.Device, error)
}

// Opener opens an automation session on a device
type Opener interface {
	Open(ctx context.Context, deviceID string) (Driver, error)
}

// OpenFunc adapts a function to Opener
type OpenFunc func(ctx context.Context, deviceID string) (Driver, error)

func (f OpenFunc) Open(ctx context.Context, deviceID string) (Driver, error) { return f(ctx, deviceID) }

// Recorder persists finished runs
type Recorder interface {
	Record(ctx context.Context, r *Report) error
}

// Screenshots stores failure screenshots and returns where they went.
// index is the outcome's position in the run, so repeated dates stay apart.
type Screenshots interface {
	Save(ctx context.Context, runID string, index int, date string, png []byte) (string, error)
}

// Runner books several dates over one session
type Runner struct {
	ctrl        *Controller
	locator     Locator
	opener      Opener
	recorder    Recorder
	screenshots Screenshots
	now         func() time.Time
	logger      *zap.Logger

	mu sync.Mutex
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithRecorder persists every finished run
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithScreenshots captures a screenshot for every failed date
func WithScreenshots(s Screenshots) RunnerOption {
	return func(r *Runner) { r.screenshots = s }
}

// WithClock replaces the clock for both timestamps and "today"
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
		r.ctrl.SetClock(now)
	}
}

// NewRunner creates a multi-date runner
func NewRunner(ctrl *Controller, locator Locator, opener Opener, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		ctrl:    ctrl,
		locator: locator,
		opener:  opener,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run books each date in order. Device, session and launch problems are
// returned as errors; per-date failures are recorded in the report and
// recovered by relaunching the app.
func (r *Runner) Run(ctx context.Context, dateList []string, building string) (*Report, error) {
	if len(dateList) == 0 {
		return nil, ErrNoDates
	}
	building = strings.TrimSpace(building)
	if building == "" {
		return nil, ErrNoBuilding
	}
	targets := make([]time.Time, len(dateList))
	for i, ds := range dateList {
		t, err := dates.Parse(ds)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{
		RunID:     uuid.NewString(),
		Building:  building,
		DryRun:    r.ctrl.DryRun(),
		StartedAt: r.now(),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("booking run started", zap.Strings("dates", dateList), zap.String("building", building))

	dev, err := r.locator.Locate(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("device_error").Inc()
		return nil, err
	}
	report.DeviceID = dev.Serial

	drv, err := r.opener.Open(ctx, dev.Serial)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("session_error").Inc()
		return nil, err
	}
	defer func() {
		if err := drv.Close(ctx); err != nil {
			logger.Warn("closing session", zap.Error(err))
		}
	}()

	if err := drv.Launch(ctx); err != nil {
		metrics.RunsTotal.WithLabelValues("launch_error").Inc()
		return nil, err
	}

	for i, ds := range dateList {
		o := r.bookOne(ctx, drv, report, targets[i], ds, logger)
		report.Outcomes = append(report.Outcomes, o)
		metrics.BookingsTotal.WithLabelValues(string(o.Status)).Inc()
	}
	report.FinishedAt = r.now()

	if r.recorder != nil {
		if err := r.recorder.Record(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("recording run", zap.Error(err))
		}
	}
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	logger.Info("booking run finished",
		zap.Strings("booked", report.Dates(StatusBooked)),
		zap.Int("failed", len(report.Failures())),
		zap.Int("relaunches", report.Relaunches))

	return report, nil
}

func (r *Runner) bookOne(ctx context.Context, drv Driver, report *Report, target time.Time, ds string, logger *zap.Logger) (o Outcome) {
	logger = logger.With(zap.String("date", ds))
	start := r.now()
	o.Date = ds
	defer func() { o.Duration = r.now().Sub(start) }()

	if err := ctx.Err(); err != nil {
		o.Status, o.Reason, o.Err, o.Reached = StatusFailed, err.Error(), err, Idle.String()
		return o
	}

	att, err := r.ctrl.BookDate(ctx, drv, target, report.Building)
	o.Reached = att.Reached.String()

	switch {
	case err != nil:
		o.Status, o.Reason, o.Err = StatusFailed, err.Error(), err
		logger.Warn("booking failed", zap.String("reached", o.Reached), zap.Error(err))
		if ctx.Err() != nil {
			return o
		}
		o.Screenshot = r.capture(ctx, drv, report.RunID, len(report.Outcomes), ds, logger)
		r.relaunch(ctx, drv, report, logger)

	case att.Rehearsed:
		o.Status = StatusRehearsed
		logger.Info("booking rehearsed")
		if err := drv.Relaunch(ctx); err != nil {
			logger.Warn("reset after rehearsal", zap.Error(err))
		}

	default:
		o.Status = StatusBooked
		logger.Info("desk booked")
		if r.ctrl.returnHome {
			if err := r.ctrl.ReturnHome(ctx, drv); err != nil {
				logger.Warn("return home failed, relaunching", zap.Error(err))
				r.relaunch(ctx, drv, report, logger)
			}
		}
	}
	return o
}

func (r *Runner) relaunch(ctx context.Context, drv Driver, report *Report, logger *zap.Logger) {
	report.Relaunches++
	metrics.RelaunchesTotal.Inc()
	if err := drv.Relaunch(ctx); err != nil {
		logger.Error("relaunch failed", zap.Error(err))
	}
}

func (r *Runner) capture(ctx context.Context, drv Driver, runID string, index int, date string, logger *zap.Logger) string {
	if r.screenshots == nil {
		return ""
	}
	png, err := drv.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return ""
	}
	path, err := r.screenshots.Save(ctx, runID, index, date, png)
	if err != nil {
		logger.Warn("saving screenshot", zap.Error(err))
		return ""
	}
	return path
}

// String renders a short per-date summary, used in logs and the CLI
func (o Outcome) String() string {
	if o.Reason == "" {
		return fmt.Sprintf("%s: %s", o.Date, o.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Date, o.Status, o.Reason)
}
