// Package gesture plans and performs the slide-to-confirm drag used by the
// final booking control.
package gesture

import (
	"context"
	"fmt"
	"time"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/webdriver"
)

// moveDuration is the per-move pointer duration of the W3C client bindings.
const moveDuration = 250 * time.Millisecond

// Params shapes a drag
type Params struct {
	Duration      time.Duration
	Steps         int
	EndHold       time.Duration
	StartFraction float64
	// Overshoot is how far past the right edge the drag ends. The control
	// only confirms when released beyond its bounds.
	Overshoot int
}

// DefaultParams returns the tuned drag shape
func DefaultParams() Params {
	return ParamsFrom(config.Default().Gesture)
}

// ParamsFrom converts gesture configuration
func ParamsFrom(cfg config.GestureConfig) Params {
	return Params{
		Duration:      cfg.Duration,
		Steps:         cfg.Steps,
		EndHold:       cfg.EndHold,
		StartFraction: cfg.StartFraction,
		Overshoot:     cfg.Overshoot,
	}
}

// Point is a viewport coordinate
type Point struct {
	X int
	Y int
}

// Plan is a computed drag
type Plan struct {
	Start     Point
	End       Point
	Moves     []Point
	StepPause time.Duration
	EndHold   time.Duration
}

// PlanDrag computes a left-to-right drag across r. The drag starts a little
// inside the left edge, at the vertical centre, and ends past the right edge.
func PlanDrag(r webdriver.Rect, p Params) (Plan, error) {
	if p.Steps <= 0 {
		return Plan{}, fmt.Errorf("gesture steps must be positive, got %d", p.Steps)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Plan{}, fmt.Errorf("cannot drag across empty rect %+v", r)
	}

	y := r.Y + r.Height/2
	start := Point{X: r.X + int(float64(r.Width)*p.StartFraction), Y: y}
	end := Point{X: r.X + r.Width + p.Overshoot, Y: y}

	moves := make([]Point, p.Steps)
	for i := 1; i <= p.Steps; i++ {
		moves[i-1] = Point{X: start.X + (end.X-start.X)*i/p.Steps, Y: y}
	}

	return Plan{
		Start:     start,
		End:       end,
		Moves:     moves,
		StepPause: p.Duration / time.Duration(p.Steps),
		EndHold:   p.EndHold,
	}, nil
}

// Sequence converts the plan into a single touch pointer sequence
func (p Plan) Sequence() webdriver.ActionSequence {
	actions := []webdriver.Action{
		webdriver.PointerMove(p.Start.X, p.Start.Y, 0),
		webdriver.PointerDown(),
	}
	for _, m := range p.Moves {
		actions = append(actions,
			webdriver.Pause(p.StepPause),
			webdriver.PointerMove(m.X, m.Y, moveDuration),
		)
	}
	actions = append(actions,
		webdriver.Pause(p.EndHold),
		webdriver.PointerUp(),
	)
	return webdriver.TouchSequence("finger", actions...)
}

// Performer executes W3C input actions
type Performer interface {
	PerformActions(ctx context.Context, seqs ...webdriver.ActionSequence) error
}

// DragConfirm plans and performs the drag across r
func DragConfirm(ctx context.Context, perf Performer, r webdriver.Rect, p Params) (Plan, error) {
	plan, err := PlanDrag(r, p)
	if err != nil {
		return Plan{}, err
	}
	if err := perf.PerformActions(ctx, plan.Sequence()); err != nil {
		return plan, fmt.Errorf("drag gesture: %w", err)
	}
	return plan, nil
}
