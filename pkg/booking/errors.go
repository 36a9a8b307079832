package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoDates is returned when a run is started without dates.
	ErrNoDates = errors.New("no dates to book")

	// ErrNoBuilding is returned when a run is started without a building.
	ErrNoBuilding = errors.New("building is required")

	errNotInteractable = errors.New("element not displayed or not enabled")
)

// ControlNotFoundError means a control did not become interactable in time
type ControlNotFoundError struct {
	Step    string
	Label   string
	Timeout time.Duration
	// Err is the last lookup error seen while waiting.
	Err error
}

func (e *ControlNotFoundError) Error() string {
	return fmt.Sprintf("control %q not found at step %s within %s", e.Label, e.Step, e.Timeout)
}

func (e *ControlNotFoundError) Unwrap() error { return e.Err }

// BuildingNotFoundError means the requested building never appeared in the
// location list
type BuildingNotFoundError struct {
	Building string
	Control  *ControlNotFoundError
}

func (e *BuildingNotFoundError) Error() string {
	return fmt.Sprintf("building %q not found within %s", e.Building, e.Control.Timeout)
}

func (e *BuildingNotFoundError) Unwrap() error { return e.Control }
