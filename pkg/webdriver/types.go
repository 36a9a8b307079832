package webdriver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy is a W3C/Appium locator strategy
type Strategy string

const (
	AccessibilityID Strategy = "accessibility id"
	UIAutomator     Strategy = "-android uiautomator"
)

// By is a locator: a strategy plus a selector value
type By struct {
	Using Strategy `json:"using"`
	Value string   `json:"value"`
}

func (b By) String() string {
	return fmt.Sprintf("%s=%s", b.Using, b.Value)
}

// ByAccessibilityID locates an element by its content description
func ByAccessibilityID(label string) By {
	return By{Using: AccessibilityID, Value: label}
}

// ByUIAutomator locates an element with a raw UiSelector expression
func ByUIAutomator(expr string) By {
	return By{Using: UIAutomator, Value: expr}
}

// DescriptionContains matches the first element whose content description
// contains s
func DescriptionContains(s string) By {
	return ByUIAutomator(fmt.Sprintf("new UiSelector().descriptionContains(%s)", javaString(s)))
}

// ClassInstance matches the n-th element of the given widget class
func ClassInstance(class string, n int) By {
	return ByUIAutomator(fmt.Sprintf("new UiSelector().className(%s).instance(%d)", javaString(class), n))
}

func javaString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// Element is a server-side element reference. It goes stale as soon as the
// screen changes, so callers re-query instead of holding on to it.
type Element struct {
	ID string
}

// Rect is an element's position and size in device pixels
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Action is one W3C input action
type Action map[string]interface{}

// ActionSequence is the input of a single virtual device
type ActionSequence struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Actions    []Action               `json:"actions"`
}

// TouchSequence builds a touch pointer sequence
func TouchSequence(id string, actions ...Action) ActionSequence {
	return ActionSequence{
		Type:       "pointer",
		ID:         id,
		Parameters: map[string]interface{}{"pointerType": "touch"},
		Actions:    actions,
	}
}

// PointerMove moves the pointer to viewport coordinates over d
func PointerMove(x, y int, d time.Duration) Action {
	return Action{"type": "pointerMove", "duration": d.Milliseconds(), "x": x, "y": y, "origin": "viewport"}
}

func PointerDown() Action {
	return Action{"type": "pointerDown", "button": 0}
}

func PointerUp() Action {
	return Action{"type": "pointerUp", "button": 0}
}

// Pause idles the pointer for d
func Pause(d time.Duration) Action {
	return Action{"type": "pause", "duration": d.Milliseconds()}
}

// Error is a WebDriver error response
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver error (%d): %s", e.Status, e.Code)
	}
	return fmt.Sprintf("webdriver error (%d): %s: %s", e.Status, e.Code, firstLine(e.Message))
}

// Error codes the booking flow treats specially
const (
	CodeNoSuchElement     = "no such element"
	CodeStaleElement      = "stale element reference"
	CodeInvalidSessionID  = "invalid session id"
	CodeSessionNotCreated = "session not created"
)

func parseError(status int, body []byte) error {
	var env struct {
		Value Error `json:"value"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Value.Code != "" {
		env.Value.Status = status
		return &env.Value
	}
	return &Error{Status: status, Code: "unknown error", Message: string(body)}
}

// HasCode reports whether err is a WebDriver error with the given code
func HasCode(err error, code string) bool {
	var wdErr *Error
	return errors.As(err, &wdErr) && wdErr.Code == code
}

// IsNoSuchElement reports whether err means the element is not (or no longer)
// on screen
func IsNoSuchElement(err error) bool {
	return HasCode(err, CodeNoSuchElement) || HasCode(err, CodeStaleElement)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
