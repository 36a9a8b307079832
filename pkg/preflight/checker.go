// Package preflight checks that everything a booking run needs is reachable
// before touching the device.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/platform"
)

// CheckResult represents the result of a dependency check
type CheckResult struct {
	Name     string
	Required bool
	Found    bool
	Path     string
	Version  string
	Error    string
}

// StatusChecker reports Appium server readiness
type StatusChecker interface {
	Status(ctx context.Context) (bool, string, error)
}

// Locator finds the device to automate
type Locator interface {
	Locate(ctx context.Context) (device.Device, error)
}

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker validates dependencies before starting work
type Checker struct {
	config   *config.Config
	appium   StatusChecker
	locator  Locator
	history  Pinger
	lookPath func(string) (string, error)
}

// Option configures a Checker
type Option func(*Checker)

// WithHistory adds a reachability check for the history database
func WithHistory(p Pinger) Option {
	return func(c *Checker) { c.history = p }
}

// WithLookPath replaces executable lookup
func WithLookPath(f func(string) (string, error)) Option {
	return func(c *Checker) { c.lookPath = f }
}

// NewChecker creates a new dependency checker
func NewChecker(cfg *config.Config, appium StatusChecker, locator Locator, opts ...Option) *Checker {
	c := &Checker{
		config:   cfg,
		appium:   appium,
		locator:  locator,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAll validates all dependencies
func (c *Checker) CheckAll(ctx context.Context) ([]CheckResult, error) {
	results := []CheckResult{
		c.checkADB(),
		c.checkAppium(ctx),
		c.checkDevice(ctx),
	}
	if c.history != nil {
		results = append(results, c.checkHistory(ctx))
	}
	if c.config.Diagnostics.ScreenshotDir != "" {
		results = append(results, c.checkScreenshotDir())
	}

	var failures []CheckResult
	for _, result := range results {
		if result.Required && !result.Found {
			failures = append(failures, result)
		}
	}
	if len(failures) > 0 {
		return results, formatErrors(failures)
	}
	return results, nil
}

func (c *Checker) checkADB() CheckResult {
	name := c.config.Device.ADBPath
	if name == "" {
		name = platform.ExecutableName("adb")
	}
	path, err := c.lookPath(name)
	if err != nil {
		return CheckResult{
			Name:     "adb",
			Required: true,
			Error:    fmt.Sprintf("%s not found (%s)", name, installHint(platform.Current(), platform.InContainer())),
		}
	}
	return CheckResult{Name: "adb", Required: true, Found: true, Path: path}
}

// installHint tells the operator how to get adb on this host
func installHint(host platform.OS, container bool) string {
	switch {
	case container:
		return "adb is not installed in this container image"
	case host == platform.MacOS:
		return "install with: brew install --cask android-platform-tools"
	case host == platform.Windows:
		return "install Android platform-tools and add the folder containing adb.exe to PATH"
	default:
		return "install Android platform-tools (e.g. apt install adb) and add adb to PATH"
	}
}

func (c *Checker) checkAppium(ctx context.Context) CheckResult {
	url := c.config.Appium.ServerURL
	ready, version, err := c.appium.Status(ctx)
	if err != nil {
		return CheckResult{
			Name:     "Appium",
			Required: true,
			Error:    fmt.Sprintf("Appium server not reachable at %s (start it with: appium)", url),
		}
	}
	if !ready {
		return CheckResult{
			Name:     "Appium",
			Required: true,
			Path:     url,
			Version:  version,
			Error:    fmt.Sprintf("Appium server at %s is not ready", url),
		}
	}
	return CheckResult{Name: "Appium", Required: true, Found: true, Path: url, Version: version}
}

func (c *Checker) checkDevice(ctx context.Context) CheckResult {
	d, err := c.locator.Locate(ctx)
	if err != nil {
		return CheckResult{Name: "Android device", Required: true, Error: err.Error()}
	}
	return CheckResult{Name: "Android device", Required: true, Found: true, Path: d.Serial, Version: d.State}
}

func (c *Checker) checkHistory(ctx context.Context) CheckResult {
	if err := c.history.Ping(ctx); err != nil {
		return CheckResult{Name: "History database", Required: false, Error: err.Error()}
	}
	return CheckResult{Name: "History database", Required: false, Found: true, Version: "connected"}
}

func (c *Checker) checkScreenshotDir() CheckResult {
	dir := c.config.Diagnostics.ScreenshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{Name: "Screenshot dir", Required: false, Path: dir, Error: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return CheckResult{Name: "Screenshot dir", Required: false, Path: dir, Error: "not writable: " + err.Error()}
	}
	f.Close()
	os.Remove(f.Name())

	abs, _ := filepath.Abs(dir)
	return CheckResult{Name: "Screenshot dir", Required: false, Found: true, Path: abs}
}

// Format renders results one per line for terminal output
func Format(results []CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		mark := "✓"
		switch {
		case !r.Found && r.Required:
			mark = "✗"
		case !r.Found:
			mark = "!"
		}
		fmt.Fprintf(&b, "  %s %s", mark, r.Name)
		if r.Path != "" {
			fmt.Fprintf(&b, "  %s", r.Path)
		}
		if r.Version != "" {
			fmt.Fprintf(&b, "  (%s)", r.Version)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "  %s", r.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// formatErrors formats dependency check errors
func formatErrors(failures []CheckResult) error {
	var msg strings.Builder
	msg.WriteString("preflight check failed:\n")
	for _, failure := range failures {
		msg.WriteString(fmt.Sprintf("  ✗ %s: %s\n", failure.Name, failure.Error))
	}
	return errors.New(strings.TrimRight(msg.String(), "\n"))
}
