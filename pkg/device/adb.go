// Package device finds the Android device to automate through adb.
package device

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/platform"
)

// StateReady is the adb state of a device that accepts commands.
const StateReady = "device"

// Device is one line of `adb devices` output.
type Device struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
}

// Ready reports whether the device accepts commands
func (d Device) Ready() bool { return d.State == StateReady }

// Runner runs an external command and returns its stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ADB lists devices through the adb utility
type ADB struct {
	path        string
	serial      string
	timeout     time.Duration
	runner      Runner
	inContainer func() bool
	logger      *zap.Logger
}

// Option configures an ADB locator
type Option func(*ADB)

// WithRunner replaces the command runner
func WithRunner(r Runner) Option {
	return func(a *ADB) { a.runner = r }
}

// WithContainerProbe replaces container detection
func WithContainerProbe(f func() bool) Option {
	return func(a *ADB) { a.inContainer = f }
}

// NewADB creates a locator from device configuration
func NewADB(cfg config.DeviceConfig, logger *zap.Logger, opts ...Option) *ADB {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ADB{
		path:        cfg.ADBPath,
		serial:      cfg.Serial,
		timeout:     cfg.QueryTimeout,
		runner:      ExecRunner{},
		inContainer: platform.InContainer,
		logger:      logger,
	}
	if a.path == "" {
		a.path = platform.ExecutableName("adb")
	}
	if a.timeout <= 0 {
		a.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Devices returns every device adb reports, ready or not
func (a *ADB) Devices(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, a.path, "devices")
	if err != nil {
		qerr := a.classify(ctx, err)
		a.logger.Warn("adb query failed", zap.String("adb", a.path), zap.Error(qerr))
		return nil, qerr
	}
	return ParseDevices(string(out)), nil
}

// Locate returns the device to automate. A configured serial must still be
// listed by adb as ready.
func (a *ADB) Locate(ctx context.Context) (Device, error) {
	devices, err := a.Devices(ctx)
	if err != nil {
		return Device{}, err
	}

	if a.serial != "" {
		for _, d := range devices {
			if d.Serial != a.serial {
				continue
			}
			if d.Ready() {
				a.logger.Info("using configured device", zap.String("serial", d.Serial))
				return d, nil
			}
			return Device{}, fmt.Errorf("%w: configured device %s is %s%s", ErrNoDeviceFound, d.Serial, d.State, withHint(d.State))
		}
		return Device{}, fmt.Errorf("%w: configured device %s is not attached (%s)", ErrNoDeviceFound, a.serial, summarize(devices))
	}

	for _, d := range devices {
		if d.Ready() {
			a.logger.Info("found device", zap.String("serial", d.Serial), zap.Int("attached", len(devices)))
			return d, nil
		}
	}

	if len(devices) == 0 {
		msg := "adb lists no devices; connect one over USB or run `adb connect <ip>:5555`"
		if a.inContainer() {
			msg += "; this process runs in a container, which usually cannot see host USB devices"
		}
		return Device{}, fmt.Errorf("%w: %s", ErrNoDeviceFound, msg)
	}
	return Device{}, fmt.Errorf("%w: %s", ErrNoDeviceFound, summarize(devices))
}

func (a *ADB) classify(ctx context.Context, err error) *QueryError {
	qerr := &QueryError{Path: a.path, Err: err, Container: a.inContainer()}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		qerr.NotFound = true
		return qerr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		qerr.TimedOut = true
		return qerr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		qerr.Stderr = string(exitErr.Stderr)
		if exitErr.ProcessState != nil && exitErr.ExitCode() == -1 {
			qerr.Signal = strings.TrimPrefix(exitErr.ProcessState.String(), "signal: ")
		}
	}
	return qerr
}

// ParseDevices parses `adb devices` output. Header and daemon lines are
// skipped.
func ParseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		var serial, state string
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			serial, state = line[:i], strings.TrimSpace(line[i+1:])
		} else {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			serial, state = fields[0], strings.Join(fields[1:], " ")
		}
		if serial == "" {
			continue
		}
		devices = append(devices, Device{Serial: serial, State: state})
	}
	return devices
}

func summarize(devices []Device) string {
	if len(devices) == 0 {
		return "adb lists no devices"
	}
	parts := make([]string, 0, len(devices))
	for _, d := range devices {
		parts = append(parts, fmt.Sprintf("%s is %s%s", d.Serial, d.State, withHint(d.State)))
	}
	return strings.Join(parts, "; ")
}

func withHint(state string) string {
	if h := hintFor(state); h != "" {
		return " (" + h + ")"
	}
	return ""
}
