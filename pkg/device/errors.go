package device

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDeviceFound means adb answered but no attached device is ready.
	ErrNoDeviceFound = errors.New("no ready Android device found via adb")

	// ErrDeviceQueryFailed means adb itself could not be run to completion.
	ErrDeviceQueryFailed = errors.New("device query failed")
)

// QueryError describes why running adb failed
type QueryError struct {
	Path     string
	Err      error
	Stderr   string
	NotFound bool
	TimedOut bool
	// Signal is set when adb was terminated by a signal.
	Signal string
	// Container is set when the process appears to run in a container.
	Container bool
}

func (e *QueryError) Error() string {
	var msg string
	switch {
	case e.NotFound:
		msg = fmt.Sprintf("%s: %s not found; install Android platform-tools or set device.adb_path", ErrDeviceQueryFailed, e.Path)
	case e.TimedOut:
		msg = fmt.Sprintf("%s: %s devices timed out; try `adb kill-server` and retry", ErrDeviceQueryFailed, e.Path)
	case e.Signaled():
		msg = fmt.Sprintf("%s: %s was killed by signal %q; the adb tool environment is broken (check that adb and its server can see the host USB bus)",
			ErrDeviceQueryFailed, e.Path, e.Signal)
	default:
		msg = fmt.Sprintf("%s: %s devices: %v", ErrDeviceQueryFailed, e.Path, e.Err)
		if e.Stderr != "" {
			msg += ": " + strings.TrimSpace(e.Stderr)
		}
	}
	if e.Container {
		msg += "; running inside a container, where host USB devices are usually invisible: run adb on the host or pass the device through"
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDeviceQueryFailed) hold for every QueryError.
func (e *QueryError) Is(target error) bool { return target == ErrDeviceQueryFailed }

// Signaled reports whether adb was terminated by a signal
func (e *QueryError) Signaled() bool { return e.Signal != "" }

// hintFor returns remediation advice for a device stuck in state.
func hintFor(state string) string {
	switch {
	case state == "unauthorized":
		return "unlock the phone and accept the USB debugging prompt"
	case state == "offline":
		return "reconnect the cable or run `adb reconnect`"
	case strings.HasPrefix(state, "no permissions"):
		return "fix udev rules for the device or run adb as a privileged user"
	case state == "authorizing":
		return "wait for authorization to finish"
	default:
		return ""
	}
}
