// Package platform answers questions about the host the server runs on.
package platform

import (
	"os"
	"runtime"
	"strings"
)

// OS represents the operating system
type OS string

const (
	MacOS   OS = "darwin"
	Linux   OS = "linux"
	Windows OS = "windows"
)

// Current returns the current operating system
func Current() OS {
	return OS(runtime.GOOS)
}

// IsLinux returns true if running on Linux
func IsLinux() bool {
	return Current() == Linux
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return Current() == Windows
}

// Probe locations, swappable in tests.
var (
	dockerEnvFile = "/.dockerenv"
	cgroupFile    = "/proc/1/cgroup"
)

// InContainer reports whether the process appears to run inside a container.
// USB devices attached to the host are usually invisible from there.
func InContainer() bool {
	if !IsLinux() {
		return false
	}
	if _, err := os.Stat(dockerEnvFile); err == nil {
		return true
	}
	if os.Getenv("container") != "" {
		return true
	}

	content, err := os.ReadFile(cgroupFile)
	if err != nil {
		return false
	}
	s := string(content)
	for _, marker := range []string{"docker", "kubepods", "containerd", "lxc"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// ExecutableName appends the platform executable suffix to a tool name
func ExecutableName(name string) string {
	if IsWindows() && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}
