package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/platform"
)

type fakeAppium struct {
	ready   bool
	version string
	err     error
}

func (f fakeAppium) Status(context.Context) (bool, string, error) { return f.ready, f.version, f.err }

type fakeLocator struct {
	dev device.Device
	err error
}

func (f fakeLocator) Locate(context.Context) (device.Device, error) { return f.dev, f.err }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func found(string) (string, error)   { return "/usr/bin/adb", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func byName(results []CheckResult, name string) CheckResult {
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	return CheckResult{}
}

func TestCheckAll_AllGood(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.ScreenshotDir = filepath.Join(t.TempDir(), "shots")

	c := NewChecker(cfg,
		fakeAppium{ready: true, version: "2.11.0"},
		fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}},
		WithLookPath(found),
		WithHistory(fakePinger{}),
	)

	results, err := c.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 5)

	assert.Equal(t, "2.11.0", byName(results, "Appium").Version)
	assert.Equal(t, "UORC", byName(results, "Android device").Path)
	assert.True(t, byName(results, "Screenshot dir").Found)

	_, statErr := os.Stat(cfg.Diagnostics.ScreenshotDir)
	assert.NoError(t, statErr)
}

func TestCheckAll_RequiredFailures(t *testing.T) {
	cfg := config.Default()

	c := NewChecker(cfg,
		fakeAppium{err: errors.New("connection refused")},
		fakeLocator{err: device.ErrNoDeviceFound},
		WithLookPath(missing),
	)

	results, err := c.CheckAll(context.Background())
	require.Error(t, err)
	assert.Len(t, results, 3)
	assert.Contains(t, err.Error(), "adb")
	assert.Contains(t, err.Error(), "Appium server not reachable at "+cfg.Appium.ServerURL)
	assert.Contains(t, err.Error(), "no ready Android device")
}

func TestCheckAll_AppiumNotReady(t *testing.T) {
	c := NewChecker(config.Default(),
		fakeAppium{ready: false, version: "2.11.0"},
		fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}},
		WithLookPath(found),
	)

	results, err := c.CheckAll(context.Background())
	require.Error(t, err)
	assert.False(t, byName(results, "Appium").Found)
	assert.Contains(t, err.Error(), "not ready")
}

func TestCheckAll_OptionalFailureDoesNotFail(t *testing.T) {
	c := NewChecker(config.Default(),
		fakeAppium{ready: true},
		fakeLocator{dev: device.Device{Serial: "UORC", State: "device"}},
		WithLookPath(found),
		WithHistory(fakePinger{err: errors.New("dial tcp: connection refused")}),
	)

	results, err := c.CheckAll(context.Background())
	require.NoError(t, err)
	assert.False(t, byName(results, "History database").Found)
}

func TestInstallHint(t *testing.T) {
	tests := []struct {
		host      platform.OS
		container bool
		want      string
	}{
		{platform.MacOS, false, "brew install --cask android-platform-tools"},
		{platform.Windows, false, "adb.exe"},
		{platform.Linux, false, "apt install adb"},
		{platform.Linux, true, "container image"},
	}
	for _, tt := range tests {
		assert.Contains(t, installHint(tt.host, tt.container), tt.want, "%s container=%v", tt.host, tt.container)
	}
}

func TestFormat(t *testing.T) {
	out := Format([]CheckResult{
		{Name: "adb", Required: true, Found: true, Path: "/usr/bin/adb"},
		{Name: "Appium", Required: true, Error: "down"},
		{Name: "History database", Error: "refused"},
	})
	assert.Equal(t, "  ✓ adb  /usr/bin/adb\n  ✗ Appium  down\n  ! History database  refused\n", out)
}
