package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
)

// DeviceLister lists attached devices
type DeviceLister interface {
	Devices(ctx context.Context) ([]device.Device, error)
}

// DevicesTool reports the devices adb can see
type DevicesTool struct {
	lister DeviceLister
}

// NewDevicesTool creates the device listing tool
func NewDevicesTool(l DeviceLister) *DevicesTool {
	return &DevicesTool{lister: l}
}

func (t *DevicesTool) Name() string {
	return "wework_list_devices"
}

func (t *DevicesTool) Description() string {
	return "List Android devices visible to adb and whether they are ready for booking."
}

func (t *DevicesTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *DevicesTool) Execute(ctx context.Context, _ map[string]interface{}) (*Result, error) {
	devices, err := t.lister.Devices(ctx)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}
	return &Result{Success: true, Output: FormatDevices(devices)}, nil
}

// FormatDevices renders one device per line
func FormatDevices(devices []device.Device) string {
	if len(devices) == 0 {
		return "No devices attached."
	}
	var b strings.Builder
	for _, d := range devices {
		mark := "not ready"
		if d.Ready() {
			mark = "ready"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\n", d.Serial, d.State, mark)
	}
	return strings.TrimRight(b.String(), "\n")
}
