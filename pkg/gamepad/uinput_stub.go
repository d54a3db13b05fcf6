//go:build !linux

package gamepad

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewUInput is only available on linux, where /dev/uinput exists. Other
// platforms use the mock device.
func NewUInput(logger *slog.Logger) (Device, error) {
	return nil, fmt.Errorf("%w: uinput not supported on %s", ErrDeviceUnavailable, runtime.GOOS)
}
