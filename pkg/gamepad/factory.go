package gamepad

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Backends selectable in configuration.
const (
	BackendAuto   = "auto"
	BackendUInput = "uinput"
	BackendMock   = "mock"
)

// NewDevice creates the configured output device. "auto" picks uinput on
// linux and the mock elsewhere.
func NewDevice(backend string, logger *slog.Logger) (Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if backend == "" || backend == BackendAuto {
		if runtime.GOOS == "linux" {
			backend = BackendUInput
		} else {
			backend = BackendMock
		}
		logger.Debug("auto-selected gamepad backend", "backend", backend)
	}

	switch backend {
	case BackendUInput:
		return NewUInput(logger)
	case BackendMock:
		logger.Info("using mock gamepad device")
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("gamepad: unknown backend %q", backend)
	}
}
