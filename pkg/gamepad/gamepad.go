// Package gamepad exposes a virtual game controller as a small set of
// button and axis primitives. The linux implementation registers an
// Xbox 360 compatible device through /dev/uinput; a mock implementation
// records events for tests and non-linux development.
package gamepad

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDeviceUnavailable indicates the underlying virtual input device could
// not be opened or registered.
var ErrDeviceUnavailable = errors.New("gamepad: device unavailable")

// Button is an evdev key code for a controller button.
type Button uint16

// Xbox 360 button codes (linux input BTN_*).
const (
	ButtonA     Button = 0x130 // BTN_SOUTH
	ButtonB     Button = 0x131 // BTN_EAST
	ButtonX     Button = 0x133 // BTN_NORTH
	ButtonY     Button = 0x134 // BTN_WEST
	ButtonLB    Button = 0x136 // BTN_TL
	ButtonRB    Button = 0x137 // BTN_TR
	ButtonBack  Button = 0x13a // BTN_SELECT
	ButtonStart Button = 0x13b // BTN_START
	ButtonGuide Button = 0x13c // BTN_MODE
	ButtonL3    Button = 0x13d // BTN_THUMBL
	ButtonR3    Button = 0x13e // BTN_THUMBR
)

// Axis is an evdev absolute axis code.
type Axis uint16

// Xbox 360 axis codes (linux input ABS_*).
const (
	AxisLeftX        Axis = 0x00 // ABS_X
	AxisLeftY        Axis = 0x01 // ABS_Y
	AxisLeftTrigger  Axis = 0x02 // ABS_Z
	AxisRightX       Axis = 0x03 // ABS_RX
	AxisRightY       Axis = 0x04 // ABS_RY
	AxisRightTrigger Axis = 0x05 // ABS_RZ
	AxisHatX         Axis = 0x10 // ABS_HAT0X
	AxisHatY         Axis = 0x11 // ABS_HAT0Y
)

// Axis value ranges matching the registered device capabilities.
const (
	StickMin   = -32768
	StickMax   = 32767
	TriggerMin = 0
	TriggerMax = 255
	HatMin     = -1
	HatMax     = 1
)

// Device is the output-device capability the sequencer drives. Writes are
// buffered by the kernel until Sync, which emits a SYN_REPORT so consumers
// observe all pending events atomically.
type Device interface {
	SetButton(b Button, pressed bool) error
	SetAxis(a Axis, value int32) error
	Sync() error
	io.Closer
}

var buttonNames = map[string]Button{
	"a":     ButtonA,
	"b":     ButtonB,
	"x":     ButtonX,
	"y":     ButtonY,
	"lb":    ButtonLB,
	"rb":    ButtonRB,
	"back":  ButtonBack,
	"start": ButtonStart,
	"guide": ButtonGuide,
	"l3":    ButtonL3,
	"r3":    ButtonR3,
}

// ButtonFromName resolves a configuration button name (case-insensitive).
func ButtonFromName(name string) (Button, bool) {
	b, ok := buttonNames[strings.ToLower(name)]
	return b, ok
}

// StickAxes resolves a stick side ("left" or "right") to its X and Y axes.
func StickAxes(side string) (x, y Axis, ok bool) {
	switch strings.ToLower(side) {
	case "left":
		return AxisLeftX, AxisLeftY, true
	case "right":
		return AxisRightX, AxisRightY, true
	}
	return 0, 0, false
}

// TriggerAxis resolves a trigger side ("left" or "right") to its axis.
func TriggerAxis(side string) (Axis, bool) {
	switch strings.ToLower(side) {
	case "left":
		return AxisLeftTrigger, true
	case "right":
		return AxisRightTrigger, true
	}
	return 0, false
}

var dpadDirections = map[string][2]int32{
	"up":         {0, -1},
	"down":       {0, 1},
	"left":       {-1, 0},
	"right":      {1, 0},
	"up-left":    {-1, -1},
	"up-right":   {1, -1},
	"down-left":  {-1, 1},
	"down-right": {1, 1},
	"center":     {0, 0},
}

// DpadDirection resolves a named direction to its hat X and Y values.
func DpadDirection(name string) (x, y int32, ok bool) {
	d, found := dpadDirections[strings.ToLower(name)]
	if !found {
		return 0, 0, false
	}
	return d[0], d[1], true
}

// AxisRange returns the legal value range for an axis.
func AxisRange(a Axis) (min, max int32, err error) {
	switch a {
	case AxisLeftX, AxisLeftY, AxisRightX, AxisRightY:
		return StickMin, StickMax, nil
	case AxisLeftTrigger, AxisRightTrigger:
		return TriggerMin, TriggerMax, nil
	case AxisHatX, AxisHatY:
		return HatMin, HatMax, nil
	}
	return 0, 0, fmt.Errorf("gamepad: unknown axis 0x%02x", uint16(a))
}

// ValidateAxisValue checks value against the axis's legal range.
func ValidateAxisValue(a Axis, value int32) error {
	min, max, err := AxisRange(a)
	if err != nil {
		return err
	}
	if value < min || value > max {
		return fmt.Errorf("gamepad: axis 0x%02x value %d outside [%d, %d]",
			uint16(a), value, min, max)
	}
	return nil
}

