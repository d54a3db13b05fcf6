//go:build linux

package gamepad

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// uinput ioctl requests (linux/uinput.h).
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiAbsSetup   = 0x401c5504
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
)

// evdev event types (linux/input-event-codes.h).
const (
	evSyn uint16 = 0x00
	evKey uint16 = 0x01
	evAbs uint16 = 0x03

	synReport int32 = 0
)

// USB identity of a wired Xbox 360 controller; games and libraries key
// their mappings off this vendor/product pair.
const (
	busUSB    = 0x03
	vendorID  = 0x045e
	productID = 0x028e
	versionID = 0x0100
)

const deviceName = "Virtual Xbox 360 Controller"

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

type uinputAbsSetup struct {
	Code Axis
	_    uint16
	Abs  absInfo
}

type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// UInput is an Xbox 360 compatible virtual controller backed by
// /dev/uinput. All writes are serialized; the kernel delivers buffered
// events to readers on Sync.
type UInput struct {
	mu     sync.Mutex
	fd     int
	closed bool
	logger *slog.Logger
}

var allButtons = []Button{
	ButtonA, ButtonB, ButtonX, ButtonY,
	ButtonLB, ButtonRB,
	ButtonBack, ButtonStart, ButtonGuide,
	ButtonL3, ButtonR3,
}

var allAxes = []struct {
	axis Axis
	info absInfo
}{
	{AxisLeftX, absInfo{Minimum: StickMin, Maximum: StickMax, Fuzz: 16, Flat: 128, Resolution: 1}},
	{AxisLeftY, absInfo{Minimum: StickMin, Maximum: StickMax, Fuzz: 16, Flat: 128, Resolution: 1}},
	{AxisRightX, absInfo{Minimum: StickMin, Maximum: StickMax, Fuzz: 16, Flat: 128, Resolution: 1}},
	{AxisRightY, absInfo{Minimum: StickMin, Maximum: StickMax, Fuzz: 16, Flat: 128, Resolution: 1}},
	{AxisLeftTrigger, absInfo{Minimum: TriggerMin, Maximum: TriggerMax, Resolution: 1}},
	{AxisRightTrigger, absInfo{Minimum: TriggerMin, Maximum: TriggerMax, Resolution: 1}},
	{AxisHatX, absInfo{Minimum: HatMin, Maximum: HatMax, Resolution: 1}},
	{AxisHatY, absInfo{Minimum: HatMin, Maximum: HatMax, Resolution: 1}},
}

// NewUInput registers the virtual controller with the kernel. Requires
// write access to /dev/uinput (typically the input group or root).
func NewUInput(logger *slog.Logger) (*UInput, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open /dev/uinput: %v", ErrDeviceUnavailable, err)
	}

	d := &UInput{fd: fd, logger: logger}
	if err := d.setup(); err != nil {
		unix.Close(fd)
		return nil, err
	}

	logger.Info("virtual controller registered",
		"device", deviceName,
		"vendor", fmt.Sprintf("0x%04x", vendorID),
		"product", fmt.Sprintf("0x%04x", productID))
	return d, nil
}

func (d *UInput) setup() error {
	if err := d.ioctlInt(uiSetEvBit, int(evKey)); err != nil {
		return fmt.Errorf("gamepad: enable EV_KEY: %w", err)
	}
	if err := d.ioctlInt(uiSetEvBit, int(evAbs)); err != nil {
		return fmt.Errorf("gamepad: enable EV_ABS: %w", err)
	}
	if err := d.ioctlInt(uiSetEvBit, int(evSyn)); err != nil {
		return fmt.Errorf("gamepad: enable EV_SYN: %w", err)
	}

	for _, b := range allButtons {
		if err := d.ioctlInt(uiSetKeyBit, int(b)); err != nil {
			return fmt.Errorf("gamepad: register button 0x%03x: %w", uint16(b), err)
		}
	}

	for _, a := range allAxes {
		if err := d.ioctlInt(uiSetAbsBit, int(a.axis)); err != nil {
			return fmt.Errorf("gamepad: register axis 0x%02x: %w", uint16(a.axis), err)
		}
		setup := uinputAbsSetup{Code: a.axis, Abs: a.info}
		if err := d.ioctlPtr(uiAbsSetup, unsafe.Pointer(&setup)); err != nil {
			return fmt.Errorf("gamepad: axis 0x%02x range: %w", uint16(a.axis), err)
		}
	}

	setup := uinputSetup{
		ID: inputID{
			Bustype: busUSB,
			Vendor:  vendorID,
			Product: productID,
			Version: versionID,
		},
	}
	copy(setup.Name[:], deviceName)
	if err := d.ioctlPtr(uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("gamepad: device setup: %w", err)
	}

	if err := d.ioctlInt(uiDevCreate, 0); err != nil {
		return fmt.Errorf("%w: create device: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

// SetButton emits a key press or release edge.
func (d *UInput) SetButton(b Button, pressed bool) error {
	var value int32
	if pressed {
		value = 1
	}
	return d.writeEvent(evKey, uint16(b), value)
}

// SetAxis sets an absolute axis value after range validation.
func (d *UInput) SetAxis(a Axis, value int32) error {
	if err := ValidateAxisValue(a, value); err != nil {
		return err
	}
	return d.writeEvent(evAbs, uint16(a), value)
}

// Sync flushes pending events to readers with a SYN_REPORT.
func (d *UInput) Sync() error {
	return d.writeEvent(evSyn, 0, synReport)
}

// Close destroys the virtual device. Pending state is discarded by the
// kernel; callers release held inputs before closing.
func (d *UInput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.ioctlInt(uiDevDestroy, 0); err != nil {
		unix.Close(d.fd)
		return fmt.Errorf("gamepad: destroy device: %w", err)
	}
	return unix.Close(d.fd)
}

func (d *UInput) writeEvent(typ, code uint16, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceUnavailable
	}

	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&ev))[:]
	if _, err := unix.Write(d.fd, buf); err != nil {
		return fmt.Errorf("gamepad: write event (type=0x%02x code=0x%03x): %w", typ, code, err)
	}
	return nil
}

func (d *UInput) ioctlInt(req uint, arg int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *UInput) ioctlPtr(req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

var _ Device = (*UInput)(nil)
