package gamepad

import (
	"sync"
	"time"
)

// EventKind distinguishes recorded mock events.
type EventKind string

const (
	EventButton EventKind = "button"
	EventAxis   EventKind = "axis"
	EventSync   EventKind = "sync"
)

// Event is one recorded device write.
type Event struct {
	Kind    EventKind
	Button  Button
	Axis    Axis
	Value   int32
	Pressed bool
	At      time.Time
}

// Mock is an in-memory Device recording every write with a timestamp. It
// tracks current button and axis state so tests can assert that nothing is
// left pressed or off-center.
type Mock struct {
	mu      sync.Mutex
	events  []Event
	buttons map[Button]bool
	axes    map[Axis]int32
	closed  bool

	// FailWith, when set, is returned by every subsequent write. Used to
	// exercise error paths.
	FailWith error
}

// NewMock creates a mock device.
func NewMock() *Mock {
	return &Mock{
		buttons: make(map[Button]bool),
		axes:    make(map[Axis]int32),
	}
}

func (m *Mock) SetButton(b Button, pressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceUnavailable
	}
	if m.FailWith != nil {
		return m.FailWith
	}
	m.buttons[b] = pressed
	m.events = append(m.events, Event{Kind: EventButton, Button: b, Pressed: pressed, At: time.Now()})
	return nil
}

func (m *Mock) SetAxis(a Axis, value int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceUnavailable
	}
	if m.FailWith != nil {
		return m.FailWith
	}
	if err := ValidateAxisValue(a, value); err != nil {
		return err
	}
	m.axes[a] = value
	m.events = append(m.events, Event{Kind: EventAxis, Axis: a, Value: value, At: time.Now()})
	return nil
}

func (m *Mock) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceUnavailable
	}
	if m.FailWith != nil {
		return m.FailWith
	}
	m.events = append(m.events, Event{Kind: EventSync, At: time.Now()})
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of all recorded events in write order.
func (m *Mock) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ButtonState reports the current pressed state of b.
func (m *Mock) ButtonState(b Button) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buttons[b]
}

// AxisState reports the current value of a.
func (m *Mock) AxisState(a Axis) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.axes[a]
}

// PressedButtons returns every button currently held.
func (m *Mock) PressedButtons() []Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Button
	for b, pressed := range m.buttons {
		if pressed {
			out = append(out, b)
		}
	}
	return out
}

// Reset clears recorded events and state.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.buttons = make(map[Button]bool)
	m.axes = make(map[Axis]int32)
}

var _ Device = (*Mock)(nil)
