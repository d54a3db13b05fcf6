// Package command maps recognized speech to gamepad action specifications.
//
// Commands are loaded once at startup from a YAML file mapping spoken
// phrases to action descriptors. Matching is exact first, then first
// configured substring, so phrase order in the file is a contract:
// longer, more specific phrases should come before shorter ones.
package command

import "time"

// Type identifies an action variant.
type Type string

const (
	TypeButton     Type = "button"
	TypeButtonHold Type = "button_hold"
	TypeStick      Type = "stick"
	TypeTrigger    Type = "trigger"
	TypeDpad       Type = "dpad"
	TypeSequence   Type = "sequence"
)

// Default durations applied when a descriptor omits them.
const (
	DefaultButtonDuration = 50 * time.Millisecond
	DefaultHoldDuration   = 1 * time.Second
	DefaultStickDuration  = 500 * time.Millisecond
	DefaultTriggerValue   = 255
)

// Action is a validated action specification. The populated fields depend
// on Type:
//
//	button, button_hold: Button, Duration
//	stick:               Stick, X, Y, Duration
//	trigger:             Trigger, Value
//	dpad:                Direction
//	sequence:            Actions
type Action struct {
	Type Type

	Button   string
	Duration time.Duration

	Stick string
	X, Y  int

	Trigger string
	Value   int

	Direction string

	Actions []Action
}

// Steps returns the number of device-level actions this action expands to,
// counting nested sequences.
func (a Action) Steps() int {
	if a.Type != TypeSequence {
		return 1
	}
	n := 0
	for _, child := range a.Actions {
		n += child.Steps()
	}
	return n
}
