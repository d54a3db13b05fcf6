// Package sequencer executes command actions against a gamepad device with
// real-time pacing. It owns the only ledger of held inputs, so teardown can
// always return the device to a fully released, centered state.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Djarid/vinput/pkg/command"
	"github.com/Djarid/vinput/pkg/gamepad"
)

// DefaultSettleDelay is the pause between sequence children so the device
// reliably observes discrete edges.
const DefaultSettleDelay = 100 * time.Millisecond

// InvalidActionError reports a malformed or out-of-range action. It aborts
// the remaining steps of the current sequence but never the pipeline.
type InvalidActionError struct {
	msg string
}

func (e *InvalidActionError) Error() string {
	return "sequencer: invalid action: " + e.msg
}

func invalidActionf(format string, args ...any) *InvalidActionError {
	return &InvalidActionError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalidAction reports whether err is an InvalidActionError.
func IsInvalidAction(err error) bool {
	var ia *InvalidActionError
	return errors.As(err, &ia)
}

// Config holds sequencer timing parameters.
type Config struct {
	// SettleDelay is the pause between actions in a sequence.
	// Default: DefaultSettleDelay.
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// Sequencer drives a gamepad device one action at a time.
type Sequencer struct {
	dev    gamepad.Device
	settle time.Duration
	logger *slog.Logger

	mu          sync.Mutex
	heldButtons map[gamepad.Button]bool
	heldAxes    map[gamepad.Axis]bool
}

// New creates a sequencer over dev.
func New(dev gamepad.Device, cfg Config, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Sequencer{
		dev:         dev,
		settle:      settle,
		logger:      logger,
		heldButtons: make(map[gamepad.Button]bool),
		heldAxes:    make(map[gamepad.Axis]bool),
	}
}

// Execute runs a single action to completion. Timed actions honor ctx
// during their waits, but a started press or deflection is always undone
// before returning, cancelled or not. Level-held actions (trigger, dpad)
// stay applied until a later action or ReleaseAll changes them.
func (s *Sequencer) Execute(ctx context.Context, action command.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch action.Type {
	case command.TypeButton, command.TypeButtonHold:
		return s.pressButton(ctx, action)
	case command.TypeStick:
		return s.moveStick(ctx, action)
	case command.TypeTrigger:
		return s.setTrigger(action)
	case command.TypeDpad:
		return s.setDpad(action)
	case command.TypeSequence:
		return s.runSequence(ctx, action)
	}
	return invalidActionf("unknown action type %q", action.Type)
}

func (s *Sequencer) pressButton(ctx context.Context, action command.Action) error {
	btn, ok := gamepad.ButtonFromName(action.Button)
	if !ok {
		return invalidActionf("unknown button %q", action.Button)
	}

	if err := s.dev.SetButton(btn, true); err != nil {
		return fmt.Errorf("sequencer: press %s: %w", action.Button, err)
	}
	s.markButton(btn, true)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	waitErr := s.wait(ctx, action.Duration)

	// The release is unconditional: a cancelled hold must not leave the
	// button pressed.
	if err := s.dev.SetButton(btn, false); err != nil {
		return fmt.Errorf("sequencer: release %s: %w", action.Button, err)
	}
	s.markButton(btn, false)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	s.logger.Debug("button", "name", action.Button, "duration", action.Duration)
	return waitErr
}

func (s *Sequencer) moveStick(ctx context.Context, action command.Action) error {
	xAxis, yAxis, ok := gamepad.StickAxes(action.Stick)
	if !ok {
		return invalidActionf("unknown stick %q", action.Stick)
	}
	x, y := int32(action.X), int32(action.Y)
	if err := gamepad.ValidateAxisValue(xAxis, x); err != nil {
		return invalidActionf("stick %s x: %v", action.Stick, err)
	}
	if err := gamepad.ValidateAxisValue(yAxis, y); err != nil {
		return invalidActionf("stick %s y: %v", action.Stick, err)
	}

	if err := s.dev.SetAxis(xAxis, x); err != nil {
		return fmt.Errorf("sequencer: stick %s: %w", action.Stick, err)
	}
	if err := s.dev.SetAxis(yAxis, y); err != nil {
		return fmt.Errorf("sequencer: stick %s: %w", action.Stick, err)
	}
	s.markAxis(xAxis, x != 0)
	s.markAxis(yAxis, y != 0)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	waitErr := s.wait(ctx, action.Duration)

	// Center-return is mandatory so a deflected stick cannot persist past
	// the action's window.
	if err := s.dev.SetAxis(xAxis, 0); err != nil {
		return fmt.Errorf("sequencer: center stick %s: %w", action.Stick, err)
	}
	if err := s.dev.SetAxis(yAxis, 0); err != nil {
		return fmt.Errorf("sequencer: center stick %s: %w", action.Stick, err)
	}
	s.markAxis(xAxis, false)
	s.markAxis(yAxis, false)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	s.logger.Debug("stick", "side", action.Stick, "x", x, "y", y, "duration", action.Duration)
	return waitErr
}

func (s *Sequencer) setTrigger(action command.Action) error {
	axis, ok := gamepad.TriggerAxis(action.Trigger)
	if !ok {
		return invalidActionf("unknown trigger %q", action.Trigger)
	}
	value := int32(action.Value)
	if err := gamepad.ValidateAxisValue(axis, value); err != nil {
		return invalidActionf("trigger %s: %v", action.Trigger, err)
	}

	if err := s.dev.SetAxis(axis, value); err != nil {
		return fmt.Errorf("sequencer: trigger %s: %w", action.Trigger, err)
	}
	s.markAxis(axis, value != 0)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	s.logger.Debug("trigger", "side", action.Trigger, "value", value)
	return nil
}

func (s *Sequencer) setDpad(action command.Action) error {
	x, y, ok := gamepad.DpadDirection(action.Direction)
	if !ok {
		return invalidActionf("unknown dpad direction %q", action.Direction)
	}

	if err := s.dev.SetAxis(gamepad.AxisHatX, x); err != nil {
		return fmt.Errorf("sequencer: dpad: %w", err)
	}
	if err := s.dev.SetAxis(gamepad.AxisHatY, y); err != nil {
		return fmt.Errorf("sequencer: dpad: %w", err)
	}
	s.markAxis(gamepad.AxisHatX, x != 0)
	s.markAxis(gamepad.AxisHatY, y != 0)
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("sequencer: sync: %w", err)
	}

	s.logger.Debug("dpad", "direction", action.Direction)
	return nil
}

func (s *Sequencer) runSequence(ctx context.Context, action command.Action) error {
	for i, child := range action.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Execute(ctx, child); err != nil {
			if IsInvalidAction(err) {
				// Abort the remaining children, nothing else.
				s.logger.Warn("sequence aborted", "step", i, "of", len(action.Actions), "error", err)
			}
			return err
		}
		if i < len(action.Actions)-1 {
			if err := s.wait(ctx, s.settle); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReleaseAll releases every held button and centers every deflected axis,
// then syncs. Called during teardown and after failure recovery so no
// input outlives its action.
func (s *Sequencer) ReleaseAll() error {
	s.mu.Lock()
	buttons := make([]gamepad.Button, 0, len(s.heldButtons))
	for b, held := range s.heldButtons {
		if held {
			buttons = append(buttons, b)
		}
	}
	axes := make([]gamepad.Axis, 0, len(s.heldAxes))
	for a, held := range s.heldAxes {
		if held {
			axes = append(axes, a)
		}
	}
	s.heldButtons = make(map[gamepad.Button]bool)
	s.heldAxes = make(map[gamepad.Axis]bool)
	s.mu.Unlock()

	if len(buttons) == 0 && len(axes) == 0 {
		return nil
	}

	var errs []error
	for _, b := range buttons {
		if err := s.dev.SetButton(b, false); err != nil {
			errs = append(errs, err)
		}
	}
	for _, a := range axes {
		if err := s.dev.SetAxis(a, 0); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.dev.Sync(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("released held inputs", "buttons", len(buttons), "axes", len(axes))
	return errors.Join(errs...)
}

// Held reports the number of currently held buttons and deflected axes.
func (s *Sequencer) Held() (buttons, axes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, held := range s.heldButtons {
		if held {
			buttons++
		}
	}
	for _, held := range s.heldAxes {
		if held {
			axes++
		}
	}
	return buttons, axes
}

func (s *Sequencer) markButton(b gamepad.Button, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held {
		s.heldButtons[b] = true
	} else {
		delete(s.heldButtons, b)
	}
}

func (s *Sequencer) markAxis(a gamepad.Axis, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held {
		s.heldAxes[a] = true
	} else {
		delete(s.heldAxes, a)
	}
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
