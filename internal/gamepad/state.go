// Package gamepad reads operator input and exposes it through the narrow
// capability interfaces the control loop and mode machine consume.
package gamepad

import (
	"math"
	"sync"
)

// Axis identifies a logical control axis.
type Axis int

const (
	AxisForward Axis = iota // v, forward/back
	AxisTurn                // w, turn
)

// Normalize maps a raw axis reading onto [-1, 1] with a dead-zone snap to
// zero, rounded to three decimals to keep the wire format tidy.
func Normalize(value, min, max int32, deadZone float64) float64 {
	span := float64(max) - float64(min)
	if span == 0 {
		return 0
	}
	n := (float64(value)-float64(min))/span*2 - 1
	if math.Abs(n) < deadZone {
		return 0
	}
	return math.Round(n*1000) / 1000
}

// State holds the current normalized axis pair and digital button states.
// The device reader is its only writer; the command sender and mode machine
// read it. It implements control.AxisSource and modes.ButtonSource.
type State struct {
	mu      sync.Mutex
	v, w    float64
	buttons map[string]bool
}

// NewState returns a centered, nothing-pressed state.
func NewState() *State {
	return &State{buttons: make(map[string]bool)}
}

// SetAxis stores a normalized axis value.
func (s *State) SetAxis(axis Axis, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch axis {
	case AxisForward:
		s.v = value
	case AxisTurn:
		s.w = value
	}
}

// Axes returns the current normalized pair.
func (s *State) Axes() (v, w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, s.w
}

// SetButton stores a digital button state by event code name.
func (s *State) SetButton(name string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[name] = down
}

// Pressed reports whether the named button is held.
func (s *State) Pressed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons[name]
}
