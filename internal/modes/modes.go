// Package modes converts sustained button-hold combos into mode toggles.
//
// Two independent combos are watched: one flips sleep, one flips the speed
// boost. A combo fires when both of its buttons stay down for the full hold
// duration, and fires at most once per continuous hold; releasing either
// button rearms it.
package modes

import (
	"sync"
	"time"
)

// ButtonSource reports the current state of a digital button by its event
// code name, e.g. "BTN_SELECT".
type ButtonSource interface {
	Pressed(name string) bool
}

// Combo names the two buttons that must be held together.
type Combo struct {
	A, B string
}

// Default combos: sleep on Select+Start, speed boost on both shoulder
// buttons. Both are reachable without moving the thumbs off the sticks.
var (
	DefaultSleepCombo = Combo{A: "BTN_SELECT", B: "BTN_START"}
	DefaultBoostCombo = Combo{A: "BTN_TL", B: "BTN_TR"}
)

// comboTimer tracks one combo through idle -> holding -> fired.
type comboTimer struct {
	combo     Combo
	heldSince time.Time
	fired     bool
}

// Machine owns the sleep and speed-boost flags. Update is driven by the
// command sender's tick; the debounce is independent of the polling rate.
type Machine struct {
	mu      sync.Mutex
	sleep   bool
	boost   bool
	hold    time.Duration
	buttons ButtonSource
	sleepT  comboTimer
	boostT  comboTimer
}

// New builds a machine with the given hold duration and starting sleep
// state. Zero-value combos fall back to the defaults.
func New(buttons ButtonSource, hold time.Duration, startSleep bool, sleepCombo, boostCombo Combo) *Machine {
	if sleepCombo == (Combo{}) {
		sleepCombo = DefaultSleepCombo
	}
	if boostCombo == (Combo{}) {
		boostCombo = DefaultBoostCombo
	}
	return &Machine{
		sleep:   startSleep,
		hold:    hold,
		buttons: buttons,
		sleepT:  comboTimer{combo: sleepCombo},
		boostT:  comboTimer{combo: boostCombo},
	}
}

// Update evaluates both combos against the current button state.
func (m *Machine) Update(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step(&m.sleepT, now, &m.sleep)
	m.step(&m.boostT, now, &m.boost)
}

func (m *Machine) step(t *comboTimer, now time.Time, flag *bool) {
	if !m.buttons.Pressed(t.combo.A) || !m.buttons.Pressed(t.combo.B) {
		// Any release rearms, whatever the prior state.
		t.heldSince = time.Time{}
		t.fired = false
		return
	}
	if t.heldSince.IsZero() {
		t.heldSince = now
		t.fired = false
		return
	}
	if !t.fired && now.Sub(t.heldSince) >= m.hold {
		*flag = !*flag
		t.fired = true
	}
}

// Sleep reports whether transmission is gated off by the operator.
func (m *Machine) Sleep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sleep
}

// SpeedBoost reports whether the boosted forward scale is active.
func (m *Machine) SpeedBoost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boost
}
