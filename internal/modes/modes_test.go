package modes

import (
	"testing"
	"time"
)

type fakeButtons map[string]bool

func (f fakeButtons) Pressed(name string) bool { return f[name] }

func newTestMachine(buttons fakeButtons) *Machine {
	return New(buttons, 3*time.Second, true, Combo{}, Combo{})
}

func TestHoldFiresExactlyOnce(t *testing.T) {
	buttons := fakeButtons{}
	m := newTestMachine(buttons)
	if !m.Sleep() {
		t.Fatal("machine should start in sleep")
	}

	buttons["BTN_SELECT"] = true
	buttons["BTN_START"] = true
	base := time.Unix(0, 0)

	// Polled every 100ms for 10s of continuous hold: one toggle only.
	for elapsed := time.Duration(0); elapsed <= 10*time.Second; elapsed += 100 * time.Millisecond {
		m.Update(base.Add(elapsed))
	}
	if m.Sleep() {
		t.Error("sleep should have toggled off exactly once")
	}
}

func TestReleaseBeforeThresholdFiresNothing(t *testing.T) {
	buttons := fakeButtons{"BTN_SELECT": true, "BTN_START": true}
	m := newTestMachine(buttons)
	base := time.Unix(0, 0)

	m.Update(base)
	m.Update(base.Add(2 * time.Second))
	buttons["BTN_START"] = false
	m.Update(base.Add(2500 * time.Millisecond))

	if !m.Sleep() {
		t.Error("combo released before the threshold must not fire")
	}
}

func TestReholdFiresAgain(t *testing.T) {
	buttons := fakeButtons{"BTN_SELECT": true, "BTN_START": true}
	m := newTestMachine(buttons)
	base := time.Unix(0, 0)

	m.Update(base)
	m.Update(base.Add(3 * time.Second))
	if m.Sleep() {
		t.Fatal("first hold should have fired")
	}

	// Keep holding well past the threshold: no second toggle.
	m.Update(base.Add(8 * time.Second))
	if m.Sleep() {
		t.Fatal("continuous hold must not fire twice")
	}

	// Release, then hold again.
	buttons["BTN_SELECT"] = false
	m.Update(base.Add(9 * time.Second))
	buttons["BTN_SELECT"] = true
	m.Update(base.Add(10 * time.Second))
	m.Update(base.Add(13 * time.Second))
	if !m.Sleep() {
		t.Error("re-hold after release should fire again")
	}
}

func TestExactHoldDurationFires(t *testing.T) {
	buttons := fakeButtons{"BTN_TL": true, "BTN_TR": true}
	m := newTestMachine(buttons)
	base := time.Unix(0, 0)

	m.Update(base)
	m.Update(base.Add(3 * time.Second)) // elapsed == hold
	if !m.SpeedBoost() {
		t.Error("elapsed equal to the hold duration should fire")
	}
}

func TestCombosAreIndependent(t *testing.T) {
	buttons := fakeButtons{
		"BTN_SELECT": true, "BTN_START": true,
		"BTN_TL": true, "BTN_TR": true,
	}
	m := newTestMachine(buttons)
	base := time.Unix(0, 0)

	m.Update(base)
	m.Update(base.Add(3 * time.Second))
	if m.Sleep() || !m.SpeedBoost() {
		t.Errorf("both combos held: sleep=%v boost=%v, want sleep off and boost on",
			m.Sleep(), m.SpeedBoost())
	}

	// Releasing one combo's button must not disturb the other timer.
	buttons["BTN_TL"] = false
	buttons["BTN_SELECT"] = false
	m.Update(base.Add(4 * time.Second))
	buttons["BTN_SELECT"] = true
	m.Update(base.Add(5 * time.Second))
	m.Update(base.Add(8 * time.Second))
	if !m.Sleep() {
		t.Error("sleep combo re-hold should fire regardless of the boost combo")
	}
	if !m.SpeedBoost() {
		t.Error("boost flag should be untouched while its combo is released")
	}
}
