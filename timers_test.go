// timers_test.go - unit tests for the root-counter timers.

package psxcore

import "testing"

func TestTimerValueInterpolatesModulo16Bit(t *testing.T) {
	tm := NewTimer(2) // timer 2 defaults to the system clock when div-src bit is clear
	tm.WriteMode(0, 1000)
	tm.WriteTarget(0x1000)

	got := tm.ReadValue(1000 + 70000)
	want := uint32(70000 % 0x10000)
	if got != want {
		t.Errorf("ReadValue = %d, want %d (N mod 0x10000)", got, want)
	}
}

func TestTimerDiv8Divider(t *testing.T) {
	tm := NewTimer(0)
	tm.WriteMode(timerModeClockDivSrc, 0)
	got := tm.ReadValue(800)
	if got != 100 {
		t.Errorf("ReadValue = %d, want 100 (800 elapsed / 8)", got)
	}
}

func TestTimerTargetHitResetsAndLatches(t *testing.T) {
	tm := NewTimer(2)
	tm.WriteMode(timerModeResetOnTrg|timerModeIRQOnTarget, 0)
	tm.WriteTarget(100)

	irq := tm.RaiseIRQIfDue(150)
	if !irq {
		t.Errorf("expected IRQ latch once the counter passes the target")
	}
	if tm.Mode&timerModeReachedTrg == 0 {
		t.Errorf("expected ReachedTarget sticky bit set")
	}
	// ResetOnTarget wraps the counter modulo (target+1): 150 % 101 = 49.
	if tm.baseValue != 150%101 {
		t.Errorf("baseValue = %d, want %d after target-triggered wraparound", tm.baseValue, 150%101)
	}
}

func TestTimerOverflowWraparoundLatches(t *testing.T) {
	tm := NewTimer(2)
	tm.WriteMode(timerModeIRQOnOflow, 0)
	tm.WriteTarget(0) // no reset-on-target, so this timer only wraps at 0x10000

	irq := tm.RaiseIRQIfDue(0x10000 + 5)
	if !irq {
		t.Errorf("expected IRQ latch on 16-bit overflow")
	}
	if tm.Mode&timerModeReachedOflow == 0 {
		t.Errorf("expected ReachedOverflow sticky bit set")
	}
}

func TestTimerNextEventCyclesPicksEarliestEnabledSource(t *testing.T) {
	tm := NewTimer(2)
	tm.WriteMode(timerModeIRQOnTarget|timerModeIRQOnOflow, 0)
	tm.WriteTarget(50)

	cycles, ok := tm.NextEventCycles(0)
	if !ok {
		t.Fatalf("expected a pending event")
	}
	if cycles != 50 {
		t.Errorf("NextEventCycles = %d, want 50 (target closer than 16-bit overflow)", cycles)
	}
}

func TestTimerNextEventCyclesNoneWhenIRQsDisabled(t *testing.T) {
	tm := NewTimer(1)
	tm.WriteMode(0, 0)
	tm.WriteTarget(10)

	if _, ok := tm.NextEventCycles(0); ok {
		t.Errorf("expected no pending event when neither IRQ source is enabled")
	}
}

func TestTimerWriteModeClearsLatchedFlags(t *testing.T) {
	tm := NewTimer(0)
	tm.Mode = timerModeReachedTrg | timerModeReachedOflow
	tm.baseValue = 123

	tm.WriteMode(timerModeIRQOnTarget, 500)

	if tm.Mode&(timerModeReachedTrg|timerModeReachedOflow) != 0 {
		t.Errorf("expected latched flags cleared by a mode write")
	}
	if tm.baseValue != 0 {
		t.Errorf("expected counter reset to 0 by a mode write")
	}
}
