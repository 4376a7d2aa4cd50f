package psxcore

import (
	"io"
	"testing"

	"github.com/kamalan-labs/psxcore/internal/logx"
)

// TestMachineArmsPreciseTimerDeadlineFromRegisterWrite exercises the
// scheduleTimer/RearmTimer wiring: enabling timer0's target IRQ must arm a
// real deadline at the exact cycle timers.Timer.NextEventCycles predicts,
// not just wait for the next ~69,440-cycle HBlank batch re-sync.
func TestMachineArmsPreciseTimerDeadlineFromRegisterWrite(t *testing.T) {
	log := logx.New(io.Discard, false)
	m, err := NewMachine(DefaultSettings(), log)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	const timer0Target = 0x1F801108
	const timer0Mode = 0x1F801104

	m.Mem.Write32(timer0Target, 100)
	m.Mem.Write32(timer0Mode, timerModeIRQOnTarget|timerModeResetOnTrg)

	deadline, ok := m.Sched.EarliestDeadline()
	if !ok {
		t.Fatal("no event scheduled after enabling timer0's target IRQ")
	}
	if deadline != 100 {
		t.Fatalf("earliest deadline = %d, want 100 (timer0's precise target deadline, not the coarse HBlank batch)", deadline)
	}

	m.Dispatch.RunFor(300)

	if m.HW.IStat&irqTimer0 == 0 {
		t.Fatal("timer0's target IRQ never latched in I_STAT despite running past its scheduled deadline")
	}
}

// TestMachineCDROMAndSIOHeartbeatsRearmOnFire confirms the scheduler's
// CDROM/SIO event kinds reach an actual, reachable, self-rearming callback
// (HWRegisters.OnCDROMEvent/OnSIOEvent) instead of standing unarmed.
func TestMachineCDROMAndSIOHeartbeatsRearmOnFire(t *testing.T) {
	mem := NewMemory()
	spu := NewSPU()
	hw := NewHWRegisters(mem, spu, nil)
	sched := NewScheduler()
	m := &Machine{HW: hw, Sched: sched, Settings: DefaultSettings()}

	m.scheduleCDROM(0)
	m.scheduleSIO(0)

	deadline, ok := sched.EarliestDeadline()
	if !ok || deadline != cdromHeartbeatCycles {
		t.Fatalf("initial CDROM/SIO deadline = %d, ok=%v, want %d", deadline, ok, cdromHeartbeatCycles)
	}

	sched.DispatchDue(deadline)

	next, ok := sched.EarliestDeadline()
	if !ok || next != deadline+cdromHeartbeatCycles {
		t.Fatalf("heartbeat did not rearm after firing: next deadline = %d, ok=%v, want %d", next, ok, deadline+cdromHeartbeatCycles)
	}
}
