package psxcore

import "testing"

func TestCPUStateResetInstallsBIOSVectorAndPRID(t *testing.T) {
	c := NewCPUState()
	if c.PC != 0xBFC00000 || c.CurrentPC != c.PC {
		t.Fatalf("PC/CurrentPC = %#x/%#x, want both 0xBFC00000", c.PC, c.CurrentPC)
	}
	if c.COP0[COP0SR]&srBEV == 0 {
		t.Fatal("SR.BEV not set after Reset")
	}
	if c.COP0[COP0PRID] != 0x00000002 {
		t.Fatalf("PRID = %#x, want 0x00000002", c.COP0[COP0PRID])
	}
}

func TestCPUStateSetGPRDiscardsWritesToR0(t *testing.T) {
	c := NewCPUState()
	c.SetGPR(0, 0xFFFFFFFF)
	if c.GPR[0] != 0 {
		t.Fatalf("GPR[0] = %#x, want 0 (writes to R0 are discarded)", c.GPR[0])
	}
}

func TestCPUStateLoadDelaySlotStaging(t *testing.T) {
	c := NewCPUState()
	c.GPR[4] = 0xAAAAAAAA
	c.StageLoadDelay(4, 0x12345678)

	// A read through ResolveLoadDelay already sees the staged value, while
	// the register file itself keeps the stale value until the slot retires.
	if got := c.ResolveLoadDelay(4); got != 0x12345678 {
		t.Fatalf("ResolveLoadDelay = %#x, want staged value 0x12345678", got)
	}
	if c.GPR[4] != 0xAAAAAAAA {
		t.Fatalf("GPR[4] = %#x, want unchanged 0xAAAAAAAA before retirement", c.GPR[4])
	}

	c.RetireLoadDelay()
	if c.GPR[4] != 0x12345678 {
		t.Fatalf("GPR[4] = %#x, want 0x12345678 after retirement", c.GPR[4])
	}
	if c.LoadDelayValid {
		t.Fatal("LoadDelayValid still true after RetireLoadDelay")
	}
}

func TestCPUStateStageLoadDelayToR0IsNoop(t *testing.T) {
	c := NewCPUState()
	c.StageLoadDelay(0, 0xDEADBEEF)
	if c.LoadDelayValid {
		t.Fatal("StageLoadDelay(0, ...) armed a delay slot, want no-op for R0")
	}
}

func TestCPUStateEnterExceptionShiftsStatusStack(t *testing.T) {
	c := NewCPUState()
	c.COP0[COP0SR] |= srIEc | srKUc
	c.CurrentPC = 0x80010000

	vec := c.EnterException(ExcBreak, 0, false)

	if vec != 0xBFC00180 {
		t.Fatalf("vector = %#x, want 0xBFC00180 (BEV still set from Reset)", vec)
	}
	if c.COP0[COP0SR]&(srIEc|srKUc) != 0 {
		t.Fatal("current IE/KU bits still set after exception entry, want shifted out")
	}
	if c.COP0[COP0SR]&(srIEp|srKUp) == 0 {
		t.Fatal("previous IE/KU bits not populated from the old current bits")
	}
	if c.COP0[COP0EPC] != 0x80010000 {
		t.Fatalf("EPC = %#x, want 0x80010000", c.COP0[COP0EPC])
	}
	if c.COP0[COP0CAUSE]&causeBD != 0 {
		t.Fatal("CAUSE.BD set despite inBranchDelay=false")
	}
	if (c.COP0[COP0CAUSE] & causeExcMask >> 2) != ExcBreak {
		t.Fatalf("CAUSE exc code = %d, want ExcBreak", (c.COP0[COP0CAUSE]&causeExcMask)>>2)
	}
}

func TestCPUStateEnterExceptionInBranchDelaySetsBDAndBacksUpEPC(t *testing.T) {
	c := NewCPUState()
	c.CurrentPC = 0x80010004
	c.EnterException(ExcAddrErrLoad, 0x1234, true)
	if c.COP0[COP0CAUSE]&causeBD == 0 {
		t.Fatal("CAUSE.BD not set despite inBranchDelay=true")
	}
	if c.COP0[COP0EPC] != 0x80010000 {
		t.Fatalf("EPC = %#x, want CurrentPC-4 = 0x80010000", c.COP0[COP0EPC])
	}
	if c.COP0[COP0BADVADDR] != 0x1234 {
		t.Fatalf("BADVADDR = %#x, want 0x1234 for an address-error exception", c.COP0[COP0BADVADDR])
	}
}

func TestCPUStateEnterExceptionUsesNonBootVectorWhenBEVClear(t *testing.T) {
	c := NewCPUState()
	c.COP0[COP0SR] &^= srBEV
	vec := c.EnterException(ExcSyscall, 0, false)
	if vec != 0x80000080 {
		t.Fatalf("vector = %#x, want 0x80000080 with BEV clear", vec)
	}
}

func TestCPUStateRFEUndoesEnterExceptionShift(t *testing.T) {
	c := NewCPUState()
	c.COP0[COP0SR] = srIEc | srKUc
	c.EnterException(ExcBreak, 0, false)
	c.RFE()
	if c.COP0[COP0SR]&(srIEc|srKUc) != srIEc|srKUc {
		t.Fatalf("SR current bits = %#x after RFE, want restored IEc|KUc", c.COP0[COP0SR]&(srIEc|srKUc))
	}
}

func TestCPUStateSetInterruptPendingGatesOnIEAndIM2(t *testing.T) {
	c := NewCPUState()
	c.COP0[COP0SR] = srIEc | srIM2

	if taken := c.SetInterruptPending(false); taken {
		t.Fatal("SetInterruptPending(false) reported taken")
	}
	if c.COP0[COP0CAUSE]&causeIP2 != 0 {
		t.Fatal("CAUSE.IP2 set despite pending=false")
	}

	if taken := c.SetInterruptPending(true); !taken {
		t.Fatal("SetInterruptPending(true) not taken despite IEc and IM2 both set")
	}
	if c.COP0[COP0CAUSE]&causeIP2 == 0 {
		t.Fatal("CAUSE.IP2 not set despite pending=true")
	}
	if !c.PendingInterrupt {
		t.Fatal("PendingInterrupt field not updated")
	}
}

func TestCPUStateSetInterruptPendingBlockedWhenIEClear(t *testing.T) {
	c := NewCPUState()
	c.COP0[COP0SR] = srIM2 // IEc clear
	if taken := c.SetInterruptPending(true); taken {
		t.Fatal("SetInterruptPending(true) taken despite IEc clear")
	}
}
