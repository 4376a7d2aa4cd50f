// cpu_state.go - guest CPU register file and exception staging fields.
//
// CPUState is the backing store shared between the dispatch loop, translated
// blocks and the C-language-shaped helper calls they invoke. Exactly one
// instance exists per Machine; it is mutated only from the single dispatch
// goroutine (see Machine.Run) and from helpers called synchronously from
// translated blocks, never concurrently.

package psxcore

// COP0 register indices (only a subset is architecturally meaningful on the
// R3000A, but the full 32-entry file is kept so translated code can address
// any of them without a bounds check).
const (
	COP0SR       = 12
	COP0CAUSE    = 13
	COP0EPC      = 14
	COP0BADVADDR = 8
	COP0PRID     = 15
)

// COP0.SR bits relevant to exception entry/return (§4.4, §7 and the
// supplemented RFE behaviour in SPEC_FULL.md §3).
const (
	srIEc    = 1 << 0 // current interrupt enable
	srKUc    = 1 << 1 // current kernel/user mode
	srIEp    = 1 << 2 // previous interrupt enable
	srKUp    = 1 << 3 // previous kernel/user mode
	srIEo    = 1 << 4 // old interrupt enable
	srKUo    = 1 << 5 // old kernel/user mode
	srIM     = 0xFF00 // interrupt mask bits 8-15
	srIsC    = 1 << 16
	srIM2    = 1 << 10 // SR mask bit gating CAUSE.IP2, the line this core models
	srBEV    = 1 << 22 // boot exception vector
	srCU0    = 1 << 28
	srCU2    = 1 << 30 // GTE usable
	srStack3 = srIEc | srKUc | srIEp | srKUp | srIEo | srKUo
)

// CAUSE register layout.
const (
	causeExcMask = 0x3F << 2
	causeIPMask  = 0xFF << 8
	causeIP2     = 1 << 10 // the single interrupt line this core models (§4.4)
	causeBD      = 1 << 31 // exception occurred in a branch delay slot
)

// Guest exception codes (§6).
const (
	ExcInterrupt    = 0
	ExcAddrErrLoad  = 4
	ExcAddrErrStore = 5
	ExcBusErrInstr  = 6
	ExcSyscall      = 8
	ExcBreak        = 9
	ExcCopUnusable  = 11
	ExcOverflow     = 12
)

// CPUState holds every field a translated block or helper touches.
type CPUState struct {
	GPR [32]uint32 // R0 is always zero; enforced by SetGPR
	HI  uint32
	LO  uint32

	PC        uint32 // next instruction to fetch
	CurrentPC uint32 // address of the instruction that last updated PC (EPC source)

	COP0 [32]uint32

	// GTE (COP2) register file: 32 data + 32 control, folded into GTEState
	// so gte.go's opcode implementations can operate on it directly.
	GTE GTEState

	CyclesRemaining int32 // cycles left to run in the current block
	Abort           bool  // set by a helper that needs the dispatch loop to unwind
	AbortPC         uint32

	// Delay-slot staging: a load whose result is consumed by the very next
	// instruction is not visible until that instruction executes (§4.2).
	LoadDelayReg   int
	LoadDelayValue uint32
	LoadDelayValid bool

	PendingInterrupt bool
}

// NewCPUState returns a freshly reset CPU state with PRID and the BIOS
// reset vector installed.
func NewCPUState() *CPUState {
	c := &CPUState{}
	c.Reset()
	return c
}

// Reset restores power-on state: PC at the BIOS reset vector, SR with BEV
// set (bootstrap exception vectors), and PRID identifying an R3000A core.
func (c *CPUState) Reset() {
	*c = CPUState{}
	c.PC = 0xBFC00000
	c.CurrentPC = c.PC
	c.COP0[COP0SR] = srBEV
	c.COP0[COP0PRID] = 0x00000002
	c.GTE.Reset()
}

// SetGPR writes a general register, silently discarding writes to R0 as the
// ISA requires.
func (c *CPUState) SetGPR(index int, value uint32) {
	if index == 0 {
		return
	}
	c.GPR[index] = value
}

// ResolveLoadDelay reads a register honoring an in-flight load-delay slot:
// if the register about to be read is the target of a load whose result has
// not yet retired, the staged value is returned instead of the stale
// register contents.
func (c *CPUState) ResolveLoadDelay(index int) uint32 {
	if c.LoadDelayValid && c.LoadDelayReg == index {
		return c.LoadDelayValue
	}
	return c.GPR[index]
}

// RetireLoadDelay commits a pending delayed load into the register file.
// Called once per instruction step, after the instruction that could
// observe the stale value has executed.
func (c *CPUState) RetireLoadDelay() {
	if c.LoadDelayValid {
		c.SetGPR(c.LoadDelayReg, c.LoadDelayValue)
		c.LoadDelayValid = false
	}
}

// StageLoadDelay arms a load-delay slot for the given register.
func (c *CPUState) StageLoadDelay(index int, value uint32) {
	if index == 0 {
		return
	}
	// A second load to the same register in the delay window simply
	// replaces the pending value; guest code relying on stranger orderings
	// is already in undefined-behaviour territory on real hardware.
	c.LoadDelayReg = index
	c.LoadDelayValue = value
	c.LoadDelayValid = true
}

// EnterException pushes the (KU,IE) stack, sets CAUSE/EPC/BADVADDR and
// returns the vector PC to transfer control to (§7, supplemented RFE dual
// in SPEC_FULL.md §3).
func (c *CPUState) EnterException(excCode uint32, badVAddr uint32, inBranchDelay bool) uint32 {
	sr := c.COP0[COP0SR]
	shifted := (sr &^ uint32(srStack3)) | ((sr << 2) & srStack3)
	c.COP0[COP0SR] = shifted

	c.COP0[COP0CAUSE] = (c.COP0[COP0CAUSE] &^ uint32(causeExcMask)) | ((excCode << 2) & causeExcMask)
	if inBranchDelay {
		c.COP0[COP0CAUSE] |= causeBD
		c.COP0[COP0EPC] = c.CurrentPC - 4
	} else {
		c.COP0[COP0CAUSE] &^= causeBD
		c.COP0[COP0EPC] = c.CurrentPC
	}
	if excCode == ExcAddrErrLoad || excCode == ExcAddrErrStore {
		c.COP0[COP0BADVADDR] = badVAddr
	}

	if shifted&srBEV != 0 {
		return 0xBFC00180
	}
	return 0x80000080
}

// RFE restores the (KU,IE) stack after an exception handler completes,
// undoing the shift EnterException performed.
func (c *CPUState) RFE() {
	sr := c.COP0[COP0SR]
	lower := (sr & srStack3) >> 2
	c.COP0[COP0SR] = (sr &^ uint32(srStack3>>2)) | lower
}

// SetInterruptPending updates CAUSE.IP2 (the single interrupt line this
// core models, fed by the hardware-register façade's IRQ OR-tree) and
// returns whether the CPU should now take a guest interrupt exception.
func (c *CPUState) SetInterruptPending(pending bool) bool {
	if pending {
		c.COP0[COP0CAUSE] |= causeIP2
	} else {
		c.COP0[COP0CAUSE] &^= causeIP2
	}
	sr := c.COP0[COP0SR]
	taken := pending && sr&srIEc != 0 && sr&srIM2 != 0
	c.PendingInterrupt = taken
	return taken
}
