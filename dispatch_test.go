package psxcore

import "testing"

// TestDispatcherRunsArithmeticBlockThenIdlesUntilScheduledEvent exercises a
// full compile -> execute -> cycle-integration -> scheduler-dispatch cycle:
// a short run of arithmetic instructions jumps into a classic "b ." idle
// loop, and the dispatch loop is expected to fast-forward through the idle
// loop up to the next scheduled deadline rather than spinning through it
// one guest instruction at a time.
func TestDispatcherRunsArithmeticBlockThenIdlesUntilScheduledEvent(t *testing.T) {
	mem := NewMemory()

	// ADDIU $t0, $zero, 5
	mem.Write32(0x00, uint32(opADDIU)<<26|0<<21|8<<16|5)
	// ADDIU $t1, $zero, 10
	mem.Write32(0x04, uint32(opADDIU)<<26|0<<21|9<<16|10)
	// ADD $t2, $t0, $t1
	mem.Write32(0x08, 8<<21|9<<16|10<<11|funcADD)
	// J 0x20 (target word index 8 => addr 0x20)
	mem.Write32(0x0C, uint32(opJ)<<26|8)
	// delay slot: NOP
	mem.Write32(0x10, 0)

	// idle loop at 0x20: "b ." + delay slot NOP
	mem.Write32(0x20, uint32(opBEQ)<<26|0<<21|0<<16|0xFFFF)
	mem.Write32(0x24, 0)

	cpu := NewCPUState()
	cpu.PC = 0x00
	cpu.CurrentPC = 0x00

	cache, err := newBlockCache(mem, 256)
	if err != nil {
		t.Fatalf("newBlockCache: %v", err)
	}
	sched := NewScheduler()

	fired := false
	sched.Schedule(EventVBlank, 1000, func(now uint64) { fired = true })

	d := NewDispatcher(cpu, mem, cache, sched)
	d.Phase = phaseMain

	d.RunFor(2000)

	if cpu.GPR[8] != 5 {
		t.Fatalf("$t0 = %d, want 5", cpu.GPR[8])
	}
	if cpu.GPR[9] != 10 {
		t.Fatalf("$t1 = %d, want 10", cpu.GPR[9])
	}
	if cpu.GPR[10] != 15 {
		t.Fatalf("$t2 = %d, want 15", cpu.GPR[10])
	}
	if cpu.PC != 0x20 {
		t.Fatalf("PC = %#x, want 0x20 (parked in the idle loop)", cpu.PC)
	}
	if !fired {
		t.Fatal("scheduled VBlank event never fired despite running 2000 cycles through an idle loop")
	}
	if d.GlobalCycles < 2000 {
		t.Fatalf("GlobalCycles = %d, want at least 2000", d.GlobalCycles)
	}
}

// TestDispatcherAddressErrorExceptionOnMisalignedPC exercises the §4.4
// step-1 alignment check: fetching from an unaligned PC must raise an
// AddrErrLoad exception instead of running compileBlock against it.
func TestDispatcherAddressErrorExceptionOnMisalignedPC(t *testing.T) {
	mem := NewMemory()
	cpu := NewCPUState()
	cpu.PC = 0x03
	cpu.COP0[COP0SR] &^= srBEV

	cache, err := newBlockCache(mem, 256)
	if err != nil {
		t.Fatalf("newBlockCache: %v", err)
	}
	sched := NewScheduler()
	d := NewDispatcher(cpu, mem, cache, sched)
	d.Phase = phaseMain

	d.stepOneBlock()

	if cpu.PC != 0x80000080 {
		t.Fatalf("PC = %#x, want the general exception vector 0x80000080", cpu.PC)
	}
	if (cpu.COP0[COP0CAUSE]&causeExcMask)>>2 != ExcAddrErrLoad {
		t.Fatalf("CAUSE exc code = %d, want ExcAddrErrLoad", (cpu.COP0[COP0CAUSE]&causeExcMask)>>2)
	}
	if cpu.COP0[COP0BADVADDR] != 0x03 {
		t.Fatalf("BADVADDR = %#x, want 0x03", cpu.COP0[COP0BADVADDR])
	}
}

// TestDispatcherRoutesJALRTargetThroughIndirectCache exercises §4.4's
// computed-jump path end to end: a JALR block hands control to a runtime
// address, and the dispatcher is expected to resolve that landing through
// the block cache's two-way associative indirect table (falling back to the
// ordinary page lookup/compile on its first miss and populating the table
// for next time), not just the static page-table path.
func TestDispatcherRoutesJALRTargetThroughIndirectCache(t *testing.T) {
	mem := NewMemory()

	// JALR $ra, $t0 ($t0 holds the call target); delay slot NOP.
	mem.Write32(0x00, uint32(8)<<21|uint32(31)<<11|funcJALR)
	mem.Write32(0x04, 0)

	// callee at 0x40: ADDIU $t1, $zero, 5 ; BEQ $zero,$zero,-1 ; NOP (delay).
	mem.Write32(0x40, uint32(opADDIU)<<26|0<<21|9<<16|5)
	mem.Write32(0x44, uint32(opBEQ)<<26|0<<21|0<<16|0xFFFF)
	mem.Write32(0x48, 0)

	cpu := NewCPUState()
	cpu.PC = 0x00
	cpu.CurrentPC = 0x00
	cpu.GPR[8] = 0x40

	cache, err := newBlockCache(mem, 256)
	if err != nil {
		t.Fatalf("newBlockCache: %v", err)
	}
	sched := NewScheduler()
	d := NewDispatcher(cpu, mem, cache, sched)
	d.Phase = phaseMain

	if cache.LookupIndirect(0x40) != nil {
		t.Fatal("indirect cache already populated before any JALR ran")
	}

	d.stepOneBlock() // runs the JALR block, lands PC at the callee
	if cpu.PC != 0x40 {
		t.Fatalf("PC after JALR = %#x, want 0x40", cpu.PC)
	}
	if cpu.GPR[31] != 0x08 {
		t.Fatalf("$ra = %#x, want 0x08", cpu.GPR[31])
	}
	if !d.indirectTarget {
		t.Fatal("dispatcher did not flag the next lookup as arriving via an indirect jump")
	}

	d.stepOneBlock() // compiles/runs the callee, populating the indirect table

	if cache.LookupIndirect(0x40) == nil {
		t.Fatal("JALR target was never recorded in the block cache's indirect table")
	}
	if cpu.GPR[9] != 5 {
		t.Fatalf("$t1 = %d, want 5", cpu.GPR[9])
	}
}
