// dispatch.go - the boot/main dispatch loop (C6, §4.4).
//
// Grounded on the teacher's Machine.Run main loop (machine.go): fetch,
// execute, integrate elapsed cycles against a scheduler deadline, then
// drain due events. This core generalizes that shape to a two-phase
// boot/main loop and an explicit abort-PC restore path for translated
// blocks that hit a memory slow path mid-block.

package psxcore

import "github.com/kamalan-labs/psxcore/internal/logx"

const (
	minCyclesPerBlock  = 8    // integrated even for a zero-reported block, avoiding a livelock
	noEventBatchCycles = 1024 // deadline cap when the scheduler has nothing pending
)

// dispatchPhase distinguishes the pre-executable boot window from normal
// execution; both run the identical inner routine (§4.4).
type dispatchPhase int

const (
	phaseBoot dispatchPhase = iota
	phaseMain
)

// Dispatcher owns the pieces the dispatch loop drives each iteration: CPU
// state, guest memory, the block cache/compiler, and the event scheduler.
// It does not own the SPU/GPU/CDROM devices directly; those are reached
// through Memory.IO (hw_registers.go) the same way real MMIO would be.
type Dispatcher struct {
	CPU   *CPUState
	Mem   *Memory
	Cache *blockCache
	Sched *Scheduler

	Phase        dispatchPhase
	GlobalCycles uint64

	// BootHook is polled once per outer iteration while in phaseBoot; it
	// returns true once a PSX-EXE or ISO boot has installed its entry point
	// and transferred control, promoting the loop to phaseMain.
	BootHook func(d *Dispatcher) bool

	// IRQLine reports whether the hardware-register façade currently has
	// any enabled interrupt source asserted (§4.4 step 5).
	IRQLine func() bool

	// Log receives unknown-opcode reports from the translator (§7); nil is
	// safe and simply disables that reporting.
	Log *logx.Logger

	// indirectTarget is true when the block about to run was reached via a
	// JR/JALR computed jump, so its lookup should consult the block cache's
	// indirect table (block_cache.go) before falling back to the ordinary
	// page-table lookup.
	indirectTarget bool
}

func NewDispatcher(cpu *CPUState, mem *Memory, cache *blockCache, sched *Scheduler) *Dispatcher {
	return &Dispatcher{CPU: cpu, Mem: mem, Cache: cache, Sched: sched, Phase: phaseBoot}
}

// RunFor advances the dispatch loop until at least targetCycles guest
// cycles have elapsed, returning the number actually integrated.
// Machine.Run calls it repeatedly with one HBlank batch's worth of cycles;
// Machine.RunOneField (internal/hostloop's per-frame Update) calls it once
// per video field.
func (d *Dispatcher) RunFor(targetCycles uint64) uint64 {
	start := d.GlobalCycles
	end := start + targetCycles
	for d.GlobalCycles < end {
		d.runOneBatch()
		if d.Phase == phaseBoot && d.BootHook != nil && d.BootHook(d) {
			d.Phase = phaseMain
		}
	}
	return d.GlobalCycles - start
}

// runOneBatch implements §4.4 steps 1-5 for a single scheduler-deadline
// window.
func (d *Dispatcher) runOneBatch() {
	deadline, hasEvent := d.Sched.EarliestDeadline()
	if !hasEvent {
		deadline = d.GlobalCycles + noEventBatchCycles
	}

	for d.GlobalCycles < deadline {
		rescheduled := d.stepOneBlock()
		if rescheduled {
			// an I/O write may have scheduled an earlier deadline than the
			// one this batch started with; re-read it before continuing.
			newDeadline, ok := d.Sched.EarliestDeadline()
			if ok && newDeadline < deadline {
				deadline = newDeadline
			}
		}
	}

	d.Sched.DispatchDue(d.GlobalCycles)
	d.deliverInterrupt()
}

// stepOneBlock fetches/compiles/executes one block and integrates its
// cycle cost. Returns true if executing the block may have scheduled a new
// event, signaling the caller to re-check the batch deadline; this is
// approximated as "the block aborted, exited through a COP0 exception, or
// is a detected poll loop", not by tracking actual I/O port accesses.
func (d *Dispatcher) stepOneBlock() bool {
	pc := d.CPU.PC
	if pc&0x3 != 0 {
		d.CPU.CurrentPC = pc
		d.CPU.PC = d.CPU.EnterException(ExcAddrErrLoad, pc, false)
		d.indirectTarget = false
		return false
	}

	wasIndirect := d.indirectTarget
	d.indirectTarget = false

	b := d.lookupBlock(pc, wasIndirect)

	if b.isIdleLoop {
		d.fastForwardIdle()
		return false
	}

	d.CPU.CurrentPC = pc
	cycles, nextPC, exit := b.run(d.CPU, d.Mem)
	if cycles < minCyclesPerBlock {
		cycles = minCyclesPerBlock
	}
	d.GlobalCycles += uint64(cycles)

	if d.CPU.Abort {
		d.CPU.Abort = false
		d.CPU.PC = d.CPU.AbortPC
		return true
	}

	d.CPU.PC = nextPC
	d.indirectTarget = exit == exitIndirectJump
	touchedIO := exit == exitCop0Exception || b.isPoll
	return touchedIO
}

// lookupBlock resolves pc to a compiled block, consulting the block cache's
// two-way associative indirect table first when the caller arrived here via
// a JR/JALR computed jump (fromIndirect), since that table is sized and
// hashed specifically to accelerate repeat call-site/return-address pairs
// that a page-table walk would otherwise redo every time. A miss anywhere
// falls through to the ordinary page-table lookup/compile path, and the
// result is recorded into the indirect table for next time.
func (d *Dispatcher) lookupBlock(pc uint32, fromIndirect bool) *block {
	if fromIndirect {
		if b := d.Cache.LookupIndirect(pc); b != nil {
			return b
		}
	}

	b := d.Cache.Lookup(pc)
	if b == nil {
		b = compileBlock(d.Mem, pc, d.Log)
		_ = d.Cache.Insert(b)
	}
	if fromIndirect {
		d.Cache.InsertIndirect(pc, b)
	}
	return b
}

// fastForwardIdle advances global_cycles straight to the next scheduler
// deadline instead of spinning the host CPU through a guest busy-wait,
// since an idle loop has no architecturally visible effect between events.
func (d *Dispatcher) fastForwardIdle() {
	deadline, ok := d.Sched.EarliestDeadline()
	if !ok || deadline <= d.GlobalCycles {
		d.GlobalCycles += minCyclesPerBlock
		return
	}
	d.GlobalCycles = deadline
}

// deliverInterrupt implements §4.4 step 5: refresh CAUSE.IP2 from the
// façade's OR-tree and take a guest interrupt exception if SR gates it in.
func (d *Dispatcher) deliverInterrupt() {
	if d.IRQLine == nil {
		return
	}
	pending := d.IRQLine()
	if d.CPU.SetInterruptPending(pending) {
		d.CPU.PC = d.CPU.EnterException(ExcInterrupt, 0, false)
	}
}
