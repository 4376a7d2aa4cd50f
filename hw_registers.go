// hw_registers.go - guest I/O port decode (C10, §6).
//
// Grounded on the teacher's coprocessor_manager.go register-bank dispatch
// style (a base-address-relative switch forwarding to per-device state),
// generalized from IE's coprocessor ports to the PSX's fixed 0x1F801000
// window. Implements the Memory.IOPorts interface memory.go declares.

package psxcore

import "github.com/kamalan-labs/psxcore/internal/logx"

// I/O port base offsets within the 0x1F801000-0x1F802FFF window.
const (
	portMemCtrl1   = 0x1F801000
	portMemCtrl2   = 0x1F801060
	portIStat      = 0x1F801070
	portIMask      = 0x1F801074
	portDMABase    = 0x1F801080
	portDMAEnd     = 0x1F8010FF
	portDPCR       = 0x1F8010F0
	portDICR       = 0x1F8010F4
	portTimerBase  = 0x1F801100
	portTimerEnd   = 0x1F80112F
	portCDROMBase  = 0x1F801800
	portCDROMEnd   = 0x1F801803
	portGPUBase    = 0x1F801810
	portGPUEnd     = 0x1F801817
	portMDECBase   = 0x1F801820
	portMDECEnd    = 0x1F801827
	portSPUBase    = 0x1F801C00
	portSPUEnd     = 0x1F801FFF
	portSIOBase       = 0x1F801040
	portSIOEnd        = 0x1F80105F
	portExpansion2    = 0x1F802000
	portExpansion2End = 0x1F802080
)

// IRQ line bits in I_STAT/I_MASK (the subset this core raises).
const (
	irqVBlank = 1 << 0
	irqGPU    = 1 << 1
	irqCDROM  = 1 << 2
	irqDMA    = 1 << 3
	irqTimer0 = 1 << 4
	irqTimer1 = 1 << 5
	irqTimer2 = 1 << 6
	irqSIO    = 1 << 7
)

// HWRegisters is the hardware-register façade: it owns the interrupt
// controller, the seven DMA channel blocks, the three timers, and stub
// backing stores for the named-but-unmodeled devices (MDEC, memory
// control, expansion-2), and forwards GPU/SPU/CDROM/SIO register traffic
// to their respective subsystems.
type HWRegisters struct {
	IStat uint32
	IMask uint32

	DPCR uint32
	DICR uint32
	DMA  [7]DMAChannel

	Timers [3]*Timer

	MemCtrl1 [9]uint32 // 0x1F801000-0x1F801020, stored-but-inert per §6
	MemCtrl2 uint32
	MDEC     [2]uint32

	SPU *SPU
	Mem *Memory

	CDROM CDROMStub
	SIO   SIOStub

	Console func(b byte) // expansion-2 passthrough to the host console
	Log     *logx.Logger

	// Now returns the current global guest cycle count, wired by the
	// dispatcher so timer register reads/writes interpolate against the
	// actual elapsed time rather than a fixed instant.
	Now func() uint64

	// RearmTimer is called after any register write that can change timer
	// idx's next latch-worthy deadline (value/mode/target), so the
	// scheduler's precise per-timer event (machine.go) can be rescheduled
	// instead of waiting for the next coarse HBlank re-sync. Nil is safe.
	RearmTimer func(idx int)

	gpuDrawCommands int
}

// DrainGPUDrawCommands returns and resets the GPU FIFO write count observed
// since the last call, for a host loop's per-field activity report.
func (hw *HWRegisters) DrainGPUDrawCommands() int {
	n := hw.gpuDrawCommands
	hw.gpuDrawCommands = 0
	return n
}

func NewHWRegisters(mem *Memory, spu *SPU, log *logx.Logger) *HWRegisters {
	hw := &HWRegisters{Mem: mem, SPU: spu, Log: log}
	for i := range hw.Timers {
		hw.Timers[i] = NewTimer(i)
	}
	for i := range hw.DMA {
		hw.DMA[i] = NewDMAChannel(DMAChannelIndex(i))
	}
	return hw
}

// RaiseIRQ sets a bit in I_STAT, matching real hardware's "write 0 to
// acknowledge" semantics: I_STAT is only ever OR'd by hardware, and cleared
// by the guest explicitly writing zero bits to it.
func (hw *HWRegisters) RaiseIRQ(bit uint32) {
	hw.IStat |= bit
}

// PendingInterrupt reports whether any enabled, asserted IRQ line is set,
// for Dispatcher.IRQLine (dispatch.go, §4.4 step 5).
func (hw *HWRegisters) PendingInterrupt() bool {
	return hw.IStat&hw.IMask != 0
}

func (hw *HWRegisters) ReadIO(addr uint32) uint32 {
	switch {
	case addr == portIStat:
		return hw.IStat
	case addr == portIMask:
		return hw.IMask
	case addr == portDPCR:
		return hw.DPCR
	case addr == portDICR:
		return hw.DICR
	case addr >= portDMABase && addr <= portDMAEnd:
		return hw.readDMA(addr)
	case addr >= portTimerBase && addr <= portTimerEnd:
		return hw.readTimer(addr)
	case addr >= portCDROMBase && addr <= portCDROMEnd:
		return hw.CDROM.Read(addr)
	case addr >= portSIOBase && addr <= portSIOEnd:
		return hw.SIO.Read(addr)
	case addr >= portSPUBase && addr <= portSPUEnd:
		return hw.readSPURegister(addr)
	case addr >= portMDECBase && addr <= portMDECEnd:
		return hw.MDEC[(addr-portMDECBase)/4]
	case addr >= portMemCtrl1 && addr < portMemCtrl1+9*4:
		return hw.MemCtrl1[(addr-portMemCtrl1)/4]
	case addr == portMemCtrl2:
		return hw.MemCtrl2
	case addr >= portGPUBase && addr <= portGPUEnd:
		return hw.readGPUStub(addr)
	default:
		return 0xFFFFFFFF
	}
}

func (hw *HWRegisters) WriteIO(addr uint32, value uint32, size int) {
	switch {
	case addr == portIStat:
		hw.IStat &= value // guest acknowledges by writing 0 bits
	case addr == portIMask:
		hw.IMask = value & 0x7FF
	case addr == portDPCR:
		hw.DPCR = value
	case addr == portDICR:
		hw.DICR = value
	case addr >= portDMABase && addr <= portDMAEnd:
		hw.writeDMA(addr, value)
	case addr >= portTimerBase && addr <= portTimerEnd:
		hw.writeTimer(addr, value)
	case addr >= portCDROMBase && addr <= portCDROMEnd:
		hw.CDROM.Write(addr, value)
	case addr >= portSIOBase && addr <= portSIOEnd:
		hw.SIO.Write(addr, value)
	case addr >= portSPUBase && addr <= portSPUEnd:
		hw.writeSPURegister(addr, value)
	case addr >= portMDECBase && addr <= portMDECEnd:
		hw.MDEC[(addr-portMDECBase)/4] = value
	case addr >= portMemCtrl1 && addr < portMemCtrl1+9*4:
		hw.MemCtrl1[(addr-portMemCtrl1)/4] = value
	case addr == portMemCtrl2:
		hw.MemCtrl2 = value
	case addr == portExpansion2:
		if hw.Console != nil {
			hw.Console(byte(value))
		}
	case addr >= portGPUBase && addr <= portGPUEnd:
		// GPU command/data FIFO: out of scope per the rasterizer Non-goal;
		// accepted and dropped so guest code polling GPUSTAT never stalls.
		// The write is still counted so a front end can report activity.
		hw.gpuDrawCommands++
	default:
		if hw.Log != nil {
			hw.Log.Debugf("unmapped I/O write addr=%#x value=%#x size=%d", addr, value, size)
		}
	}
}

func (hw *HWRegisters) readGPUStub(addr uint32) uint32 {
	if addr == portGPUBase+4 {
		return 1 << 28 // GPUSTAT ready-to-receive-cmd, so BIOS/game polling loops don't idle forever
	}
	return 0
}

func (hw *HWRegisters) now() uint64 {
	if hw.Now == nil {
		return 0
	}
	return hw.Now()
}

func (hw *HWRegisters) readTimer(addr uint32) uint32 {
	idx := (addr - portTimerBase) / 0x10
	if int(idx) >= len(hw.Timers) {
		return 0xFFFFFFFF
	}
	reg := (addr - portTimerBase) % 0x10
	t := hw.Timers[idx]
	switch reg {
	case 0x0:
		return t.ReadValue(hw.now())
	case 0x4:
		return t.Mode
	case 0x8:
		return t.Target
	default:
		return 0
	}
}

func (hw *HWRegisters) writeTimer(addr uint32, value uint32) {
	idx := (addr - portTimerBase) / 0x10
	if int(idx) >= len(hw.Timers) {
		return
	}
	reg := (addr - portTimerBase) % 0x10
	t := hw.Timers[idx]
	switch reg {
	case 0x0:
		t.WriteValue(value, hw.now())
	case 0x4:
		t.WriteMode(value, hw.now())
	case 0x8:
		t.WriteTarget(value)
	default:
		return
	}
	if hw.RearmTimer != nil {
		hw.RearmTimer(int(idx))
	}
}

var timerIRQBits = [3]uint32{irqTimer0, irqTimer1, irqTimer2}

// SyncTimerIRQs re-syncs every timer against now and raises the
// corresponding I_STAT bit for any that just latched an enabled IRQ
// condition. Called as a coarse fallback on every HBlank batch (machine.go)
// so a timer whose precise deadline was somehow never armed still latches
// within one HBlank batch instead of never at all.
func (hw *HWRegisters) SyncTimerIRQs(now uint64) {
	for i := range hw.Timers {
		hw.SyncTimerIRQ(i, now)
	}
}

// SyncTimerIRQ re-syncs a single timer against now, raising its I_STAT bit
// if an enabled IRQ condition just latched. This is the precision path: the
// scheduler's Timer0-2 events (machine.go) call it exactly at the cycle the
// timer's own NextEventCycles predicted, rather than waiting for the next
// HBlank batch.
func (hw *HWRegisters) SyncTimerIRQ(idx int, now uint64) {
	if hw.Timers[idx].RaiseIRQIfDue(now) {
		hw.RaiseIRQ(timerIRQBits[idx])
	}
}
