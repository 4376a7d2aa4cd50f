// memory.go - guest physical memory map (§6 External Interfaces, C2).
//
// Grounded on the teacher's memory_bus.go: a contiguous backing slice plus a
// small table of decoded regions, generalized from IE's generic IORegion
// page map to the PSX's small number of fixed-size regions. Every store
// routed through Write8/16/32 bumps the RAM page-generation counter so the
// block cache's SMC detection (block_cache.go) can observe it.

package psxcore

import "encoding/binary"

const (
	ramSize      = 2 * 1024 * 1024   // 2 MB; 2-8 MB is not mirrored and reads as unmapped
	ramPageSize  = 0x400             // SMC generation granularity: 1 KB pages
	ramPageCount = ramSize / ramPageSize
	biosSize     = 512 * 1024

	ioBase = 0x1F801000
	ioEnd  = 0x1F802FFF

	expansion1Base = 0x1F000000
	expansion1End  = 0x1F7FFFFF

	biosBase = 0x1FC00000
	biosEnd  = biosBase + biosSize - 1
)

// IOPorts is implemented by the hardware-register façade (hw_registers.go)
// and wired into Memory at machine construction time.
type IOPorts interface {
	ReadIO(addr uint32) uint32
	WriteIO(addr uint32, value uint32, size int)
}

// Memory is the guest physical address space: RAM, BIOS ROM, and the I/O
// port range. Addresses are expected already stripped of the KUSEG/KSEG
// segment bits by the caller (translator.go / dispatch.go), since the GTE
// and CPU only ever see physical addresses in this core's simplified model.
type Memory struct {
	RAM  [ramSize]byte
	BIOS [biosSize]byte

	ramPageGen [ramPageCount]uint32

	IO IOPorts
}

func NewMemory() *Memory {
	return &Memory{}
}

// pageGen returns the current SMC generation counter for the RAM page
// containing addr; callers outside RAM get generation 0 (BIOS/ROM is
// immutable, so it never needs invalidation).
func (m *Memory) pageGen(addr uint32) uint32 {
	if addr >= ramSize {
		return 0
	}
	return m.ramPageGen[addr/ramPageSize]
}

func (m *Memory) bumpPageGen(addr uint32) {
	if addr < ramSize {
		m.ramPageGen[addr/ramPageSize]++
	}
}

// PageGeneration exposes the RAM page generation for a guest physical
// address, used by the block cache's compile-time/run-time comparison.
func (m *Memory) PageGeneration(addr uint32) uint32 { return m.pageGen(addr) }

func (m *Memory) Read8(addr uint32) uint8 {
	switch {
	case addr < ramSize:
		return m.RAM[addr]
	case addr >= biosBase && addr <= biosEnd:
		return m.BIOS[addr-biosBase]
	case addr >= ioBase && addr <= ioEnd:
		return uint8(m.IO.ReadIO(addr))
	default:
		return 0xFF
	}
}

func (m *Memory) Read16(addr uint32) uint16 {
	switch {
	case addr < ramSize:
		return binary.LittleEndian.Uint16(m.RAM[addr:])
	case addr >= biosBase && addr <= biosEnd:
		return binary.LittleEndian.Uint16(m.BIOS[addr-biosBase:])
	case addr >= ioBase && addr <= ioEnd:
		return uint16(m.IO.ReadIO(addr))
	default:
		return 0xFFFF
	}
}

func (m *Memory) Read32(addr uint32) uint32 {
	switch {
	case addr < ramSize:
		return binary.LittleEndian.Uint32(m.RAM[addr:])
	case addr >= biosBase && addr <= biosEnd:
		return binary.LittleEndian.Uint32(m.BIOS[addr-biosBase:])
	case addr >= ioBase && addr <= ioEnd:
		return m.IO.ReadIO(addr)
	case addr >= expansion1Base && addr <= expansion1End:
		return 0xFFFFFFFF // open bus
	default:
		return 0xFFFFFFFF
	}
}

func (m *Memory) Write8(addr uint32, v uint8) {
	switch {
	case addr < ramSize:
		m.RAM[addr] = v
		m.bumpPageGen(addr)
	case addr >= ioBase && addr <= ioEnd:
		m.IO.WriteIO(addr, uint32(v), 1)
	case addr >= biosBase && addr <= biosEnd:
		// BIOS ROM: writes ignored.
	default:
		// unmapped: ignored
	}
}

func (m *Memory) Write16(addr uint32, v uint16) {
	switch {
	case addr < ramSize:
		binary.LittleEndian.PutUint16(m.RAM[addr:], v)
		m.bumpPageGen(addr)
	case addr >= ioBase && addr <= ioEnd:
		m.IO.WriteIO(addr, uint32(v), 2)
	case addr >= biosBase && addr <= biosEnd:
	default:
	}
}

func (m *Memory) Write32(addr uint32, v uint32) {
	switch {
	case addr < ramSize:
		binary.LittleEndian.PutUint32(m.RAM[addr:], v)
		m.bumpPageGen(addr)
	case addr >= ioBase && addr <= ioEnd:
		m.IO.WriteIO(addr, v, 4)
	case addr >= biosBase && addr <= biosEnd:
	default:
	}
}

// PeekByte and PokeByte satisfy internal/cheats.Memory, giving a Lua cheat
// script the same guest-physical-address view the CPU has.
func (m *Memory) PeekByte(addr uint32) byte    { return m.Read8(addr) }
func (m *Memory) PokeByte(addr uint32, v byte) { m.Write8(addr, v) }

// LoadBIOS copies a raw BIOS ROM image (expected exactly biosSize bytes,
// truncated/zero-padded otherwise) into the BIOS region.
func (m *Memory) LoadBIOS(image []byte) {
	n := copy(m.BIOS[:], image)
	for i := n; i < biosSize; i++ {
		m.BIOS[i] = 0
	}
}

// Reset zeroes RAM and the page-generation table; BIOS contents are left
// intact since it is loaded once at startup and never mutated by the guest.
func (m *Memory) Reset() {
	for i := range m.RAM {
		m.RAM[i] = 0
	}
	for i := range m.ramPageGen {
		m.ramPageGen[i] = 0
	}
}
