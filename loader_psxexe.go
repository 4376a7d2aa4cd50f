// loader_psxexe.go - PSX-EXE loader (§6).
//
// Grounded on the teacher's media_loader.go (binary-header parsing via
// encoding/binary into a fixed struct, then a bounds-checked bulk copy into
// guest memory).

package psxcore

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const psxExeHeaderSize = 2048

var psxExeMagic = [8]byte{'P', 'S', '-', 'X', ' ', 'E', 'X', 'E'}

var ErrBadPSXEXE = errors.New("psxcore: not a valid PS-X EXE image")

// PSXEXEHeader is the 2048-byte PSX-EXE header (§6), the fields this core
// actually consumes; the data/BSS descriptors and the 64-byte identifier
// are parsed but unused in practice, matching the spec's own note.
type PSXEXEHeader struct {
	InitialPC    uint32
	InitialGP    uint32
	TextDestAddr uint32
	TextSize     uint32
	DataDestAddr uint32
	DataSize     uint32
	BSSDestAddr  uint32
	BSSSize      uint32
	InitialSP    uint32
	SPSize       uint32
	Identifier   [64]byte
}

// LoadPSXEXE parses a PSX-EXE image and installs its text section into RAM,
// returning the header so the boot hook can seed CPU registers.
func LoadPSXEXE(mem *Memory, image []byte) (*PSXEXEHeader, error) {
	if len(image) < psxExeHeaderSize {
		return nil, fmt.Errorf("%w: image too short (%d bytes)", ErrBadPSXEXE, len(image))
	}
	var magic [8]byte
	copy(magic[:], image[:8])
	if magic != psxExeMagic {
		return nil, ErrBadPSXEXE
	}

	h := &PSXEXEHeader{
		InitialPC:    binary.LittleEndian.Uint32(image[0x10:]),
		InitialGP:    binary.LittleEndian.Uint32(image[0x14:]),
		TextDestAddr: binary.LittleEndian.Uint32(image[0x18:]),
		TextSize:     binary.LittleEndian.Uint32(image[0x1C:]),
		DataDestAddr: binary.LittleEndian.Uint32(image[0x20:]),
		DataSize:     binary.LittleEndian.Uint32(image[0x24:]),
		BSSDestAddr:  binary.LittleEndian.Uint32(image[0x28:]),
		BSSSize:      binary.LittleEndian.Uint32(image[0x2C:]),
		InitialSP:    binary.LittleEndian.Uint32(image[0x30:]),
		SPSize:       binary.LittleEndian.Uint32(image[0x34:]),
	}
	copy(h.Identifier[:], image[0x4C:0x8C])

	text := image[psxExeHeaderSize:]
	if uint32(len(text)) < h.TextSize {
		return nil, fmt.Errorf("%w: text section truncated (want %d, have %d)", ErrBadPSXEXE, h.TextSize, len(text))
	}
	dest := h.TextDestAddr & (ramSize - 1)
	for i := uint32(0); i < h.TextSize; i++ {
		mem.Write8((dest+i)&(ramSize-1), text[i])
	}

	return h, nil
}

// InstallPSXEXE seeds a CPU's PC, GP and SP from a parsed header, the
// bootstrap handoff a BIOS-address hook performs once the loader has
// copied the text section in.
func InstallPSXEXE(cpu *CPUState, h *PSXEXEHeader) {
	cpu.PC = h.InitialPC
	cpu.CurrentPC = h.InitialPC
	cpu.SetGPR(28, h.InitialGP) // $gp
	if h.InitialSP != 0 {
		cpu.SetGPR(29, h.InitialSP) // $sp
	}
}
