package psxcore

import (
	"encoding/binary"
	"testing"
)

func buildPSXEXE(t *testing.T, pc, gp, textDest uint32, text []byte) []byte {
	t.Helper()
	img := make([]byte, psxExeHeaderSize+len(text))
	copy(img[:8], psxExeMagic[:])
	binary.LittleEndian.PutUint32(img[0x10:], pc)
	binary.LittleEndian.PutUint32(img[0x14:], gp)
	binary.LittleEndian.PutUint32(img[0x18:], textDest)
	binary.LittleEndian.PutUint32(img[0x1C:], uint32(len(text)))
	binary.LittleEndian.PutUint32(img[0x30:], 0x801FFF00) // initial SP
	copy(img[psxExeHeaderSize:], text)
	return img
}

func TestLoadPSXEXERejectsBadMagic(t *testing.T) {
	mem := NewMemory()
	img := make([]byte, psxExeHeaderSize)
	if _, err := LoadPSXEXE(mem, img); err == nil {
		t.Fatal("LoadPSXEXE with zeroed header succeeded, want ErrBadPSXEXE")
	}
}

func TestLoadPSXEXERejectsShortImage(t *testing.T) {
	mem := NewMemory()
	if _, err := LoadPSXEXE(mem, []byte{1, 2, 3}); err == nil {
		t.Fatal("LoadPSXEXE with a too-short image succeeded, want an error")
	}
}

func TestLoadPSXEXECopiesTextSectionIntoRAM(t *testing.T) {
	mem := NewMemory()
	text := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	img := buildPSXEXE(t, 0x80010000, 0x80020000, 0x80010000, text)

	h, err := LoadPSXEXE(mem, img)
	if err != nil {
		t.Fatalf("LoadPSXEXE: %v", err)
	}
	if h.InitialPC != 0x80010000 {
		t.Fatalf("InitialPC = %#x, want 0x80010000", h.InitialPC)
	}
	for i, b := range text {
		if got := mem.Read8(0x10000 + uint32(i)); got != b {
			t.Fatalf("RAM[%#x] = %#x, want %#x", 0x10000+i, got, b)
		}
	}
}

func TestLoadPSXEXETruncatedTextIsRejected(t *testing.T) {
	mem := NewMemory()
	img := make([]byte, psxExeHeaderSize)
	copy(img[:8], psxExeMagic[:])
	binary.LittleEndian.PutUint32(img[0x1C:], 100) // claims 100 bytes of text, image has none
	if _, err := LoadPSXEXE(mem, img); err == nil {
		t.Fatal("LoadPSXEXE with truncated text section succeeded, want an error")
	}
}

func TestInstallPSXEXESeedsRegisters(t *testing.T) {
	cpu := NewCPUState()
	h := &PSXEXEHeader{InitialPC: 0x80010000, InitialGP: 0x80020000, InitialSP: 0x801FFF00}
	InstallPSXEXE(cpu, h)

	if cpu.PC != h.InitialPC || cpu.CurrentPC != h.InitialPC {
		t.Fatalf("PC/CurrentPC = %#x/%#x, want both %#x", cpu.PC, cpu.CurrentPC, h.InitialPC)
	}
	if cpu.GPR[28] != h.InitialGP {
		t.Fatalf("$gp = %#x, want %#x", cpu.GPR[28], h.InitialGP)
	}
	if cpu.GPR[29] != h.InitialSP {
		t.Fatalf("$sp = %#x, want %#x", cpu.GPR[29], h.InitialSP)
	}
}

func TestInstallPSXEXELeavesSPUnchangedWhenZero(t *testing.T) {
	cpu := NewCPUState()
	cpu.GPR[29] = 0xAAAAAAAA
	h := &PSXEXEHeader{InitialPC: 0x80010000, InitialSP: 0}
	InstallPSXEXE(cpu, h)
	if cpu.GPR[29] != 0xAAAAAAAA {
		t.Fatalf("$sp = %#x, want unchanged 0xAAAAAAAA when header SP is 0", cpu.GPR[29])
	}
}
