// code_arena.go - backing store for compiled-block metadata (C3).
//
// This core's "translated code" is a Go closure (see translator.go), so there
// is no machine code to mark executable the way a classic JIT would. What
// still needs the W^X discipline is the compact per-block descriptor table
// the dispatch loop indexes into on every branch: it is written only while
// compiling a block and must never be mutated by the hot dispatch path.
// That boundary is modeled the way the pack's gokvm wires an anonymous
// mapping (kvm/kvm.go's guest-memory Mmap), generalized from one big
// read/write region to an arena that is flipped read-only once a block
// lands in it, using golang.org/x/sys/unix instead of the ambient syscall
// package the pack example called through directly.

package psxcore

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// arenaSlotSize is the fixed size in bytes of one descriptor slot: entry PC,
// source hash, RAM page generation at compile time, instruction count and
// flags. The dispatch path never reads the values back out of the mapping
// (the real block lives in block, see block.go; only readDescriptor, used
// by the tests, reads a slot) - the mapping exists purely to exercise and
// enforce the write-then-seal lifecycle a native code cache would need.
const arenaSlotSize = 32

// codeArena is a fixed-capacity array of descriptor slots, filled in order
// until reset (reserve fails once every slot is used), backed by an
// anonymous mmap so the write/seal transition goes through real page
// protection rather than a convention callers could accidentally violate.
type codeArena struct {
	mem    []byte
	slots  int
	cursor int
	sealed bool
	mmaped bool // true when mem came from unix.Mmap and must be Munmap'd
}

// newCodeArena reserves capacity for the given number of block descriptors.
// On platforms where the anonymous mapping can't be created, falls back to
// a plain Go slice: the protection transition becomes a no-op, but the
// slot bookkeeping behaves identically.
func newCodeArena(slots int) (*codeArena, error) {
	size := slots * arenaSlotSize
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return &codeArena{mem: make([]byte, size), slots: slots}, nil
	}
	return &codeArena{mem: mem, slots: slots, mmaped: true}, nil
}

// reserve hands back the next free slot index, unsealing the arena for
// writes if it had been sealed by a previous compile/seal cycle.
func (a *codeArena) reserve() (int, error) {
	if a.cursor >= a.slots {
		return 0, fmt.Errorf("code arena exhausted: %d slots in use", a.slots)
	}
	if a.sealed {
		if err := a.unseal(); err != nil {
			return 0, err
		}
	}
	idx := a.cursor
	a.cursor++
	return idx, nil
}

// writeDescriptor stamps a block's metadata into its reserved slot.
func (a *codeArena) writeDescriptor(slot int, entryPC, sourceHash, pageGen uint32, instrCount uint16, flags uint16) {
	off := slot * arenaSlotSize
	putU32(a.mem[off:], entryPC)
	putU32(a.mem[off+4:], sourceHash)
	putU32(a.mem[off+8:], pageGen)
	putU16(a.mem[off+12:], instrCount)
	putU16(a.mem[off+14:], flags)
}

func (a *codeArena) readDescriptor(slot int) (entryPC, sourceHash, pageGen uint32, instrCount, flags uint16) {
	off := slot * arenaSlotSize
	return getU32(a.mem[off:]), getU32(a.mem[off+4:]), getU32(a.mem[off+8:]),
		getU16(a.mem[off+12:]), getU16(a.mem[off+14:])
}

// seal flips the arena to PROT_READ, so anything downstream of the compiler
// that touches the descriptor table can only read it until the next reserve.
func (a *codeArena) seal() error {
	if a.sealed {
		return nil
	}
	if a.mmaped {
		if err := unix.Mprotect(a.mem, unix.PROT_READ); err != nil {
			return err
		}
	}
	a.sealed = true
	return nil
}

func (a *codeArena) unseal() error {
	if a.mmaped {
		if err := unix.Mprotect(a.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return err
		}
	}
	a.sealed = false
	return nil
}

// reset drops every descriptor and rewinds the cursor; blockCache.Reset
// calls it when the whole block cache is flushed.
func (a *codeArena) reset() error {
	if a.sealed {
		if err := a.unseal(); err != nil {
			return err
		}
	}
	a.cursor = 0
	for i := range a.mem {
		a.mem[i] = 0
	}
	return nil
}

func (a *codeArena) close() error {
	if a.mmaped {
		return unix.Munmap(a.mem)
	}
	return nil
}

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putU16(b []byte, v uint16) {
	b[0], b[1] = byte(v), byte(v>>8)
}

func getU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
