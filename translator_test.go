package psxcore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kamalan-labs/psxcore/internal/logx"
)

// rsRtInstr builds a register-only instruction word (opcode/funct left at
// zero) with just the Rs/Rt fields set, enough to drive the step functions
// under test without a full encoder.
func rsRtInstr(rs, rt int) mipsInstr {
	return mipsInstr(uint32(rs)<<21 | uint32(rt)<<16)
}

// TestLWLMergesHighOrderBytesByAlignment exercises the unaligned-load-merge
// path the decoder silently dropped (LWL), for all four low-address-bit
// alignments, against the known aligned word 0x11223344 merged into the
// pre-existing register value 0xAABBCCDD.
func TestLWLMergesHighOrderBytesByAlignment(t *testing.T) {
	cases := []struct {
		shift uint32
		want  uint32
	}{
		{0, 0x44BBCCDD},
		{1, 0x3344CCDD},
		{2, 0x223344DD},
		{3, 0x11223344},
	}
	for _, c := range cases {
		mem := NewMemory()
		mem.Write32(0x100, 0x11223344)

		cpu := NewCPUState()
		cpu.GPR[4] = 0x100 + c.shift
		cpu.SetGPR(5, 0xAABBCCDD)

		s := lwlStep(rsRtInstr(4, 5))
		if _, _, exit, ok := s(cpu, mem); exit != exitFallthrough || !ok {
			t.Fatalf("shift=%d: lwlStep returned (%v,%v), want (exitFallthrough,true)", c.shift, exit, ok)
		}
		if cpu.GPR[5] != c.want {
			t.Fatalf("shift=%d: LWL result = %#x, want %#x", c.shift, cpu.GPR[5], c.want)
		}
	}
}

// TestLWRMergesLowOrderBytesByAlignment is LWL's mirror image.
func TestLWRMergesLowOrderBytesByAlignment(t *testing.T) {
	cases := []struct {
		shift uint32
		want  uint32
	}{
		{0, 0x11223344},
		{1, 0xAA112233},
		{2, 0xAABB1122},
		{3, 0xAABBCC11},
	}
	for _, c := range cases {
		mem := NewMemory()
		mem.Write32(0x100, 0x11223344)

		cpu := NewCPUState()
		cpu.GPR[4] = 0x100 + c.shift
		cpu.SetGPR(5, 0xAABBCCDD)

		s := lwrStep(rsRtInstr(4, 5))
		if _, _, exit, ok := s(cpu, mem); exit != exitFallthrough || !ok {
			t.Fatalf("shift=%d: lwrStep returned (%v,%v), want (exitFallthrough,true)", c.shift, exit, ok)
		}
		if cpu.GPR[5] != c.want {
			t.Fatalf("shift=%d: LWR result = %#x, want %#x", c.shift, cpu.GPR[5], c.want)
		}
	}
}

// TestSWLMergesHighOrderBytesByAlignment stores rt's high-order bytes into
// the low-order side of the aligned word, the write-side mirror of LWL.
func TestSWLMergesHighOrderBytesByAlignment(t *testing.T) {
	cases := []struct {
		shift uint32
		want  uint32
	}{
		{0, 0xAABBCC11},
		{1, 0xAABB1122},
		{2, 0xAA112233},
		{3, 0x11223344},
	}
	for _, c := range cases {
		mem := NewMemory()
		mem.Write32(0x100, 0xAABBCCDD)

		cpu := NewCPUState()
		cpu.GPR[4] = 0x100 + c.shift
		cpu.SetGPR(5, 0x11223344)

		s := swlStep(rsRtInstr(4, 5))
		if _, _, exit, ok := s(cpu, mem); exit != exitFallthrough || !ok {
			t.Fatalf("shift=%d: swlStep returned (%v,%v), want (exitFallthrough,true)", c.shift, exit, ok)
		}
		if got := mem.Read32(0x100); got != c.want {
			t.Fatalf("shift=%d: SWL result = %#x, want %#x", c.shift, got, c.want)
		}
	}
}

// TestSWRMergesLowOrderBytesByAlignment is SWL's mirror image.
func TestSWRMergesLowOrderBytesByAlignment(t *testing.T) {
	cases := []struct {
		shift uint32
		want  uint32
	}{
		{0, 0x11223344},
		{1, 0x223344DD},
		{2, 0x3344CCDD},
		{3, 0x44BBCCDD},
	}
	for _, c := range cases {
		mem := NewMemory()
		mem.Write32(0x100, 0xAABBCCDD)

		cpu := NewCPUState()
		cpu.GPR[4] = 0x100 + c.shift
		cpu.SetGPR(5, 0x11223344)

		s := swrStep(rsRtInstr(4, 5))
		if _, _, exit, ok := s(cpu, mem); exit != exitFallthrough || !ok {
			t.Fatalf("shift=%d: swrStep returned (%v,%v), want (exitFallthrough,true)", c.shift, exit, ok)
		}
		if got := mem.Read32(0x100); got != c.want {
			t.Fatalf("shift=%d: SWR result = %#x, want %#x", c.shift, got, c.want)
		}
	}
}

// TestDecodeStepRoutesUnalignedMergeOpcodes confirms decodeStep's switch
// actually reaches the LWL/LWR/SWL/SWR closures instead of falling through
// to the unknown-opcode no-op, since that wiring (not just the step
// functions themselves) is what the decoder was missing.
func TestDecodeStepRoutesUnalignedMergeOpcodes(t *testing.T) {
	mem := NewMemory()
	mem.Write32(0x100, 0x11223344)

	for _, op := range []uint32{opLWL, opLWR, opSWL, opSWR} {
		instr := mipsInstr(op<<26 | uint32(4)<<21 | uint32(5)<<16)
		cpu := NewCPUState()
		cpu.GPR[4] = 0x100
		cpu.SetGPR(5, 0xAABBCCDD)

		s := decodeStep(instr, 0, nil)
		if _, _, exit, ok := s(cpu, mem); exit != exitFallthrough || !ok {
			t.Fatalf("opcode %#x: decodeStep step returned (%v,%v), want (exitFallthrough,true)", op, exit, ok)
		}
	}
}

// TestJRStepExitsAsIndirectJump confirms JR reports exitIndirectJump (so the
// dispatcher routes it through the block cache's indirect table) rather than
// the static exitBranchTaken used by J/JAL/conditional branches.
func TestJRStepExitsAsIndirectJump(t *testing.T) {
	cpu := NewCPUState()
	mem := NewMemory()
	cpu.GPR[4] = 0x8000

	instr := mipsInstr(uint32(4)<<21 | funcJR)
	s := decodeSpecial(instr, 0, nil)
	branchTo, branched, exit, ok := s(cpu, mem)
	if !ok || !branched || exit != exitIndirectJump || branchTo != 0x8000 {
		t.Fatalf("JR step = (%#x,%v,%v,%v), want (0x8000,true,exitIndirectJump,true)", branchTo, branched, exit, ok)
	}
}

// TestJALRStepLinksAndExitsAsIndirectJump is JR's linking counterpart.
func TestJALRStepLinksAndExitsAsIndirectJump(t *testing.T) {
	cpu := NewCPUState()
	mem := NewMemory()
	cpu.GPR[4] = 0x8000
	cpu.CurrentPC = 0x1000

	instr := mipsInstr(uint32(4)<<21 | uint32(6)<<11 | funcJALR)
	s := decodeSpecial(instr, 0, nil)
	branchTo, branched, exit, ok := s(cpu, mem)
	if !ok || !branched || exit != exitIndirectJump || branchTo != 0x8000 {
		t.Fatalf("JALR step = (%#x,%v,%v,%v), want (0x8000,true,exitIndirectJump,true)", branchTo, branched, exit, ok)
	}
	if cpu.GPR[6] != 0x1008 {
		t.Fatalf("link register = %#x, want 0x1008", cpu.GPR[6])
	}
}

// TestDecodeStepLogsUnknownOpcodeThroughProvidedLogger confirms the default
// branch actually calls Logger.UnknownOpcode instead of silently no-opping,
// and that the step it returns is still a harmless fallthrough.
func TestDecodeStepLogsUnknownOpcodeThroughProvidedLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logx.New(&buf, false)

	const reservedOpcode = 0x3F // not one of mips_decode.go's defined primary opcodes
	instr := mipsInstr(reservedOpcode << 26)

	cpu := NewCPUState()
	mem := NewMemory()
	s := decodeStep(instr, 0x1000, log)
	branchTo, branched, exit, ok := s(cpu, mem)
	if branched || exit != exitFallthrough || !ok {
		t.Fatalf("unknown opcode step = (%#x,%v,%v,%v), want a plain fallthrough no-op", branchTo, branched, exit, ok)
	}
	if !strings.Contains(buf.String(), "unknown opcode") {
		t.Fatal("decodeStep's default branch did not log the unrecognized opcode")
	}
}

// TestDecodeStepUnknownOpcodeLoggingRespectsCap confirms the cap from §7's
// policy is honored when the same unrecognized word recurs past the
// logger's limit, rather than flooding the log once per occurrence forever.
func TestDecodeStepUnknownOpcodeLoggingRespectsCap(t *testing.T) {
	var buf bytes.Buffer
	log := logx.New(&buf, false)

	const reservedOpcode = 0x3F
	instr := mipsInstr(reservedOpcode << 26)
	cpu := NewCPUState()
	mem := NewMemory()

	for i := 0; i < 20; i++ {
		decodeStep(instr, 0x1000, log)(cpu, mem)
	}

	if n := strings.Count(buf.String(), "unknown opcode"); n != 8 {
		t.Fatalf("logged %d times across 20 decodes of the same word, want capped at 8", n)
	}
}
