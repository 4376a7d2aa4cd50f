// translator.go - MIPS R3000A block compiler (C4).
//
// There is no portable way to emit and execute raw native instructions from
// pure Go without cgo, so "compiling a block" here means decoding a run of
// guest words exactly once into a small slice of already-resolved Go
// closures, then returning a block whose run() replays that slice on every
// hit. The cache (block_cache.go) is what buys back the decode cost a real
// dynarec would save by emitting machine code; the payoff is the same, the
// expression is the idiomatic Go one. Grounded on the teacher's cpu_ie32.go
// per-opcode dispatch table, generalized to MIPS and to block-at-a-time
// granularity instead of instruction-at-a-time.

package psxcore

import (
	"hash/fnv"

	"github.com/kamalan-labs/psxcore/internal/logx"
)

const maxBlockInstrs = 96

// step is one pre-decoded instruction's effect: it mutates cpu/mem, reports
// how many cycles it took, and optionally forces a branch target (valid
// only on the last instruction of a block, i.e. the delay-slot instruction).
type step func(cpu *CPUState, mem *Memory) (branchTo uint32, branched bool, exit blockExit, ok bool)

// compileBlock decodes guest words starting at pc into a block. Decoding
// stops after a branch's delay slot, or at maxBlockInstrs, whichever comes
// first; COP0/COP2 usability is resolved per-instruction at run time (SR
// can change between compiles), not baked into the decode.
func compileBlock(mem *Memory, pc uint32, log *logx.Logger) *block {
	var steps []step
	var pcs []uint32
	var rawWords []uint32

	cur := pc
	for len(steps) < maxBlockInstrs {
		word := mem.Read32(cur)
		rawWords = append(rawWords, word)
		instr := mipsInstr(word)
		s := decodeStep(instr, cur, log)
		steps = append(steps, s)
		pcs = append(pcs, cur)

		if isBranch(instr) {
			// emit exactly one more instruction: the delay slot, then stop.
			delayWord := mem.Read32(cur + 4)
			rawWords = append(rawWords, delayWord)
			steps = append(steps, decodeStep(mipsInstr(delayWord), cur+4, log))
			pcs = append(pcs, cur+4)
			cur += 8
			break
		}
		cur += 4
	}

	b := &block{
		entryPC:    pc,
		sourceHash: hashWords(rawWords),
		pageGen:    mem.PageGeneration(pc),
		instrCount: len(steps),
	}
	detectIdleAndPoll(b, rawWords)
	b.run = makeRunner(steps, pcs, cur)
	return b
}

func hashWords(words []uint32) uint32 {
	h := fnv.New32a()
	buf := make([]byte, 4)
	for _, w := range words {
		buf[0], buf[1], buf[2], buf[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
		h.Write(buf)
	}
	return h.Sum32()
}

// detectIdleAndPoll flags a single branch back to itself over a nop delay
// slot ("beq rs,rs,-1; nop") as an idle loop, which lets the dispatch loop
// fast-forward the scheduler instead of spinning. Only two-word blocks are
// examined, and compileBlock ends a block at two words only after a branch,
// so the load-opcode check below never matches and isPoll is never set here.
func detectIdleAndPoll(b *block, words []uint32) {
	if len(words) != 2 {
		return
	}
	instr := mipsInstr(words[0])
	delay := mipsInstr(words[1])
	if instr.Opcode() == opBEQ && instr.Rs() == instr.Rt() && instr.ImmS() == -1 && delay == 0 {
		b.isIdleLoop = true
		return
	}
	switch instr.Opcode() {
	case opLW, opLH, opLHU, opLB, opLBU:
		b.isPoll = true
	}
}

// makeRunner closes over the pre-decoded steps and returns the block's run
// function. fallthroughPC is where control goes if no step forces a branch
// (i.e. a branch-not-taken or a block that hit maxBlockInstrs without one).
// pcs holds each step's own guest address: cpu.CurrentPC is re-pinned to it
// before every step runs, so a mid-block branch/link/exception computes its
// PC-relative target or EPC from the instruction that actually produced it,
// not from the block's entry address. The step's own exit code is returned
// verbatim on a forced branch, so callers can tell a computed JR/JALR
// dispatch (exitIndirectJump) apart from a statically targeted branch/jump
// (exitBranchTaken) or a mid-block exception (exitCop0Exception,
// exitSyscallOrBreak).
func makeRunner(steps []step, pcs []uint32, fallthroughPC uint32) func(*CPUState, *Memory) (int32, uint32, blockExit) {
	return func(cpu *CPUState, mem *Memory) (int32, uint32, blockExit) {
		var cycles int32
		for i, s := range steps {
			cpu.CurrentPC = pcs[i]
			branchTo, branched, exit, ok := s(cpu, mem)
			cycles++
			cpu.RetireLoadDelay()
			if !ok {
				return cycles, cpu.PC, exit
			}
			if branched {
				return cycles, branchTo, exit
			}
		}
		return cycles, fallthroughPC, exitFallthrough
	}
}

// decodeStep resolves one instruction word into its step closure. Unknown
// or reserved encodings are logged on every decode, up to the logger's
// per-word cap (§7), and decode to a no-op that still advances cycles, since guest BIOS
// images occasionally execute padding words in practice.
func decodeStep(instr mipsInstr, pc uint32, log *logx.Logger) step {
	switch instr.Opcode() {
	case opSPECIAL:
		return decodeSpecial(instr, pc, log)
	case opREGIMM:
		return decodeRegimm(instr)
	case opJ:
		target := instr.Target()
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			base := (cpu.CurrentPC + 4) &^ 0x0FFFFFFF
			return base | (target << 2), true, exitBranchTaken, true
		}
	case opJAL:
		target := instr.Target()
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(31, cpu.CurrentPC+8)
			base := (cpu.CurrentPC + 4) &^ 0x0FFFFFFF
			return base | (target << 2), true, exitBranchTaken, true
		}
	case opBEQ:
		return branchStep(instr, func(cpu *CPUState) bool {
			return cpu.GPR[instr.Rs()] == cpu.GPR[instr.Rt()]
		})
	case opBNE:
		return branchStep(instr, func(cpu *CPUState) bool {
			return cpu.GPR[instr.Rs()] != cpu.GPR[instr.Rt()]
		})
	case opBLEZ:
		return branchStep(instr, func(cpu *CPUState) bool {
			return int32(cpu.GPR[instr.Rs()]) <= 0
		})
	case opBGTZ:
		return branchStep(instr, func(cpu *CPUState) bool {
			return int32(cpu.GPR[instr.Rs()]) > 0
		})
	case opADDI:
		return aluImmStep(instr, true, func(a int32, imm int32) (int32, bool) {
			sum := a + imm
			return sum, addOverflow(a, imm, sum)
		})
	case opADDIU:
		return aluImmStep(instr, false, func(a int32, imm int32) (int32, bool) { return a + imm, false })
	case opSLTI:
		return aluImmStep(instr, false, func(a int32, imm int32) (int32, bool) {
			if a < imm {
				return 1, false
			}
			return 0, false
		})
	case opSLTIU:
		return aluImmUnsignedStep(instr, func(a, imm uint32) uint32 {
			if a < imm {
				return 1
			}
			return 0
		})
	case opANDI:
		return aluImmUnsignedStep(instr, func(a, imm uint32) uint32 { return a & imm })
	case opORI:
		return aluImmUnsignedStep(instr, func(a, imm uint32) uint32 { return a | imm })
	case opXORI:
		return aluImmUnsignedStep(instr, func(a, imm uint32) uint32 { return a ^ imm })
	case opLUI:
		rt := instr.Rt()
		imm := instr.ImmU()
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rt, imm<<16)
			return 0, false, exitFallthrough, true
		}
	case opCOP0:
		return decodeCop0(instr, pc, log)
	case opCOP2:
		return decodeCop2(instr, pc, log)
	case opLB:
		return loadStep(instr, func(mem *Memory, addr uint32) uint32 { return uint32(int32(int8(mem.Read8(addr)))) })
	case opLBU:
		return loadStep(instr, func(mem *Memory, addr uint32) uint32 { return uint32(mem.Read8(addr)) })
	case opLH:
		return loadStep(instr, func(mem *Memory, addr uint32) uint32 { return uint32(int32(int16(mem.Read16(addr)))) })
	case opLHU:
		return loadStep(instr, func(mem *Memory, addr uint32) uint32 { return uint32(mem.Read16(addr)) })
	case opLW:
		return loadStep(instr, func(mem *Memory, addr uint32) uint32 { return mem.Read32(addr) })
	case opLWL:
		return lwlStep(instr)
	case opLWR:
		return lwrStep(instr)
	case opSB:
		return storeStep(instr, func(mem *Memory, addr uint32, v uint32) { mem.Write8(addr, uint8(v)) })
	case opSH:
		return storeStep(instr, func(mem *Memory, addr uint32, v uint32) { mem.Write16(addr, uint16(v)) })
	case opSW:
		return storeStep(instr, func(mem *Memory, addr uint32, v uint32) { mem.Write32(addr, v) })
	case opSWL:
		return swlStep(instr)
	case opSWR:
		return swrStep(instr)
	case opLWC2:
		rt, imm, rs := instr.Rt(), instr.ImmS(), instr.Rs()
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			addr := uint32(int32(cpu.GPR[rs]) + imm)
			cpu.GTE.writeData(rt, mem.Read32(addr))
			return 0, false, exitFallthrough, true
		}
	case opSWC2:
		rt, imm, rs := instr.Rt(), instr.ImmS(), instr.Rs()
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			addr := uint32(int32(cpu.GPR[rs]) + imm)
			mem.Write32(addr, cpu.GTE.readData(rt))
			return 0, false, exitFallthrough, true
		}
	default:
		return unknownOpcodeStep(log, pc, instr)
	}
}

func noopStep(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
	return 0, false, exitFallthrough, true
}

// unknownOpcodeStep reports an unrecognized or reserved encoding through the
// logger's per-word capped reporting (§7) and falls back to a no-op,
// rather than aborting the block: guest BIOS images occasionally execute
// reserved padding words in practice.
func unknownOpcodeStep(log *logx.Logger, pc uint32, instr mipsInstr) step {
	if log != nil {
		log.UnknownOpcode(pc, uint32(instr))
	}
	return noopStep
}

// lwlMask/lwrMask/swlMask/swrMask are indexed by the low two bits of the
// unaligned effective address, encoding how many bytes of the aligned word
// at that address fall on the "left" (most significant, for LWL/SWL) or
// "right" (least significant, for LWR/SWR) side of the boundary.
var (
	lwlMask = [4]uint32{0x00FFFFFF, 0x0000FFFF, 0x000000FF, 0x00000000}
	lwrMask = [4]uint32{0x00000000, 0xFF000000, 0xFFFF0000, 0xFFFFFF00}
	swlMask = [4]uint32{0xFFFFFF00, 0xFFFF0000, 0xFF000000, 0x00000000}
	swrMask = [4]uint32{0x00000000, 0x000000FF, 0x0000FFFF, 0x00FFFFFF}
)

// lwlStep merges the most-significant 1-4 bytes of the aligned word
// containing addr into rt's high-order bytes, preserving rt's low-order
// bytes untouched. Unlike an ordinary load, LWL/LWR write their register
// immediately rather than through the load-delay slot (the R3000A's one
// documented exception to the delayed-load rule), so the merge base is
// read via ResolveLoadDelay (to see a same-cycle in-flight load) but the
// result is committed with a plain SetGPR.
func lwlStep(instr mipsInstr) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		aligned := addr &^ 3
		shift := addr & 3
		word := mem.Read32(aligned)
		old := cpu.ResolveLoadDelay(rt)
		cpu.SetGPR(rt, (old&lwlMask[shift])|(word<<((3-shift)*8)))
		return 0, false, exitFallthrough, true
	}
}

// lwrStep is LWL's mirror image: it merges the least-significant bytes of
// the aligned word into rt's low-order bytes.
func lwrStep(instr mipsInstr) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		aligned := addr &^ 3
		shift := addr & 3
		word := mem.Read32(aligned)
		old := cpu.ResolveLoadDelay(rt)
		cpu.SetGPR(rt, (old&lwrMask[shift])|(word>>(shift*8)))
		return 0, false, exitFallthrough, true
	}
}

// swlStep writes rt's most-significant bytes into the corresponding
// low-order bytes of the aligned word at addr, read-modify-write, leaving
// the rest of that word untouched.
func swlStep(instr mipsInstr) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		aligned := addr &^ 3
		shift := addr & 3
		word := mem.Read32(aligned)
		rtVal := cpu.ResolveLoadDelay(rt)
		mem.Write32(aligned, (word&swlMask[shift])|(rtVal>>((3-shift)*8)))
		return 0, false, exitFallthrough, true
	}
}

// swrStep is SWL's mirror image: rt's least-significant bytes land in the
// high-order bytes of the aligned word.
func swrStep(instr mipsInstr) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		aligned := addr &^ 3
		shift := addr & 3
		word := mem.Read32(aligned)
		rtVal := cpu.ResolveLoadDelay(rt)
		mem.Write32(aligned, (word&swrMask[shift])|(rtVal<<(shift*8)))
		return 0, false, exitFallthrough, true
	}
}

func addOverflow(a, b, sum int32) bool {
	return ((a ^ sum) & (b ^ sum)) < 0
}

func branchStep(instr mipsInstr, cond func(*CPUState) bool) step {
	imm := instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		if cond(cpu) {
			return uint32(int32(cpu.CurrentPC+4) + imm*4), true, exitBranchTaken, true
		}
		return 0, false, exitFallthrough, true
	}
}

func aluImmStep(instr mipsInstr, trapOnOverflow bool, f func(a, imm int32) (int32, bool)) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		result, overflow := f(int32(cpu.GPR[rs]), imm)
		if trapOnOverflow && overflow {
			vec := cpu.EnterException(ExcOverflow, 0, false)
			return vec, true, exitCop0Exception, true
		}
		cpu.SetGPR(rt, uint32(result))
		return 0, false, exitFallthrough, true
	}
}

func aluImmUnsignedStep(instr mipsInstr, f func(a, imm uint32) uint32) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmU()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		cpu.SetGPR(rt, f(cpu.GPR[rs], imm))
		return 0, false, exitFallthrough, true
	}
}

func loadStep(instr mipsInstr, f func(mem *Memory, addr uint32) uint32) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		cpu.StageLoadDelay(rt, f(mem, addr))
		return 0, false, exitFallthrough, true
	}
}

func storeStep(instr mipsInstr, f func(mem *Memory, addr uint32, v uint32)) step {
	rs, rt, imm := instr.Rs(), instr.Rt(), instr.ImmS()
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		addr := uint32(int32(cpu.GPR[rs]) + imm)
		f(mem, addr, cpu.ResolveLoadDelay(rt))
		return 0, false, exitFallthrough, true
	}
}

func decodeRegimm(instr mipsInstr) step {
	rs, imm := instr.Rs(), instr.ImmS()
	link := instr.Rt() == regimmBLTZAL || instr.Rt() == regimmBGEZAL
	wantGE := instr.Rt() == regimmBGEZ || instr.Rt() == regimmBGEZAL
	return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
		neg := int32(cpu.GPR[rs]) < 0
		taken := neg != wantGE
		if link {
			cpu.SetGPR(31, cpu.CurrentPC+8)
		}
		if taken {
			return uint32(int32(cpu.CurrentPC+4) + imm*4), true, exitBranchTaken, true
		}
		return 0, false, exitFallthrough, true
	}
}

func decodeSpecial(instr mipsInstr, pc uint32, log *logx.Logger) step {
	rs, rt, rd, sh := instr.Rs(), instr.Rt(), instr.Rd(), instr.Shamt()
	switch instr.Funct() {
	case funcSLL:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rt]<<sh)
			return 0, false, exitFallthrough, true
		}
	case funcSRL:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rt]>>sh)
			return 0, false, exitFallthrough, true
		}
	case funcSRA:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, uint32(int32(cpu.GPR[rt])>>sh))
			return 0, false, exitFallthrough, true
		}
	case funcSLLV:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rt]<<(cpu.GPR[rs]&0x1F))
			return 0, false, exitFallthrough, true
		}
	case funcSRLV:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rt]>>(cpu.GPR[rs]&0x1F))
			return 0, false, exitFallthrough, true
		}
	case funcSRAV:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, uint32(int32(cpu.GPR[rt])>>(cpu.GPR[rs]&0x1F)))
			return 0, false, exitFallthrough, true
		}
	case funcJR:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			return cpu.GPR[rs], true, exitIndirectJump, true
		}
	case funcJALR:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			target := cpu.GPR[rs]
			cpu.SetGPR(rd, cpu.CurrentPC+8)
			return target, true, exitIndirectJump, true
		}
	case funcSYSCALL:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			vec := cpu.EnterException(ExcSyscall, 0, false)
			return vec, true, exitSyscallOrBreak, true
		}
	case funcBREAK:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			vec := cpu.EnterException(ExcBreak, 0, false)
			return vec, true, exitSyscallOrBreak, true
		}
	case funcMFHI:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.HI)
			return 0, false, exitFallthrough, true
		}
	case funcMTHI:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.HI = cpu.GPR[rs]
			return 0, false, exitFallthrough, true
		}
	case funcMFLO:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.LO)
			return 0, false, exitFallthrough, true
		}
	case funcMTLO:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.LO = cpu.GPR[rs]
			return 0, false, exitFallthrough, true
		}
	case funcMULT:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			p := int64(int32(cpu.GPR[rs])) * int64(int32(cpu.GPR[rt]))
			cpu.LO, cpu.HI = uint32(p), uint32(p>>32)
			return 0, false, exitFallthrough, true
		}
	case funcMULTU:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			p := uint64(cpu.GPR[rs]) * uint64(cpu.GPR[rt])
			cpu.LO, cpu.HI = uint32(p), uint32(p>>32)
			return 0, false, exitFallthrough, true
		}
	case funcDIV:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			n, d := int32(cpu.GPR[rs]), int32(cpu.GPR[rt])
			if d == 0 {
				cpu.LO, cpu.HI = signDivZero(n), uint32(n)
				return 0, false, exitFallthrough, true
			}
			cpu.LO, cpu.HI = uint32(n/d), uint32(n%d)
			return 0, false, exitFallthrough, true
		}
	case funcDIVU:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			n, d := cpu.GPR[rs], cpu.GPR[rt]
			if d == 0 {
				cpu.LO, cpu.HI = 0xFFFFFFFF, n
				return 0, false, exitFallthrough, true
			}
			cpu.LO, cpu.HI = n/d, n%d
			return 0, false, exitFallthrough, true
		}
	case funcADD:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			a, b := int32(cpu.GPR[rs]), int32(cpu.GPR[rt])
			sum := a + b
			if addOverflow(a, b, sum) {
				vec := cpu.EnterException(ExcOverflow, 0, false)
				return vec, true, exitCop0Exception, true
			}
			cpu.SetGPR(rd, uint32(sum))
			return 0, false, exitFallthrough, true
		}
	case funcADDU:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rs]+cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case funcSUB:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			a, b := int32(cpu.GPR[rs]), int32(cpu.GPR[rt])
			diff := a - b
			if addOverflow(a, -b, diff) {
				vec := cpu.EnterException(ExcOverflow, 0, false)
				return vec, true, exitCop0Exception, true
			}
			cpu.SetGPR(rd, uint32(diff))
			return 0, false, exitFallthrough, true
		}
	case funcSUBU:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rs]-cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case funcAND:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rs]&cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case funcOR:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rs]|cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case funcXOR:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, cpu.GPR[rs]^cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case funcNOR:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.SetGPR(rd, ^(cpu.GPR[rs] | cpu.GPR[rt]))
			return 0, false, exitFallthrough, true
		}
	case funcSLT:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if int32(cpu.GPR[rs]) < int32(cpu.GPR[rt]) {
				cpu.SetGPR(rd, 1)
			} else {
				cpu.SetGPR(rd, 0)
			}
			return 0, false, exitFallthrough, true
		}
	case funcSLTU:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if cpu.GPR[rs] < cpu.GPR[rt] {
				cpu.SetGPR(rd, 1)
			} else {
				cpu.SetGPR(rd, 0)
			}
			return 0, false, exitFallthrough, true
		}
	default:
		return unknownOpcodeStep(log, pc, instr)
	}
}

func signDivZero(n int32) uint32 {
	if n >= 0 {
		return 0xFFFFFFFF
	}
	return 1
}

// decodeCop0 handles MFC0/MTC0/RFE; the rest of the COP0 encoding space
// (TLB instructions) does not exist on the R3000A's simplified MMU-less
// COP0, so anything else is logged and decoded as a no-op by
// unknownOpcodeStep.
func decodeCop0(instr mipsInstr, pc uint32, log *logx.Logger) step {
	const rsMF, rsMT, rsCO = 0x00, 0x04, 0x10
	rt, rd, rs := instr.Rt(), instr.Rd(), instr.Rs()
	switch rs {
	case rsMF:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.StageLoadDelay(rt, cpu.COP0[rd])
			return 0, false, exitFallthrough, true
		}
	case rsMT:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			cpu.COP0[rd] = cpu.GPR[rt]
			return 0, false, exitFallthrough, true
		}
	case rsCO:
		if instr.Funct() == 0x10 { // RFE
			return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
				cpu.RFE()
				return 0, false, exitFallthrough, true
			}
		}
		return unknownOpcodeStep(log, pc, instr)
	default:
		return unknownOpcodeStep(log, pc, instr)
	}
}

// decodeCop2 handles MFC2/MTC2/CFC2/CTC2/GTE opcode execution, gated on
// SR.CU2 at run time so a usability trap reflects the CPU state at the
// moment the block actually runs, not at compile time.
func decodeCop2(instr mipsInstr, pc uint32, log *logx.Logger) step {
	const rsMF, rsMT, rsCF, rsCT = 0x00, 0x04, 0x02, 0x06
	rt, rd, rs := instr.Rt(), instr.Rd(), instr.Rs()

	if rs >= 0x10 {
		fn := uint32(instr) & 0x1FFFFFF
		sf := fn&(1<<19) != 0
		lm := fn&(1<<10) != 0
		mx := (fn >> 17) & 3
		v := (fn >> 15) & 3
		cv := (fn >> 13) & 3
		op := fn & 0x3F
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if !cop2Usable(cpu) {
				return cop2Trap(cpu)
			}
			cpu.GTE.Execute(op, sf, lm, mx, v, cv)
			return 0, false, exitFallthrough, true
		}
	}

	switch rs {
	case rsMF:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if !cop2Usable(cpu) {
				return cop2Trap(cpu)
			}
			cpu.StageLoadDelay(rt, cpu.GTE.readData(rd))
			return 0, false, exitFallthrough, true
		}
	case rsMT:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if !cop2Usable(cpu) {
				return cop2Trap(cpu)
			}
			cpu.GTE.writeData(rd, cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	case rsCF:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if !cop2Usable(cpu) {
				return cop2Trap(cpu)
			}
			cpu.StageLoadDelay(rt, cpu.GTE.Control[rd])
			return 0, false, exitFallthrough, true
		}
	case rsCT:
		return func(cpu *CPUState, mem *Memory) (uint32, bool, blockExit, bool) {
			if !cop2Usable(cpu) {
				return cop2Trap(cpu)
			}
			cpu.GTE.writeControl(rd, cpu.GPR[rt])
			return 0, false, exitFallthrough, true
		}
	default:
		return unknownOpcodeStep(log, pc, instr)
	}
}

func cop2Usable(cpu *CPUState) bool {
	return cpu.COP0[COP0SR]&srCU2 != 0
}

func cop2Trap(cpu *CPUState) (uint32, bool, blockExit, bool) {
	vec := cpu.EnterException(ExcCopUnusable, 0, false)
	return vec, true, exitCop0Exception, true
}
