// mips_decode.go - MIPS R3000A instruction field extraction (§4.2).
//
// Grounded on the teacher's IE32/Z80 decode tables (cpu_ie32_decode.go,
// cpu_z80_opcodes.go): small pure functions pulling fixed bitfields out of
// an instruction word, consumed by translator.go's per-instruction switch.

package psxcore

type mipsInstr uint32

func (i mipsInstr) Opcode() uint32 { return uint32(i) >> 26 }
func (i mipsInstr) Rs() int        { return int((i >> 21) & 0x1F) }
func (i mipsInstr) Rt() int        { return int((i >> 16) & 0x1F) }
func (i mipsInstr) Rd() int        { return int((i >> 11) & 0x1F) }
func (i mipsInstr) Shamt() uint32  { return (uint32(i) >> 6) & 0x1F }
func (i mipsInstr) Funct() uint32  { return uint32(i) & 0x3F }
func (i mipsInstr) ImmU() uint32   { return uint32(i) & 0xFFFF }
func (i mipsInstr) ImmS() int32    { return int32(int16(uint32(i) & 0xFFFF)) }
func (i mipsInstr) Target() uint32 { return uint32(i) & 0x03FFFFFF }

// SPECIAL (opcode 0) function codes.
const (
	funcSLL     = 0x00
	funcSRL     = 0x02
	funcSRA     = 0x03
	funcSLLV    = 0x04
	funcSRLV    = 0x06
	funcSRAV    = 0x07
	funcJR      = 0x08
	funcJALR    = 0x09
	funcSYSCALL = 0x0C
	funcBREAK   = 0x0D
	funcMFHI    = 0x10
	funcMTHI    = 0x11
	funcMFLO    = 0x12
	funcMTLO    = 0x13
	funcMULT    = 0x18
	funcMULTU   = 0x19
	funcDIV     = 0x1A
	funcDIVU    = 0x1B
	funcADD     = 0x20
	funcADDU    = 0x21
	funcSUB     = 0x22
	funcSUBU    = 0x23
	funcAND     = 0x24
	funcOR      = 0x25
	funcXOR     = 0x26
	funcNOR     = 0x27
	funcSLT     = 0x2A
	funcSLTU    = 0x2B
)

// Primary opcodes.
const (
	opSPECIAL = 0x00
	opREGIMM  = 0x01
	opJ       = 0x02
	opJAL     = 0x03
	opBEQ     = 0x04
	opBNE     = 0x05
	opBLEZ    = 0x06
	opBGTZ    = 0x07
	opADDI    = 0x08
	opADDIU   = 0x09
	opSLTI    = 0x0A
	opSLTIU   = 0x0B
	opANDI    = 0x0C
	opORI     = 0x0D
	opXORI    = 0x0E
	opLUI     = 0x0F
	opCOP0    = 0x10
	opCOP2    = 0x12
	opLB      = 0x20
	opLH      = 0x21
	opLWL     = 0x22
	opLW      = 0x23
	opLBU     = 0x24
	opLHU     = 0x25
	opLWR     = 0x26
	opSB      = 0x28
	opSH      = 0x29
	opSWL     = 0x2A
	opSW      = 0x2B
	opSWR     = 0x2E
	opLWC2    = 0x32
	opSWC2    = 0x3A
)

// REGIMM rt-field sub-opcodes.
const (
	regimmBLTZ   = 0x00
	regimmBGEZ   = 0x01
	regimmBLTZAL = 0x10
	regimmBGEZAL = 0x11
)

// isBranch reports whether an instruction transfers control, meaning the
// instruction immediately after it executes as a delay slot.
func isBranch(instr mipsInstr) bool {
	switch instr.Opcode() {
	case opJ, opJAL, opBEQ, opBNE, opBLEZ, opBGTZ, opREGIMM:
		return true
	case opSPECIAL:
		f := instr.Funct()
		return f == funcJR || f == funcJALR
	}
	return false
}
