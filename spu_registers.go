// spu_registers.go - SPU MMIO register decode (§6, part of C10/C9).
//
// Grounded on the teacher's per-channel register-write switch in
// audio_chip.go's SetRegister, adapted to the PSX SPU's per-voice 16-byte
// register block layout (volume, pitch, start address, ADSR, ADSR volume,
// repeat address) instead of the teacher's named-field channel registers.

package psxcore

const spuVoiceRegStride = 0x10

// Per-voice register offsets relative to the voice's base
// (portSPUBase + voice*0x10).
const (
	voiceRegVolLeft    = 0x00
	voiceRegVolRight   = 0x02
	voiceRegPitch      = 0x04
	voiceRegStartAddr  = 0x06
	voiceRegADSRLo     = 0x08
	voiceRegADSRHi     = 0x0A
	voiceRegADSRVolume = 0x0C
	voiceRegRepeatAddr = 0x0E
)

const (
	spuRegMainVolLeft  = 0x1F801D80
	spuRegMainVolRight = 0x1F801D82
	spuRegKeyOnLo      = 0x1F801D88
	spuRegKeyOnHi      = 0x1F801D8A
	spuRegKeyOffLo     = 0x1F801D8C
	spuRegKeyOffHi     = 0x1F801D8E
)

func (hw *HWRegisters) readSPURegister(addr uint32) uint32 {
	switch addr {
	case spuRegMainVolLeft:
		return uint32(uint16(hw.SPU.MainVolLeft))
	case spuRegMainVolRight:
		return uint32(uint16(hw.SPU.MainVolRight))
	}
	if addr >= portSPUBase && addr < portSPUBase+spuVoiceCount*spuVoiceRegStride {
		return hw.readVoiceRegister(addr)
	}
	return 0
}

func (hw *HWRegisters) writeSPURegister(addr uint32, value uint32) {
	switch addr {
	case spuRegMainVolLeft:
		hw.SPU.MainVolLeft = int32(int16(uint16(value)))
		return
	case spuRegMainVolRight:
		hw.SPU.MainVolRight = int32(int16(uint16(value)))
		return
	case spuRegKeyOnLo:
		hw.SPU.KeyOn(value & 0xFFFF)
		return
	case spuRegKeyOnHi:
		hw.SPU.KeyOn((value & 0xFF) << 16)
		return
	case spuRegKeyOffLo:
		hw.SPU.KeyOff(value & 0xFFFF)
		return
	case spuRegKeyOffHi:
		hw.SPU.KeyOff((value & 0xFF) << 16)
		return
	}
	if addr >= portSPUBase && addr < portSPUBase+spuVoiceCount*spuVoiceRegStride {
		hw.writeVoiceRegister(addr, value)
	}
}

func (hw *HWRegisters) readVoiceRegister(addr uint32) uint32 {
	idx := (addr - portSPUBase) / spuVoiceRegStride
	v := &hw.SPU.Voices[idx]
	reg := (addr - portSPUBase) % spuVoiceRegStride
	switch reg {
	case voiceRegVolLeft:
		return uint32(uint16(v.volLeft))
	case voiceRegVolRight:
		return uint32(uint16(v.volRight))
	case voiceRegPitch:
		return v.pitch >> (spuPosFrac - 12) // pitch register is Q12, internal cursor is Q(spuPosFrac)
	case voiceRegStartAddr:
		return v.startAddr / 8
	case voiceRegRepeatAddr:
		return v.repeatAddr / 8
	default:
		return 0
	}
}

func (hw *HWRegisters) writeVoiceRegister(addr uint32, value uint32) {
	idx := (addr - portSPUBase) / spuVoiceRegStride
	v := &hw.SPU.Voices[idx]
	reg := (addr - portSPUBase) % spuVoiceRegStride
	switch reg {
	case voiceRegVolLeft:
		v.volLeft = int32(int16(uint16(value)))
	case voiceRegVolRight:
		v.volRight = int32(int16(uint16(value)))
	case voiceRegPitch:
		v.pitch = (value & 0xFFFF) << (spuPosFrac - 12)
	case voiceRegStartAddr:
		v.startAddr = (value & 0xFFFF) * 8
	case voiceRegADSRLo:
		decodeADSRLo(&v.adsr, value)
	case voiceRegADSRHi:
		decodeADSRHi(&v.adsr, value)
	case voiceRegRepeatAddr:
		v.repeatAddr = (value & 0xFFFF) * 8
	}
}

// decodeADSRLo unpacks the sustain-level, decay-rate and attack-rate
// fields of the low ADSR halfword into the cached per-phase parameters.
func decodeADSRLo(a *adsrState, lo uint32) {
	sl := lo & 0xF
	decayShift := (lo >> 4) & 0xF
	attackShift := (lo >> 10) & 0x1F
	attackExp := lo&(1<<15) != 0

	a.setSustainLevel(sl)
	a.decay = rateToParams(decayShift, false, true, false)
	a.attack = rateToParams(attackShift, attackExp, true, true)
}

// decodeADSRHi unpacks the release-rate and sustain-rate/direction fields
// of the high ADSR halfword.
func decodeADSRHi(a *adsrState, hi uint32) {
	releaseShift := hi & 0x1F
	releaseExp := hi&(1<<5) != 0
	sustainShift := (hi >> 6) & 0x1F
	sustainDec := hi&(1<<14) != 0
	sustainExp := hi&(1<<15) != 0

	a.release = rateToParams(releaseShift, releaseExp, false, false)
	a.sustain = rateToParams(sustainShift, sustainExp, !sustainDec, false)
}

// rateToParams converts a 5-bit (7-bit for decay, historically 4-bit)
// hardware rate field into the ci/step pair the tick loop consumes,
// following the documented split: the top two bits select a coarse step
// size, the bottom bits select how many ticks between counter increments.
func rateToParams(rate uint32, exponential, increasing bool, isDecayField bool) adsrParams {
	if isDecayField {
		rate <<= 2 // decay's 4-bit field maps onto the same 7-bit rate space, left-shifted
	}
	shift := int32(rate) - 11
	step := int32(7 - (rate & 3))
	if !increasing {
		step = -step - 1
	}
	var ci int32
	if shift >= 0 {
		ci = 1 << uint(shift)
	} else {
		ci = 1
		step = (step << uint(-shift))
		if step == 0 {
			step = 1
		}
	}
	return adsrParams{ci: ci, step: step, exponential: exponential, increasing: increasing}
}
