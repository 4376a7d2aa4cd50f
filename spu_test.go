package psxcore

import "testing"

func TestSPUKeyOnArmsSelectedVoicesOnly(t *testing.T) {
	s := NewSPU()
	s.Voices[0].startAddr = 0x100
	s.Voices[1].startAddr = 0x200
	s.Voices[0].adsr.phase = adsrOff
	s.Voices[1].adsr.phase = adsrOff

	s.KeyOn(1 << 0)

	if s.Voices[0].adsr.phase != adsrAttack {
		t.Fatalf("voice 0 phase = %v, want attack", s.Voices[0].adsr.phase)
	}
	if s.Voices[0].curAddr != 0x100 {
		t.Fatalf("voice 0 curAddr = %#x, want 0x100", s.Voices[0].curAddr)
	}
	if s.Voices[1].adsr.phase != adsrOff {
		t.Fatalf("voice 1 phase = %v, want off (not selected by mask)", s.Voices[1].adsr.phase)
	}
}

func TestSPUKeyOffMovesSelectedVoicesToRelease(t *testing.T) {
	s := NewSPU()
	s.Voices[2].adsr.phase = adsrDecay
	s.KeyOff(1 << 2)
	if s.Voices[2].adsr.phase != adsrRelease {
		t.Fatalf("voice 2 phase = %v, want release", s.Voices[2].adsr.phase)
	}
}

func TestSPUSilentVoiceDoesNotContributeToMix(t *testing.T) {
	s := NewSPU()
	for i := range s.Voices {
		s.Voices[i].adsr.phase = adsrOff
	}
	l, r := s.TickSample()
	if l != 0 || r != 0 {
		t.Fatalf("TickSample with all voices off = (%d,%d), want (0,0)", l, r)
	}
}

func TestSPUEmitFrameProducesOneFrameOfInterleavedStereo(t *testing.T) {
	s := NewSPU()
	for i := range s.Voices {
		s.Voices[i].adsr.phase = adsrOff
	}
	s.EmitFrame()
	frame := s.DrainFrame()
	if len(frame) != spuSamplesPerVBlankFrame*2 {
		t.Fatalf("len(frame) = %d, want %d (735 stereo pairs)", len(frame), spuSamplesPerVBlankFrame*2)
	}
}

func TestSPUDrainFrameEmptiesTheRing(t *testing.T) {
	s := NewSPU()
	for i := range s.Voices {
		s.Voices[i].adsr.phase = adsrOff
	}
	s.EmitFrame()
	_ = s.DrainFrame()
	if got := s.DrainFrame(); len(got) != 0 {
		t.Fatalf("second DrainFrame = %d samples, want 0", len(got))
	}
}

func TestSPUDMAWriteReadRoundTripWithWrap(t *testing.T) {
	s := NewSPU()
	data := []byte{1, 2, 3, 4, 5}
	start := uint32(spuRAMSize - 2) // forces the write to wrap around
	s.DMAWrite(start, data)

	got := s.DMARead(start, len(data))
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("DMARead[%d] = %d, want %d (wrap-around write/read mismatch)", i, got[i], data[i])
		}
	}
}

func TestVoiceDecodeNextBlockLoopStartLatchesRepeatAddr(t *testing.T) {
	s := NewSPU()
	v := &s.Voices[0]
	v.curAddr = 0x40

	block := make([]byte, adpcmBlockBytes)
	block[1] = adpcmFlagLoopStart
	copy(s.RAM[0x40:], block)

	v.decodeNextBlock(&s.RAM)
	if v.repeatAddr != 0x40 {
		t.Fatalf("repeatAddr after loop-start block = %#x, want 0x40", v.repeatAddr)
	}
	if v.curAddr != 0x40+adpcmBlockBytes {
		t.Fatalf("curAddr after non-terminal block = %#x, want %#x", v.curAddr, 0x40+adpcmBlockBytes)
	}
}

func TestVoiceDecodeNextBlockLoopEndWithoutRepeatEndsVoice(t *testing.T) {
	s := NewSPU()
	v := &s.Voices[0]
	v.curAddr = 0x80

	block := make([]byte, adpcmBlockBytes)
	block[1] = adpcmFlagLoopEnd
	copy(s.RAM[0x80:], block)

	v.decodeNextBlock(&s.RAM)
	if !v.ended {
		t.Fatal("voice not marked ended after a loop-end block with no repeat flag")
	}
}

func TestVoiceDecodeNextBlockLoopEndWithRepeatJumpsToRepeatAddr(t *testing.T) {
	s := NewSPU()
	v := &s.Voices[0]
	v.curAddr = 0xC0
	v.repeatAddr = 0x40

	block := make([]byte, adpcmBlockBytes)
	block[1] = adpcmFlagLoopEnd | adpcmFlagLoopRepeat
	copy(s.RAM[0xC0:], block)

	v.decodeNextBlock(&s.RAM)
	if v.curAddr != 0x40 {
		t.Fatalf("curAddr after loop-end+repeat = %#x, want 0x40", v.curAddr)
	}
	if v.ended {
		t.Fatal("voice marked ended despite the repeat flag being set")
	}
}
