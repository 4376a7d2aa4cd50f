// spu.go - 24-voice SPU mixer (C9, §4.7).
//
// Grounded on the teacher's AudioChip (audio_chip.go): a fixed array of
// per-voice channel state mixed once per sample tick into a stereo bus,
// generalized from the teacher's synthesized waveforms to PCM playback
// decoded from SPU RAM, and from the teacher's float32 mixing to the PSX's
// fixed-point shift-15 normalization.

package psxcore

const (
	spuVoiceCount            = 24
	spuRAMSize               = 512 * 1024
	spuSampleRate            = 44100
	spuSamplesPerVBlankFrame = 735 // 44100 / 60, matching NTSC field rate

	spuPosFrac = 12 // pos is a 20.12 fixed-point sample-rate-converter cursor
)

// voice is one of the 24 SPU channels: ADPCM playback position, decode
// history, ADSR envelope and the volume/pitch registers driving the mix.
type voice struct {
	adsr adsrState

	startAddr  uint32 // SPU-RAM address of the first ADPCM block
	repeatAddr uint32 // latched on loop-start, jumped to on loop-end+repeat
	curAddr    uint32

	pos   uint32 // 20.12 fixed-point cursor into the current decoded block
	pitch uint32 // 20.12 fixed-point step per sample tick

	decoded  [adpcmSamplesPerBlock]int16
	hist1    int32
	hist2    int32
	blockPos int // index of the next block to decode relative to curAddr

	volLeft  int32 // Q15 fixed point, signed
	volRight int32

	ended bool // latched on loop-end without repeat
}

// SPU owns the 24 voices, SPU RAM, the main output volume and the
// interleaved-stereo output ring consumed by internal/audiosink.
type SPU struct {
	Voices [spuVoiceCount]voice
	RAM    [spuRAMSize]byte

	MainVolLeft  int32
	MainVolRight int32

	outRing []int16 // interleaved L/R, pushed once per VBlank frame
}

func NewSPU() *SPU {
	s := &SPU{}
	s.MainVolLeft, s.MainVolRight = 0x3FFF, 0x3FFF
	return s
}

// KeyOn applies a 24-bit key-on mask: each set bit resets that voice's
// decode cursor, clears its end flag, and arms its envelope.
func (s *SPU) KeyOn(mask uint32) {
	for i := 0; i < spuVoiceCount; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		v := &s.Voices[i]
		v.curAddr = v.startAddr
		v.pos = 0
		v.blockPos = 0
		v.hist1, v.hist2 = 0, 0
		v.ended = false
		v.adsr.KeyOn()
	}
}

// KeyOff applies a 24-bit key-off mask, moving each selected voice to the
// Release envelope phase regardless of its current phase.
func (s *SPU) KeyOff(mask uint32) {
	for i := 0; i < spuVoiceCount; i++ {
		if mask&(1<<uint(i)) != 0 {
			s.Voices[i].adsr.KeyOff()
		}
	}
}

// decodeNextBlock reads and decodes the voice's next 16-byte ADPCM block,
// latching loop-start/loop-end state per the documented flag bits.
func (v *voice) decodeNextBlock(ram *[spuRAMSize]byte) {
	off := int(v.curAddr) % spuRAMSize
	block := ram[off : off+adpcmBlockBytes]

	samples, flags := decodeADPCMBlock(block, &v.hist1, &v.hist2)
	v.decoded = samples

	if flags&adpcmFlagLoopStart != 0 {
		v.repeatAddr = v.curAddr
	}
	if flags&adpcmFlagLoopEnd != 0 {
		if flags&adpcmFlagLoopRepeat != 0 {
			v.curAddr = v.repeatAddr
		} else {
			v.ended = true
		}
	} else {
		v.curAddr = (v.curAddr + adpcmBlockBytes) % spuRAMSize
	}
}

// TickSample advances every active voice by one 44.1 kHz sample and
// returns the mixed stereo pair before main-volume scaling.
func (s *SPU) TickSample() (left, right int32) {
	for i := range s.Voices {
		v := &s.Voices[i]
		if v.adsr.phase == adsrOff {
			continue
		}

		idx := v.pos >> spuPosFrac
		if int(idx) >= adpcmSamplesPerBlock {
			if v.ended {
				v.adsr.phase = adsrOff
				continue
			}
			v.decodeNextBlock(&s.RAM)
			v.pos -= uint32(adpcmSamplesPerBlock) << spuPosFrac
			idx = v.pos >> spuPosFrac
		}

		sample := int32(v.decoded[idx])
		env := v.adsr.Tick()

		mixed := (sample * env) >> 15
		left += (mixed * v.volLeft) >> 15
		right += (mixed * v.volRight) >> 15

		v.pos += v.pitch
	}
	return left, right
}

// EmitFrame renders one VBlank frame's worth of samples (735 at NTSC 60
// Hz), applies main-volume scaling and 16-bit clamping, and appends
// interleaved stereo PCM to the output ring for internal/audiosink to
// drain. Dropping samples on a full ring (enforced by the caller's ring
// capacity) is acceptable per §4.7.
func (s *SPU) EmitFrame() {
	for i := 0; i < spuSamplesPerVBlankFrame; i++ {
		l, r := s.TickSample()
		l = (l * s.MainVolLeft) >> 15
		r = (r * s.MainVolRight) >> 15
		s.outRing = append(s.outRing, clamp16(l), clamp16(r))
	}
}

// DrainFrame removes and returns whatever interleaved PCM has accumulated,
// for the audio sink to consume without blocking the dispatch loop.
func (s *SPU) DrainFrame() []int16 {
	out := s.outRing
	s.outRing = nil
	return out
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// DMAWrite implements DMA channel 4: a linear copy from guest RAM into SPU
// RAM, wrapping at the SPU RAM boundary.
func (s *SPU) DMAWrite(spuAddr uint32, data []byte) {
	dst := int(spuAddr) % spuRAMSize
	for _, b := range data {
		s.RAM[dst] = b
		dst = (dst + 1) % spuRAMSize
	}
}

// DMARead implements the read half of DMA channel 4.
func (s *SPU) DMARead(spuAddr uint32, n int) []byte {
	out := make([]byte, n)
	src := int(spuAddr) % spuRAMSize
	for i := range out {
		out[i] = s.RAM[src]
		src = (src + 1) % spuRAMSize
	}
	return out
}
