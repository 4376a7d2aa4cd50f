// spu_adsr.go - SPU per-voice ADSR envelope state machine (§4.7).
//
// Grounded on the teacher's envelopePhase/updateEnvelope shape in
// audio_chip.go (ENV_ATTACK/DECAY/SUSTAIN/RELEASE, a phase enum driving a
// per-sample update function), adapted to the PSX's exponential-rate
// hardware algorithm instead of the teacher's float64 linear/exponential
// ramps.

package psxcore

type adsrPhase int

const (
	adsrAttack adsrPhase = iota
	adsrDecay
	adsrSustain
	adsrRelease
	adsrOff
)

// adsrParams are the per-phase rates derived from a voice's 32-bit ADSR
// register fields (rate, mode, direction bits packed per the real SPU
// layout; the packing itself lives in spu_registers.go's voice register
// decode).
type adsrParams struct {
	ci          int32 // counter increment
	step        int32 // signed envelope step
	exponential bool
	increasing  bool
}

// adsrState is one voice's live envelope: current level, phase and the
// 15-bit overflow counter the hardware's rate divider drives.
type adsrState struct {
	phase   adsrPhase
	level   int32 // 0..0x7FFF
	counter int32

	sustainLevel int32 // (SL+1)<<11, cached at key-on

	attack  adsrParams
	decay   adsrParams
	sustain adsrParams
	release adsrParams
}

// KeyOn resets the envelope to Attack with a zeroed level, as real hardware
// does on a key-on write regardless of current phase.
func (a *adsrState) KeyOn() {
	a.phase = adsrAttack
	a.level = 0
	a.counter = 0
}

// KeyOff transitions to Release from whatever phase is active.
func (a *adsrState) KeyOff() {
	a.phase = adsrRelease
	a.counter = 0
}

func (a *adsrState) paramsFor(phase adsrPhase) adsrParams {
	switch phase {
	case adsrAttack:
		return a.attack
	case adsrDecay:
		return a.decay
	case adsrSustain:
		return a.sustain
	case adsrRelease:
		return a.release
	default:
		return adsrParams{}
	}
}

// Tick advances the envelope by one sample tick and returns the current
// level (0..0x7FFF) to be multiplied into the voice's mixed output.
func (a *adsrState) Tick() int32 {
	if a.phase == adsrOff {
		return 0
	}
	p := a.paramsFor(a.phase)

	ci := p.ci
	if p.exponential && p.increasing && a.level > 0x6000 {
		ci /= 4 // hardware slowdown near the top of an exponential attack
	}

	a.counter += ci
	if a.counter&0x7FFF == a.counter {
		return a.level // no 15-bit overflow this tick: hot path, level unchanged
	}
	a.counter &= 0x7FFF

	step := p.step
	if p.exponential && !p.increasing {
		step = (step * a.level) >> 15
	}
	a.level += step
	if a.level > 0x7FFF {
		a.level = 0x7FFF
	} else if a.level < 0 {
		a.level = 0
	}

	a.advancePhase()
	return a.level
}

func (a *adsrState) advancePhase() {
	switch a.phase {
	case adsrAttack:
		if a.level >= 0x7FFF {
			a.phase = adsrDecay
		}
	case adsrDecay:
		if a.level <= a.sustainLevel {
			a.phase = adsrSustain
		}
	case adsrRelease:
		if a.level <= 0 {
			a.phase = adsrOff
			a.level = 0
		}
	}
}

// setSustainLevel caches (SL+1)<<11, the decay->sustain threshold, computed
// from the voice's raw 4-bit SL register field at key-on/register-write
// time rather than every tick.
func (a *adsrState) setSustainLevel(sl uint32) {
	a.sustainLevel = int32((sl + 1) << 11)
}
