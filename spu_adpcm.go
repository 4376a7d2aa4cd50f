// spu_adpcm.go - SPU ADPCM block decode (§4.7).
//
// Grounded on the teacher's envelope/phase style in audio_chip.go, adapted
// to the PSX's specific 16-byte block codec rather than the teacher's
// continuous waveform generators.

package psxcore

// adpcmFilterCoeffs are the five documented predictor coefficient pairs
// (f0, f1), in Q6 fixed point, selected by the block header's filter index.
var adpcmFilterCoeffs = [5][2]int32{
	{0, 0},
	{60, 0},
	{115, -52},
	{98, -55},
	{122, -60},
}

const adpcmBlockBytes = 16
const adpcmSamplesPerBlock = 28

// adpcmBlockFlags bits in a block's second header byte.
const (
	adpcmFlagLoopEnd    = 1 << 0
	adpcmFlagLoopRepeat = 1 << 1
	adpcmFlagLoopStart  = 1 << 2
)

// decodeADPCMBlock decodes one 16-byte SPU-RAM block into 28 signed 16-bit
// PCM samples, threading the voice's filter history (hist1 = s_-1, hist2 =
// s_-2) across calls.
func decodeADPCMBlock(block []byte, hist1, hist2 *int32) (samples [adpcmSamplesPerBlock]int16, flags byte) {
	shift := block[0] & 0x0F
	if shift > 12 {
		shift = 9 // documented hardware quirk: out-of-range shift clamps to 9
	}
	filter := (block[0] >> 4) & 0x07
	if int(filter) >= len(adpcmFilterCoeffs) {
		filter = 0
	}
	flags = block[1]

	f0, f1 := adpcmFilterCoeffs[filter][0], adpcmFilterCoeffs[filter][1]
	h1, h2 := *hist1, *hist2

	for i := 0; i < adpcmSamplesPerBlock; i++ {
		byteIdx := 2 + i/2
		var nibble byte
		if i%2 == 0 {
			nibble = block[byteIdx] & 0x0F
		} else {
			nibble = block[byteIdx] >> 4
		}
		// the nibble occupies the top 4 bits of a 16-bit word, giving it the
		// correct sign, then the arithmetic shift both sign-extends and
		// scales it by 2^(12-shift).
		residual := int32(int16(uint16(nibble)<<12)) >> shift

		var sample int32
		if f0 == 0 && f1 == 0 {
			sample = residual // filter 0 fast path: direct copy, no prediction
		} else {
			sample = residual + (h1*f0+h2*f1+32)>>6
		}
		if sample > 32767 {
			sample = 32767
		} else if sample < -32768 {
			sample = -32768
		}

		samples[i] = int16(sample)
		h2 = h1
		h1 = sample
	}

	*hist1, *hist2 = h1, h2
	return samples, flags
}
