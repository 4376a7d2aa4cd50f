// gte_ops.go - the 22 COP2 GTE opcodes (§4.6).
//
// Every opcode clears FLAG, does its fixed-point work through the
// saturation/MAC primitives in gte.go, and recomputes FLAG bit 31 on exit.
// Inputs/outputs match the PSX-SPX reference description referenced by
// spec.md §8's 22-opcode test battery.

package psxcore

// GTE opcode function numbers (low 6 bits of the COP2 instruction word).
const (
	gteRTPS  = 0x01
	gteNCLIP = 0x06
	gteOP    = 0x0C
	gteDPCS  = 0x10
	gteINTPL = 0x11
	gteMVMVA = 0x12
	gteNCDS  = 0x13
	gteCDP   = 0x14
	gteNCDT  = 0x16
	gteNCCS  = 0x1B
	gteCC    = 0x1C
	gteNCS   = 0x1E
	gteNCT   = 0x20
	gteSQR   = 0x28
	gteDCPL  = 0x29
	gteDPCT  = 0x2A
	gteAVSZ3 = 0x2D
	gteAVSZ4 = 0x2E
	gteRTPT  = 0x30
	gteGPF   = 0x3D
	gteGPL   = 0x3E
	gteNCCT  = 0x3F
)

func (g *GTEState) recomputeFlagBit31() {
	v := g.Control[gcFLAG] & 0x7FFFF000
	if v&flagErrorMask != 0 {
		v |= 1 << 31
	}
	g.Control[gcFLAG] = v
}

// Execute decodes and runs a GTE opcode, the fn field extracted from bits
// [5:0] of the COP2 instruction word, and the sf/lm/mvmva-selector bits
// extracted by the caller (translator.go) from the instruction's upper
// fields per the standard COP2 imm25 encoding.
func (g *GTEState) Execute(fn uint32, sf, lm bool, mvmvaMX, mvmvaV, mvmvaCV uint32) {
	g.flag = 0
	g.Control[gcFLAG] = 0
	switch fn {
	case gteRTPS:
		g.rtp(0, sf, true)
	case gteRTPT:
		g.rtp(0, sf, false)
		g.rtp(1, sf, false)
		g.rtp(2, sf, true)
	case gteNCLIP:
		g.nclip()
	case gteOP:
		g.op(sf, lm)
	case gteMVMVA:
		g.mvmva(sf, lm, mvmvaMX, mvmvaV, mvmvaCV)
	case gteNCS:
		g.ncs(0, sf, lm)
	case gteNCT:
		g.ncs(0, sf, lm)
		g.ncs(1, sf, lm)
		g.ncs(2, sf, lm)
	case gteNCDS:
		g.ncds(0, sf, lm)
	case gteNCDT:
		g.ncds(0, sf, lm)
		g.ncds(1, sf, lm)
		g.ncds(2, sf, lm)
	case gteNCCS:
		g.nccs(0, sf, lm)
	case gteNCCT:
		g.nccs(0, sf, lm)
		g.nccs(1, sf, lm)
		g.nccs(2, sf, lm)
	case gteDPCS:
		g.dpc(false, sf, lm)
	case gteDPCT:
		g.dpc(true, sf, lm)
		g.dpc(true, sf, lm)
		g.dpc(true, sf, lm)
	case gteCC:
		g.cc(sf, lm)
	case gteCDP:
		g.cdp(sf, lm)
	case gteINTPL:
		g.intpl(sf, lm)
	case gteDCPL:
		g.dcpl(sf, lm)
	case gteGPF:
		g.gpf(sf, lm)
	case gteGPL:
		g.gpl(sf, lm)
	case gteSQR:
		g.sqr(sf, lm)
	case gteAVSZ3:
		g.avsz3()
	case gteAVSZ4:
		g.avsz4()
	}
	g.Control[gcFLAG] |= g.flag
	g.recomputeFlagBit31()
}

// vertex returns the signed 16-bit (x, y, z) for vertex index (0, 1 or 2).
func (g *GTEState) vertex(idx int) (int32, int32, int32) {
	switch idx {
	case 0:
		xy := g.Data[gdVXY0]
		return int16v(xy), int16hv(xy), int16v(g.Data[gdVZ0])
	case 1:
		xy := g.Data[gdVXY1]
		return int16v(xy), int16hv(xy), int16v(g.Data[gdVZ1])
	default:
		xy := g.Data[gdVXY2]
		return int16v(xy), int16hv(xy), int16v(g.Data[gdVZ2])
	}
}

// matMulVec multiplies the 3x3 matrix at control base `base` by (x,y,z) and
// adds the translation vector (trX,trY,trZ), writing MAC1-3/IR1-3 (§4.6
// "per-step wrapping accumulator"). When trBugFarColor is true (MVMVA cv==2)
// the translation and first product term are still accumulated to drive the
// 44-bit overflow check (and its sticky flags), but are then discarded: the
// value actually written back uses only the last two product terms,
// reproducing the documented "far color bugged" hardware quirk.
func (g *GTEState) matMulVec(base int, x, y, z, trX, trY, trZ int32, sf bool, lm bool, trBugFarColor bool) {
	r0a, r0b, r0c := matRow(g, base, 0)
	r1a, r1b, r1c := matRow(g, base, 1)
	r2a, r2b, r2c := matRow(g, base, 2)

	mac := func(a0, a1, a2, tr int32, idx int) int64 {
		full := int64(tr)<<12 + int64(a0)*int64(x)
		tail := int64(a1)*int64(y) + int64(a2)*int64(z)
		if trBugFarColor {
			// the first-term partial sum still passes through the
			// overflow check so its sticky flags latch, then is thrown
			// away in favor of the two-term result.
			g.macWriteback(idx, full, sf)
			return tail
		}
		return full + tail
	}

	m1 := mac(r0a, r0b, r0c, trX, 1)
	m2 := mac(r1a, r1b, r1c, trY, 2)
	m3 := mac(r2a, r2b, r2c, trZ, 3)

	v1 := g.macWriteback(1, m1, sf)
	v2 := g.macWriteback(2, m2, sf)
	v3 := g.macWriteback(3, m3, sf)

	g.Data[gdMAC1] = uint32(v1)
	g.Data[gdMAC2] = uint32(v2)
	g.Data[gdMAC3] = uint32(v3)
	g.Data[gdIR1] = g.satIR(1, v1, lm)
	g.Data[gdIR2] = g.satIR(2, v2, lm)
	g.Data[gdIR3] = g.satIR(3, v3, lm)
}

// rtp performs the perspective-transform (RTPS/RTPT) for the given vertex
// slot (0,1,2); last indicates whether this is the final vertex of the
// group, which additionally computes MAC0/IR0 from DQA/DQB.
func (g *GTEState) rtp(slot int, sf bool, last bool) {
	x, y, z := g.vertex(slot)
	trX := int32(g.Control[gcTRX])
	trY := int32(g.Control[gcTRY])
	trZ := int32(g.Control[gcTRZ])
	g.matMulVec(gcRT11RT12, x, y, z, trX, trY, trZ, sf, false, false)

	// SZ always uses the sf-shifted value regardless of the sf bit, since
	// the hardware's Z FIFO push is wired from the pre-truncation adder.
	szRaw := int64(int32(g.Data[gdMAC3]))
	if !sf {
		szRaw >>= 12
	}
	g.pushSZ(g.satSZ(szRaw))

	if !last {
		return
	}

	h := g.Control[gcH]
	sz3 := g.Data[gdSZ3]
	divResult := g.divideUNR(h, sz3)

	ofx := int32(g.Control[gcOFX])
	ofy := int32(g.Control[gcOFY])
	sx := (int64(divResult)*int64(int32(g.Data[gdIR1])) + int64(ofx)) >> 16
	sy := (int64(divResult)*int64(int32(g.Data[gdIR2])) + int64(ofy)) >> 16
	sxs, sys := g.satSXY(sx, sy)
	g.pushSXY(sxs, sys)

	dqa := int32(g.Control[gcDQA])
	dqb := int32(g.Control[gcDQB])
	mac0 := int64(dqb) + int64(dqa)*int64(divResult)
	g.Data[gdMAC0] = uint32(mac0)
	if mac0 < 0 {
		g.flag |= flagMAC0Neg
	} else if mac0 >= 1<<31 {
		g.flag |= flagMAC0Pos
	}
	g.Data[gdIR0] = g.satIR0(mac0 >> 12)
}

func (g *GTEState) nclip() {
	x0, y0 := int16v(g.Data[gdSXY0]), int16hv(g.Data[gdSXY0])
	x1, y1 := int16v(g.Data[gdSXY1]), int16hv(g.Data[gdSXY1])
	x2, y2 := int16v(g.Data[gdSXY2]), int16hv(g.Data[gdSXY2])
	mac0 := int64(x0)*int64(y1-y2) + int64(x1)*int64(y2-y0) + int64(x2)*int64(y0-y1)
	g.Data[gdMAC0] = uint32(mac0)
	if mac0 < 0 {
		g.flag |= flagMAC0Neg
	} else if mac0 >= 1<<31 {
		g.flag |= flagMAC0Pos
	}
}

func (g *GTEState) op(sf bool, lm bool) {
	ir1 := int32(int32ToI32(g.Data[gdIR1]))
	ir2 := int32(int32ToI32(g.Data[gdIR2]))
	ir3 := int32(int32ToI32(g.Data[gdIR3]))
	d1 := int16v(g.Control[gcRT11RT12])
	d2 := int16v(g.Control[gcRT22RT23])
	d3 := int16v(g.Control[gcRT33])

	m1 := g.macWriteback(1, int64(d2)*int64(ir3)-int64(d3)*int64(ir2), sf)
	m2 := g.macWriteback(2, int64(d3)*int64(ir1)-int64(d1)*int64(ir3), sf)
	m3 := g.macWriteback(3, int64(d1)*int64(ir2)-int64(d2)*int64(ir1), sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
}

// mvmva implements the configurable matrix*vector+translation opcode. mx
// selects the rotation/light/color matrix (0,1,2) or a zero matrix (3); v
// selects the vector source (V0,V1,V2 or the IR1-3 triple); cv selects the
// translation column (TR, BK, FC, or none). cv==2 ("far color") reproduces
// the documented hardware quirk in matMulVec.
func (g *GTEState) mvmva(sf, lm bool, mx, v, cv uint32) {
	var base int
	switch mx {
	case 0:
		base = gcRT11RT12
	case 1:
		base = gcL11L12
	case 2:
		base = gcLR1LR2
	default:
		base = -1
	}

	var x, y, z int32
	switch v {
	case 0:
		x, y, z = g.vertex(0)
	case 1:
		x, y, z = g.vertex(1)
	case 2:
		x, y, z = g.vertex(2)
	default:
		x = int32(int32ToI32(g.Data[gdIR1]))
		y = int32(int32ToI32(g.Data[gdIR2]))
		z = int32(int32ToI32(g.Data[gdIR3]))
	}

	var trX, trY, trZ int32
	switch cv {
	case 0:
		trX, trY, trZ = int32(g.Control[gcTRX]), int32(g.Control[gcTRY]), int32(g.Control[gcTRZ])
	case 1:
		trX, trY, trZ = int32(g.Control[gcRBK]), int32(g.Control[gcGBK]), int32(g.Control[gcBBK])
	case 2:
		trX, trY, trZ = int32(g.Control[gcRFC]), int32(g.Control[gcGFC]), int32(g.Control[gcBFC])
	default:
		trX, trY, trZ = 0, 0, 0
	}

	if base < 0 {
		// Zero matrix: MAC = translation only (still 44-bit accumulated).
		m1 := g.macWriteback(1, int64(trX)<<12, sf)
		m2 := g.macWriteback(2, int64(trY)<<12, sf)
		m3 := g.macWriteback(3, int64(trZ)<<12, sf)
		g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
		g.Data[gdIR1] = g.satIR(1, m1, lm)
		g.Data[gdIR2] = g.satIR(2, m2, lm)
		g.Data[gdIR3] = g.satIR(3, m3, lm)
		return
	}
	g.matMulVec(base, x, y, z, trX, trY, trZ, sf, lm, cv == 2)
}

// colorFromRGBC returns the 8-bit R,G,B,CODE fields of the RGBC register.
func (g *GTEState) colorFromRGBC() (uint8, uint8, uint8, uint8) {
	rgbc := g.Data[gdRGBC]
	return uint8(rgbc), uint8(rgbc >> 8), uint8(rgbc >> 16), uint8(rgbc >> 24)
}

// ncs implements the normal-color chain (NCS/NCT): light matrix * normal,
// then color matrix * result + background color, pushed to the color FIFO
// using RGBC's code byte.
func (g *GTEState) ncs(slot int, sf bool, lm bool) {
	x, y, z := g.vertex(slot)
	g.matMulVec(gcL11L12, x, y, z, 0, 0, 0, sf, lm, false)
	ir1 := int32(int32ToI32(g.Data[gdIR1]))
	ir2 := int32(int32ToI32(g.Data[gdIR2]))
	ir3 := int32(int32ToI32(g.Data[gdIR3]))
	g.matMulVec(gcLR1LR2, ir1, ir2, ir3, int32(g.Control[gcRBK]), int32(g.Control[gcGBK]), int32(g.Control[gcBBK]), sf, lm, false)
	g.finishColor()
}

// ncds/ncdt: as ncs, but additionally depth-cues the modulated color toward
// the far-color register using IR0's interpolation factor.
func (g *GTEState) ncds(slot int, sf bool, lm bool) {
	x, y, z := g.vertex(slot)
	g.matMulVec(gcL11L12, x, y, z, 0, 0, 0, sf, lm, false)
	ir1 := int32(int32ToI32(g.Data[gdIR1]))
	ir2 := int32(int32ToI32(g.Data[gdIR2]))
	ir3 := int32(int32ToI32(g.Data[gdIR3]))
	g.matMulVec(gcLR1LR2, ir1, ir2, ir3, int32(g.Control[gcRBK]), int32(g.Control[gcGBK]), int32(g.Control[gcBBK]), sf, lm, false)
	r, gC, b, code := g.colorFromRGBC()
	g.modulateAndDepthCue(r, gC, b, code, sf, lm)
}

// nccs/ncct: light + color matrix chain, modulated by RGBC but without
// depth cueing.
func (g *GTEState) nccs(slot int, sf bool, lm bool) {
	x, y, z := g.vertex(slot)
	g.matMulVec(gcL11L12, x, y, z, 0, 0, 0, sf, lm, false)
	ir1 := int32(int32ToI32(g.Data[gdIR1]))
	ir2 := int32(int32ToI32(g.Data[gdIR2]))
	ir3 := int32(int32ToI32(g.Data[gdIR3]))
	g.matMulVec(gcLR1LR2, ir1, ir2, ir3, int32(g.Control[gcRBK]), int32(g.Control[gcGBK]), int32(g.Control[gcBBK]), sf, lm, false)
	r, gC, b, code := g.colorFromRGBC()
	m1 := g.macWriteback(1, int64(int32(g.Data[gdMAC1]))*int64(r)<<4, sf)
	m2 := g.macWriteback(2, int64(int32(g.Data[gdMAC2]))*int64(gC)<<4, sf)
	m3 := g.macWriteback(3, int64(int32(g.Data[gdMAC3]))*int64(b)<<4, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
	g.pushColorFromMAC(code)
}

func (g *GTEState) finishColor() {
	_, _, _, code := g.colorFromRGBC()
	g.pushColorFromMAC(code)
}

func (g *GTEState) pushColorFromMAC(code uint8) {
	r := g.satColor(int64(int32(g.Data[gdMAC1]))>>4, flagColRSat)
	gC := g.satColor(int64(int32(g.Data[gdMAC2]))>>4, flagColGSat)
	b := g.satColor(int64(int32(g.Data[gdMAC3]))>>4, flagColBSat)
	g.pushRGB(r, gC, b, code)
}

// modulateAndDepthCue performs the NCDS/NCDT tail: modulate
// MAC1-3 by RGBC, then interpolate toward the far-color register by IR0.
func (g *GTEState) modulateAndDepthCue(r, gC, b, code uint8, sf, lm bool) {
	m1 := int64(int32(g.Data[gdMAC1])) * int64(r) << 4
	m2 := int64(int32(g.Data[gdMAC2])) * int64(gC) << 4
	m3 := int64(int32(g.Data[gdMAC3])) * int64(b) << 4
	g.depthCue(m1, m2, m3, sf, lm, code)
}

// depthCue implements FC - modulated, * IR0, + modulated (shared by the
// DPCS/DPCT/CDP/INTPL/DCPL/NCDS/NCDT tails that cue toward the far-color
// vector).
func (g *GTEState) depthCue(m1, m2, m3 int64, sf, lm bool, code uint8) {
	ir0 := int64(int32(g.Data[gdIR0]))
	fc1 := int64(g.Control[gcRFC]) << 12
	fc2 := int64(g.Control[gcGFC]) << 12
	fc3 := int64(g.Control[gcBFC]) << 12

	d1 := g.macWriteback(1, fc1-m1, sf)
	d2 := g.macWriteback(2, fc2-m2, sf)
	d3 := g.macWriteback(3, fc3-m3, sf)
	ir1 := g.satIR(1, d1, false)
	ir2 := g.satIR(2, d2, false)
	ir3 := g.satIR(3, d3, false)
	g.Data[gdIR1], g.Data[gdIR2], g.Data[gdIR3] = ir1, ir2, ir3

	f1 := g.macWriteback(1, m1+int64(int32(ir1))*ir0, sf)
	f2 := g.macWriteback(2, m2+int64(int32(ir2))*ir0, sf)
	f3 := g.macWriteback(3, m3+int64(int32(ir3))*ir0, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(f1), uint32(f2), uint32(f3)
	g.Data[gdIR1] = g.satIR(1, f1, lm)
	g.Data[gdIR2] = g.satIR(2, f2, lm)
	g.Data[gdIR3] = g.satIR(3, f3, lm)
	g.pushColorFromMAC(code)
}

func (g *GTEState) dpc(fifo bool, sf, lm bool) {
	var r, gC, b, code uint8
	if fifo {
		rgb := g.Data[gdRGB0]
		r, gC, b, code = uint8(rgb), uint8(rgb>>8), uint8(rgb>>16), uint8(rgb>>24)
	} else {
		r, gC, b, code = g.colorFromRGBC()
	}
	m1 := int64(r) << 16
	m2 := int64(gC) << 16
	m3 := int64(b) << 16
	g.depthCue(m1, m2, m3, sf, lm, code)
}

// cdp modulates IR1-3 directly by RGBC before depth cueing toward the
// far-color register.
func (g *GTEState) cdp(sf, lm bool) {
	r, gC, b, code := g.colorFromRGBC()
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	cm1 := ir1 * int64(r) << 4
	cm2 := ir2 * int64(gC) << 4
	cm3 := ir3 * int64(b) << 4
	g.depthCue(cm1, cm2, cm3, sf, lm, code)
}

func (g *GTEState) cc(sf, lm bool) {
	r, gC, b, code := g.colorFromRGBC()
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	m1 := g.macWriteback(1, ir1*int64(r)<<4, sf)
	m2 := g.macWriteback(2, ir2*int64(gC)<<4, sf)
	m3 := g.macWriteback(3, ir3*int64(b)<<4, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
	g.pushColorFromMAC(code)
}

func (g *GTEState) intpl(sf, lm bool) {
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	_, _, _, code := g.colorFromRGBC()
	g.depthCue(ir1<<12, ir2<<12, ir3<<12, sf, lm, code)
}

func (g *GTEState) dcpl(sf, lm bool) {
	r, gC, b, code := g.colorFromRGBC()
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	m1 := ir1 * int64(r) << 4
	m2 := ir2 * int64(gC) << 4
	m3 := ir3 * int64(b) << 4
	g.depthCue(m1, m2, m3, sf, lm, code)
}

func (g *GTEState) sqr(sf, lm bool) {
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	m1 := g.macWriteback(1, ir1*ir1, sf)
	m2 := g.macWriteback(2, ir2*ir2, sf)
	m3 := g.macWriteback(3, ir3*ir3, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
}

func (g *GTEState) gpf(sf, lm bool) {
	ir0 := int64(int32(g.Data[gdIR0]))
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	m1 := g.macWriteback(1, ir0*ir1, sf)
	m2 := g.macWriteback(2, ir0*ir2, sf)
	m3 := g.macWriteback(3, ir0*ir3, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
	_, _, _, code := g.colorFromRGBC()
	g.pushColorFromMAC(code)
}

func (g *GTEState) gpl(sf, lm bool) {
	ir0 := int64(int32(g.Data[gdIR0]))
	ir1 := int64(int32(g.Data[gdIR1]))
	ir2 := int64(int32(g.Data[gdIR2]))
	ir3 := int64(int32(g.Data[gdIR3]))
	base1 := int64(int32(g.Data[gdMAC1]))
	base2 := int64(int32(g.Data[gdMAC2]))
	base3 := int64(int32(g.Data[gdMAC3]))
	if sf {
		base1 <<= 12
		base2 <<= 12
		base3 <<= 12
	}
	m1 := g.macWriteback(1, base1+ir0*ir1, sf)
	m2 := g.macWriteback(2, base2+ir0*ir2, sf)
	m3 := g.macWriteback(3, base3+ir0*ir3, sf)
	g.Data[gdMAC1], g.Data[gdMAC2], g.Data[gdMAC3] = uint32(m1), uint32(m2), uint32(m3)
	g.Data[gdIR1] = g.satIR(1, m1, lm)
	g.Data[gdIR2] = g.satIR(2, m2, lm)
	g.Data[gdIR3] = g.satIR(3, m3, lm)
	_, _, _, code := g.colorFromRGBC()
	g.pushColorFromMAC(code)
}

func (g *GTEState) avsz3() {
	zsf3 := int64(int32(g.Control[gcZSF3]))
	sum := int64(g.Data[gdSZ1]) + int64(g.Data[gdSZ2]) + int64(g.Data[gdSZ3])
	mac0 := zsf3 * sum
	g.Data[gdMAC0] = uint32(mac0)
	g.Data[gdOTZ] = g.satSZ(mac0 >> 12)
}

func (g *GTEState) avsz4() {
	zsf4 := int64(int32(g.Control[gcZSF4]))
	sum := int64(g.Data[gdSZ0]) + int64(g.Data[gdSZ1]) + int64(g.Data[gdSZ2]) + int64(g.Data[gdSZ3])
	mac0 := zsf4 * sum
	g.Data[gdMAC0] = uint32(mac0)
	g.Data[gdOTZ] = g.satSZ(mac0 >> 12)
}
