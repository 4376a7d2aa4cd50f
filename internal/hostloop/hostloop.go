// Package hostloop paces the emulation loop against ebiten's frame clock.
//
// Grounded on the teacher's video_backend_ebiten.go: an ebiten.Game whose
// Update drives the emulated machine for one field and hands that field's
// draw-command count to a GPUSink. Draw rasterizes nothing and is empty —
// the GPU rasterizer itself stays an external collaborator — where the
// teacher's Draw blits an already-composited frame buffer.
package hostloop

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// GPUSink receives, once per Update, the guest draw-command count observed
// during that field; a no-op implementation is enough to keep the
// rasterizer an external concern.
type GPUSink interface {
	Present(drawCommandCount int)
}

// NopGPUSink discards frames; the default when no front end is attached.
type NopGPUSink struct{}

func (NopGPUSink) Present(int) {}

// Pump is the subset of Machine this package depends on, kept narrow so
// hostloop never needs to import the core package directly.
type Pump interface {
	// RunOneField advances the machine by one video field's worth of
	// cycles and returns the number of GPU draw commands retired.
	RunOneField() int
}

// Game implements ebiten.Game, driving a Pump once per host frame and
// reporting to a GPUSink; it never itself rasterizes.
type Game struct {
	Pump   Pump
	Sink   GPUSink
	Width  int
	Height int

	closed bool
	onQuit func()
}

// New builds a Game at the PSX's standard output resolution; width/height
// only size the host window; no pixel data is generated here.
func New(pump Pump, sink GPUSink, onQuit func()) *Game {
	if sink == nil {
		sink = NopGPUSink{}
	}
	return &Game{Pump: pump, Sink: sink, Width: 640, Height: 480, onQuit: onQuit}
}

func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		g.closed = true
		if g.onQuit != nil {
			g.onQuit()
		}
		return ebiten.Termination
	}
	if g.closed {
		return ebiten.Termination
	}
	n := g.Pump.RunOneField()
	g.Sink.Present(n)
	return nil
}

// Draw is intentionally empty: compositing guest pixels is an external
// front-end's job, not this core's.
func (g *Game) Draw(screen *ebiten.Image) {}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.Width, g.Height
}

// Run starts ebiten's game loop at the configured refresh rate; it blocks
// until the window closes or Update returns ebiten.Termination.
func Run(g *Game, title string, refreshHz float64) error {
	ebiten.SetWindowSize(g.Width, g.Height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetTPS(int(refreshHz))
	return ebiten.RunGame(g)
}
