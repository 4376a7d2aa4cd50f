// config.go - core settings record (§6 External Interfaces).
//
// A plain struct rather than an INI-backed config type: parsing config
// files is an explicit external-collaborator concern (§1 Non-goals), so
// Settings is the complete ambient requirement, populated by whatever
// embeds this core (cmd/psxcore's flag parsing, a future GUI front end).

package psxcore

type BootMode int

const (
	BootBIOSOnly BootMode = iota
	BootPSXEXE
	BootISO
)

type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// Settings is the core's complete configuration surface.
type Settings struct {
	BIOSPath string
	BootMode BootMode
	ExePath  string // consumed when BootMode == BootPSXEXE
	ISOPath  string // consumed when BootMode == BootISO

	AudioEnable      bool
	ControllerEnable bool
	Region           Region
	FrameLimitEnable bool

	DisableSPUProfiling bool
	DisableGPUProfiling bool
}

// DefaultSettings mirrors real hardware's most common configuration: NTSC,
// audio and controller enabled, frame-limited to the host refresh rate.
func DefaultSettings() Settings {
	return Settings{
		BootMode:         BootBIOSOnly,
		AudioEnable:      true,
		ControllerEnable: true,
		Region:           RegionNTSC,
		FrameLimitEnable: true,
	}
}

// ScanlinesPerFrame returns the region's VBlank period in scanlines (§4.5
// HBlank semantics).
func (r Region) ScanlinesPerFrame() int {
	if r == RegionPAL {
		return 314
	}
	return 263
}

// RefreshHz returns the region's field rate for frame-pacing (§4.5).
func (r Region) RefreshHz() float64 {
	if r == RegionPAL {
		return 50
	}
	return 60
}

func (r Region) String() string {
	if r == RegionPAL {
		return "PAL"
	}
	return "NTSC"
}
