// sio.go - serial I/O stub (§3 supplemented feature, C10).
//
// The controller/memory-card protocol state machine is an external
// collaborator per spec.md §1's Non-goals; this is the minimal
// status-register-level stub SPEC_FULL.md §3 calls for so the scheduler's
// SIO event kind has something to dispatch to.

package psxcore

const (
	sioRegData   = 0x1F801040
	sioRegStat   = 0x1F801044
	sioRegMode   = 0x1F801048
	sioRegCtrl   = 0x1F80104A
	sioRegBaud   = 0x1F80104E
	sioStatReady = 1 << 2 // TX ready, always asserted by this stub
)

// SIOStub backs the SIO register range with read-back-what-was-written
// storage, always reporting TX-ready so guest code polling the status
// register never deadlocks waiting on a controller that isn't modeled.
type SIOStub struct {
	Mode uint32
	Ctrl uint32
	Baud uint32
}

func (s *SIOStub) Read(addr uint32) uint32 {
	switch addr {
	case sioRegStat:
		return sioStatReady
	case sioRegMode:
		return s.Mode
	case sioRegCtrl:
		return s.Ctrl
	case sioRegBaud:
		return s.Baud
	default:
		return 0xFFFFFFFF
	}
}

func (s *SIOStub) Write(addr uint32, value uint32) {
	switch addr {
	case sioRegMode:
		s.Mode = value
	case sioRegCtrl:
		s.Ctrl = value
	case sioRegBaud:
		s.Baud = value
	}
}

// OnSIOEvent is the scheduler's SIO callback: a pending transfer deadline
// that, once reached, would raise the SIO IRQ if a real protocol were
// modeled. Left as a no-op hook so callers can wire it without the stub
// itself inventing protocol behavior.
func (hw *HWRegisters) OnSIOEvent(now uint64) {}
