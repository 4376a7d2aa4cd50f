// cdrom.go - CD-ROM controller stub (§3 supplemented feature, C10).
//
// Grounded the same way as sio.go: the CD-ROM command/response/data-FIFO
// protocol is an external collaborator out of scope per §1, so this is a
// status-register-only backing store giving the scheduler's CDROM event
// kind and BIOS polling loops something well-defined to observe.

package psxcore

const (
	cdromRegStatus = 0x1F801800
	cdromRegData   = 0x1F801801
	cdromStatIdle  = 1 << 3 // "no command in progress", keeps BIOS polling loops from hanging
)

// CDROMStub backs the index/status/command/data register window with
// read-back-what-was-written storage for the index-select register plus a
// status byte that always reports idle.
type CDROMStub struct {
	Index byte
}

func (c *CDROMStub) Read(addr uint32) uint32 {
	switch addr {
	case cdromRegStatus:
		return uint32(cdromStatIdle | c.Index&0x3)
	default:
		return 0xFF
	}
}

func (c *CDROMStub) Write(addr uint32, value uint32) {
	switch addr {
	case cdromRegStatus:
		c.Index = byte(value) & 0x3
	}
}

// OnCDROMEvent is the scheduler's CDROM callback hook, left a no-op for the
// same reason as sio.go's OnSIOEvent: no protocol state machine is modeled.
func (hw *HWRegisters) OnCDROMEvent(now uint64) {}
