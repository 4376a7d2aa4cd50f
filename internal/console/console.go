// Package console provides a raw-mode stdin debug terminal and a clipboard
// snapshot exporter.
//
// Grounded on the teacher's terminal_host.go (term.MakeRaw + a non-blocking
// single-byte read loop feeding a host-key callback) and on
// video_backend_ebiten.go's clipboard paste handling, here turned around
// into a clipboard *write* of a formatted register dump.
package console

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.design/x/clipboard"
	"golang.org/x/term"
)

// Snapshot is the minimal register set a debug dump reports; callers fill
// it from CPUState/GTE/SPU fields without this package importing the core.
type Snapshot struct {
	PC, Cause, SR, EPC uint32
	GPR                [32]uint32
	GTEFlag            uint32
	SPUVoicesActive    int
}

// Report formats a snapshot the way a terminal debug command would print
// it: one labeled line per register group, no trailing summary.
func (s Snapshot) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc=%08x cause=%08x sr=%08x epc=%08x\n", s.PC, s.Cause, s.SR, s.EPC)
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "r%-2d=%08x r%-2d=%08x r%-2d=%08x r%-2d=%08x\n",
			i, s.GPR[i], i+1, s.GPR[i+1], i+2, s.GPR[i+2], i+3, s.GPR[i+3])
	}
	fmt.Fprintf(&b, "gte.flag=%08x spu.voices_active=%d\n", s.GTEFlag, s.SPUVoicesActive)
	return b.String()
}

// CopySnapshot copies a formatted Snapshot report to the system clipboard;
// the caller is responsible for having called clipboard.Init() once at
// process start (it requires a live display/clipboard backend, so tests
// never call it).
func CopySnapshot(s Snapshot) {
	clipboard.Write(clipboard.FmtText, []byte(s.Report()))
}

// Host reads raw stdin a byte at a time and routes it to OnByte, intended
// for an interactive debug command line (step/continue/breakpoint/dump)
// layered on top by a command dispatcher.
type Host struct {
	OnByte func(b byte)

	fd       int
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	oldState *term.State
}

func NewHost(onByte func(b byte)) *Host {
	return &Host{OnByte: onByte, stopCh: make(chan struct{}), done: make(chan struct{})}
}

// Start puts stdin into raw non-blocking mode and begins routing bytes in
// a background goroutine; call Stop to restore the terminal.
func (h *Host) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "console: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "console: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
		close(h.done)
		return
	}

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}
			n, err := syscall.Read(h.fd, buf)
			if n > 0 && h.OnByte != nil {
				h.OnByte(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
}

func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		<-h.done
		if h.oldState != nil {
			_ = term.Restore(h.fd, h.oldState)
		}
	})
}
