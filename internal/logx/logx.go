// Package logx wraps log/slog with a mutex-guarded text handler and a
// level-gated debug line, in the style of the pack's util/logger wrapper:
// one small handler type rather than configuring slog ad hoc at every
// call site.
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

type handler struct {
	mu    sync.Mutex
	out   io.Writer
	inner slog.Handler
	debug bool
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{out: h.out, inner: h.inner.WithAttrs(attrs), debug: h.debug}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{out: h.out, inner: h.inner.WithGroup(name), debug: h.debug}
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelDebug && !h.debug {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Handle(ctx, r)
}

// Logger is the core's sole logging entry point, handed to every component
// that needs to report translation failures, SMC invalidations, or unknown
// opcodes (§7).
type Logger struct {
	*slog.Logger
	unknownOpcodeCounts map[uint32]int
	maxUnknownLogs      int
}

// New builds a Logger writing to w (os.Stderr in cmd/psxcore's default
// wiring), with debug-level lines gated by debug.
func New(w io.Writer, debug bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	h := &handler{out: w, inner: slog.NewTextHandler(w, nil), debug: debug}
	return &Logger{
		Logger:              slog.New(h),
		unknownOpcodeCounts: make(map[uint32]int),
		maxUnknownLogs:      8,
	}
}

// Debugf is a printf-style convenience wrapper, since most call sites in
// this core log a single formatted line rather than building slog attrs.
func (l *Logger) Debugf(format string, args ...any) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

// UnknownOpcode logs an unrecognized guest instruction word once per
// occurrence up to a fixed cap, per §7's "logged but not fatal" policy.
func (l *Logger) UnknownOpcode(pc uint32, word uint32) {
	n := l.unknownOpcodeCounts[word]
	if n >= l.maxUnknownLogs {
		return
	}
	l.unknownOpcodeCounts[word] = n + 1
	l.Logger.Warn("unknown opcode", "pc", pc, "word", word, "count", n+1)
}
