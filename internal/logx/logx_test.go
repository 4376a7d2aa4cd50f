package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerUnknownOpcodeCapsRepeatedLogging(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	for i := 0; i < 12; i++ {
		log.UnknownOpcode(0x1000, 0xDEADBEEF)
	}

	if n := strings.Count(buf.String(), "unknown opcode"); n != 8 {
		t.Fatalf("logged %d times, want capped at 8", n)
	}
}

func TestLoggerUnknownOpcodeCountsPerWordIndependently(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	for i := 0; i < 9; i++ {
		log.UnknownOpcode(0x1000, 0x11111111)
	}
	for i := 0; i < 3; i++ {
		log.UnknownOpcode(0x2000, 0x22222222)
	}

	if n := strings.Count(buf.String(), "unknown opcode"); n != 11 {
		t.Fatalf("logged %d times, want 8 (capped) + 3 (under cap) = 11", n)
	}
}
