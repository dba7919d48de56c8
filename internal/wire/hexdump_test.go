package wire_test

import (
	"strings"
	"testing"

	"github.com/CaptianFluffy100/net-sentinel/internal/wire"
)

func TestHexDump_SingleRow(t *testing.T) {
	got := wire.HexDump([]byte("hello"))
	if !strings.HasPrefix(got, "00000000: 68 65 6C 6C 6F") {
		t.Fatalf("HexDump = %q, want hex bytes for \"hello\" after the offset", got)
	}
	if !strings.HasSuffix(got, "hello\n") {
		t.Fatalf("HexDump = %q, want the ASCII column to end with \"hello\"", got)
	}
}

func TestHexDump_MultipleRowsAndOffsets(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	got := wire.HexDump(data)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d rows, want 2 for 20 bytes", len(lines))
	}
	if !strings.HasPrefix(lines[0], "00000000: ") {
		t.Fatalf("first row offset = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00000010: ") {
		t.Fatalf("second row offset = %q", lines[1])
	}
}

func TestHexDump_NonPrintableBytesDotted(t *testing.T) {
	got := wire.HexDump([]byte{0x00, 0x01, 'A'})
	if !strings.Contains(got, "..A") {
		t.Fatalf("HexDump = %q, want ASCII column to dot non-printables", got)
	}
}
