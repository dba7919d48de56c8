package wire_test

import (
	"testing"

	"github.com/CaptianFluffy100/net-sentinel/internal/wire"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 16384, 1 << 32, 1<<63 - 1}
	for _, n := range cases {
		buf := wire.EncodeVarInt(nil, n)
		if len(buf) != wire.VarIntLen(n) {
			t.Fatalf("VarIntLen(%d) = %d, encoded length = %d", n, wire.VarIntLen(n), len(buf))
		}
		pos := 0
		got, err := wire.ReadVarInt(buf, &pos)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("round trip %d -> %d", n, got)
		}
		if pos != len(buf) {
			t.Fatalf("cursor %d != buffer length %d", pos, len(buf))
		}
	}
}

func TestVarInt300(t *testing.T) {
	buf := wire.EncodeVarInt(nil, 300)
	want := []byte{0xAC, 0x02}
	if len(buf) != len(want) || buf[0] != want[0] || buf[1] != want[1] {
		t.Fatalf("EncodeVarInt(300) = % X, want % X", buf, want)
	}
	pos := 0
	got, err := wire.ReadVarInt(buf, &pos)
	if err != nil || got != 300 {
		t.Fatalf("ReadVarInt(% X) = %d, %v; want 300, nil", buf, got, err)
	}
}

func TestVarIntTooLong(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	pos := 0
	if _, err := wire.ReadVarInt(buf, &pos); err == nil {
		t.Fatal("expected error decoding an 11-byte varint")
	}
}

func TestEndianSymmetry(t *testing.T) {
	v := uint16(0x1234)
	le := wire.PutShort(nil, v)
	be := wire.PutShortBE(nil, v)
	if le[0] == be[0] {
		t.Fatalf("LE and BE encodings of non-palindromic value should differ, got %X and %X", le, be)
	}

	pos := 0
	got, err := wire.ReadShort(le, &pos)
	if err != nil || got != v {
		t.Fatalf("ReadShort(LE) = %d, %v; want %d, nil", got, err, v)
	}

	pos = 0
	got, err = wire.ReadShortBE(be, &pos)
	if err != nil || got != v {
		t.Fatalf("ReadShortBE(BE) = %d, %v; want %d, nil", got, err, v)
	}

	// swapping endianness breaks it
	pos = 0
	got, _ = wire.ReadShortBE(le, &pos)
	if got == v {
		t.Fatalf("reading LE bytes as BE should not reproduce %d", v)
	}
}

func TestStringRoundTrip(t *testing.T) {
	s := "hello world"
	buf := wire.PutString(nil, s)
	pos := 0
	got, err := wire.ReadStringNull(buf, &pos)
	if err != nil {
		t.Fatalf("ReadStringNull: %v", err)
	}
	if got != s {
		t.Fatalf("round trip %q -> %q", s, got)
	}
	if pos != len(buf) {
		t.Fatalf("cursor %d != buffer length %d", pos, len(buf))
	}
}

func TestStringNullMissingTerminator(t *testing.T) {
	pos := 0
	if _, err := wire.ReadStringNull([]byte("no terminator"), &pos); err == nil {
		t.Fatal("expected ParseError when no null terminator is present")
	}
}

func TestStringLenFixedWidth(t *testing.T) {
	cases := []struct {
		s string
		n int
	}{
		{"short", 10},
		{"this is too long", 4},
		{"exact", 5},
	}
	for _, c := range cases {
		buf := wire.PutStringLen(nil, c.s, c.n)
		if len(buf) != c.n {
			t.Fatalf("PutStringLen(%q, %d) produced %d bytes, want %d", c.s, c.n, len(buf), c.n)
		}
	}
}

func TestDecodeHexLiteral(t *testing.T) {
	got, err := wire.DecodeHexLiteral("0x FE 01")
	if err != nil {
		t.Fatalf("DecodeHexLiteral: %v", err)
	}
	want := []byte{0xFE, 0x01}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("DecodeHexLiteral = % X, want % X", got, want)
	}

	if _, err := wire.DecodeHexLiteral("ABC"); err == nil {
		t.Fatal("expected error for odd-length hex literal")
	}
}

func TestReadPastEndNeverPanics(t *testing.T) {
	data := []byte{0x01}
	pos := 1
	if _, err := wire.ReadByte(data, &pos); err == nil {
		t.Fatal("expected ParseError reading past end")
	}
	pos = 0
	if _, err := wire.ReadInt(data, &pos); err == nil {
		t.Fatal("expected ParseError reading 4 bytes from a 1-byte buffer")
	}
}
