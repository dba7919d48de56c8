package builder

import (
	"testing"

	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

func litNum(n uint64) script.NumOperand { return script.NumOperand{Kind: script.NumLiteral, Literal: n} }
func litStr(s string) script.StrOperand { return script.StrOperand{Kind: script.StrLiteral, Literal: s} }

func TestBuild_HandshakeLength(t *testing.T) {
	pkt := &script.PacketBlock{Writes: []script.WriteCommand{
		{Op: script.WriteInt, Num: script.NumOperand{Kind: script.NumPacketLen}},
		{Op: script.WriteInt, Num: litNum(1)},
		{Op: script.WriteInt, Num: litNum(3)},
		{Op: script.WriteString, Str: litStr("test")},
		{Op: script.WriteByte, Num: litNum(0)},
		{Op: script.WriteByte, Num: litNum(0)},
	}}

	got, err := Build(pkt, value.NewEnvironment())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// 15 bytes follow the length field: 4 + 4 + "test\x00" (5) + 2.
	want := []byte{
		0x0F, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x74, 0x65, 0x73, 0x74, 0x00,
		0x00, 0x00,
	}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d (%x), want %d (%x)", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x (full: %x)", i, got[i], want[i], got)
		}
	}
}

func TestBuild_MinecraftVarIntHandshake(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("IP", value.String("10.0.2.27"))
	env.Set("HOST", value.String("10.0.2.27"))
	env.Set("IP_LEN", value.Uint(9))
	env.Set("PORT", value.Uint(26000))

	pkt := &script.PacketBlock{Writes: []script.WriteCommand{
		{Op: script.WriteVarInt, Num: script.NumOperand{Kind: script.NumPacketLen}},
		{Op: script.WriteVarInt, Num: litNum(0)},
		{Op: script.WriteVarInt, Num: litNum(0x47)},
		{Op: script.WriteVarInt, Num: script.NumOperand{Kind: script.NumVar, VarName: "IP_LEN"}},
		{Op: script.WriteStringLen, Str: litStr("HOST"), StrLen: script.NumOperand{Kind: script.NumVar, VarName: "IP_LEN"}},
		{Op: script.WriteShortBE, Num: script.NumOperand{Kind: script.NumVar, VarName: "PORT"}},
		{Op: script.WriteVarInt, Num: litNum(1)},
	}}

	got, err := Build(pkt, env)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) < 1 {
		t.Fatalf("empty buffer")
	}
	if int(got[0]) != len(got)-1 {
		t.Fatalf("length varint byte %d does not match remaining length %d", got[0], len(got)-1)
	}
	portBytes := got[len(got)-3 : len(got)-1]
	if portBytes[0] != 0x65 || portBytes[1] != 0x90 {
		t.Fatalf("port bytes = %x, want 65 90", portBytes)
	}
}
