// Package builder implements the packet-building phase: it executes
// WRITE-class commands against a growing byte buffer and resolves
// deferred length placeholders after the buffer is complete, per
// spec.md §4.3.
package builder

import (
	"encoding/binary"
	"fmt"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
	"github.com/CaptianFluffy100/net-sentinel/internal/wire"
)

// PlaceholderKind discriminates the three length-encoding forms a
// PACKET_LEN write can patch.
type PlaceholderKind int

const (
	PlaceholderIntLE PlaceholderKind = iota
	PlaceholderIntBE
	PlaceholderVarInt
)

// Placeholder records a reserved span of bytes that will be patched,
// once the buffer is complete, with the byte count from the end of its
// own encoded bytes to the end of the buffer.
type Placeholder struct {
	Position int
	Kind     PlaceholderKind
	Width    int
}

// BuildBuffer is the growable byte vector the Packet Builder appends to,
// plus the list of outstanding length placeholders.
type BuildBuffer struct {
	Bytes        []byte
	Placeholders []Placeholder
}

// Build executes every write command in pkt against a fresh BuildBuffer
// and returns the finalized, fully patched byte slice.
func Build(pkt *script.PacketBlock, env *value.Environment) ([]byte, error) {
	bb := &BuildBuffer{}
	for _, cmd := range pkt.Writes {
		if err := bb.execute(cmd, env); err != nil {
			return nil, err
		}
	}
	if err := bb.finalize(); err != nil {
		return nil, err
	}
	return bb.Bytes, nil
}

func (bb *BuildBuffer) execute(cmd script.WriteCommand, env *value.Environment) error {
	switch cmd.Op {
	case script.WriteByte:
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutByte(bb.Bytes, byte(n))
	case script.WriteShort:
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutShort(bb.Bytes, uint16(n))
	case script.WriteShortBE:
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutShortBE(bb.Bytes, uint16(n))
	case script.WriteInt:
		if cmd.Num.Kind == script.NumPacketLen {
			bb.Placeholders = append(bb.Placeholders, Placeholder{Position: len(bb.Bytes), Kind: PlaceholderIntLE, Width: 4})
			bb.Bytes = append(bb.Bytes, 0, 0, 0, 0)
			return nil
		}
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutInt(bb.Bytes, uint32(n))
	case script.WriteIntBE:
		if cmd.Num.Kind == script.NumPacketLen {
			bb.Placeholders = append(bb.Placeholders, Placeholder{Position: len(bb.Bytes), Kind: PlaceholderIntBE, Width: 4})
			bb.Bytes = append(bb.Bytes, 0, 0, 0, 0)
			return nil
		}
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutIntBE(bb.Bytes, uint32(n))
	case script.WriteVarInt:
		if cmd.Num.Kind == script.NumPacketLen {
			bb.Placeholders = append(bb.Placeholders, Placeholder{Position: len(bb.Bytes), Kind: PlaceholderVarInt, Width: 1})
			bb.Bytes = append(bb.Bytes, 0)
			return nil
		}
		n, err := resolveNum(cmd.Num, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.EncodeVarInt(bb.Bytes, n)
	case script.WriteString:
		s, err := resolveStr(cmd.Str, env)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutString(bb.Bytes, s)
	case script.WriteStringLen:
		s, err := resolveStr(cmd.Str, env)
		if err != nil {
			return err
		}
		n, err := resolveNum(cmd.StrLen, env, cmd.Line)
		if err != nil {
			return err
		}
		bb.Bytes = wire.PutStringLen(bb.Bytes, s, int(n))
	case script.WriteBytes:
		bb.Bytes = append(bb.Bytes, cmd.Bytes...)
	default:
		return probeerr.NewParseError("unknown write command at line %d", cmd.Line)
	}
	return nil
}

// finalize patches every outstanding placeholder in reverse insertion
// order, which is also decreasing buffer-position order since
// placeholders are appended monotonically during a single linear build
// pass. Processing right-to-left means a VarInt splice never disturbs
// the position of a placeholder still waiting to be patched.
func (bb *BuildBuffer) finalize() error {
	for i := len(bb.Placeholders) - 1; i >= 0; i-- {
		ph := bb.Placeholders[i]
		length := len(bb.Bytes) - (ph.Position + ph.Width)
		if length < 0 {
			return probeerr.NewParseError("length placeholder at byte %d underflowed buffer", ph.Position)
		}
		switch ph.Kind {
		case PlaceholderIntLE:
			binary.LittleEndian.PutUint32(bb.Bytes[ph.Position:ph.Position+4], uint32(length))
		case PlaceholderIntBE:
			binary.BigEndian.PutUint32(bb.Bytes[ph.Position:ph.Position+4], uint32(length))
		case PlaceholderVarInt:
			encoded := wire.EncodeVarInt(nil, uint64(length))
			if len(encoded) == ph.Width {
				copy(bb.Bytes[ph.Position:ph.Position+ph.Width], encoded)
			} else {
				bb.splice(ph.Position, ph.Width, encoded)
			}
		default:
			return fmt.Errorf("unknown placeholder kind %d", ph.Kind)
		}
	}
	return nil
}

// splice replaces the oldWidth bytes at position with replacement,
// growing or shrinking the buffer in place.
func (bb *BuildBuffer) splice(position, oldWidth int, replacement []byte) {
	tail := make([]byte, len(bb.Bytes)-(position+oldWidth))
	copy(tail, bb.Bytes[position+oldWidth:])
	bb.Bytes = append(bb.Bytes[:position], replacement...)
	bb.Bytes = append(bb.Bytes, tail...)
}

// resolveNum resolves a numeric operand to its effective value: a
// literal verbatim, or an environment variable's numeric interpretation.
// PACKET_LEN is handled by the caller before resolveNum is reached.
func resolveNum(op script.NumOperand, env *value.Environment, line int) (uint64, error) {
	switch op.Kind {
	case script.NumLiteral:
		return op.Literal, nil
	case script.NumVar:
		v, ok := env.Get(op.VarName)
		if !ok {
			return 0, probeerr.NewParseError("line %d: undefined variable %q", line, op.VarName)
		}
		n, ok := v.AsInt64()
		if !ok {
			return 0, probeerr.NewParseError("line %d: variable %q is not numeric", line, op.VarName)
		}
		return uint64(n), nil
	case script.NumPacketLen:
		return 0, probeerr.NewParseError("line %d: PACKET_LEN used outside a length write", line)
	default:
		return 0, probeerr.NewParseError("line %d: unknown numeric operand", line)
	}
}

// resolveStr resolves a string operand. By documented convention the
// literal token "HOST" is replaced at probe start with the resolved
// hostname string, even though it appears as a quoted literal rather
// than a bare identifier (spec.md §4.3).
func resolveStr(op script.StrOperand, env *value.Environment) (string, error) {
	switch op.Kind {
	case script.StrLiteral:
		if op.Literal == "HOST" {
			if v, ok := env.Get("HOST"); ok {
				return v.AsString(), nil
			}
		}
		return op.Literal, nil
	case script.StrVar:
		v, ok := env.Get(op.VarName)
		if !ok {
			return "", probeerr.NewParseError("undefined variable %q", op.VarName)
		}
		return v.AsString(), nil
	default:
		return "", probeerr.NewParseError("unknown string operand")
	}
}
