package evalcode

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
	"github.com/CaptianFluffy100/net-sentinel/internal/wire"
)

// BinaryCursor is the (bytes, offset) pair spec.md §3 defines for
// binary responses. Every successful read strictly advances Pos.
type BinaryCursor struct {
	Data []byte
	Pos  int
}

// HTTPResult is the structured (status, headers, body) tuple that
// replaces the binary Cursor when the transport is HTTP/HTTPS.
type HTTPResult struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// lenSuffixes are the variable-name suffixes that mark a READ_VARINT
// destination as "obviously length-named", per spec.md §9 open question
// (a): a READ_STRING_NULL immediately following such a read is treated
// as length-prefixed by that just-decoded count rather than
// null-terminated.
var lenSuffixes = []string{"_LEN", "_LENGTH"}

func looksLikeLengthVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suf := range lenSuffixes {
		if strings.HasSuffix(upper, suf) {
			return true
		}
	}
	return false
}

// ExecuteBinaryResponse runs a RESPONSE block's READ/EXPECT/SKIP
// commands against a binary cursor.
func ExecuteBinaryResponse(block *script.ResponseBlock, cur *BinaryCursor, env *value.Environment) error {
	var lastLenVar string
	for _, cmd := range block.Reads {
		switch cmd.Op {
		case script.ReadByteOp:
			v, err := wire.ReadByte(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(uint64(v)))
			lastLenVar = ""
		case script.ReadShortOp:
			v, err := wire.ReadShort(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(uint64(v)))
			lastLenVar = ""
		case script.ReadShortBEOp:
			v, err := wire.ReadShortBE(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(uint64(v)))
			lastLenVar = ""
		case script.ReadIntOp:
			v, err := wire.ReadInt(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(uint64(v)))
			lastLenVar = ""
		case script.ReadIntBEOp:
			v, err := wire.ReadIntBE(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(uint64(v)))
			lastLenVar = ""
		case script.ReadVarIntOp:
			v, err := wire.ReadVarInt(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.Uint(v))
			if looksLikeLengthVar(cmd.VarName) {
				lastLenVar = cmd.VarName
			} else {
				lastLenVar = ""
			}
		case script.ReadStringOp:
			n, err := resolveLength(cmd.Length, env, cmd.Line)
			if err != nil {
				return err
			}
			s, err := wire.ReadStringN(cur.Data, &cur.Pos, int(n))
			if err != nil {
				return err
			}
			env.Set(cmd.VarName, value.String(s))
			lastLenVar = ""
		case script.ReadStringNullOp:
			if lastLenVar != "" {
				n, _ := env.Get(lastLenVar)
				count, _ := n.AsInt64()
				s, err := wire.ReadStringN(cur.Data, &cur.Pos, int(count))
				if err != nil {
					return err
				}
				env.Set(cmd.VarName, value.String(s))
			} else {
				s, err := wire.ReadStringNull(cur.Data, &cur.Pos)
				if err != nil {
					return err
				}
				env.Set(cmd.VarName, value.String(s))
			}
			lastLenVar = ""
		case script.SkipBytesOp:
			n, err := resolveLength(cmd.Length, env, cmd.Line)
			if err != nil {
				return err
			}
			if cur.Pos+int(n) > len(cur.Data) {
				return probeerr.WrapParseError(probeerr.ErrInsufficientData, "SKIP_BYTES %d at position %d", n, cur.Pos)
			}
			cur.Pos += int(n)
			lastLenVar = ""
		case script.ExpectByteOp:
			pos := cur.Pos
			v, err := wire.ReadByte(cur.Data, &cur.Pos)
			if err != nil {
				return err
			}
			if v != cmd.ExpectByte {
				return probeerr.NewValidationError(pos, hexByte(cmd.ExpectByte), hexByte(v))
			}
			lastLenVar = ""
		case script.ExpectMagicOp:
			pos := cur.Pos
			if pos+len(cmd.ExpectMagic) > len(cur.Data) {
				return probeerr.WrapParseError(probeerr.ErrInsufficientData, "EXPECT_MAGIC at position %d", pos)
			}
			got := cur.Data[pos : pos+len(cmd.ExpectMagic)]
			if !bytes.Equal(got, cmd.ExpectMagic) {
				return probeerr.NewValidationError(pos, hex.EncodeToString(cmd.ExpectMagic), hex.EncodeToString(got))
			}
			cur.Pos = pos + len(cmd.ExpectMagic)
			lastLenVar = ""
		default:
			return probeerr.NewParseError("line %d: command is not valid in a binary RESPONSE block", cmd.Line)
		}
	}
	return nil
}

// ExecuteHTTPResponse runs a RESPONSE block's EXPECT_STATUS/EXPECT_HEADER/
// READ_BODY/READ_BODY_JSON commands against an HTTP result tuple.
func ExecuteHTTPResponse(block *script.ResponseBlock, res *HTTPResult, env *value.Environment) error {
	for _, cmd := range block.Reads {
		switch cmd.Op {
		case script.ExpectStatusOp:
			if res.Status != cmd.ExpectStatus {
				return probeerr.NewValidationError(0, itoa(cmd.ExpectStatus), itoa(res.Status))
			}
		case script.ExpectHeaderOp:
			got := res.Headers.Get(cmd.HeaderKey)
			if got != cmd.HeaderValue {
				return probeerr.NewValidationError(0, cmd.HeaderValue, got)
			}
		case script.ReadBodyOp:
			if !utf8.Valid(res.Body) {
				return probeerr.NewParseError("response body is not valid UTF-8")
			}
			env.Set(cmd.VarName, value.String(string(res.Body)))
		case script.ReadBodyJSONOp:
			node, err := value.ParseJSON(res.Body)
			if err != nil {
				return probeerr.WrapParseError(err, "parsing response body as JSON")
			}
			env.Set(cmd.VarName, value.JSON(node))
		default:
			return probeerr.NewParseError("line %d: command is not valid in an HTTP RESPONSE block", cmd.Line)
		}
	}
	return nil
}

func resolveLength(op script.NumOperand, env *value.Environment, line int) (uint64, error) {
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
	default:
		return 0, probeerr.NewParseError("line %d: invalid length operand", line)
	}
}

func hexByte(b byte) string {
	const hexDigits = "0123456789abcdef"
	return "0x" + string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}

func itoa(n int) string {
	return value.Int(int64(n)).AsString()
}

