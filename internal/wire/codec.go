// Package wire implements the byte-level encoders and decoders the
// probe script language's WRITE_*/READ_* commands compile down to:
// fixed-width integers in both byte orders, the 7-bit continuation
// VarInt, null-terminated and fixed-length strings, and raw hex byte
// literals.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
)

// PutByte appends a single byte.
func PutByte(buf []byte, v byte) []byte {
	return append(buf, v)
}

// PutShort appends a uint16 in little-endian order.
func PutShort(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// PutShortBE appends a uint16 in big-endian order.
func PutShortBE(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// PutInt appends a uint32 in little-endian order.
func PutInt(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// PutIntBE appends a uint32 in big-endian order.
func PutIntBE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// PutString appends the UTF-8 bytes of s followed by a single 0x00.
func PutString(buf []byte, s string) []byte {
	buf = append(buf, []byte(s)...)
	return append(buf, 0x00)
}

// PutStringLen writes exactly n bytes: s's UTF-8 bytes truncated if
// longer than n, zero-padded if shorter.
func PutStringLen(buf []byte, s string, n int) []byte {
	b := []byte(s)
	if len(b) >= n {
		return append(buf, b[:n]...)
	}
	buf = append(buf, b...)
	for i := len(b); i < n; i++ {
		buf = append(buf, 0x00)
	}
	return buf
}

// ReadByte reads one byte at offset *pos, advancing it.
func ReadByte(data []byte, pos *int) (byte, error) {
	if *pos+1 > len(data) {
		return 0, probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading byte at position %d", *pos)
	}
	v := data[*pos]
	*pos++
	return v, nil
}

// ReadShort reads a little-endian uint16 at offset *pos, advancing it by 2.
func ReadShort(data []byte, pos *int) (uint16, error) {
	if *pos+2 > len(data) {
		return 0, probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading short at position %d", *pos)
	}
	v := binary.LittleEndian.Uint16(data[*pos : *pos+2])
	*pos += 2
	return v, nil
}

// ReadShortBE reads a big-endian uint16 at offset *pos, advancing it by 2.
func ReadShortBE(data []byte, pos *int) (uint16, error) {
	if *pos+2 > len(data) {
		return 0, probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading short at position %d", *pos)
	}
	v := binary.BigEndian.Uint16(data[*pos : *pos+2])
	*pos += 2
	return v, nil
}

// ReadInt reads a little-endian uint32 at offset *pos, advancing it by 4.
func ReadInt(data []byte, pos *int) (uint32, error) {
	if *pos+4 > len(data) {
		return 0, probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading int at position %d", *pos)
	}
	v := binary.LittleEndian.Uint32(data[*pos : *pos+4])
	*pos += 4
	return v, nil
}

// ReadIntBE reads a big-endian uint32 at offset *pos, advancing it by 4.
func ReadIntBE(data []byte, pos *int) (uint32, error) {
	if *pos+4 > len(data) {
		return 0, probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading int at position %d", *pos)
	}
	v := binary.BigEndian.Uint32(data[*pos : *pos+4])
	*pos += 4
	return v, nil
}

// ReadStringN reads exactly n bytes and strips trailing 0x00 bytes from
// the stored value.
func ReadStringN(data []byte, pos *int, n int) (string, error) {
	if *pos+n > len(data) {
		return "", probeerr.WrapParseError(probeerr.ErrInsufficientData, "reading %d-byte string at position %d", n, *pos)
	}
	raw := data[*pos : *pos+n]
	*pos += n
	end := len(raw)
	for end > 0 && raw[end-1] == 0x00 {
		end--
	}
	return string(raw[:end]), nil
}

// ReadStringNull reads bytes up to and consuming a 0x00 terminator,
// without storing the terminator. It is a ParseError if no terminator
// is found before the end of the buffer.
func ReadStringNull(data []byte, pos *int) (string, error) {
	start := *pos
	i := start
	for i < len(data) && data[i] != 0x00 {
		i++
	}
	if i >= len(data) {
		return "", probeerr.NewParseError("no null terminator found starting at position %d", start)
	}
	s := string(data[start:i])
	*pos = i + 1
	return s, nil
}

// DecodeHexLiteral decodes a hex byte literal, as accepted by WRITE_BYTES
// and EXPECT_MAGIC: an optional "0x"/"0X" prefix, optional embedded
// spaces, and an even total digit count.
func DecodeHexLiteral(s string) ([]byte, error) {
	clean := make([]byte, 0, len(s))
	i := 0
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		i = 2
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			continue
		}
		clean = append(clean, c)
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex literal has odd digit count: %q", s)
	}
	out := make([]byte, len(clean)/2)
	for j := 0; j < len(out); j++ {
		hi, err := hexDigit(clean[j*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(clean[j*2+1])
		if err != nil {
			return nil, err
		}
		out[j] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}
