package wire

import "fmt"

// HexDump renders data as a 16-bytes-per-row hex+ASCII dump, for
// logging raw probe request/response bytes at debug level. Ported from
// the original implementation's packet.rs::hex_dump.
func HexDump(data []byte) string {
	var out []byte
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[offset:end]
		out = append(out, []byte(fmt.Sprintf("%08X: ", offset))...)
		for j := 0; j < 16; j++ {
			if j == 8 {
				out = append(out, ' ')
			}
			if j < len(row) {
				out = append(out, []byte(fmt.Sprintf("%02X ", row[j]))...)
			} else {
				out = append(out, []byte("   ")...)
			}
		}
		out = append(out, ' ')
		for _, b := range row {
			if b >= 32 && b < 127 {
				out = append(out, b)
			} else {
				out = append(out, '.')
			}
		}
		out = append(out, '\n')
	}
	return string(out)
}
