// Package scriptgen turns a packet capture into a skeleton probe
// script: it walks the first TCP flow carrying a payload in each
// direction and emits WRITE_BYTES/EXPECT_MAGIC lines seeded from what
// was actually observed on the wire, per SPEC_FULL §C. The capture
// format sniffing and gopacket plumbing are grounded on the teacher's
// pcapreader.ReadPCAP, but the two-source-type split there collapses
// to a single capture type here, since nothing downstream cares which
// concrete reader is behind it; the part that's genuinely new is the
// flow walk and script rendering, which the teacher's version doesn't
// have at all (it builds a replay config, not script text).
package scriptgen

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"
)

// captureReader is the subset of pcap.Handle and pcapgo.NgReader that
// gopacket.NewPacketSource needs to pull packets.
type captureReader interface {
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
}

// capture wraps an open classic-pcap or pcapng source behind one
// io.Closer, so callers don't need a type switch to tear it down.
type capture struct {
	captureReader
	linkType layers.LinkType
	close    func() error
}

func (c *capture) Close() error { return c.close() }

// isPcapng reports whether path starts with the pcapng section-header
// magic (0x0A0D0D0A). Anything else -- including either byte order of
// classic pcap's own magic -- is handled identically by
// pcap.OpenOffline, so that's the only distinction opening a capture
// actually needs to make.
func isPcapng(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, 4)
	if n, err := file.Read(header); err != nil || n < 4 {
		return false
	}
	magic := uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16 | uint32(header[3])<<24
	return magic == 0x0A0D0D0A
}

func openCapture(path string) (*capture, error) {
	if isPcapng(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		reader, err := pcapgo.NewNgReader(file, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &capture{captureReader: reader, linkType: reader.LinkType(), close: file.Close}, nil
	}

	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, err
	}
	return &capture{captureReader: handle, linkType: handle.LinkType(), close: handle.Close}, nil
}

// flow identifies one direction of a TCP connection by endpoint pair.
type flow struct {
	srcKey, dstKey string
}

// Generate reads the capture at path and returns skeleton probe script
// text: a PACKET block containing WRITE_BYTES for the first
// client-to-server payload observed, and a RESPONSE block containing
// EXPECT_MAGIC for the first server-to-client payload observed on the
// same flow. Only the first TCP flow that carries a payload is walked;
// packets of other flows are ignored. clientAddr identifies which side
// of that flow is the probing client (e.g. "10.0.0.5"); when empty, the
// side that sent the flow's first payload is taken as the client.
func Generate(path string, clientAddr string) (string, error) {
	src, err := openCapture(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	packetSrc := gopacket.NewPacketSource(src, src.linkType)

	var clientPayload, serverPayload []byte
	var flowKey, clientKey string

	for packet := range packetSrc.Packets() {
		net := packet.NetworkLayer()
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if net == nil || tcpLayer == nil {
			continue
		}
		tcp := tcpLayer.(*layers.TCP)
		if len(tcp.Payload) == 0 {
			continue
		}

		srcIP, dstIP := flowAddrs(net)
		srcKey := srcIP + ":" + tcp.SrcPort.String()
		dstKey := dstIP + ":" + tcp.DstPort.String()
		key := canonicalFlowKey(srcKey, dstKey)

		if flowKey == "" {
			flowKey = key
			clientKey = srcKey
		} else if key != flowKey {
			continue
		}

		clientIsSrc := srcIP == clientAddr
		if clientAddr == "" {
			clientIsSrc = srcKey == clientKey
		}
		if clientIsSrc {
			if clientPayload == nil {
				clientPayload = append([]byte(nil), tcp.Payload...)
			}
		} else {
			if serverPayload == nil {
				serverPayload = append([]byte(nil), tcp.Payload...)
			}
		}

		if clientPayload != nil && serverPayload != nil {
			break
		}
	}

	return render(clientPayload, serverPayload), nil
}

func flowAddrs(net gopacket.NetworkLayer) (string, string) {
	switch l := net.(type) {
	case *layers.IPv4:
		return l.SrcIP.String(), l.DstIP.String()
	case *layers.IPv6:
		return l.SrcIP.String(), l.DstIP.String()
	default:
		return net.NetworkFlow().Src().String(), net.NetworkFlow().Dst().String()
	}
}

func canonicalFlowKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func render(clientPayload, serverPayload []byte) string {
	var b strings.Builder

	b.WriteString("PACKET_START\n")
	if len(clientPayload) == 0 {
		b.WriteString("\t# TODO: no client->server payload observed in the capture\n")
	} else {
		b.WriteString(writeBytesLines(clientPayload))
	}
	b.WriteString("PACKET_END\n\n")

	b.WriteString("RESPONSE_START\n")
	if len(serverPayload) == 0 {
		b.WriteString("\t# TODO: no server->client payload observed in the capture\n")
	} else {
		b.WriteString(expectMagicLines(serverPayload))
	}
	b.WriteString("RESPONSE_END\n\n")

	b.WriteString("OUTPUT_SUCCESS\n")
	b.WriteString("\tRETURN \"ok\"\n")
	b.WriteString("OUTPUT_END\n\n")

	b.WriteString("OUTPUT_ERROR\n")
	b.WriteString("\tRETURN <ERROR REASON>\n")
	b.WriteString("OUTPUT_END\n")

	return b.String()
}

const maxGenChunk = 32

func writeBytesLines(payload []byte) string {
	var b strings.Builder
	for i := 0; i < len(payload); i += maxGenChunk {
		end := i + maxGenChunk
		if end > len(payload) {
			end = len(payload)
		}
		fmt.Fprintf(&b, "\tWRITE_BYTES 0x%s\n", hex.EncodeToString(payload[i:end]))
	}
	return b.String()
}

func expectMagicLines(payload []byte) string {
	n := len(payload)
	if n > maxGenChunk {
		n = maxGenChunk
	}
	return fmt.Sprintf("\tEXPECT_MAGIC 0x%s\n", hex.EncodeToString(payload[:n]))
}
