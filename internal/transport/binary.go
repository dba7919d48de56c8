package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
)

// quietWindow bounds how long a BinaryDriver keeps draining a stream
// connection after the first byte arrives, before handing whatever it
// has accumulated to the Response Reader. Real protocols in the pack's
// domain (game server queries, RCON) complete a reply in one or two
// TCP segments well inside this window.
const quietWindow = 75 * time.Millisecond

// BinaryDriver drives a single TCP or UDP connection across one or more
// exchanges, per spec.md §4.4's Stream and Datagram transport modes.
type BinaryDriver struct {
	target Target
	conn   net.Conn
}

// NewBinaryDriver returns a driver for target, which must have Protocol
// TCP or UDP.
func NewBinaryDriver(target Target) *BinaryDriver {
	return &BinaryDriver{target: target}
}

// Connect establishes the underlying connection if it isn't already
// open. For UDP this opens an unconnected-style dialed socket (Go's
// net.Dial("udp", ...) sets a default peer but performs no handshake).
func (d *BinaryDriver) Connect(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}
	dialer := net.Dialer{Timeout: d.target.Timeout}
	conn, err := dialer.DialContext(ctx, d.target.NetworkName(), d.target.Address())
	if err != nil {
		return probeerr.NewNetworkError("connect", isTimeout(err), err)
	}
	d.conn = conn
	return nil
}

// SendExchange sends every request block in the exchange, then reads
// the reply: for UDP, one full datagram; for TCP, a growing buffer read
// until a quiet gap or the peer closes. Datagram mode concatenates all
// request blocks into a single Write, since UDP has no notion of
// "write, then write again on the same datagram" the way a stream
// does; Stream mode writes each block as its own Write call.
func (d *BinaryDriver) SendExchange(ctx context.Context, reqs [][]byte) ([]byte, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	if err := d.conn.SetWriteDeadline(time.Now().Add(d.target.Timeout)); err != nil {
		return nil, probeerr.NewNetworkError("send", false, err)
	}

	if d.target.Protocol == UDP {
		datagram := concatBlocks(reqs)
		if _, err := d.conn.Write(datagram); err != nil {
			return nil, probeerr.NewNetworkError("send", isTimeout(err), err)
		}
		return d.recvDatagram()
	}

	for _, req := range reqs {
		if _, err := d.conn.Write(req); err != nil {
			return nil, probeerr.NewNetworkError("send", isTimeout(err), err)
		}
	}
	return d.recvStream()
}

func concatBlocks(reqs [][]byte) []byte {
	n := 0
	for _, req := range reqs {
		n += len(req)
	}
	out := make([]byte, 0, n)
	for _, req := range reqs {
		out = append(out, req...)
	}
	return out
}

func (d *BinaryDriver) recvDatagram() ([]byte, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.target.Timeout)); err != nil {
		return nil, probeerr.NewNetworkError("recv", false, err)
	}
	buf := make([]byte, 65535)
	n, err := d.conn.Read(buf)
	if err != nil {
		return nil, probeerr.NewNetworkError("recv", isTimeout(err), err)
	}
	return buf[:n], nil
}

func (d *BinaryDriver) recvStream() ([]byte, error) {
	var out []byte
	chunk := make([]byte, 4096)

	if err := d.conn.SetReadDeadline(time.Now().Add(d.target.Timeout)); err != nil {
		return nil, probeerr.NewNetworkError("recv", false, err)
	}
	for {
		n, err := d.conn.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			if isTimeout(err) {
				if len(out) == 0 {
					return nil, probeerr.NewNetworkError("recv", true, err)
				}
				return out, nil
			}
			return out, probeerr.NewNetworkError("recv", false, err)
		}
		if err := d.conn.SetReadDeadline(time.Now().Add(quietWindow)); err != nil {
			return out, probeerr.NewNetworkError("recv", false, err)
		}
	}
}

// Reset implements CONNECTION_CLOSE: it closes the current connection;
// the next SendExchange reopens it.
func (d *BinaryDriver) Reset(ctx context.Context) error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return probeerr.NewNetworkError("close", false, err)
	}
	return nil
}

// Close releases the connection for good, on every probe exit path.
func (d *BinaryDriver) Close() error {
	return d.Reset(context.Background())
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
