package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

// TestSendExchange_UDPSendsOneDatagram checks that a multi-block UDP
// exchange reaches the peer as a single concatenated datagram, not one
// datagram per request block.
func TestSendExchange_UDPSendsOneDatagram(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer pc.Close()

	addr := pc.LocalAddr().(*net.UDPAddr)

	recvCount := make(chan int, 1)
	recvData := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4096)
		n, raddr, err := pc.ReadFrom(buf)
		if err != nil {
			recvCount <- 0
			return
		}
		recvCount <- 1
		recvData <- append([]byte(nil), buf[:n]...)

		// Echo back so SendExchange's read doesn't block on a timeout.
		pc.WriteTo([]byte("ack"), raddr)

		// If a second datagram arrives, this test would have seen it
		// racing the first ReadFrom; drain with a short deadline so a
		// bug (one datagram per block) doesn't hang the test.
		pc.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n2, _, err2 := pc.ReadFrom(buf)
		if err2 == nil && n2 > 0 {
			recvCount <- 2
		}
	}()

	target := Target{Host: "127.0.0.1", Port: addr.Port, Protocol: UDP, Timeout: time.Second}
	d := NewBinaryDriver(target)
	defer d.Close()

	reqs := [][]byte{{0x01, 0x02}, {0x03, 0x04}}
	if _, err := d.SendExchange(context.Background(), reqs); err != nil {
		t.Fatalf("SendExchange: %v", err)
	}

	if n := <-recvCount; n != 1 {
		t.Fatalf("server observed %d datagrams on first read, want 1", n)
	}
	got := <-recvData
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if len(got) != len(want) {
		t.Fatalf("datagram = %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("datagram = %x, want %x", got, want)
		}
	}

	select {
	case n := <-recvCount:
		t.Fatalf("observed a second datagram (receive count %d, want 1): multi-block UDP exchange sent more than one datagram", n)
	case <-time.After(100 * time.Millisecond):
	}
}
