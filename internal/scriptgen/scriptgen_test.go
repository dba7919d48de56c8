package scriptgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_BothDirections(t *testing.T) {
	out := render([]byte{0xDE, 0xAD}, []byte{0xBE, 0xEF})
	if !strings.Contains(out, "WRITE_BYTES 0xdead") {
		t.Fatalf("missing client payload line:\n%s", out)
	}
	if !strings.Contains(out, "EXPECT_MAGIC 0xbeef") {
		t.Fatalf("missing server payload line:\n%s", out)
	}
	if !strings.Contains(out, "PACKET_START") || !strings.Contains(out, "RESPONSE_START") {
		t.Fatalf("missing block markers:\n%s", out)
	}
}

func TestRender_MissingDirectionEmitsTodo(t *testing.T) {
	out := render(nil, []byte{0x01})
	if !strings.Contains(out, "TODO: no client->server payload") {
		t.Fatalf("expected TODO placeholder:\n%s", out)
	}
}

func TestCanonicalFlowKey_OrderIndependent(t *testing.T) {
	a := canonicalFlowKey("10.0.0.1:1234", "10.0.0.2:80")
	b := canonicalFlowKey("10.0.0.2:80", "10.0.0.1:1234")
	if a != b {
		t.Fatalf("canonicalFlowKey not symmetric: %q vs %q", a, b)
	}
}

func TestIsPcapng_MagicBytes(t *testing.T) {
	dir := t.TempDir()

	ngPath := filepath.Join(dir, "capture.pcapng")
	if err := os.WriteFile(ngPath, []byte{0x0A, 0x0D, 0x0D, 0x0A, 0, 0, 0, 0}, 0644); err != nil {
		t.Fatal(err)
	}
	if !isPcapng(ngPath) {
		t.Fatalf("expected %s to be detected as pcapng", ngPath)
	}

	classicPath := filepath.Join(dir, "capture.pcap")
	if err := os.WriteFile(classicPath, []byte{0xD4, 0xC3, 0xB2, 0xA1, 0, 0, 0, 0}, 0644); err != nil {
		t.Fatal(err)
	}
	if isPcapng(classicPath) {
		t.Fatalf("expected %s not to be detected as pcapng", classicPath)
	}
}
