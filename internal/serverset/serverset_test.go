package serverset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		wantErr bool
	}{
		{"valid", Set{Servers: []Server{{Name: "a", Address: "1.2.3.4", Protocol: "tcp", Script: "PACKET_START\nPACKET_END"}}}, false},
		{"missing name", Set{Servers: []Server{{Address: "1.2.3.4", Protocol: "tcp", Script: "x"}}}, true},
		{"duplicate name", Set{Servers: []Server{
			{Name: "a", Address: "1.2.3.4", Protocol: "tcp", Script: "x"},
			{Name: "a", Address: "5.6.7.8", Protocol: "tcp", Script: "x"},
		}}, true},
		{"bad protocol", Set{Servers: []Server{{Name: "a", Address: "1.2.3.4", Protocol: "gopher", Script: "x"}}}, true},
		{"empty script", Set{Servers: []Server{{Name: "a", Address: "1.2.3.4", Protocol: "tcp"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	set := &Set{Servers: []Server{
		{Name: "minecraft", Address: "mc.example.com", Port: 25565, Protocol: "tcp", TimeoutMs: 3000, Script: "PACKET_START\nPACKET_END"},
	}}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, set); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "servers.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadYAML(path)
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	if len(got.Servers) != 1 || got.Servers[0].Name != "minecraft" || got.Servers[0].Port != 25565 {
		t.Fatalf("round trip mismatch: %+v", got.Servers)
	}
}
