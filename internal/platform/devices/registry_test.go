package devices

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := reg.Default(); ok {
		t.Fatal("expected no default device")
	}
}

func TestLoadParsesDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	content := `
devices:
  - id: A8N5230560263
    name: Front door
    inet: 192.168.1.201
    port: 4370
    mac: "00:17:61:12:34:56"
  - id: B1
    name: Warehouse
    inet: 192.168.1.202
    port: 4370
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def, ok := reg.Default()
	if !ok || def.ID != "A8N5230560263" || def.Port != 4370 {
		t.Fatalf("unexpected default device: %+v", def)
	}
	if d, ok := reg.Find("B1"); !ok || d.Name != "Warehouse" {
		t.Fatalf("expected to find B1, got %+v", d)
	}
	if len(reg.List()) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(reg.List()))
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte("devices:\n  - id: a\n  - id: a\n"))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	if _, err := Parse([]byte("devices:\n  - name: nameless\n")); err == nil {
		t.Fatal("expected missing id error")
	}
}
