package device

import (
	"path/filepath"
	"testing"
)

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motorbench.json")

	cfg := Config{
		Port:         "/dev/ttyUSB0",
		ID:           3,
		BaudRate:     1_000_000,
		CountsPerRev: 4096,
	}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if *loaded != cfg {
		t.Errorf("loaded %+v, want %+v", *loaded, cfg)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
