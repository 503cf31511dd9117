package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gregclo/calypso-core/apdu"
)

func TestATRMask_Matches(t *testing.T) {
	m := ATRMask{
		Pattern: []byte{0x3B, 0x00, 0xFF},
		Mask:    []byte{0xFF, 0x00, 0xF0},
	}
	if !m.Matches([]byte{0x3B, 0xAA, 0xF5}) {
		t.Fatalf("expected ATR to match with don't-care byte and masked nibble")
	}
	if m.Matches([]byte{0x3C, 0xAA, 0xF5}) {
		t.Fatalf("expected ATR to mismatch on masked first byte")
	}
	if m.Matches([]byte{0x3B, 0xAA}) {
		t.Fatalf("expected length mismatch to fail")
	}
}

func TestATRMask_EmptyMatchesAnything(t *testing.T) {
	var m ATRMask
	if !m.Matches([]byte{0x3B, 0x00}) {
		t.Fatalf("expected empty mask to match any ATR")
	}
}

func TestReaderSelector_Matches(t *testing.T) {
	s := ReaderSelector{Name: "ACS ACR122 0"}
	if !s.Matches("ACS ACR122 0", nil) {
		t.Fatalf("expected exact name match")
	}
	if s.Matches("ACS ACR122 1", nil) {
		t.Fatalf("expected mismatch on different name")
	}
}

func TestConfig_ProductType(t *testing.T) {
	tests := []struct {
		product string
		want    apdu.ProductType
	}{
		{"", apdu.ProductISO},
		{"iso", apdu.ProductISO},
		{"legacy", apdu.ProductLegacy},
		{"legacy-sv", apdu.ProductLegacyStoredValue},
	}
	for _, tt := range tests {
		c := &Config{Product: tt.product}
		got, err := c.ProductType()
		if err != nil {
			t.Fatalf("ProductType(%q): %v", tt.product, err)
		}
		if got != tt.want {
			t.Fatalf("ProductType(%q) = %v, want %v", tt.product, got, tt.want)
		}
	}

	c := &Config{Product: "bogus"}
	if _, err := c.ProductType(); err == nil {
		t.Fatalf("expected error for unknown product family")
	}
}

func TestConfig_RequiresSamOrSoftwareKeys(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error with neither sam_reader nor software_keys configured")
	}
}

func TestLoad_ResolvesKeyPathsRelativeToConfigFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "perso.hex")
	if err := os.WriteFile(keyPath, []byte("00112233445566778899AABBCCDDEEFF"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	cfgPath := filepath.Join(dir, "terminal.yaml")
	yamlBody := "card_reader:\n  name: \"Reader 0\"\nsoftware_keys:\n  personalization_key_file: perso.hex\n"
	if err := os.WriteFile(cfgPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SoftwareKeys.PersonalizationKeyFile != keyPath {
		t.Fatalf("expected resolved path %q, got %q", keyPath, cfg.SoftwareKeys.PersonalizationKeyFile)
	}
	if cfg.CardReader.Name != "Reader 0" {
		t.Fatalf("unexpected card reader name: %q", cfg.CardReader.Name)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "terminal.yaml")
	yamlBody := "card_reader:\n  name: \"Reader 0\"\nsam_reader:\n  name: \"SAM 0\"\nbogus_field: true\n"
	if err := os.WriteFile(cfgPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for unknown config field")
	}
}
