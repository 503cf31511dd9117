// Package config loads the terminal-side setup a Calypso deployment needs
// outside the library itself: which reader slots to open, which ATR a card
// or SAM reader must present before the library touches it, which product
// family to assume, and where the software crypto provider's reference
// keys live. None of this is part of the Calypso protocol; it is the
// ambient "how is this terminal wired up" layer every deployment still
// needs, the same role barnettlynn-nfctools' internal/config packages play
// for their own tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gregclo/calypso-core/apdu"
)

// ATRMask matches a reader's answer-to-reset against a fixed pattern with
// don't-care bytes, the same filter PC/SC middlewares use to auto-select a
// reader slot without depending on its OS-assigned name.
type ATRMask struct {
	Pattern []byte `yaml:"pattern"`
	Mask    []byte `yaml:"mask"`
}

// Matches reports whether atr satisfies every masked byte of m. A mask
// byte of 0x00 makes the corresponding ATR byte a don't-care.
func (m ATRMask) Matches(atr []byte) bool {
	if len(m.Pattern) == 0 {
		return true
	}
	if len(atr) != len(m.Pattern) || len(m.Mask) != len(m.Pattern) {
		return false
	}
	for i, p := range m.Pattern {
		if atr[i]&m.Mask[i] != p&m.Mask[i] {
			return false
		}
	}
	return true
}

// ReaderSelector picks a reader slot to connect a Transceiver to: either by
// its PC/SC name directly, or by the card it presents matching an ATRMask.
// An empty selector matches the first reader the transport enumerates.
type ReaderSelector struct {
	Name string  `yaml:"name"`
	ATR  ATRMask `yaml:"atr"`
}

// Matches reports whether the reader named name, presenting atr, satisfies
// this selector.
func (s ReaderSelector) Matches(name string, atr []byte) bool {
	if s.Name != "" && s.Name != name {
		return false
	}
	return s.ATR.Matches(atr)
}

// SoftwareKeys points at the hex-encoded master keys a desprov.Provider
// reads when no physical SAM is configured (spec.md §6.2 point 2's
// simulate-mode path). Paths are resolved relative to the config file's
// own directory, matching the teacher pack's own key-file convention.
type SoftwareKeys struct {
	PersonalizationKeyFile string `yaml:"personalization_key_file"`
	LoadKeyFile            string `yaml:"load_key_file"`
	DebitKeyFile           string `yaml:"debit_key_file"`
}

// Config is the terminal's static setup: which card and SAM reader slots
// to use, which product family the card(s) speak, and how the crypto
// provider should be backed.
type Config struct {
	CardReader ReaderSelector  `yaml:"card_reader"`
	SAMReader  *ReaderSelector `yaml:"sam_reader"`

	Product string `yaml:"product"`

	SoftwareKeys *SoftwareKeys `yaml:"software_keys"`

	SAMID string `yaml:"sam_id"`
}

// ProductType resolves the configured product family string to an
// apdu.ProductType, defaulting to ProductISO when unset.
func (c *Config) ProductType() (apdu.ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(c.Product)) {
	case "", "iso":
		return apdu.ProductISO, nil
	case "legacy":
		return apdu.ProductLegacy, nil
	case "legacy-sv", "legacy_sv":
		return apdu.ProductLegacyStoredValue, nil
	default:
		return apdu.ProductUnknown, fmt.Errorf("config: unknown product family %q", c.Product)
	}
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.ProductType(); err != nil {
		return err
	}
	if c.SoftwareKeys == nil && c.SAMReader == nil {
		return fmt.Errorf("config: either sam_reader or software_keys must be configured")
	}
	if c.SoftwareKeys != nil {
		if c.SoftwareKeys.PersonalizationKeyFile == "" {
			return fmt.Errorf("config: software_keys.personalization_key_file is required")
		}
		if err := validateReadableFile(c.SoftwareKeys.PersonalizationKeyFile, "config.software_keys.personalization_key_file"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) resolvePaths(configPath string) {
	if c.SoftwareKeys == nil {
		return
	}
	dir := filepath.Dir(configPath)
	c.SoftwareKeys.PersonalizationKeyFile = resolvePath(dir, c.SoftwareKeys.PersonalizationKeyFile)
	c.SoftwareKeys.LoadKeyFile = resolvePath(dir, c.SoftwareKeys.LoadKeyFile)
	c.SoftwareKeys.DebitKeyFile = resolvePath(dir, c.SoftwareKeys.DebitKeyFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got a directory", field)
	}
	return nil
}
