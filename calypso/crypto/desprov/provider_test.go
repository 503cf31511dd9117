package desprov

import (
	"bytes"
	"context"
	"testing"

	"github.com/gregclo/calypso-core/calypsoerr"
)

func testKeys() KeySet {
	return KeySet{
		PersonalizationKey: bytes.Repeat([]byte{0x11}, 16),
		LoadKey:            bytes.Repeat([]byte{0x22}, 16),
		DebitKey:           bytes.Repeat([]byte{0x33}, 16),
	}
}

func TestProvider_SessionMacRoundTrip(t *testing.T) {
	p := NewProvider(testKeys())
	ctx := context.Background()

	if err := p.InitTerminalSessionMac(ctx, []byte{0x01, 0x02, 0x03, 0x04}, 0x21, 0x00); err != nil {
		t.Fatalf("InitTerminalSessionMac: %v", err)
	}

	if _, err := p.UpdateTerminalSessionMac(ctx, []byte{0x00, 0xA4, 0x04, 0x00}); err != nil {
		t.Fatalf("UpdateTerminalSessionMac: %v", err)
	}
	if _, err := p.UpdateTerminalSessionMac(ctx, []byte{0x00, 0xB2, 0x01, 0x3C}); err != nil {
		t.Fatalf("UpdateTerminalSessionMac: %v", err)
	}

	mac, err := p.GenerateTerminalSessionMac(ctx)
	if err != nil {
		t.Fatalf("GenerateTerminalSessionMac: %v", err)
	}
	if len(mac) != 4 {
		t.Fatalf("expected 4-byte MAC, got %d bytes", len(mac))
	}

	valid, err := p.IsCardSessionMacValid(ctx, mac)
	if err != nil {
		t.Fatalf("IsCardSessionMacValid: %v", err)
	}
	if !valid {
		t.Fatalf("expected the terminal's own running MAC to validate")
	}

	finalMac, err := p.FinalizeTerminalSessionMac(ctx)
	if err != nil {
		t.Fatalf("FinalizeTerminalSessionMac: %v", err)
	}
	if !bytes.Equal(mac, finalMac) {
		t.Fatalf("Generate and Finalize should agree before any further update: %X vs %X", mac, finalMac)
	}

	if _, err := p.GenerateTerminalSessionMac(ctx); !calypsoerr.Is(err, calypsoerr.KindIllegalState) {
		t.Fatalf("expected KindIllegalState after Finalize clears the session key, got %v", err)
	}
}

func TestProvider_EncryptionTogglesCiphertext(t *testing.T) {
	p := NewProvider(testKeys())
	ctx := context.Background()
	if err := p.InitTerminalSessionMac(ctx, []byte{0xAA, 0xBB, 0xCC, 0xDD}, 0x21, 0x00); err != nil {
		t.Fatalf("InitTerminalSessionMac: %v", err)
	}

	plain := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := p.UpdateTerminalSessionMac(ctx, plain)
	if err != nil {
		t.Fatalf("UpdateTerminalSessionMac: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatalf("expected plaintext passthrough before ActivateEncryption, got %X", out)
	}

	if err := p.ActivateEncryption(ctx); err != nil {
		t.Fatalf("ActivateEncryption: %v", err)
	}
	ciphered, err := p.UpdateTerminalSessionMac(ctx, plain)
	if err != nil {
		t.Fatalf("UpdateTerminalSessionMac: %v", err)
	}
	if bytes.Equal(ciphered, plain) {
		t.Fatalf("expected ciphered output to differ from plaintext once encryption is active")
	}
}

func TestProvider_PinCipheringProducesFixedLengthBlocks(t *testing.T) {
	p := NewProvider(testKeys())
	ctx := context.Background()
	challenge := []byte{0x01, 0x02, 0x03, 0x04}

	presented, err := p.CipherPinForPresentation(ctx, challenge, []byte{1, 2, 3, 4}, 0x21, 0x7E)
	if err != nil {
		t.Fatalf("CipherPinForPresentation: %v", err)
	}
	if len(presented) != 8 {
		t.Fatalf("expected an 8-byte ciphered PIN block, got %d", len(presented))
	}

	modified, err := p.CipherPinForModification(ctx, challenge, []byte{1, 2, 3, 4}, []byte{5, 6, 7, 8}, 0x21, 0x7E)
	if err != nil {
		t.Fatalf("CipherPinForModification: %v", err)
	}
	if len(modified) != 16 {
		t.Fatalf("expected a 16-byte ciphered PIN block, got %d", len(modified))
	}
}

func TestProvider_UpdateBeforeInitFails(t *testing.T) {
	p := NewProvider(testKeys())
	_, err := p.UpdateTerminalSessionMac(context.Background(), []byte{0x00})
	if !calypsoerr.Is(err, calypsoerr.KindIllegalState) {
		t.Fatalf("expected KindIllegalState, got %v", err)
	}
}
