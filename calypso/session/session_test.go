package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypsoerr"
)

// fakeProvider is a minimal crypto.SymmetricCryptoProvider stand-in,
// tracking calls instead of doing real cryptography, matching the style
// of testutil fakes used elsewhere in the pack.
type fakeProvider struct {
	icv           byte
	encrypting    bool
	closeMAC      []byte
	validMAC      bool
	validSvMAC    bool
	updateCalls   int
	activateCalls int
}

func (f *fakeProvider) InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error) {
	return []byte{1, 2, 3, 4}, nil
}
func (f *fakeProvider) InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	return nil
}
func (f *fakeProvider) UpdateTerminalSessionMac(ctx context.Context, apdu []byte) ([]byte, error) {
	f.updateCalls++
	if f.encrypting {
		out := append([]byte{}, apdu...)
		out[0] ^= 0xFF
		return out, nil
	}
	return apdu, nil
}
func (f *fakeProvider) FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.closeMAC, nil
}
func (f *fakeProvider) GenerateTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.closeMAC, nil
}
func (f *fakeProvider) ActivateEncryption(ctx context.Context) error {
	f.activateCalls++
	f.encrypting = true
	return nil
}
func (f *fakeProvider) DeactivateEncryption(ctx context.Context) error {
	f.encrypting = false
	return nil
}
func (f *fakeProvider) IsCardSessionMacValid(ctx context.Context, cardMAC []byte) (bool, error) {
	return f.validMAC, nil
}
func (f *fakeProvider) ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error) {
	return []byte{0xAA}, nil
}
func (f *fakeProvider) IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error) {
	return f.validSvMAC, nil
}
func (f *fakeProvider) CipherPinForPresentation(ctx context.Context, cardChallenge, pin []byte, kif, kvc byte) ([]byte, error) {
	return make([]byte, 8), nil
}
func (f *fakeProvider) CipherPinForModification(ctx context.Context, cardChallenge, currentPIN, newPIN []byte, kif, kvc byte) ([]byte, error) {
	return make([]byte, 16), nil
}
func (f *fakeProvider) GenerateCipheredCardKey(ctx context.Context, cardChallenge []byte, issuerKIF, issuerKVC, targetKIF, targetKVC byte) ([]byte, error) {
	return make([]byte, 24), nil
}

func TestSession_OpenExchangeClose(t *testing.T) {
	img := card.NewImage()
	p := &fakeProvider{closeMAC: []byte{0xDE, 0xAD, 0xBE, 0xEF}, validMAC: true}
	s := New(p, img)

	if err := s.Open(context.Background(), []byte{0x01, 0x02}, 0x21, 0x7E); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %v", s.State())
	}

	if _, err := s.Exchange(context.Background(), []byte{0x00, 0xB2, 0x01, 0x3C}); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if p.updateCalls != 1 {
		t.Fatalf("expected 1 update call, got %d", p.updateCalls)
	}

	res, err := s.PrepareClose(context.Background())
	if err != nil {
		t.Fatalf("PrepareClose: %v", err)
	}
	if !bytes.Equal(res.TerminalMAC, p.closeMAC) {
		t.Fatalf("expected terminal MAC %X, got %X", p.closeMAC, res.TerminalMAC)
	}
	if s.State() != StateClosing {
		t.Fatalf("expected StateClosing, got %v", s.State())
	}

	if err := s.Close(context.Background(), p.closeMAC, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %v", s.State())
	}
}

func TestSession_CloseRejectsInvalidMAC(t *testing.T) {
	img := card.NewImage()
	p := &fakeProvider{closeMAC: []byte{1, 2, 3, 4}, validMAC: false}
	s := New(p, img)
	_ = s.Open(context.Background(), nil, 0, 0)
	_, _ = s.PrepareClose(context.Background())

	err := s.Close(context.Background(), []byte{9, 9, 9, 9}, nil)
	if err == nil {
		t.Fatalf("expected error on invalid card MAC")
	}
	if !calypsoerr.Is(err, calypsoerr.KindInvalidCardMac) {
		t.Fatalf("expected KindInvalidCardMac, got %v", err)
	}
}

func TestSession_ToggleEncryption(t *testing.T) {
	img := card.NewImage()
	p := &fakeProvider{}
	s := New(p, img)
	_ = s.Open(context.Background(), nil, 0, 0)

	if err := s.ToggleEncryption(context.Background(), true); err != nil {
		t.Fatalf("ToggleEncryption(on): %v", err)
	}
	if s.State() != StateOpenEncrypted {
		t.Fatalf("expected StateOpenEncrypted, got %v", s.State())
	}
	wire, err := s.Exchange(context.Background(), []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if wire[0] != 0x01^0xFF {
		t.Fatalf("expected ciphered first byte, got %02X", wire[0])
	}

	if err := s.ToggleEncryption(context.Background(), false); err != nil {
		t.Fatalf("ToggleEncryption(off): %v", err)
	}
	if s.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %v", s.State())
	}
}

func TestSession_AbortRestoresImage(t *testing.T) {
	img := card.NewImage()
	ef := &card.EF{LID: 0x0801, SFI: 7, Type: card.FileLinear, RecordSize: 4, RecordCount: 1}
	img.Declare(img.MF, ef)

	p := &fakeProvider{}
	s := New(p, img)
	if err := s.Open(context.Background(), nil, 0, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	ef.SetContent(1, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	s.Abort()

	if s.State() != StateAborted {
		t.Fatalf("expected StateAborted, got %v", s.State())
	}
	restored, err := img.GetEFBySFI(7)
	if err != nil {
		t.Fatalf("GetEFBySFI: %v", err)
	}
	if len(restored.Records[1]) != 0 {
		t.Fatalf("expected record content reverted, got %v", restored.Records[1])
	}
}
