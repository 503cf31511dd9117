package transaction

import (
	"context"
	"testing"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypso/cmd"
	"github.com/gregclo/calypso-core/calypsoerr"
	"github.com/gregclo/calypso-core/transceiver"
)

// fakeProvider is a minimal crypto.SymmetricCryptoProvider stand-in, tracking
// calls instead of doing real cryptography.
type fakeProvider struct {
	closeMAC []byte
	validMAC bool
}

func (f *fakeProvider) InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error) {
	return []byte{1, 2, 3, 4}, nil
}
func (f *fakeProvider) InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	return nil
}
func (f *fakeProvider) UpdateTerminalSessionMac(ctx context.Context, apdu []byte) ([]byte, error) {
	return apdu, nil
}
func (f *fakeProvider) FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.closeMAC, nil
}
func (f *fakeProvider) GenerateTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.closeMAC, nil
}
func (f *fakeProvider) ActivateEncryption(ctx context.Context) error   { return nil }
func (f *fakeProvider) DeactivateEncryption(ctx context.Context) error { return nil }
func (f *fakeProvider) IsCardSessionMacValid(ctx context.Context, cardMAC []byte) (bool, error) {
	return f.validMAC, nil
}
func (f *fakeProvider) ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error) {
	return []byte{0xAA}, nil
}
func (f *fakeProvider) IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error) {
	return true, nil
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

// scriptedTransceiver returns one fixed batch of responses per Exchange
// call, in call order, regardless of what was requested.
type scriptedTransceiver struct {
	batches [][][]byte
	call    int
}

func (s *scriptedTransceiver) Exchange(ctx context.Context, req transceiver.CardRequest) (transceiver.CardResponse, error) {
	if s.call >= len(s.batches) {
		return transceiver.CardResponse{}, calypsoerr.New(calypsoerr.KindCryptoIo, "scriptedTransceiver", "no more scripted batches")
	}
	out := s.batches[s.call]
	s.call++
	return transceiver.CardResponse{APDUs: out}, nil
}

func ok(data ...byte) []byte { return append(append([]byte(nil), data...), 0x90, 0x00) }

func newTestImage() *card.Image {
	img := card.NewImage()
	ef := &card.EF{LID: 0x0801, SFI: 7, Type: card.FileLinear, RecordSize: 4, RecordCount: 2}
	img.Declare(img.MF, ef)
	return img
}

func TestProcessCommands_NoSession(t *testing.T) {
	img := newTestImage()
	xcvr := &scriptedTransceiver{batches: [][][]byte{
		{ok(0xAA, 0xBB, 0xCC, 0xDD)},
	}}
	tx := New(img, &fakeProvider{}, xcvr, apdu.ProductISO)

	tx.Prepare(&cmd.ReadRecords{SFI: 7, RecordNumber: 1, Mode: cmd.ReadOneRecord})
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands: %v", err)
	}

	ef, err := img.GetEFBySFI(7)
	if err != nil {
		t.Fatalf("GetEFBySFI: %v", err)
	}
	if got := ef.Records[1]; len(got) != 4 || got[0] != 0xAA {
		t.Fatalf("unexpected record content: %v", got)
	}
	if len(tx.queue) != 0 {
		t.Fatalf("expected queue cleared after processing, got %d", len(tx.queue))
	}
}

func TestProcessCommands_FullSessionLifecycle(t *testing.T) {
	img := newTestImage()
	p := &fakeProvider{closeMAC: []byte{0xDE, 0xAD, 0xBE, 0xEF}, validMAC: true}
	xcvr := &scriptedTransceiver{batches: [][][]byte{
		// Open Secure Session: 3-byte tnum, 4-byte challenge, flags, KIF, KVC.
		{ok(0x01, 0x21, 0x7E, 0x00, 0x00, 0x01, 0x03, 0xAA, 0xBB, 0xCC)},
		{ok(0xAA, 0xBB, 0xCC, 0xDD)},
		// Close Secure Session: no postponed blocks, 4-byte card MAC.
		{ok(0xDE, 0xAD, 0xBE, 0xEF)},
	}}
	tx := New(img, p, xcvr, apdu.ProductISO)

	if err := tx.PrepareOpenSecureSession(cmd.KeyPersonalization, 7, 0); err != nil {
		t.Fatalf("PrepareOpenSecureSession: %v", err)
	}
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(open): %v", err)
	}
	if tx.Session() == nil || tx.Session().State().String() != "Open" {
		t.Fatalf("expected session Open, got %v", tx.Session())
	}

	tx.Prepare(&cmd.ReadRecords{SFI: 7, RecordNumber: 1, Mode: cmd.ReadOneRecord})
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(read): %v", err)
	}

	if err := tx.PrepareCloseSecureSession(true); err != nil {
		t.Fatalf("PrepareCloseSecureSession: %v", err)
	}
	if err := tx.ProcessCommands(context.Background(), CloseAfter); err != nil {
		t.Fatalf("ProcessCommands(close): %v", err)
	}
	if tx.Session() != nil {
		t.Fatalf("expected session cleared after close, got %v", tx.Session())
	}
}

func TestProcessCommands_InconsistentDataOnShortBatch(t *testing.T) {
	img := newTestImage()
	xcvr := &scriptedTransceiver{batches: [][][]byte{{}}}
	tx := New(img, &fakeProvider{}, xcvr, apdu.ProductISO)

	tx.Prepare(&cmd.ReadRecords{SFI: 7, RecordNumber: 1, Mode: cmd.ReadOneRecord})
	err := tx.ProcessCommands(context.Background(), KeepOpen)
	if err == nil {
		t.Fatalf("expected error on response/request count mismatch")
	}
	if !calypsoerr.Is(err, calypsoerr.KindInconsistentData) {
		t.Fatalf("expected KindInconsistentData, got %v", err)
	}
	if len(tx.queue) != 0 {
		t.Fatalf("expected queue cleared even on error, got %d", len(tx.queue))
	}
}

func TestProcessCommands_PinRetriesThenBlocks(t *testing.T) {
	img := newTestImage()
	p := &fakeProvider{closeMAC: []byte{1, 2, 3, 4}, validMAC: true}
	xcvr := &scriptedTransceiver{batches: [][][]byte{
		// Open Secure Session: 3-byte tnum, 4-byte challenge, flags, KIF, KVC.
		{ok(0x03, 0x0F, 0x00, 0x00, 0x00, 0x01, 0x03, 0xAA, 0xBB, 0xCC)},
		{{0x63, 0xC2}}, // wrong PIN, 2 attempts remaining
		{{0x63, 0xC1}}, // wrong PIN, 1 attempt remaining
		{{0x69, 0x83}}, // PIN blocked
	}}
	tx := New(img, p, xcvr, apdu.ProductISO)

	if err := tx.PrepareOpenSecureSession(cmd.KeyPersonalization, 7, 0); err != nil {
		t.Fatalf("PrepareOpenSecureSession: %v", err)
	}
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(open): %v", err)
	}

	pin1 := &cmd.VerifyPIN{PIN: []byte{0x31, 0x32, 0x33, 0x34}}
	tx.Prepare(pin1)
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(pin1): %v", err)
	}
	if pin1.RemainingAttempts != 2 {
		t.Fatalf("expected 2 remaining attempts, got %d", pin1.RemainingAttempts)
	}
	if tx.Session() == nil {
		t.Fatalf("expected session to survive a wrong-PIN attempt")
	}

	pin2 := &cmd.VerifyPIN{PIN: []byte{0x31, 0x32, 0x33, 0x34}}
	tx.Prepare(pin2)
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(pin2): %v", err)
	}
	if pin2.RemainingAttempts != 1 {
		t.Fatalf("expected 1 remaining attempt, got %d", pin2.RemainingAttempts)
	}

	pin3 := &cmd.VerifyPIN{PIN: []byte{0x31, 0x32, 0x33, 0x34}}
	tx.Prepare(pin3)
	err := tx.ProcessCommands(context.Background(), KeepOpen)
	if err == nil {
		t.Fatalf("expected error on blocked PIN")
	}
	if !calypsoerr.Is(err, calypsoerr.KindPin) {
		t.Fatalf("expected KindPin, got %v", err)
	}
	if img.PIN.RemainingAttempts != 0 || !img.PIN.Blocked {
		t.Fatalf("expected image PIN state blocked with 0 remaining, got %+v", img.PIN)
	}
}

func TestProcessCommands_AbortsSessionOnCardError(t *testing.T) {
	img := newTestImage()
	p := &fakeProvider{closeMAC: []byte{1, 2, 3, 4}, validMAC: true}
	xcvr := &scriptedTransceiver{batches: [][][]byte{
		// Open Secure Session: 3-byte tnum, 4-byte challenge, flags, KIF, KVC.
		{ok(0x01, 0x21, 0x7E, 0x00, 0x00, 0x01, 0x03, 0xAA, 0xBB, 0xCC)},
		{{0x69, 0x82}}, // SW_ERR_SECURITY_STATUS_NOT_SAT, no data
	}}
	tx := New(img, p, xcvr, apdu.ProductISO)

	if err := tx.PrepareOpenSecureSession(cmd.KeyPersonalization, 7, 0); err != nil {
		t.Fatalf("PrepareOpenSecureSession: %v", err)
	}
	if err := tx.ProcessCommands(context.Background(), KeepOpen); err != nil {
		t.Fatalf("ProcessCommands(open): %v", err)
	}

	tx.Prepare(&cmd.ReadRecords{SFI: 7, RecordNumber: 1, Mode: cmd.ReadOneRecord})
	err := tx.ProcessCommands(context.Background(), KeepOpen)
	if err == nil {
		t.Fatalf("expected error from card status word")
	}
	if !calypsoerr.Is(err, calypsoerr.KindAccessForbidden) {
		t.Fatalf("expected KindAccessForbidden, got %v", err)
	}
	if tx.Session() != nil {
		t.Fatalf("expected session aborted and cleared, got %v", tx.Session())
	}
}
