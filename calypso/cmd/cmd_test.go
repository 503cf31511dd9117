package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypsoerr"
)

func ok(data []byte) *apdu.ResponseAPDU {
	return &apdu.ResponseAPDU{Data: data, Status: apdu.SW_NO_ERROR}
}

func TestSelectFile_ByAID(t *testing.T) {
	s := &SelectFile{Method: SelectByAID, AID: []byte{0x31, 0x54, 0x49, 0x43, 0x2E, 0x49, 0x43, 0x41}}
	req, err := s.FinalizeRequest(CommandContext{Product: apdu.ProductISO})
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	if req.Instruction.Raw != apdu.INS_SELECT {
		t.Fatalf("expected SELECT instruction, got %v", req.Instruction.Raw)
	}
	if req.P1 != byte(SelectByAID) {
		t.Fatalf("expected P1 %02X, got %02X", byte(SelectByAID), req.P1)
	}
	if diff := cmp.Diff(s.AID, req.Data); diff != "" {
		t.Fatalf("AID mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRecords_SingleRecord(t *testing.T) {
	img := card.NewImage()
	ef := &card.EF{LID: 0x0801, SFI: 7, Type: card.FileLinear, RecordSize: 29, RecordCount: 3}
	img.Declare(img.MF, ef)

	r := &ReadRecords{SFI: 7, RecordNumber: 1, Mode: ReadOneRecord}
	req, err := r.FinalizeRequest(CommandContext{Product: apdu.ProductISO})
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	wantP2 := byte(7) << 3
	if req.P2 != wantP2 {
		t.Fatalf("expected P2 %02X, got %02X", wantP2, req.P2)
	}

	payload := []byte{0x01, 0x02, 0x03}
	if err := r.ParseResponse(ok(payload), img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if diff := cmp.Diff(payload, r.Records[1]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(payload, ef.Records[1]); diff != "" {
		t.Fatalf("image not updated (-want +got):\n%s", diff)
	}
}

func TestReadRecords_AllRecords(t *testing.T) {
	img := card.NewImage()
	ef := &card.EF{LID: 0x0801, SFI: 7, Type: card.FileCyclic}
	img.Declare(img.MF, ef)

	r := &ReadRecords{SFI: 7, RecordNumber: 1, Mode: ReadAllRecords}
	payload := []byte{
		0xC1, 0x02, 0x01, 0xAA,
		0xC1, 0x02, 0x02, 0xBB,
	}
	if err := r.ParseResponse(ok(payload), img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	want := map[int][]byte{1: {0xAA}, 2: {0xBB}}
	if diff := cmp.Diff(want, r.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrease_UpdatesCounter(t *testing.T) {
	img := card.NewImage()
	ef := &card.EF{LID: 0x0810, SFI: 9, Type: card.FileCounters, Binary: make([]byte, 9)}
	img.Declare(img.MF, ef)

	inc := &Increase{SFI: 9, CounterNumber: 2, IncValue: 10}
	if err := inc.ParseResponse(ok([]byte{0x00, 0x00, 0x14}), img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if inc.NewValue != 20 {
		t.Fatalf("expected new value 20, got %d", inc.NewValue)
	}
	got, err := ef.Counter(2)
	if err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if got != 20 {
		t.Fatalf("expected counter 20, got %d", got)
	}
}

func TestVerifyPIN_RemainingAttempts(t *testing.T) {
	img := card.NewImage()
	v := &VerifyPIN{PIN: []byte{0x31, 0x32, 0x33, 0x34}}
	resp := &apdu.ResponseAPDU{Status: apdu.SW_CALYPSO_PIN_2_REMAINING}
	if err := v.ParseResponse(resp, img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if v.Verified {
		t.Fatalf("expected Verified=false")
	}
	if v.RemainingAttempts != 2 {
		t.Fatalf("expected 2 remaining attempts, got %d", v.RemainingAttempts)
	}
	if img.PIN.Verified || img.PIN.RemainingAttempts != 2 {
		t.Fatalf("image PIN state not updated: %+v", img.PIN)
	}
}

func TestOpenSecureSession_ParsesChallenge(t *testing.T) {
	img := card.NewImage()
	o := &OpenSecureSession{Level: KeyDebit, TerminalChallenge: []byte{1, 2, 3, 4}}
	// tnum (3B), card challenge (4B), flags, KIF, KVC, trailing first-record data.
	payload := []byte{0x03, 0x0F, 0x00, 0x11, 0x22, 0x33, 0x44, 0x01, 0xAA, 0xBB, 0xC0, 0xFF, 0xEE}
	if err := o.ParseResponse(ok(payload), img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if o.TransactionCtr != 0x030F00 {
		t.Fatalf("expected tnum 0x030F00, got %06X", o.TransactionCtr)
	}
	if !o.RatificationOK {
		t.Fatalf("expected ratification flag set")
	}
	if diff := cmp.Diff([]byte{0x11, 0x22, 0x33, 0x44}, o.CardChallenge); diff != "" {
		t.Fatalf("challenge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(o.CardChallenge, img.Session.Challenge); diff != "" {
		t.Fatalf("image session not updated (-want +got):\n%s", diff)
	}
	if o.KIF != 0xAA || o.KVC != 0xBB {
		t.Fatalf("expected KIF/KVC 0xAA/0xBB, got %02X/%02X", o.KIF, o.KVC)
	}
	if diff := cmp.Diff([]byte{0xC0, 0xFF, 0xEE}, o.FirstRecordData); diff != "" {
		t.Fatalf("first record data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(payload, o.ResponseDataOut); diff != "" {
		t.Fatalf("response data-out mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyPIN_Blocked(t *testing.T) {
	img := card.NewImage()
	v := &VerifyPIN{PIN: []byte{0x31, 0x32, 0x33, 0x34}}
	resp := &apdu.ResponseAPDU{Status: apdu.SW_ERR_AUTH_METHOD_BLOCKED}
	err := v.ParseResponse(resp, img, CommandContext{})
	if err == nil {
		t.Fatalf("expected error on blocked PIN")
	}
	if !calypsoerr.Is(err, calypsoerr.KindPin) {
		t.Fatalf("expected KindPin, got %v", err)
	}
	if v.Verified {
		t.Fatalf("expected Verified=false")
	}
	if !img.PIN.Blocked || img.PIN.RemainingAttempts != 0 {
		t.Fatalf("image PIN state not updated: %+v", img.PIN)
	}
}

func TestCloseSecureSession_SplitsPostponedBlocksAndMAC(t *testing.T) {
	img := card.NewImage()
	c := &CloseSecureSession{Ratify: true, TerminalSessionMAC: []byte{0, 0, 0, 0}}
	// postponed block "AABB" (len 2), then the trailing 4-byte card MAC.
	payload := []byte{0x02, 0xAA, 0xBB, 0xDE, 0xAD, 0xBE, 0xEF}
	if err := c.ParseResponse(ok(payload), img, CommandContext{}); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if diff := cmp.Diff([]byte{0xDE, 0xAD, 0xBE, 0xEF}, c.CardSessionMAC); diff != "" {
		t.Fatalf("card MAC mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]byte{{0xAA, 0xBB}}, c.PostponedBlocks); diff != "" {
		t.Fatalf("postponed blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseSecureSession_RatifyControlsP1(t *testing.T) {
	ratify := &CloseSecureSession{Ratify: true, TerminalSessionMAC: []byte{1, 2, 3, 4}}
	req, err := ratify.FinalizeRequest(CommandContext{Product: apdu.ProductISO})
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	if req.P1 != 0x80 {
		t.Fatalf("expected P1 0x80 when ratification asked, got %02X", req.P1)
	}

	noRatify := &CloseSecureSession{Ratify: false, TerminalSessionMAC: []byte{1, 2, 3, 4}}
	req, err = noRatify.FinalizeRequest(CommandContext{Product: apdu.ProductISO})
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	if req.P1 != 0x00 {
		t.Fatalf("expected P1 0x00 when ratification not asked, got %02X", req.P1)
	}
}

func TestSearchRecord_EqualMasked(t *testing.T) {
	a := []byte{0xFF, 0x12}
	b := []byte{0x0F, 0x12}
	if equalMasked(a, b, nil) {
		t.Fatalf("expected mismatch without mask")
	}
	if !equalMasked(a, b, []byte{0x0F, 0xFF}) {
		t.Fatalf("expected match under mask")
	}
}
