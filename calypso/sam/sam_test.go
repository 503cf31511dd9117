package sam

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregclo/calypso-core/apdu"
)

func ok(data []byte) *apdu.ResponseAPDU {
	return &apdu.ResponseAPDU{Data: data, Status: apdu.SW_NO_ERROR}
}

func TestDigestChain(t *testing.T) {
	init := &DigestInit{KIF: 0x21, KVC: 0x7E, OpenSessionRespData: []byte{0x11, 0x22}}
	req, err := init.FinalizeRequest()
	if err != nil {
		t.Fatalf("DigestInit.FinalizeRequest: %v", err)
	}
	wantData := []byte{0x21, 0x7E, 0x11, 0x22}
	if diff := cmp.Diff(wantData, req.Data); diff != "" {
		t.Fatalf("DigestInit data mismatch (-want +got):\n%s", diff)
	}
	if err := init.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("DigestInit.ParseResponse: %v", err)
	}

	upd := &DigestUpdate{Data: []byte{0x00, 0xA4, 0x04, 0x00}}
	if _, err := upd.FinalizeRequest(); err != nil {
		t.Fatalf("DigestUpdate.FinalizeRequest: %v", err)
	}
	if err := upd.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("DigestUpdate.ParseResponse: %v", err)
	}

	digestClose := &DigestClose{}
	mac := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := digestClose.ParseResponse(ok(mac)); err != nil {
		t.Fatalf("DigestClose.ParseResponse: %v", err)
	}
	if diff := cmp.Diff(mac, digestClose.TerminalMAC); diff != "" {
		t.Fatalf("terminal MAC mismatch (-want +got):\n%s", diff)
	}

	auth := &DigestAuthenticate{CardMAC: mac}
	if err := auth.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("DigestAuthenticate.ParseResponse: %v", err)
	}
	if !auth.Valid {
		t.Fatalf("expected DigestAuthenticate to validate")
	}

	bad := &DigestAuthenticate{CardMAC: mac}
	if err := bad.ParseResponse(&apdu.ResponseAPDU{Status: apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO}); err == nil {
		t.Fatalf("expected error on rejected card MAC")
	}
	if bad.Valid {
		t.Fatalf("expected Valid=false on rejected card MAC")
	}
}

func TestSVPrepareAndCheck(t *testing.T) {
	prep := &SVPrepare{
		Op:            SVPrepareDebit,
		SVGetRespData: []byte{0x00, 0x01, 0x02},
		Amount:        -500,
		Date:          [2]byte{0x12, 0x34},
		Time:          [2]byte{0x56, 0x78},
	}
	req, err := prep.FinalizeRequest()
	if err != nil {
		t.Fatalf("SVPrepare.FinalizeRequest: %v", err)
	}
	if req.P1 != byte(SVPrepareDebit) {
		t.Fatalf("expected P1 %02X, got %02X", byte(SVPrepareDebit), req.P1)
	}
	wantData := []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0x0C, 0x12, 0x34, 0x56, 0x78}
	if diff := cmp.Diff(wantData, req.Data); diff != "" {
		t.Fatalf("SVPrepare data mismatch (-want +got):\n%s", diff)
	}

	sig := []byte{0xAA, 0xBB, 0xCC}
	if err := prep.ParseResponse(ok(sig)); err != nil {
		t.Fatalf("SVPrepare.ParseResponse: %v", err)
	}
	if diff := cmp.Diff(sig, prep.Signature); diff != "" {
		t.Fatalf("signature mismatch (-want +got):\n%s", diff)
	}

	check := &SVCheck{SVOperationRespData: []byte{0x01, 0x02}}
	if err := check.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("SVCheck.ParseResponse: %v", err)
	}
	if !check.Valid {
		t.Fatalf("expected SVCheck to validate")
	}
}

func TestReadCeilingsAndEventCounter(t *testing.T) {
	c := &ReadCeilings{CeilingIndex: 3}
	if err := c.ParseResponse(ok([]byte{0x00, 0x00, 0x03, 0xE8})); err != nil {
		t.Fatalf("ReadCeilings.ParseResponse: %v", err)
	}
	if c.Value != 1000 {
		t.Fatalf("expected ceiling 1000, got %d", c.Value)
	}

	e := &ReadEventCounter{CounterIndex: 1}
	if err := e.ParseResponse(ok([]byte{0x00, 0x01, 0x2C})); err != nil {
		t.Fatalf("ReadEventCounter.ParseResponse: %v", err)
	}
	if e.Value != 300 {
		t.Fatalf("expected counter 300, got %d", e.Value)
	}
}

func TestWriteKey(t *testing.T) {
	w := &WriteKey{CipheredKeyData: []byte{0x01, 0x02, 0x03}}
	req, err := w.FinalizeRequest()
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	if diff := cmp.Diff(w.CipheredKeyData, req.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if err := w.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
}

func TestPSOComputeAndVerifySignature(t *testing.T) {
	compute := &PSOComputeSignature{Data: []byte{0x01, 0x02}}
	sig := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	if err := compute.ParseResponse(ok(sig)); err != nil {
		t.Fatalf("PSOComputeSignature.ParseResponse: %v", err)
	}
	if diff := cmp.Diff(sig, compute.Signature); diff != "" {
		t.Fatalf("signature mismatch (-want +got):\n%s", diff)
	}

	verify := &PSOVerifySignature{Data: []byte{0x01, 0x02}, Signature: sig}
	req, err := verify.FinalizeRequest()
	if err != nil {
		t.Fatalf("FinalizeRequest: %v", err)
	}
	wantData := append(append([]byte{}, verify.Data...), sig...)
	if diff := cmp.Diff(wantData, req.Data); diff != "" {
		t.Fatalf("verify data mismatch (-want +got):\n%s", diff)
	}
	if err := verify.ParseResponse(ok(nil)); err != nil {
		t.Fatalf("PSOVerifySignature.ParseResponse: %v", err)
	}
	if !verify.Valid {
		t.Fatalf("expected signature to validate")
	}
}
