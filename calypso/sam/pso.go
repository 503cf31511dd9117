package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// PSOComputeSignature and PSOVerifySignature reuse the ISO 7816-8
// INS_PERFORM_SECURITY_OPERATION code, distinguished by P1/P2 (9E/9A for
// compute, 00/A8 with data for verify): genuinely the same ISO command the
// SAM and any other ISO security module would accept, per spec.md §4.5.

// PSOComputeSignature asks the SAM to sign an arbitrary data block, used
// for off-card key-management material that isn't part of a card session.
type PSOComputeSignature struct {
	Data []byte

	Signature []byte
}

func (p *PSOComputeSignature) Ref() string { return "PSOComputeSignature" }

func (p *PSOComputeSignature) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.INS_PERFORM_SECURITY_OPERATION, 0x9E, 0x9A, p.Data, apdu.MaxShortLe)
}

func (p *PSOComputeSignature) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: PSOComputeSignature failed: %s", resp.Status.Verbose())
	}
	p.Signature = resp.Data
	return nil
}

func (p *PSOComputeSignature) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// PSOVerifySignature asks the SAM to verify data against a previously
// computed signature.
type PSOVerifySignature struct {
	Data      []byte
	Signature []byte

	Valid bool
}

func (p *PSOVerifySignature) Ref() string { return "PSOVerifySignature" }

func (p *PSOVerifySignature) FinalizeRequest() (*apdu.CommandAPDU, error) {
	data := append(append([]byte{}, p.Data...), p.Signature...)
	return apdu.BuildCalypso(apdu.ClassISO, apdu.INS_PERFORM_SECURITY_OPERATION, 0x00, 0xA8, data, 0)
}

func (p *PSOVerifySignature) ParseResponse(resp *apdu.ResponseAPDU) error {
	p.Valid = resp.Status.IsSuccess()
	if !p.Valid {
		return fmt.Errorf("sam: PSOVerifySignature: signature rejected: %s", resp.Status.Verbose())
	}
	return nil
}

func (p *PSOVerifySignature) StatusTable() apdu.StatusTable { return DefaultStatusTable }
