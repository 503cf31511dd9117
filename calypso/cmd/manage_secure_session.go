package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// ManageSecureSession toggles encryption/decryption of the command and
// response data field within an already-open session (spec.md §4.4, §4.6's
// OPEN -> OPEN+ENC transition).
type ManageSecureSession struct {
	EnableEncryption bool
	TerminalMAC      []byte // partial MAC over bytes exchanged so far, per §4.6
}

func (m *ManageSecureSession) Ref() CommandRef { return CommandRef{Name: "ManageSecureSession"} }

func (m *ManageSecureSession) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p1 := byte(0x00)
	if m.EnableEncryption {
		p1 = 0x01
	}
	return apdu.BuildCalypso(cla, apdu.InsManageSecureSession, p1, 0x00, m.TerminalMAC, apdu.MaxShortLe)
}

func (m *ManageSecureSession) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (m *ManageSecureSession) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (m *ManageSecureSession) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: ManageSecureSession failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (m *ManageSecureSession) SessionBufferUsed() bool { return false }

func (m *ManageSecureSession) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "MAC check failed or no session open"},
	})
}
