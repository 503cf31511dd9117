package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// ChangePIN replaces the card's PIN (spec.md §4.4). The new PIN must already
// be enciphered by the crypto provider (SAM Card Cipher PIN, §4.5) before
// this command is built; the caller supplies the enciphered block, keeping
// this type free of any crypto dependency.
type ChangePIN struct {
	CipheredNewPIN []byte
}

func (c *ChangePIN) Ref() CommandRef { return CommandRef{Name: "ChangePIN"} }

func (c *ChangePIN) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(c.CipheredNewPIN) == 0 {
		return nil, fmt.Errorf("cmd: ChangePIN requires a ciphered new PIN")
	}
	cla := apdu.CalypsoClass(ctx.Product, false)
	return apdu.BuildCalypso(cla, apdu.INS_CHANGE_REFERENCE_DATA, 0x00, 0x00, c.CipheredNewPIN, 0)
}

func (c *ChangePIN) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (c *ChangePIN) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (c *ChangePIN) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: ChangePIN failed: %s", resp.Status.Verbose())
	}
	img.SetPIN(3, true, false)
	return nil
}

func (c *ChangePIN) SessionBufferUsed() bool { return true }

func (c *ChangePIN) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
