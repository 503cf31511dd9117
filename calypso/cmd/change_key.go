package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// ChangeKey replaces one of the card's session keys (spec.md §4.4, the
// card-side counterpart of the SAM's Card Generate Key, §4.5). The payload
// is the SAM-enciphered key-change block; this command never touches class
// 0xFA (SV-specific) regardless of card family, since key management is not
// an SV operation.
type ChangeKey struct {
	KeyIndex       byte
	CipheredKeyData []byte
}

func (c *ChangeKey) Ref() CommandRef { return CommandRef{Name: "ChangeKey"} }

func (c *ChangeKey) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(c.CipheredKeyData) == 0 {
		return nil, fmt.Errorf("cmd: ChangeKey requires enciphered key data")
	}
	cla := apdu.CalypsoClass(ctx.Product, false)
	return apdu.BuildCalypso(cla, apdu.InsChangeKey, c.KeyIndex, 0x00, c.CipheredKeyData, 0)
}

func (c *ChangeKey) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (c *ChangeKey) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (c *ChangeKey) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: ChangeKey failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (c *ChangeKey) SessionBufferUsed() bool { return true }

func (c *ChangeKey) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
		{apdu.SW_ERR_INCORRECT_PARAMS_DATA, false, "invalid ciphered key data"},
	})
}
