package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// CardGenerateKey produces the enciphered key-change block a card's
// Change Key command consumes (spec.md §4.5, §4.4's cmd.ChangeKey
// counterpart).
type CardGenerateKey struct {
	KIF byte
	KVC byte

	CipheredKeyData []byte
}

func (c *CardGenerateKey) Ref() string { return "CardGenerateKey" }

func (c *CardGenerateKey) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMCardGenerateKey, 0x00, 0x00, []byte{c.KIF, c.KVC}, apdu.MaxShortLe)
}

func (c *CardGenerateKey) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: CardGenerateKey failed: %s", resp.Status.Verbose())
	}
	c.CipheredKeyData = resp.Data
	return nil
}

func (c *CardGenerateKey) StatusTable() apdu.StatusTable { return DefaultStatusTable }
