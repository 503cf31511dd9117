package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// CardCipherPIN enciphers a new PIN value for use in a card Change PIN
// command (spec.md §4.5, the SAM-side counterpart of cmd.ChangePIN).
type CardCipherPIN struct {
	CurrentPIN []byte // empty when only ciphering a new PIN, not verifying
	NewPIN     []byte

	CipheredBlock []byte
}

func (c *CardCipherPIN) Ref() string { return "CardCipherPIN" }

func (c *CardCipherPIN) FinalizeRequest() (*apdu.CommandAPDU, error) {
	data := append(append([]byte{}, c.CurrentPIN...), c.NewPIN...)
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMCardCipherPIN, 0x00, 0x00, data, apdu.MaxShortLe)
}

func (c *CardCipherPIN) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: CardCipherPIN failed: %s", resp.Status.Verbose())
	}
	c.CipheredBlock = resp.Data
	return nil
}

func (c *CardCipherPIN) StatusTable() apdu.StatusTable { return DefaultStatusTable }
