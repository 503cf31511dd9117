package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// Increase adds incValue to a counter and returns the new value (spec.md
// §4.4). P1 is the counter number, data is the 3-byte increment.
type Increase struct {
	SFI           card.SFI
	CounterNumber byte
	IncValue      uint32

	NewValue uint32
}

func (c *Increase) Ref() CommandRef {
	return CommandRef{Name: "Increase", SFI: c.SFI, P1: c.CounterNumber}
}

func (c *Increase) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	data := []byte{byte(c.IncValue >> 16), byte(c.IncValue >> 8), byte(c.IncValue)}
	return apdu.BuildCalypso(cla, apdu.InsIncrease, c.CounterNumber, byte(c.SFI)<<3, data, apdu.MaxShortLe)
}

func (c *Increase) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (c *Increase) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (c *Increase) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: Increase failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 3 {
		return fmt.Errorf("cmd: Increase: response too short (%d bytes)", len(resp.Data))
	}
	c.NewValue = uint32(resp.Data[0])<<16 | uint32(resp.Data[1])<<8 | uint32(resp.Data[2])
	ef, err := img.GetEFBySFI(c.SFI)
	if err != nil {
		return err
	}
	ef.SetCounter(int(c.CounterNumber), c.NewValue)
	return nil
}

func (c *Increase) SessionBufferUsed() bool { return true }

func (c *Increase) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "not a counter file"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
