package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// Decrease subtracts decValue from a counter and returns the new value
// (spec.md §4.4); the mirror image of Increase.
type Decrease struct {
	SFI           card.SFI
	CounterNumber byte
	DecValue      uint32

	NewValue uint32
}

func (c *Decrease) Ref() CommandRef {
	return CommandRef{Name: "Decrease", SFI: c.SFI, P1: c.CounterNumber}
}

func (c *Decrease) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	data := []byte{byte(c.DecValue >> 16), byte(c.DecValue >> 8), byte(c.DecValue)}
	return apdu.BuildCalypso(cla, apdu.InsDecrease, c.CounterNumber, byte(c.SFI)<<3, data, apdu.MaxShortLe)
}

func (c *Decrease) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (c *Decrease) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (c *Decrease) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: Decrease failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 3 {
		return fmt.Errorf("cmd: Decrease: response too short (%d bytes)", len(resp.Data))
	}
	c.NewValue = uint32(resp.Data[0])<<16 | uint32(resp.Data[1])<<8 | uint32(resp.Data[2])
	ef, err := img.GetEFBySFI(c.SFI)
	if err != nil {
		return err
	}
	ef.SetCounter(int(c.CounterNumber), c.NewValue)
	return nil
}

func (c *Decrease) SessionBufferUsed() bool { return true }

func (c *Decrease) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "not a counter file"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
