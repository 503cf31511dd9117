package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// DecreaseMultiple is the decrementing counterpart of IncreaseMultiple
// (spec.md §4.4), same wire layout.
type DecreaseMultiple struct {
	SFI    card.SFI
	Deltas []CounterDelta

	NewValues map[byte]uint32
}

func (c *DecreaseMultiple) Ref() CommandRef { return CommandRef{Name: "DecreaseMultiple", SFI: c.SFI} }

func (c *DecreaseMultiple) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	data := make([]byte, 0, 4*len(c.Deltas))
	for _, d := range c.Deltas {
		data = append(data, d.CounterNumber, byte(d.Value>>16), byte(d.Value>>8), byte(d.Value))
	}
	return apdu.BuildCalypso(cla, apdu.InsDecreaseMultiple, 0x00, byte(c.SFI)<<3, data, apdu.MaxShortLe)
}

func (c *DecreaseMultiple) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (c *DecreaseMultiple) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (c *DecreaseMultiple) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: DecreaseMultiple failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(c.SFI)
	if err != nil {
		return err
	}
	c.NewValues = map[byte]uint32{}
	data := resp.Data
	for len(data) >= 4 {
		counterNum := data[0]
		val := uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		c.NewValues[counterNum] = val
		ef.SetCounter(int(counterNum), val)
		data = data[4:]
	}
	return nil
}

func (c *DecreaseMultiple) SessionBufferUsed() bool { return true }

func (c *DecreaseMultiple) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "not a counter file"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
