package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SVUndebit reverses a prior SVDebit within the cancellation window (spec.md
// §4.4), signed by the SAM's SV Prepare Undebit output.
type SVUndebit struct {
	Amount       int32
	Date         [2]byte
	Time         [2]byte
	SAMSignature []byte

	NewBalance int32
}

func (s *SVUndebit) Ref() CommandRef { return CommandRef{Name: "SVUndebit"} }

func (s *SVUndebit) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(s.SAMSignature) == 0 {
		return nil, fmt.Errorf("cmd: SVUndebit requires a SAM signature from SV Prepare Undebit")
	}
	cla := apdu.CalypsoClass(ctx.Product, true)
	data := []byte{
		byte(s.Amount >> 8), byte(s.Amount),
		s.Date[0], s.Date[1], s.Time[0], s.Time[1],
	}
	data = append(data, s.SAMSignature...)
	return apdu.BuildCalypso(cla, apdu.InsSVUndebit, 0x00, 0x00, data, apdu.MaxShortLe)
}

func (s *SVUndebit) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (s *SVUndebit) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SVUndebit) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SVUndebit failed: %s", resp.Status.Verbose())
	}
	s.NewBalance = img.SV.Balance + s.Amount
	img.UpdateSVData(s.Amount, resp.Data, false)
	return nil
}

func (s *SVUndebit) SessionBufferUsed() bool { return true }

func (s *SVUndebit) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "invalid SAM signature"},
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "SV Get must precede SV Undebit"},
	})
}
