package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SVReload credits the purse. SAMSignature is the SAM's SV Prepare Load
// output (spec.md §4.5 SV Prepare family) and must precede this command in
// the same session; SVReload never computes it itself.
type SVReload struct {
	Amount       int32
	Date         [2]byte
	Time         [2]byte
	SAMSignature []byte

	NewBalance int32
}

func (s *SVReload) Ref() CommandRef { return CommandRef{Name: "SVReload"} }

func (s *SVReload) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(s.SAMSignature) == 0 {
		return nil, fmt.Errorf("cmd: SVReload requires a SAM signature from SV Prepare Load")
	}
	cla := apdu.CalypsoClass(ctx.Product, true)
	data := []byte{
		byte(s.Amount >> 16), byte(s.Amount >> 8), byte(s.Amount),
		s.Date[0], s.Date[1], s.Time[0], s.Time[1],
	}
	data = append(data, s.SAMSignature...)
	return apdu.BuildCalypso(cla, apdu.InsSVReload, 0x00, 0x00, data, apdu.MaxShortLe)
}

func (s *SVReload) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (s *SVReload) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SVReload) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SVReload failed: %s", resp.Status.Verbose())
	}
	s.NewBalance = img.SV.Balance + s.Amount
	img.UpdateSVData(s.Amount, resp.Data, false)
	return nil
}

func (s *SVReload) SessionBufferUsed() bool { return true }

func (s *SVReload) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "invalid SAM signature"},
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "SV Get must precede SV Reload"},
	})
}
