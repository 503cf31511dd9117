package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SVDebit deducts from the purse, mirroring SVReload but signed by the
// SAM's SV Prepare Debit output (spec.md §4.4/§4.5).
type SVDebit struct {
	Amount       int32
	Date         [2]byte
	Time         [2]byte
	SAMSignature []byte

	NewBalance int32
}

func (s *SVDebit) Ref() CommandRef { return CommandRef{Name: "SVDebit"} }

func (s *SVDebit) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(s.SAMSignature) == 0 {
		return nil, fmt.Errorf("cmd: SVDebit requires a SAM signature from SV Prepare Debit")
	}
	cla := apdu.CalypsoClass(ctx.Product, true)
	data := []byte{
		byte(s.Amount >> 8), byte(s.Amount),
		s.Date[0], s.Date[1], s.Time[0], s.Time[1],
	}
	data = append(data, s.SAMSignature...)
	return apdu.BuildCalypso(cla, apdu.InsSVDebit, 0x00, 0x00, data, apdu.MaxShortLe)
}

func (s *SVDebit) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (s *SVDebit) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SVDebit) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SVDebit failed: %s", resp.Status.Verbose())
	}
	s.NewBalance = img.SV.Balance - s.Amount
	img.UpdateSVData(-s.Amount, resp.Data, true)
	return nil
}

func (s *SVDebit) SessionBufferUsed() bool { return true }

func (s *SVDebit) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "invalid SAM signature"},
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "insufficient balance or SV Get missing"},
	})
}
