package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// SVPrepareOp selects which card SV command the SAM is producing a
// signature for (spec.md §4.5).
type SVPrepareOp byte

const (
	SVPrepareLoad    SVPrepareOp = 0x07
	SVPrepareDebit   SVPrepareOp = 0x09
	SVPrepareUndebit SVPrepareOp = 0x0A
)

// SVPrepare computes the SAM signature that authorizes one SV Reload/
// Debit/Undebit on the card (spec.md §4.5). The SAM must already have seen
// the card's SV Get response (fed via DigestUpdate) before this is called.
type SVPrepare struct {
	Op            SVPrepareOp
	SVGetRespData []byte
	Amount        int32
	Date          [2]byte
	Time          [2]byte

	Signature []byte
}

func (s *SVPrepare) Ref() string { return "SVPrepare" }

func (s *SVPrepare) FinalizeRequest() (*apdu.CommandAPDU, error) {
	data := append([]byte{}, s.SVGetRespData...)
	data = append(data,
		byte(s.Amount>>16), byte(s.Amount>>8), byte(s.Amount),
		s.Date[0], s.Date[1], s.Time[0], s.Time[1],
	)
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMSVPrepare, byte(s.Op), 0x00, data, apdu.MaxShortLe)
}

func (s *SVPrepare) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: SVPrepare failed: %s", resp.Status.Verbose())
	}
	s.Signature = resp.Data
	return nil
}

func (s *SVPrepare) StatusTable() apdu.StatusTable { return DefaultStatusTable }
