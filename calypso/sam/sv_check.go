package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// SVCheck validates the card's SV operation response against the SAM's own
// session state, confirming the Reload/Debit/Undebit actually committed
// with the signature the SAM issued (spec.md §4.5).
type SVCheck struct {
	SVOperationRespData []byte

	Valid bool
}

func (s *SVCheck) Ref() string { return "SVCheck" }

func (s *SVCheck) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMSVCheck, 0x00, 0x00, s.SVOperationRespData, 0)
}

func (s *SVCheck) ParseResponse(resp *apdu.ResponseAPDU) error {
	s.Valid = resp.Status.IsSuccess()
	if !s.Valid {
		return fmt.Errorf("sam: SVCheck failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (s *SVCheck) StatusTable() apdu.StatusTable { return DefaultStatusTable }
