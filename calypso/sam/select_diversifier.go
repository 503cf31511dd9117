package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// SelectDiversifier tells the SAM which card serial number to derive the
// session keys from for the rest of the SAM command sequence (spec.md
// §4.5); it must precede Digest Init.
type SelectDiversifier struct {
	CardSerialNumber []byte
}

func (s *SelectDiversifier) Ref() string { return "SelectDiversifier" }

func (s *SelectDiversifier) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMSelectDiversifier, 0x00, 0x00, s.CardSerialNumber, 0)
}

func (s *SelectDiversifier) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: SelectDiversifier failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (s *SelectDiversifier) StatusTable() apdu.StatusTable { return DefaultStatusTable }
