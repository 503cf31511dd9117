package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// Unlock authenticates the terminal to the SAM itself before any other SAM
// command is accepted (spec.md §4.5).
type Unlock struct {
	UnlockData []byte
}

func (u *Unlock) Ref() string { return "Unlock" }

func (u *Unlock) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMUnlock, 0x00, 0x00, u.UnlockData, 0)
}

func (u *Unlock) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: Unlock failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (u *Unlock) StatusTable() apdu.StatusTable { return DefaultStatusTable }
