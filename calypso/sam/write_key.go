package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// WriteKey loads a new key record into the SAM's own key store, enciphered
// under a transport key the SAM already holds (spec.md §4.5).
type WriteKey struct {
	CipheredKeyData []byte
}

func (w *WriteKey) Ref() string { return "WriteKey" }

func (w *WriteKey) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMWriteKey, 0x00, 0x00, w.CipheredKeyData, 0)
}

func (w *WriteKey) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: WriteKey failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (w *WriteKey) StatusTable() apdu.StatusTable { return DefaultStatusTable }
