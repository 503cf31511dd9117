package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// GetChallenge obtains the SAM's own random challenge. It reuses the ISO
// INS_GET_CHALLENGE code: this is genuinely the same command ISO 7816-8
// defines, issued against the SAM instead of the card (spec.md §4.5).
type GetChallenge struct {
	Challenge []byte
}

func (g *GetChallenge) Ref() string { return "GetChallenge" }

func (g *GetChallenge) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.INS_GET_CHALLENGE, 0x00, 0x00, nil, 4)
}

func (g *GetChallenge) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: GetChallenge failed: %s", resp.Status.Verbose())
	}
	g.Challenge = resp.Data
	return nil
}

func (g *GetChallenge) StatusTable() apdu.StatusTable { return DefaultStatusTable }
