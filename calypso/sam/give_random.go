package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// GiveRandom seeds the SAM's own RNG/diversification state with terminal-
// supplied entropy (spec.md §4.5); used ahead of Card Generate Key.
type GiveRandom struct {
	Random []byte
}

func (g *GiveRandom) Ref() string { return "GiveRandom" }

func (g *GiveRandom) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMGiveRandom, 0x00, 0x00, g.Random, 0)
}

func (g *GiveRandom) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: GiveRandom failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (g *GiveRandom) StatusTable() apdu.StatusTable { return DefaultStatusTable }
