package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// Ratification is the dummy APDU the terminal sends after Close Secure
// Session to force the card to ratify a session it closed without
// ratification (spec.md §4.4/§4.6's ratification note: a card that replies
// to Close Secure Session without the ratification bit set will only
// commit its writes once it receives one more APDU, successful or not).
// The card is expected to answer with an instruction-not-supported status;
// that response itself is the ratification trigger, so ParseResponse never
// treats a non-success status as an error.
type Ratification struct{}

func (r *Ratification) Ref() CommandRef { return CommandRef{Name: "Ratification"} }

func (r *Ratification) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	return apdu.BuildCalypso(cla, apdu.InsOpenSecureSession, 0x00, 0x00, nil, 0)
}

func (r *Ratification) CryptoNeed() CryptoNeed { return NoCrypto }

func (r *Ratification) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (r *Ratification) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if resp == nil {
		return fmt.Errorf("cmd: Ratification: no response")
	}
	img.Session.RatificationOK = true
	return nil
}

func (r *Ratification) SessionBufferUsed() bool { return false }

func (r *Ratification) StatusTable() apdu.StatusTable {
	// Any status word ratifies the session; none of them represents a
	// command failure from the terminal's point of view.
	return apdu.StatusTable{
		{apdu.SW_NO_ERROR, true, "ratified"},
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, true, "ratified (command rejected as expected)"},
	}
}
