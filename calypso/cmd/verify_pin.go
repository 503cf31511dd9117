package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/bits"
	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypsoerr"
)

// VerifyPIN checks a 4-digit PIN against the card (spec.md §4.4). A
// verification failure is not a protocol error: the card reports the
// remaining attempt counter directly in SW2 (63CX), which ParseResponse
// decodes into the card image rather than treating it as a command failure.
type VerifyPIN struct {
	PIN []byte // 4 bytes; empty PIN ("blind" presentation) checks presence only

	Verified          bool
	RemainingAttempts int
}

func (v *VerifyPIN) Ref() CommandRef { return CommandRef{Name: "VerifyPIN"} }

func (v *VerifyPIN) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	return apdu.BuildCalypso(cla, apdu.INS_VERIFY, 0x00, 0x00, v.PIN, 0)
}

func (v *VerifyPIN) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (v *VerifyPIN) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (v *VerifyPIN) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	switch {
	case resp.Status == apdu.SW_NO_ERROR:
		v.Verified = true
		v.RemainingAttempts = 3
		img.SetPIN(v.RemainingAttempts, true, false)
		return nil
	case resp.Status.SW1() == 0x63 && resp.Status.IsCounter():
		v.Verified = false
		v.RemainingAttempts = int(bits.GetRange(resp.Status.SW2(), 4, 1))
		img.SetPIN(v.RemainingAttempts, false, v.RemainingAttempts == 0)
		return nil
	case resp.Status == apdu.SW_ERR_AUTH_METHOD_BLOCKED:
		v.Verified = false
		v.RemainingAttempts = 0
		img.SetPIN(0, false, true)
		return calypsoerr.FromStatus(calypsoerr.KindPin, v.Ref().String(), resp.Status, "PIN blocked")
	default:
		return fmt.Errorf("cmd: VerifyPIN failed: %s", resp.Status.Verbose())
	}
}

func (v *VerifyPIN) SessionBufferUsed() bool { return false }

// StatusTable marks the wrong-PIN and blocked status words OK so the
// orchestrator always runs ParseResponse for them: the remaining-attempts
// counter and the typed Pin(blocked) error both come out of parsing the
// response, not out of the pre-parse status check.
func (v *VerifyPIN) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_AUTH_METHOD_BLOCKED, true, "PIN blocked"},
		{apdu.SW_CALYPSO_PIN_2_REMAINING, true, "wrong PIN, 2 attempts remaining"},
		{apdu.SW_CALYPSO_PIN_1_REMAINING, true, "wrong PIN, 1 attempt remaining"},
	})
}
