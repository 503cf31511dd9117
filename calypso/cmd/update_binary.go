package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// UpdateBinary replaces bytes of a binary EF starting at offset (spec.md
// §4.4), in contrast with WriteBinary's OR semantics.
type UpdateBinary struct {
	SFI    card.SFI
	Offset int
	Data   []byte
}

func (u *UpdateBinary) Ref() CommandRef { return CommandRef{Name: "UpdateBinary", SFI: u.SFI} }

func (u *UpdateBinary) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	var p1, p2 byte
	if u.SFI != 0 {
		p1 = 0x80 | byte(u.SFI)
		p2 = byte(u.Offset)
	} else {
		p1 = byte(u.Offset >> 8)
		p2 = byte(u.Offset)
	}
	return apdu.BuildCalypso(cla, apdu.INS_UPDATE_BINARY, p1, p2, u.Data, 0)
}

func (u *UpdateBinary) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (u *UpdateBinary) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (u *UpdateBinary) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: UpdateBinary failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(u.SFI)
	if err != nil {
		return err
	}
	ef.SetContent(u.Offset, u.Data)
	return nil
}

func (u *UpdateBinary) SessionBufferUsed() bool { return true }

func (u *UpdateBinary) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "incompatible file structure"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
