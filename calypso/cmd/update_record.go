package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// UpdateRecord overwrites a full record of a linear EF (spec.md §4.4). Its
// request bytes must be folded into the running session MAC, so
// CryptoNeed is SynchronizeLater like a read, but SessionBufferUsed is true
// because it consumes session buffer capacity (writes do, reads don't).
type UpdateRecord struct {
	SFI          card.SFI
	RecordNumber byte
	Data         []byte
}

func (u *UpdateRecord) Ref() CommandRef {
	return CommandRef{Name: "UpdateRecord", SFI: u.SFI, P1: u.RecordNumber}
}

func (u *UpdateRecord) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p2 := byte(u.SFI) << 3
	return apdu.BuildCalypso(cla, apdu.INS_UPDATE_RECORD, u.RecordNumber, p2, u.Data, 0)
}

func (u *UpdateRecord) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (u *UpdateRecord) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (u *UpdateRecord) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: UpdateRecord failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(u.SFI)
	if err != nil {
		return err
	}
	ef.SetContent(int(u.RecordNumber), u.Data)
	return nil
}

func (u *UpdateRecord) SessionBufferUsed() bool { return true }

func (u *UpdateRecord) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_RECORD_NOT_FOUND, false, "record not found"},
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "incompatible file structure"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
