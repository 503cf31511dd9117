package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// AppendRecord pushes a new record onto a cyclic EF (spec.md §4.4); the
// card renumbers existing records, so ParseResponse mirrors that renumbering
// onto the terminal's own image via EF.AddCyclicContent.
type AppendRecord struct {
	SFI  card.SFI
	Data []byte
}

func (a *AppendRecord) Ref() CommandRef { return CommandRef{Name: "AppendRecord", SFI: a.SFI} }

func (a *AppendRecord) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p2 := byte(a.SFI) << 3
	return apdu.BuildCalypso(cla, apdu.INS_APPEND_RECORD, 0x00, p2, a.Data, 0)
}

func (a *AppendRecord) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (a *AppendRecord) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (a *AppendRecord) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: AppendRecord failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(a.SFI)
	if err != nil {
		return err
	}
	if ef.Type != card.FileCyclic {
		return fmt.Errorf("cmd: AppendRecord: sfi %02X is not a cyclic file", byte(a.SFI))
	}
	ef.AddCyclicContent(a.Data)
	return nil
}

func (a *AppendRecord) SessionBufferUsed() bool { return true }

func (a *AppendRecord) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "not a cyclic file"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
