package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// WriteBinary ORs data into a binary EF starting at offset (spec.md §4.4);
// unlike UpdateBinary it does not replace existing bits, so ParseResponse
// ORs into the terminal's own image to mirror the card's semantics exactly.
type WriteBinary struct {
	SFI    card.SFI
	Offset int
	Data   []byte
}

func (w *WriteBinary) Ref() CommandRef { return CommandRef{Name: "WriteBinary", SFI: w.SFI} }

func (w *WriteBinary) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	var p1, p2 byte
	if w.SFI != 0 {
		p1 = 0x80 | byte(w.SFI)
		p2 = byte(w.Offset)
	} else {
		p1 = byte(w.Offset >> 8)
		p2 = byte(w.Offset)
	}
	return apdu.BuildCalypso(cla, apdu.INS_WRITE_BINARY, p1, p2, w.Data, 0)
}

func (w *WriteBinary) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (w *WriteBinary) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (w *WriteBinary) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: WriteBinary failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(w.SFI)
	if err != nil {
		return err
	}
	end := w.Offset + len(w.Data)
	if end > len(ef.Binary) {
		grown := make([]byte, end)
		copy(grown, ef.Binary)
		ef.Binary = grown
	}
	for i, b := range w.Data {
		ef.Binary[w.Offset+i] |= b
	}
	return nil
}

func (w *WriteBinary) SessionBufferUsed() bool { return true }

func (w *WriteBinary) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "incompatible file structure"},
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
	})
}
