package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// ReadBinary reads a run of bytes from a binary or counters EF starting at
// offset (spec.md §4.4).
type ReadBinary struct {
	SFI    card.SFI
	Offset int
	Length int

	Data []byte
}

func (r *ReadBinary) Ref() CommandRef { return CommandRef{Name: "ReadBinary", SFI: r.SFI} }

func (r *ReadBinary) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if r.Offset > 0x7FFF {
		return nil, fmt.Errorf("cmd: ReadBinary offset %d exceeds short-APDU range", r.Offset)
	}
	cla := apdu.CalypsoClass(ctx.Product, false)
	ins, err := apdu.NewInstruction(apdu.INS_READ_BINARY)
	if err != nil {
		return nil, err
	}
	// When SFI != 0, P1 bit 8 is set and bits 5-1 carry the SFI (ISO 7816-4
	// "read by SFI" addressing); otherwise P1/P2 is the 15-bit offset.
	var p1, p2 byte
	if r.SFI != 0 {
		p1 = 0x80 | byte(r.SFI)
		p2 = byte(r.Offset)
	} else {
		p1 = byte(r.Offset >> 8)
		p2 = byte(r.Offset)
	}
	le := r.Length
	if le == 0 || le > apdu.MaxShortLe {
		le = apdu.MaxShortLe
	}
	return apdu.NewCommandAPDU(apdu.Class{Raw: cla, IsProprietary: true}, ins, p1, p2, nil, le), nil
}

func (r *ReadBinary) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (r *ReadBinary) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (r *ReadBinary) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: ReadBinary failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(r.SFI)
	if err != nil {
		return err
	}
	r.Data = resp.Data
	ef.SetContent(r.Offset, resp.Data)
	return nil
}

func (r *ReadBinary) SessionBufferUsed() bool { return false }

func (r *ReadBinary) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "incompatible file structure"},
	})
}
