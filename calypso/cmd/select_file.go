package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SelectMethod mirrors the teacher's iso7816.SelectionMethod (P1 of SELECT),
// restricted to the two forms Calypso terminals actually issue: by AID to
// open the application, by file identifier to navigate its DF/EF tree.
type SelectMethod byte

const (
	SelectByAID    SelectMethod = 0x04
	SelectByFileID SelectMethod = 0x02
)

// SelectFile is the SELECT command (spec.md §4.4): either "select
// application by AID" (first command of every transaction) or "select EF
// by LID" (navigation within an already-selected DF).
type SelectFile struct {
	Method SelectMethod
	AID    []byte
	LID    card.LID

	FCI *card.CalypsoFCI
}

func (s *SelectFile) Ref() CommandRef { return CommandRef{Name: "SelectFile"} }

func (s *SelectFile) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)

	var p1 byte
	var data []byte
	switch s.Method {
	case SelectByAID:
		if len(s.AID) == 0 {
			return nil, fmt.Errorf("cmd: SelectFile by AID requires a non-empty AID")
		}
		p1 = byte(SelectByAID)
		data = s.AID
	case SelectByFileID:
		p1 = byte(SelectByFileID)
		data = []byte{byte(s.LID >> 8), byte(s.LID)}
	default:
		return nil, fmt.Errorf("cmd: unknown select method %02X", byte(s.Method))
	}

	ins, err := apdu.NewInstruction(apdu.INS_SELECT)
	if err != nil {
		return nil, err
	}
	// P2 = 0x00 (first/only occurrence, return FCI): Calypso SELECT always
	// returns the FCI template regardless of product type. IsProprietary is
	// forced true so Class.Encode() emits cla verbatim instead of
	// recomputing it from the ISO interindustry bit layout, the same
	// shortcut apdu.BuildCalypso takes for every other Calypso command.
	return apdu.NewCommandAPDU(apdu.Class{Raw: cla, IsProprietary: true}, ins, p1, 0x00, data, apdu.MaxShortLe), nil
}

func (s *SelectFile) CryptoNeed() CryptoNeed { return NoCrypto }

func (s *SelectFile) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SelectFile) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SelectFile failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) == 0 {
		return nil
	}
	fci, err := card.ParseCalypsoSelectData(resp.Data)
	if err != nil {
		return fmt.Errorf("cmd: SelectFile: %w", err)
	}
	s.FCI = fci

	if s.Method == SelectByFileID {
		if ef, err := img.GetEFByLID(s.LID); err == nil {
			img.CurrentEF = ef
		}
	}
	return nil
}

func (s *SelectFile) SessionBufferUsed() bool { return false }

func (s *SelectFile) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_FILE_NOT_FOUND, false, "file or application not found"},
	})
}
