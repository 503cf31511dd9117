package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SVOperation selects which operation an SV Get call is preparing for; the
// card needs to know in advance so it can return the right KVC (spec.md
// §4.4 SV family).
type SVOperation byte

const (
	SVOpReload SVOperation = 0x07
	SVOpDebit  SVOperation = 0x09
)

// SVGet reads the current SV balance and last transaction number, and must
// precede any SVReload/SVDebit/SVUndebit within the same session (spec.md
// §4.4).
type SVGet struct {
	Operation SVOperation

	Balance  int32
	LastTNum int
	KVC      byte
	Raw      []byte
}

func (s *SVGet) Ref() CommandRef { return CommandRef{Name: "SVGet"} }

func (s *SVGet) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, true)
	return apdu.BuildCalypso(cla, apdu.InsSVGet, byte(s.Operation), 0x00, nil, apdu.MaxShortLe)
}

func (s *SVGet) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (s *SVGet) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SVGet) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SVGet failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 6 {
		return fmt.Errorf("cmd: SVGet: response too short (%d bytes)", len(resp.Data))
	}
	s.Raw = resp.Data
	s.KVC = resp.Data[0]
	balRaw := int32(resp.Data[1])<<16 | int32(resp.Data[2])<<8 | int32(resp.Data[3])
	if balRaw&0x800000 != 0 {
		balRaw -= 1 << 24
	}
	s.Balance = balRaw
	s.LastTNum = int(resp.Data[4])<<8 | int(resp.Data[5])
	img.SetSVData(s.Balance, s.LastTNum, s.KVC)
	return nil
}

func (s *SVGet) SessionBufferUsed() bool { return false }

func (s *SVGet) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "SV Get not allowed in current state"},
	})
}
