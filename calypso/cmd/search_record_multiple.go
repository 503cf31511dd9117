package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SearchRecordMultiple is SearchRecord's "fetch every matching record's
// data" variant, used when the caller needs more than the record numbers
// (spec.md §4.4). The card returns {record-number, data} pairs wrapped the
// same way ReadRecords wraps its multi-record response.
type SearchRecordMultiple struct {
	SFI         card.SFI
	StartRecord byte
	Pattern     []byte
	Mask        []byte

	Matches map[int][]byte
}

func (s *SearchRecordMultiple) Ref() CommandRef {
	return CommandRef{Name: "SearchRecordMultiple", SFI: s.SFI}
}

func (s *SearchRecordMultiple) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p2 := (byte(s.SFI) << 3) | 0x03
	data := append([]byte{}, s.Pattern...)
	if len(s.Mask) > 0 {
		data = append(data, s.Mask...)
	}
	return apdu.BuildCalypso(cla, apdu.INS_SEARCH_RECORD, s.StartRecord, p2, data, apdu.MaxShortLe)
}

func (s *SearchRecordMultiple) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (s *SearchRecordMultiple) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SearchRecordMultiple) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SearchRecordMultiple failed: %s", resp.Status.Verbose())
	}
	s.Matches = map[int][]byte{}
	data := resp.Data
	for len(data) >= 2 {
		tag, ln := data[0], int(data[1])
		if tag != 0xC1 || ln < 1 || 2+ln > len(data) {
			break
		}
		recNum := int(data[2])
		s.Matches[recNum] = append([]byte(nil), data[3:2+ln]...)
		data = data[2+ln:]
	}
	return nil
}

func (s *SearchRecordMultiple) SessionBufferUsed() bool { return false }

func (s *SearchRecordMultiple) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_RECORD_NOT_FOUND, false, "no matching record"},
	})
}
