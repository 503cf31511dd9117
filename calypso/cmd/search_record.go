package cmd

import (
	"bytes"
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// SearchRecord scans a linear EF's records for one matching Pattern under
// Mask, starting at StartRecord, stopping at the first match unless
// FetchFirstMatch is false (spec.md §4.4).
type SearchRecord struct {
	SFI             card.SFI
	StartRecord     byte
	Pattern         []byte
	Mask            []byte
	FetchFirstMatch bool

	MatchedRecords []int
	FirstMatchData []byte
}

func (s *SearchRecord) Ref() CommandRef { return CommandRef{Name: "SearchRecord", SFI: s.SFI} }

func (s *SearchRecord) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p2 := (byte(s.SFI) << 3) | 0x01
	data := append([]byte{}, s.Pattern...)
	if len(s.Mask) > 0 {
		data = append(data, s.Mask...)
	}
	le := 0
	if s.FetchFirstMatch {
		le = apdu.MaxShortLe
	}
	return apdu.BuildCalypso(cla, apdu.INS_SEARCH_RECORD, s.StartRecord, p2, data, le)
}

func (s *SearchRecord) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (s *SearchRecord) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (s *SearchRecord) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: SearchRecord failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) == 0 {
		return nil
	}
	if s.FetchFirstMatch {
		if len(resp.Data) < 1 {
			return fmt.Errorf("cmd: SearchRecord: empty response with FetchFirstMatch set")
		}
		s.MatchedRecords = []int{int(resp.Data[0])}
		s.FirstMatchData = resp.Data[1:]
		return nil
	}
	for _, b := range resp.Data {
		s.MatchedRecords = append(s.MatchedRecords, int(b))
	}
	return nil
}

func (s *SearchRecord) SessionBufferUsed() bool { return false }

func (s *SearchRecord) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_RECORD_NOT_FOUND, false, "no matching record"},
	})
}

// equalMasked is a small helper used by tests to validate mask semantics
// without duplicating the card's own search algorithm.
func equalMasked(a, b, mask []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if mask == nil {
		return bytes.Equal(a, b)
	}
	for i := range a {
		m := byte(0xFF)
		if i < len(mask) {
			m = mask[i]
		}
		if a[i]&m != b[i]&m {
			return false
		}
	}
	return true
}
