package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// ReadRecordMode mirrors the teacher's iso7816.ReadRecordMode bit-3/2-1
// encoding but trims it to the two values Calypso's Read Records command
// actually defines: one record, or all records from P1 to the end (spec.md
// §4.4).
type ReadRecordMode byte

const (
	ReadOneRecord  ReadRecordMode = 0b100
	ReadAllRecords ReadRecordMode = 0b101
)

// ReadRecords reads one record, or a run of records, from a linear or
// cyclic EF (spec.md §4.4). P2 = (SFI<<3)|mode, exactly the teacher's
// Table-49 formula in pkg/iso7816/read_record.go.
type ReadRecords struct {
	SFI           card.SFI
	RecordNumber  byte
	Mode          ReadRecordMode

	Records map[int][]byte // populated by ParseResponse
}

func (r *ReadRecords) Ref() CommandRef {
	return CommandRef{Name: "ReadRecords", SFI: r.SFI, P1: r.RecordNumber}
}

func (r *ReadRecords) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	ins, err := apdu.NewInstruction(apdu.INS_READ_RECORD)
	if err != nil {
		return nil, err
	}
	p2 := (byte(r.SFI) << 3) | byte(r.Mode)
	return apdu.NewCommandAPDU(apdu.Class{Raw: cla, IsProprietary: true}, ins, r.RecordNumber, p2, nil, apdu.MaxShortLe), nil
}

func (r *ReadRecords) CryptoNeed() CryptoNeed { return SynchronizeLater }

func (r *ReadRecords) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

// Record TLV layout: each record in a multi-record response is wrapped as
// tag 'C1' len record-number,data (Calypso's multi-record read format);
// a single-record response is the raw record bytes with no wrapper.
func (r *ReadRecords) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: ReadRecords failed: %s", resp.Status.Verbose())
	}
	ef, err := img.GetEFBySFI(r.SFI)
	if err != nil {
		return err
	}

	r.Records = map[int][]byte{}
	if r.Mode == ReadOneRecord {
		r.Records[int(r.RecordNumber)] = resp.Data
		ef.SetContent(int(r.RecordNumber), resp.Data)
		return nil
	}

	data := resp.Data
	for len(data) >= 2 {
		tag, ln := data[0], int(data[1])
		if tag != 0xC1 || ln < 1 || 2+ln > len(data) {
			break
		}
		recNum := int(data[2])
		recData := append([]byte(nil), data[3:2+ln]...)
		r.Records[recNum] = recData
		ef.SetContent(recNum, recData)
		data = data[2+ln:]
	}
	return nil
}

func (r *ReadRecords) SessionBufferUsed() bool { return false }

func (r *ReadRecords) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_RECORD_NOT_FOUND, false, "record not found"},
		{apdu.SW_ERR_CMD_INCOMPATIBLE_FILE, false, "incompatible file structure"},
	})
}
