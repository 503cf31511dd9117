package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// KeyLevel selects which of the card's three session keys (Personalization,
// Load, Debit) the session is opened under (spec.md §4.4/§4.6).
type KeyLevel byte

const (
	KeyPersonalization KeyLevel = 0x00
	KeyLoad            KeyLevel = 0x01
	KeyDebit           KeyLevel = 0x03
)

// OpenSecureSession opens a secure session and optionally reads the first
// record of an EF in the same exchange (spec.md §4.4, §4.6). P2 carries
// (SFI<<3)|recordNumberPresentFlag, matching the Read-Record P2 shape the
// command reuses for its optional first-record read.
type OpenSecureSession struct {
	Level             KeyLevel
	SFI               card.SFI
	RecordNumber      byte
	TerminalChallenge []byte // 4 bytes

	RatificationOK  bool
	CardChallenge   []byte
	KIF             byte
	KVC             byte
	TransactionCtr  uint32
	FirstRecordData []byte

	// ResponseDataOut is the full, unparsed data-out of this response. The
	// session digest is primed on the entire response, not just the
	// first-record tail.
	ResponseDataOut []byte
}

func (o *OpenSecureSession) Ref() CommandRef {
	return CommandRef{Name: "OpenSecureSession", SFI: o.SFI}
}

func (o *OpenSecureSession) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(o.TerminalChallenge) != 4 {
		return nil, fmt.Errorf("cmd: OpenSecureSession requires a 4-byte terminal challenge")
	}
	cla := apdu.CalypsoClass(ctx.Product, false)
	p1 := byte(o.Level)
	p2 := byte(o.SFI) << 3
	if o.RecordNumber != 0 {
		p2 |= 0x01
	}
	data := o.TerminalChallenge
	if o.RecordNumber != 0 {
		data = append(append([]byte(nil), o.TerminalChallenge...), o.RecordNumber)
	}
	return apdu.BuildCalypso(cla, apdu.InsOpenSecureSession, p1, p2, data, apdu.MaxShortLe)
}

func (o *OpenSecureSession) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (o *OpenSecureSession) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

// ParseResponse decodes the Open Secure Session response: 3-byte transaction
// number, 4-byte card challenge, then 1 byte flags (ratification in bit 0,
// manage-secure-session authorized in bit 1), KIF, KVC, and trailing
// first-record data when requested.
func (o *OpenSecureSession) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: OpenSecureSession failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 10 {
		return fmt.Errorf("cmd: OpenSecureSession: response too short (%d bytes)", len(resp.Data))
	}

	o.ResponseDataOut = append([]byte(nil), resp.Data...)

	o.TransactionCtr = uint32(resp.Data[0])<<16 | uint32(resp.Data[1])<<8 | uint32(resp.Data[2])
	o.CardChallenge = resp.Data[3:7]
	flags := resp.Data[7]
	o.RatificationOK = flags&0x01 != 0
	o.KIF = resp.Data[8]
	o.KVC = resp.Data[9]
	o.FirstRecordData = resp.Data[10:]

	img.SetChallenge(o.CardChallenge, o.KIF, o.KVC, o.RatificationOK, o.TransactionCtr)

	if o.RecordNumber != 0 && len(o.FirstRecordData) > 0 {
		if ef, err := img.GetEFBySFI(o.SFI); err == nil {
			ef.SetContent(int(o.RecordNumber), o.FirstRecordData)
		}
	}
	return nil
}

func (o *OpenSecureSession) SessionBufferUsed() bool { return false }

func (o *OpenSecureSession) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "access condition not satisfied"},
		{apdu.SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "session already open"},
	})
}
