package card

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregclo/calypso-core/tlv"
)

// Calypso FCI parsing. A Calypso application's SELECT response carries the
// same FCI(6F)/FCP(62) wrapper structure the teacher decodes for EMV, but
// the proprietary data under tag 85h is Calypso's own Startup Information
// field rather than an EMV PDOL/AFL. This file is the Calypso-domain
// re-grounding of the teacher's pkg/iso7816/fci.go struct-tag approach.

// StartupInfo is the proprietary data (tag 85h) returned in a Calypso FCI,
// decoded field-by-field per the Calypso startup information byte layout.
type StartupInfo struct {
	BufferSizeIndicator byte
	ProductType         byte
	SubType             byte
	SoftwareIssuer      byte
	SoftwareVersion     byte
	SoftwareRevision    byte
	SessionModifiable   bool
}

// ParseStartupInfo decodes the raw tag-85 payload of a Calypso FCI.
func ParseStartupInfo(raw []byte) (*StartupInfo, error) {
	if len(raw) < 7 {
		return nil, fmt.Errorf("card: startup information too short (%d bytes)", len(raw))
	}
	return &StartupInfo{
		BufferSizeIndicator: raw[0],
		ProductType:         raw[1],
		SubType:             raw[2],
		SoftwareIssuer:      raw[3],
		SoftwareVersion:     raw[4],
		SoftwareRevision:    raw[5],
		SessionModifiable:   raw[6]&0x01 != 0,
	}, nil
}

// CalypsoFCP mirrors the teacher's FCPTemplate shape but carries only the
// tags a Calypso application actually returns on SELECT: DF name, the
// proprietary Startup Information, and FCI discretionary data for EFs under
// a DF (tag 53).
type CalypsoFCP struct {
	DFName             []byte `tlv:"84" fmt:"ascii"`
	ProprietaryInfoRaw []byte `tlv:"85"`
	FCIProprietaryData []byte `tlv:"53"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// CalypsoFCI is the parsed result of a Calypso SELECT response: the FCP
// fields plus the decoded Startup Information when tag 85h is present.
type CalypsoFCI struct {
	FCP     *CalypsoFCP
	Startup *StartupInfo
}

// ParseCalypsoSelectData decodes the data field of a Calypso SELECT
// response. Calypso cards always wrap their FCP in the standard '6F'
// template, so unlike the teacher's generic ParseSelectData this does not
// need to branch on P2's response-type bits: Calypso's class byte already
// fixes the response format.
func ParseCalypsoSelectData(data []byte) (*CalypsoFCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("card: empty SELECT response")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("card: BER-TLV decode of FCI failed: %w", err)
	}

	working := packets
	for _, p := range packets {
		if strings.EqualFold(p.Tag, "6F") {
			working = p.TLVs
			break
		}
	}

	fcp := &CalypsoFCP{}
	if err := tlv.UnmarshalFromPackets(working, fcp); err != nil {
		return nil, fmt.Errorf("card: FCP unmarshal failed: %w", err)
	}

	fci := &CalypsoFCI{FCP: fcp}
	if len(fcp.ProprietaryInfoRaw) > 0 {
		if si, err := ParseStartupInfo(fcp.ProprietaryInfoRaw); err == nil {
			fci.Startup = si
		}
	}
	return fci, nil
}
