package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// ReadKeyParameters reads back one key's KIF/KVC and usage rights from the
// SAM's own key store (spec.md §4.5).
type ReadKeyParameters struct {
	KIF byte
	KVC byte

	Raw []byte
}

func (r *ReadKeyParameters) Ref() string { return "ReadKeyParameters" }

func (r *ReadKeyParameters) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMReadKeyParameters, r.KIF, r.KVC, nil, apdu.MaxShortLe)
}

func (r *ReadKeyParameters) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: ReadKeyParameters failed: %s", resp.Status.Verbose())
	}
	r.Raw = resp.Data
	return nil
}

func (r *ReadKeyParameters) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// ReadCeilings reads the SV ceiling values configured in the SAM (spec.md
// §4.5).
type ReadCeilings struct {
	CeilingIndex byte

	Value uint32
}

func (r *ReadCeilings) Ref() string { return "ReadCeilings" }

func (r *ReadCeilings) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMReadCeilings, r.CeilingIndex, 0x00, nil, apdu.MaxShortLe)
}

func (r *ReadCeilings) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: ReadCeilings failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 4 {
		return fmt.Errorf("sam: ReadCeilings: response too short (%d bytes)", len(resp.Data))
	}
	r.Value = uint32(resp.Data[0])<<24 | uint32(resp.Data[1])<<16 | uint32(resp.Data[2])<<8 | uint32(resp.Data[3])
	return nil
}

func (r *ReadCeilings) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// ReadEventCounter reads one of the SAM's transaction/event counters
// (spec.md §4.5).
type ReadEventCounter struct {
	CounterIndex byte

	Value uint32
}

func (r *ReadEventCounter) Ref() string { return "ReadEventCounter" }

func (r *ReadEventCounter) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMReadEventCounter, r.CounterIndex, 0x00, nil, apdu.MaxShortLe)
}

func (r *ReadEventCounter) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: ReadEventCounter failed: %s", resp.Status.Verbose())
	}
	if len(resp.Data) < 3 {
		return fmt.Errorf("sam: ReadEventCounter: response too short (%d bytes)", len(resp.Data))
	}
	r.Value = uint32(resp.Data[0])<<16 | uint32(resp.Data[1])<<8 | uint32(resp.Data[2])
	return nil
}

func (r *ReadEventCounter) StatusTable() apdu.StatusTable { return DefaultStatusTable }
