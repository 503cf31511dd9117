package apdu

import "fmt"

// MaxCalypsoPayload is the maximum command-data length a Calypso command may
// carry in a single APDU (spec.md §3 invariants).
const MaxCalypsoPayload = 250

// BuildCalypso assembles a Calypso command APDU. Unlike the general-purpose
// CommandAPDU.Bytes(), which switches to extended length encoding past 255
// bytes of data, Calypso commands are always short-APDU: a command carrying
// more than 255 bytes of data is a builder bug, not a card limitation to
// work around.
func BuildCalypso(cla byte, ins InsCode, p1, p2 byte, data []byte, le int) (*CommandAPDU, error) {
	if len(data) > MaxShortLc {
		return nil, fmt.Errorf("calypso apdu: data length %d exceeds %d bytes", len(data), MaxShortLc)
	}
	insn, err := NewInstruction(ins)
	if err != nil {
		return nil, err
	}
	class := Class{Raw: cla, IsProprietary: true}
	return NewCommandAPDU(class, insn, p1, p2, data, le), nil
}
