// Package sam is the SAM (Secure Application Module) command library
// (spec.md §4.5): the terminal-side counterpart of calypso/cmd, built
// against the SAM's own instruction set and its own narrow default status
// table. SAM commands never touch a card.Image; they only produce or
// consume cryptographic material that the calypso/crypto providers and the
// session state machine use.
package sam

import "github.com/gregclo/calypso-core/apdu"

// DefaultStatusTable is the SAM's own status table, deliberately smaller
// than the card command set's: a SAM only ever reports success, an
// unsupported instruction, or a wrong class (spec.md §4.5).
var DefaultStatusTable = apdu.StatusTable{
	{apdu.SW_NO_ERROR, true, "success"},
	{apdu.SW_ERR_INS_INVALID, false, "instruction not supported"},
	{apdu.SW_ERR_CLA_NOT_SUPPORTED, false, "class not supported"},
}

// Command is the interface every SAM command implements. Unlike
// calypso/cmd.Command, a SAM command never carries session-MAC bookkeeping:
// the SAM's own internal digest state machine is driven by the Digest
// Init/Update/Close/Authenticate sequence itself, not by a property of the
// Command value.
type Command interface {
	FinalizeRequest() (*apdu.CommandAPDU, error)
	ParseResponse(resp *apdu.ResponseAPDU) error
	StatusTable() apdu.StatusTable
	Ref() string
}
