// Package cmd is the Calypso card command library (spec.md §4.4): one type
// per command, each implementing Command so the transaction orchestrator can
// queue, finalize, and parse them uniformly regardless of which command it
// is holding. This collapses the source's per-command builder/parser class
// pair into a single Go value, per spec.md §9 Design Note 1.
package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// CryptoNeed classifies how a command's session MAC participates in the
// secure-session crypto flow (spec.md §4.4/§4.6, Design Note 5).
type CryptoNeed int

const (
	// NoCrypto: the command carries no session MAC obligation (e.g. Select
	// File outside a session).
	NoCrypto CryptoNeed = iota
	// NeedsCryptoNow: the command's request must be MACed/ciphered before
	// it can be sent (Close Secure Session).
	NeedsCryptoNow
	// SynchronizeLater: the command can be sent immediately; its bytes are
	// folded into the running session digest only after the fact.
	SynchronizeLater
	// SynchronizeWithAnticipated: like SynchronizeLater, but because the
	// command is part of a same-session command chain sent without waiting
	// for each individual response, the digest must be updated against an
	// anticipated response computed locally (spec.md §4.6 "postponed
	// data").
	SynchronizeWithAnticipated
)

// CommandRef identifies one command instance for logging, error reporting,
// and the orchestrator's audit trail.
type CommandRef struct {
	Name string
	SFI  card.SFI
	P1   byte
	P2   byte
}

func (r CommandRef) String() string {
	if r.SFI != 0 {
		return fmt.Sprintf("%s(sfi=%02X)", r.Name, byte(r.SFI))
	}
	return r.Name
}

// CommandContext carries what a command needs at FinalizeRequest time that
// is not part of the command's own fields: the card's product type (for
// class-byte selection) and whether a secure session is currently open.
type CommandContext struct {
	Product       apdu.ProductType
	SessionOpen   bool
	StoredValueOp bool
}

// Command is the interface every Calypso card command implements. The
// orchestrator (calypso/transaction) only ever holds a Command, never a
// concrete command type.
type Command interface {
	// FinalizeRequest builds the wire APDU for this command given the
	// current context (card family, session state).
	FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error)

	// CryptoNeed reports how this command's bytes participate in the
	// running session MAC.
	CryptoNeed() CryptoNeed

	// AnticipatedResponse synthesizes the response bytes the orchestrator
	// would expect from the card, for commands whose CryptoNeed is
	// SynchronizeWithAnticipated. Commands that never need one return
	// (nil, nil).
	AnticipatedResponse(img *card.Image) ([]byte, error)

	// ParseResponse applies the card's response to the command's own
	// output fields and mutates the card image accordingly.
	ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error

	// SessionBufferUsed reports whether this command consumes session
	// buffer capacity (spec.md §4.6 buffer-overflow policy).
	SessionBufferUsed() bool

	// StatusTable returns this command's status word -> outcome table.
	StatusTable() apdu.StatusTable

	// Ref identifies this command instance for logs and errors.
	Ref() CommandRef
}
