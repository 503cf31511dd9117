// Package calypsoerr defines the single error taxonomy used across the
// Calypso core (spec.md §7). The source's ~30-class exception hierarchy
// collapses, per Design Note 2, into one enumerated Kind plus a single
// wrapper type that carries the command reference, status word, and any
// underlying cause.
package calypsoerr

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// Kind enumerates every error category named in spec.md §7, grouped by the
// same four taxonomy groups the spec uses (protocol, orchestration, crypto,
// client).
type Kind int

const (
	KindUnknown Kind = iota

	// Protocol errors (card response, spec.md §7 group 1).
	KindIllegalParameter
	KindDataAccess
	KindAccessForbidden
	KindSecurityContext
	KindSecurityData
	KindSessionBufferOverflow
	KindTerminated
	KindPin
	KindUnknownStatus
	KindUnexpectedResponseLength
	KindDataOutOfBounds
	KindIllegalArgument

	// Orchestration errors (group 2).
	KindInconsistentData
	KindSelectFileError
	KindSessionContextViolation
	KindUnexpectedCommandStatus

	// Crypto errors (group 3).
	KindInvalidCardMac
	KindCardMacNotVerifiable
	KindCrypto
	KindCryptoIo

	// Client errors (group 4).
	KindIllegalState
	KindUnsupportedOperation
)

func (k Kind) String() string {
	switch k {
	case KindIllegalParameter:
		return "IllegalParameter"
	case KindDataAccess:
		return "DataAccess"
	case KindAccessForbidden:
		return "AccessForbidden"
	case KindSecurityContext:
		return "SecurityContext"
	case KindSecurityData:
		return "SecurityData"
	case KindSessionBufferOverflow:
		return "SessionBufferOverflow"
	case KindTerminated:
		return "Terminated"
	case KindPin:
		return "Pin"
	case KindUnknownStatus:
		return "UnknownStatus"
	case KindUnexpectedResponseLength:
		return "UnexpectedResponseLength"
	case KindDataOutOfBounds:
		return "DataOutOfBounds"
	case KindIllegalArgument:
		return "IllegalArgument"
	case KindInconsistentData:
		return "InconsistentData"
	case KindSelectFileError:
		return "SelectFileError"
	case KindSessionContextViolation:
		return "SessionContextViolation"
	case KindUnexpectedCommandStatus:
		return "UnexpectedCommandStatus"
	case KindInvalidCardMac:
		return "InvalidCardMac"
	case KindCardMacNotVerifiable:
		return "CardMacNotVerifiable"
	case KindCrypto:
		return "Crypto"
	case KindCryptoIo:
		return "CryptoIo"
	case KindIllegalState:
		return "IllegalState"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// Error is the single wrapper type for every error raised by the core. It
// carries the command-ref/sw/info triple named by spec.md §9 Design Note 2,
// plus an optional underlying cause (a transport or crypto error) so callers
// can still errors.As/errors.Is through to it.
type Error struct {
	Kind    Kind
	Command string // command-ref, e.g. "ReadRecords(sfi=7)"
	SW      apdu.StatusWord
	Info    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Info)
	}
	if e.SW == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Command, e.Info)
	}
	return fmt.Sprintf("%s: %s: sw=%04X: %s", e.Kind, e.Command, uint16(e.SW), e.Info)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error without an associated status word (orchestration
// and client-error kinds).
func New(kind Kind, command, info string) *Error {
	return &Error{Kind: kind, Command: command, Info: info}
}

// FromStatus constructs an Error tied to the status word that triggered it
// (protocol-error kinds raised by the status-word dispatcher, spec.md §4.2).
func FromStatus(kind Kind, command string, sw apdu.StatusWord, info string) *Error {
	return &Error{Kind: kind, Command: command, SW: sw, Info: info}
}

// Wrap attaches an underlying cause (a transport or crypto failure) to a new
// Error of the given kind.
func Wrap(kind Kind, command string, cause error) *Error {
	return &Error{Kind: kind, Command: command, Info: cause.Error(), Cause: cause}
}

// Is reports whether err is a calypsoerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); !ok {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
