// Package session is the secure-session state machine (spec.md §4.6): the
// ordered protocol that opens a ratified session with the card,
// accumulates a running session MAC across every intermediate command,
// optionally switches to encrypted mode mid-session, and closes with
// mutual MAC verification and postponed-data handling.
//
// The shape mirrors the teacher-pack's SCP02Session.computeCMAC/
// WrapAndSend pairing (_examples/1ph-sim_reader/card/globalplatform_scp02.go):
// both track per-session chaining state across a sequence of APDUs and
// expose one "wrap and feed" entry point, generalized here from a fixed
// 3DES-CBC-MAC to the abstract crypto.SymmetricCryptoProvider.
package session

import (
	"context"

	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypso/crypto"
	"github.com/gregclo/calypso-core/calypsoerr"
)

// State is one node of the diagram in spec.md §4.6.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateOpenEncrypted
	StateClosing
	StateClosed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateOpen:
		return "Open"
	case StateOpenEncrypted:
		return "OpenEncrypted"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Session drives the crypto provider's MAC accumulation in lockstep with
// every command exchanged while a secure session is open. It owns a
// snapshot of the card image taken at Open, used to restore state on
// Abort.
type Session struct {
	provider crypto.SymmetricCryptoProvider
	image    *card.Image

	state        State
	snapshot     *card.Image
	digestCount  int
	bufferWrites int

	// svPostponedIndex records which postponed block (if any) carries an
	// SV operation's MAC, set by the transaction orchestrator when it
	// prepares an SV command inside this session.
	svPostponedIndex int
	svPending        bool
}

// New constructs a Session bound to the given crypto provider and card
// image. It starts in StateIdle.
func New(provider crypto.SymmetricCryptoProvider, img *card.Image) *Session {
	return &Session{provider: provider, image: img, state: StateIdle}
}

func (s *Session) State() State { return s.state }

// Open transitions Idle -> Open, priming the terminal session digest from
// the card's Open Secure Session response data and KIF/KVC.
func (s *Session) Open(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	if s.state != StateIdle {
		return calypsoerr.New(calypsoerr.KindIllegalState, "Session.Open", "session already "+s.state.String())
	}
	if err := s.provider.InitTerminalSessionMac(ctx, openDataOut, kif, kvc); err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, "Session.Open", err)
	}
	s.snapshot = s.image.Snapshot()
	s.digestCount = 0
	s.bufferWrites = 0
	s.state = StateOpen
	return nil
}

// ToggleEncryption switches between Open and OpenEncrypted, driven by a
// Manage Secure Session command asking for MSS encryption on/off.
func (s *Session) ToggleEncryption(ctx context.Context, enable bool) error {
	switch s.state {
	case StateOpen, StateOpenEncrypted:
	default:
		return calypsoerr.New(calypsoerr.KindIllegalState, "Session.ToggleEncryption", "session not open")
	}
	if enable {
		if err := s.provider.ActivateEncryption(ctx); err != nil {
			return calypsoerr.Wrap(calypsoerr.KindCrypto, "Session.ToggleEncryption", err)
		}
		s.state = StateOpenEncrypted
		return nil
	}
	if err := s.provider.DeactivateEncryption(ctx); err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, "Session.ToggleEncryption", err)
	}
	s.state = StateOpen
	return nil
}

// Exchange feeds one outgoing or incoming APDU into the running session
// digest, returning the wire form to actually transmit (outgoing) or hand
// to the response parser (incoming): identity unless encryption is
// active, in which case the crypto provider returns the ciphered or
// deciphered form.
func (s *Session) Exchange(ctx context.Context, apdu []byte) (wire []byte, err error) {
	if s.state != StateOpen && s.state != StateOpenEncrypted {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "Session.Exchange", "session not open")
	}
	wire, err = s.provider.UpdateTerminalSessionMac(ctx, apdu)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "Session.Exchange", err)
	}
	s.digestCount++
	return wire, nil
}

// RecordBufferUse increments the session-buffer write counter for a
// session-buffer-using command. It does not itself enforce the card's
// quota — that is signalled by the card's own SW 0x6400 response, mapped
// by the caller to SessionBufferOverflow.
func (s *Session) RecordBufferUse() { s.bufferWrites++ }

// MarkSVPending records that a prepared SV command's postponed data must
// be checked with isCardSvMacValid at Close.
func (s *Session) MarkSVPending(postponedIndex int) {
	s.svPending = true
	s.svPostponedIndex = postponedIndex
}

// CloseResult carries the data needed to finalize a Close Secure Session
// command and to verify the card's response.
type CloseResult struct {
	TerminalMAC []byte
}

// PrepareClose transitions Open(+Enc) -> Closing and returns the
// terminal's closing MAC to place in the Close Secure Session command.
func (s *Session) PrepareClose(ctx context.Context) (CloseResult, error) {
	switch s.state {
	case StateOpen, StateOpenEncrypted:
	default:
		return CloseResult{}, calypsoerr.New(calypsoerr.KindIllegalState, "Session.PrepareClose", "session not open")
	}
	mac, err := s.provider.FinalizeTerminalSessionMac(ctx)
	if err != nil {
		return CloseResult{}, calypsoerr.Wrap(calypsoerr.KindCrypto, "Session.PrepareClose", err)
	}
	s.state = StateClosing
	return CloseResult{TerminalMAC: mac}, nil
}

// Close validates the card's closing MAC (and, if an SV operation was
// pending, its postponed SV MAC) and transitions Closing -> Closed.
func (s *Session) Close(ctx context.Context, cardMAC []byte, postponedBlocks [][]byte) error {
	if s.state != StateClosing {
		return calypsoerr.New(calypsoerr.KindIllegalState, "Session.Close", "session not closing")
	}
	valid, err := s.provider.IsCardSessionMacValid(ctx, cardMAC)
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCardMacNotVerifiable, "Session.Close", err)
	}
	if !valid {
		return calypsoerr.New(calypsoerr.KindInvalidCardMac, "Session.Close", "card session MAC mismatch")
	}
	if s.svPending {
		if s.svPostponedIndex < 0 || s.svPostponedIndex >= len(postponedBlocks) {
			return calypsoerr.New(calypsoerr.KindInconsistentData, "Session.Close", "missing postponed SV block")
		}
		svValid, err := s.provider.IsCardSvMacValid(ctx, postponedBlocks[s.svPostponedIndex])
		if err != nil {
			return calypsoerr.Wrap(calypsoerr.KindCardMacNotVerifiable, "Session.Close", err)
		}
		if !svValid {
			return calypsoerr.New(calypsoerr.KindInvalidCardMac, "Session.Close", "card SV MAC mismatch")
		}
	}
	s.state = StateClosed
	return nil
}

// Abort reverts the card image to the snapshot taken at Open and
// transitions to Aborted, unconditionally (spec.md §4.6: Abort accepts
// any SW and always reverts).
func (s *Session) Abort() {
	if s.snapshot != nil {
		s.image.RestoreFiles(s.snapshot)
	}
	s.state = StateAborted
}
