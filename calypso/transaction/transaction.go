// Package transaction is the orchestrator (spec.md §4.7): a command queue
// with a two-phase prepare/process lifecycle, cooperating with a
// session.Session and a crypto.SymmetricCryptoProvider to drive a whole
// batch of commands through one transceiver exchange.
package transaction

import (
	"context"
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/calypso/cmd"
	"github.com/gregclo/calypso-core/calypso/crypto"
	"github.com/gregclo/calypso-core/calypso/session"
	"github.com/gregclo/calypso-core/calypsoerr"
	"github.com/gregclo/calypso-core/transceiver"
)

// ChannelControl names spec.md §4.7's KEEP_OPEN/CLOSE_AFTER choice with a
// small Go enum instead of a boolean. ProcessCommands accepts it but does not
// act on it: the channel is left as it is, and closing it is up to the
// caller's transceiver.
type ChannelControl int

const (
	KeepOpen ChannelControl = iota
	CloseAfter
)

// Transaction holds the prepared command queue, the card image it mutates,
// the crypto provider, and the session state machine (nil outside an open
// session). Not safe for concurrent use, matching the teacher's own
// lock-free Client/Session types (spec.md §5).
type Transaction struct {
	image    *card.Image
	provider crypto.SymmetricCryptoProvider
	xcvr     transceiver.Transceiver
	product  apdu.ProductType

	queue   []cmd.Command
	session *session.Session
}

// New constructs a Transaction bound to a card image, crypto provider, and
// transceiver. No session is open until PrepareOpenSecureSession is
// processed.
func New(img *card.Image, provider crypto.SymmetricCryptoProvider, xcvr transceiver.Transceiver, product apdu.ProductType) *Transaction {
	return &Transaction{image: img, provider: provider, xcvr: xcvr, product: product}
}

// Prepare appends a command to the queue. It does not validate session
// state here; FinalizeRequest at process time reports any mismatch.
func (t *Transaction) Prepare(c cmd.Command) {
	t.queue = append(t.queue, c)
}

// PrepareOpenSecureSession appends an Open Secure Session command and
// arranges for the session state machine to be created once its response
// is parsed.
func (t *Transaction) PrepareOpenSecureSession(level cmd.KeyLevel, sfi card.SFI, recordNumber byte) error {
	if t.session != nil {
		return calypsoerr.New(calypsoerr.KindIllegalState, "PrepareOpenSecureSession", "a session is already open")
	}
	challenge, err := t.provider.InitTerminalSecureSessionContext(context.Background())
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, "PrepareOpenSecureSession", err)
	}
	t.Prepare(&cmd.OpenSecureSession{Level: level, SFI: sfi, RecordNumber: recordNumber, TerminalChallenge: challenge})
	return nil
}

// PrepareCloseSecureSession appends a Close Secure Session command. The
// terminal MAC is filled in during ProcessCommands once every prior
// command's bytes have been folded into the running digest.
func (t *Transaction) PrepareCloseSecureSession(ratify bool) error {
	if t.session == nil {
		return calypsoerr.New(calypsoerr.KindIllegalState, "PrepareCloseSecureSession", "no session open")
	}
	t.Prepare(&cmd.CloseSecureSession{Ratify: ratify})
	return nil
}

// Session exposes the current session state machine, or nil outside a
// session.
func (t *Transaction) Session() *session.Session { return t.session }

// ProcessCommands implements the six steps of spec.md §4.7: finalize every
// queued command's request, synchronize the crypto provider, flush the
// batch through the transceiver, parse every response in order, and
// either clear the queue (success) or abort the session and clear the
// queue (error).
func (t *Transaction) ProcessCommands(ctx context.Context, channel ChannelControl) (err error) {
	defer func() {
		if err != nil && t.session != nil {
			t.session.Abort()
			t.session = nil
		}
		t.queue = nil
	}()

	if len(t.queue) == 0 {
		return nil
	}

	requests := make([][]byte, 0, len(t.queue))
	anticipated := make([][]byte, len(t.queue))
	cmdCtx := cmd.CommandContext{Product: t.product, SessionOpen: t.session != nil}

	for i, c := range t.queue {
		req, ferr := c.FinalizeRequest(cmdCtx)
		if ferr != nil {
			return calypsoerr.Wrap(calypsoerr.KindIllegalParameter, c.Ref().String(), ferr)
		}
		raw, berr := req.Bytes()
		if berr != nil {
			return calypsoerr.Wrap(calypsoerr.KindIllegalParameter, c.Ref().String(), berr)
		}

		if t.session != nil {
			wire, synced, serr := t.synchronizeBeforeSend(ctx, c, raw)
			if serr != nil {
				return serr
			}
			if synced {
				raw = wire
			}
		}
		requests = append(requests, raw)

		if t.session != nil && c.CryptoNeed() == cmd.SynchronizeWithAnticipated {
			ant, aerr := c.AnticipatedResponse(t.image)
			if aerr != nil {
				return calypsoerr.Wrap(calypsoerr.KindCrypto, c.Ref().String(), aerr)
			}
			if _, serr := t.session.Exchange(ctx, ant); serr != nil {
				return serr
			}
			anticipated[i] = ant
		}
	}

	resp, xerr := t.xcvr.Exchange(ctx, transceiver.CardRequest{APDUs: requests})
	if xerr != nil {
		return calypsoerr.Wrap(calypsoerr.KindCryptoIo, "ProcessCommands", xerr)
	}
	if len(resp.APDUs) != len(requests) {
		return calypsoerr.New(calypsoerr.KindInconsistentData, "ProcessCommands",
			fmt.Sprintf("expected %d responses, got %d", len(requests), len(resp.APDUs)))
	}

	for i, c := range t.queue {
		rapdu, perr := apdu.ParseResponseAPDU(resp.APDUs[i])
		if perr != nil {
			return calypsoerr.Wrap(calypsoerr.KindUnexpectedResponseLength, c.Ref().String(), perr)
		}

		if _, isClose := c.(*cmd.CloseSecureSession); t.session != nil && anticipated[i] == nil && !isClose {
			if _, serr := t.session.Exchange(ctx, resp.APDUs[i]); serr != nil {
				return serr
			}
		}

		if entry, ok := c.StatusTable().Lookup(rapdu.Status); ok && !entry.OK {
			if isBenignNotFound(rapdu.Status) {
				continue
			}
			return calypsoerr.FromStatus(classifyStatus(c, rapdu.Status), c.Ref().String(), rapdu.Status, entry.Info)
		}

		if perr := c.ParseResponse(rapdu, t.image, cmdCtx); perr != nil {
			if typed, ok := perr.(*calypsoerr.Error); ok {
				return typed
			}
			return calypsoerr.Wrap(calypsoerr.KindUnexpectedCommandStatus, c.Ref().String(), perr)
		}

		if c.SessionBufferUsed() && t.session != nil {
			t.session.RecordBufferUse()
		}

		if err := t.afterParse(c); err != nil {
			return err
		}
	}

	if channel == CloseAfter {
		// Nothing further to do: the caller's transceiver owns physical
		// disconnect, out of scope for the orchestrator (spec.md §1).
		_ = channel
	}
	return nil
}

// synchronizeBeforeSend handles the commands whose CryptoNeed requires
// the crypto provider to act before the request can be transmitted.
// NeedsCryptoNow commands (Close Secure Session, Verify PIN, Change PIN/Key,
// SV Reload/Debit/Undebit) are MACed/ciphered now. Open Secure Session is not
// handled here: the digest is primed in afterParse, once its response has
// created the session. Close
// Secure Session finalizes the running digest instead of feeding it, since
// its own MAC is the digest's terminal value; every other NeedsCryptoNow
// command still has its outgoing APDU folded into the digest like any
// other in-session exchange.
func (t *Transaction) synchronizeBeforeSend(ctx context.Context, c cmd.Command, raw []byte) (wire []byte, synced bool, err error) {
	switch c.CryptoNeed() {
	case cmd.NeedsCryptoNow:
		if cs, ok := c.(*cmd.CloseSecureSession); ok {
			res, cerr := t.session.PrepareClose(ctx)
			if cerr != nil {
				return nil, false, cerr
			}
			cs.TerminalSessionMAC = res.TerminalMAC
			newReq, ferr := cs.FinalizeRequest(cmd.CommandContext{Product: t.product, SessionOpen: true})
			if ferr != nil {
				return nil, false, calypsoerr.Wrap(calypsoerr.KindCrypto, "CloseSecureSession", ferr)
			}
			raw, err = newReq.Bytes()
			if err != nil {
				return nil, false, calypsoerr.Wrap(calypsoerr.KindCrypto, "CloseSecureSession", err)
			}
			return raw, false, nil
		}
		wire, err = t.session.Exchange(ctx, raw)
		if err != nil {
			return nil, false, err
		}
		return wire, true, nil
	case cmd.SynchronizeLater, cmd.SynchronizeWithAnticipated:
		wire, err = t.session.Exchange(ctx, raw)
		if err != nil {
			return nil, false, err
		}
		return wire, true, nil
	default:
		return raw, false, nil
	}
}

// afterParse handles post-parse bookkeeping specific to a few command
// kinds: creating the session state machine once Open Secure Session's
// response lands, and finishing the Close protocol once the card's MAC
// arrives.
func (t *Transaction) afterParse(c cmd.Command) error {
	switch v := c.(type) {
	case *cmd.OpenSecureSession:
		if t.session != nil {
			return calypsoerr.New(calypsoerr.KindIllegalState, "OpenSecureSession", "session already open")
		}
		t.session = session.New(t.provider, t.image)
		return t.session.Open(context.Background(), v.ResponseDataOut, v.KIF, v.KVC)
	case *cmd.CloseSecureSession:
		if t.session == nil {
			return calypsoerr.New(calypsoerr.KindIllegalState, "CloseSecureSession", "no session open")
		}
		err := t.session.Close(context.Background(), v.CardSessionMAC, v.PostponedBlocks)
		t.session = nil
		return err
	case *cmd.ManageSecureSession:
		if t.session == nil {
			return calypsoerr.New(calypsoerr.KindIllegalState, "ManageSecureSession", "no session open")
		}
		return t.session.ToggleEncryption(context.Background(), v.EnableEncryption)
	}
	return nil
}

func isBenignNotFound(sw apdu.StatusWord) bool {
	return sw == apdu.SW_ERR_FILE_NOT_FOUND || sw == apdu.SW_ERR_RECORD_NOT_FOUND
}

func classifyStatus(c cmd.Command, sw apdu.StatusWord) calypsoerr.Kind {
	switch sw {
	case apdu.SW_ERR_SECURITY_STATUS_NOT_SAT:
		return calypsoerr.KindAccessForbidden
	case apdu.SW_ERR_FILE_NOT_FOUND, apdu.SW_ERR_RECORD_NOT_FOUND:
		return calypsoerr.KindDataAccess
	case apdu.SW_ERR_EXEC_NO_INFO:
		return calypsoerr.KindSessionBufferOverflow
	default:
		return calypsoerr.KindUnexpectedCommandStatus
	}
}
