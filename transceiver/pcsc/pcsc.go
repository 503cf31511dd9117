// Package pcsc adapts a PC/SC reader slot (github.com/ebfe/scard, the
// teacher's own dependency, also used by barnettlynn-nfctools and
// 1ph-sim_reader) to the transceiver.Transceiver contract. This is the
// out-of-scope "physical reader transport" (spec.md §1): it exists so the
// module's domain dependency surface is exercised end to end, while every
// core package above it depends only on the Transceiver interface.
package pcsc

import (
	"context"
	"fmt"

	"github.com/ebfe/scard"

	"github.com/gregclo/calypso-core/internal/log"
	"github.com/gregclo/calypso-core/transceiver"
)

// Reader wraps one connected scard.Card. The zero value is not usable;
// construct with Connect.
type Reader struct {
	ctx  *scard.Context
	card *scard.Card
	log  log.Logger
}

// Connect establishes a PC/SC context and connects to the named reader
// slot, matching the teacher's own connectToCard (main.go) sequence:
// EstablishContext, then Connect with both T=0 and T=1 offered so the
// driver picks whichever protocol the card actually negotiates.
func Connect(readerName string) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}
	card, err := ctx.Connect(readerName, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("pcsc: connect %q: %w", readerName, err)
	}
	return &Reader{ctx: ctx, card: card, log: log.Default()}, nil
}

// ListReaders enumerates PC/SC reader slots currently visible to the
// system, without connecting to any of them.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}
	defer ctx.Release()
	return ctx.ListReaders()
}

// Close disconnects the card, leaving it powered, and releases the PC/SC
// context.
func (r *Reader) Close() error {
	if err := r.card.Disconnect(scard.LeaveCard); err != nil {
		return fmt.Errorf("pcsc: disconnect: %w", err)
	}
	return r.ctx.Release()
}

// Exchange implements transceiver.Transceiver by transmitting each APDU
// in sequence over the PC/SC connection.
func (r *Reader) Exchange(ctx context.Context, req transceiver.CardRequest) (transceiver.CardResponse, error) {
	resp := transceiver.CardResponse{APDUs: make([][]byte, 0, len(req.APDUs))}
	for i, raw := range req.APDUs {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		rsp, err := r.card.Transmit(raw)
		if err != nil {
			return resp, fmt.Errorf("pcsc: transmit apdu %d: %w", i, err)
		}
		r.log.Debug("pcsc exchange", "index", i, "request", log.HexField(raw), "response", log.HexField(rsp))
		resp.APDUs = append(resp.APDUs, rsp)
		if req.StopOnError && !hasSuccessStatus(rsp) {
			break
		}
	}
	return resp, nil
}

func hasSuccessStatus(rsp []byte) bool {
	if len(rsp) < 2 {
		return false
	}
	sw1 := rsp[len(rsp)-2]
	return sw1 == 0x90 || sw1 == 0x61
}
