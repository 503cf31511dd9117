// Package transceiver is the narrow physical-transport boundary (spec.md
// §6.1): a Transceiver knows nothing about Calypso, only how to push a
// batch of APDU byte strings at a reader and get the responses back. The
// teacher's own Transmitter (apdu/client.go) is the single-APDU analogue
// of this interface; Transceiver generalizes it to batches so a
// transaction can flush its whole prepared queue in one exchange.
package transceiver

import "context"

// CardRequest is an ordered batch of command APDUs to send to one card
// slot, plus a short-circuit flag.
type CardRequest struct {
	APDUs [][]byte
	// StopOnError, when set, tells the transceiver to stop forwarding
	// further APDUs in this batch once one comes back with a non-success
	// status word, returning only the responses gathered so far.
	StopOnError bool
}

// CardResponse is the ordered batch of response APDUs (status word
// included), of length at most len(CardRequest.APDUs).
type CardResponse struct {
	APDUs [][]byte
}

// Transceiver is the physical or simulated reader a Transaction flushes
// its prepared command queue through.
type Transceiver interface {
	Exchange(ctx context.Context, req CardRequest) (CardResponse, error)
}
