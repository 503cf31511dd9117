// Package testutil collects the scripted fakes every layer's own test
// file was otherwise re-declaring: a fixed-answer crypto provider and a
// Transceiver that plays back one batch of response APDUs per call, in
// order. Both are plain structs implementing their respective interfaces,
// the same hand-rolled-fake style the teacher's own tests use instead of
// a mocking framework.
package testutil

import (
	"context"

	"github.com/gregclo/calypso-core/calypsoerr"
	"github.com/gregclo/calypso-core/transceiver"
)

// FixedProvider implements calypso/crypto.SymmetricCryptoProvider with
// canned answers, for tests that only care about the orchestration around
// the crypto calls, not the crypto itself.
type FixedProvider struct {
	Challenge  []byte
	CloseMAC   []byte
	ValidMAC   bool
	ValidSvMAC bool

	Encrypting  bool
	UpdateCalls int
}

func (f *FixedProvider) InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error) {
	if f.Challenge != nil {
		return f.Challenge, nil
	}
	return []byte{1, 2, 3, 4}, nil
}

func (f *FixedProvider) InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	return nil
}

// UpdateTerminalSessionMac xors the first byte when encryption is active,
// so tests can assert the request/response actually changed shape without
// a real cipher.
func (f *FixedProvider) UpdateTerminalSessionMac(ctx context.Context, apdu []byte) ([]byte, error) {
	f.UpdateCalls++
	if !f.Encrypting || len(apdu) == 0 {
		return apdu, nil
	}
	out := append([]byte(nil), apdu...)
	out[0] ^= 0xFF
	return out, nil
}

func (f *FixedProvider) FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.CloseMAC, nil
}

func (f *FixedProvider) GenerateTerminalSessionMac(ctx context.Context) ([]byte, error) {
	return f.CloseMAC, nil
}

func (f *FixedProvider) ActivateEncryption(ctx context.Context) error {
	f.Encrypting = true
	return nil
}

func (f *FixedProvider) DeactivateEncryption(ctx context.Context) error {
	f.Encrypting = false
	return nil
}

func (f *FixedProvider) IsCardSessionMacValid(ctx context.Context, cardMAC []byte) (bool, error) {
	return f.ValidMAC, nil
}

func (f *FixedProvider) ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error) {
	return []byte{0xAA, 0xBB, 0xCC}, nil
}

func (f *FixedProvider) IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error) {
	return f.ValidSvMAC, nil
}

func (f *FixedProvider) CipherPinForPresentation(ctx context.Context, cardChallenge, pin []byte, kif, kvc byte) ([]byte, error) {
	return make([]byte, 8), nil
}

func (f *FixedProvider) CipherPinForModification(ctx context.Context, cardChallenge, currentPIN, newPIN []byte, kif, kvc byte) ([]byte, error) {
	return make([]byte, 16), nil
}

func (f *FixedProvider) GenerateCipheredCardKey(ctx context.Context, cardChallenge []byte, issuerKIF, issuerKVC, targetKIF, targetKVC byte) ([]byte, error) {
	return make([]byte, 24), nil
}

// ScriptedTransceiver returns one fixed batch of response APDUs per
// Exchange call, in call order, regardless of what was requested. It
// errors once its script is exhausted instead of blocking or panicking,
// so a test that over-calls it fails with a readable cause.
type ScriptedTransceiver struct {
	Batches [][][]byte
	call    int
}

func NewScriptedTransceiver(batches ...[][]byte) *ScriptedTransceiver {
	return &ScriptedTransceiver{Batches: batches}
}

func (s *ScriptedTransceiver) Exchange(ctx context.Context, req transceiver.CardRequest) (transceiver.CardResponse, error) {
	if s.call >= len(s.Batches) {
		return transceiver.CardResponse{}, calypsoerr.New(calypsoerr.KindCryptoIo, "ScriptedTransceiver", "no more scripted batches")
	}
	out := s.Batches[s.call]
	s.call++
	return transceiver.CardResponse{APDUs: out}, nil
}

// Calls reports how many batches have been consumed so far.
func (s *ScriptedTransceiver) Calls() int { return s.call }

// OK appends a trailing 0x90 0x00 success status word to data, the same
// response-building shorthand every package's scripted test doubles use.
func OK(data ...byte) []byte {
	return append(append([]byte(nil), data...), 0x90, 0x00)
}

// Fail builds a response APDU carrying only the given status word and no
// data.
func Fail(sw1, sw2 byte) []byte {
	return []byte{sw1, sw2}
}
