// Package sam is the default calypso/crypto.SymmetricCryptoProvider: every
// method drives one or more calypso/sam commands through a Transceiver
// dedicated to the SAM reader slot (spec.md §6.2, point 1). It never
// touches key material directly; the SAM is the sole holder of keys.
package sam

import (
	"context"
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	samcmd "github.com/gregclo/calypso-core/calypso/sam"
	"github.com/gregclo/calypso-core/calypsoerr"
	"github.com/gregclo/calypso-core/transceiver"
)

// Provider implements crypto.SymmetricCryptoProvider against a SAM
// connected through samTransceiver. It is stateful and owned by exactly
// one transaction at a time, matching the contract's "exclusively owned
// per transaction" rule.
type Provider struct {
	sam transceiver.Transceiver

	cardSerialNumber []byte
	digestOpen       bool
	encrypting       bool

	samID          []byte
	transactionNum uint32
}

// NewProvider constructs a Provider bound to the given SAM transceiver.
// samID is the terminal's 4-byte SAM serial number. It is stored on the
// Provider and never sent: ComputeSvCommandSecurityData returns only the SV
// Prepare signature, without the SAM id or transaction number.
func NewProvider(samTransceiver transceiver.Transceiver, samID []byte) *Provider {
	return &Provider{sam: samTransceiver, samID: samID}
}

// SelectCardDiversifier tells the SAM which card serial number to derive
// session keys from for the rest of this transaction. Must be called
// before InitTerminalSecureSessionContext.
func (p *Provider) SelectCardDiversifier(ctx context.Context, cardSerialNumber []byte) error {
	sel := &samcmd.SelectDiversifier{CardSerialNumber: cardSerialNumber}
	if err := p.exchange(ctx, sel); err != nil {
		return err
	}
	p.cardSerialNumber = cardSerialNumber
	return nil
}

func (p *Provider) exchange(ctx context.Context, c samcmd.Command) error {
	req, err := c.FinalizeRequest()
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, c.Ref(), err)
	}
	raw, err := req.Bytes()
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, c.Ref(), err)
	}
	resp, err := p.sam.Exchange(ctx, transceiver.CardRequest{APDUs: [][]byte{raw}})
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCryptoIo, c.Ref(), err)
	}
	if len(resp.APDUs) != 1 {
		return calypsoerr.New(calypsoerr.KindCryptoIo, c.Ref(), "SAM transceiver returned no response")
	}
	rapdu, err := apdu.ParseResponseAPDU(resp.APDUs[0])
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCryptoIo, c.Ref(), err)
	}
	if err := c.ParseResponse(rapdu); err != nil {
		if entry, ok := c.StatusTable().Lookup(rapdu.Status); ok && !entry.OK {
			return calypsoerr.FromStatus(calypsoerr.KindCrypto, c.Ref(), rapdu.Status, entry.Info)
		}
		return calypsoerr.Wrap(calypsoerr.KindCrypto, c.Ref(), err)
	}
	return nil
}

func (p *Provider) InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error) {
	gc := &samcmd.GetChallenge{}
	if err := p.exchange(ctx, gc); err != nil {
		return nil, err
	}
	return gc.Challenge, nil
}

func (p *Provider) InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	init := &samcmd.DigestInit{Ciphered: false, KIF: kif, KVC: kvc, OpenSessionRespData: openDataOut}
	if err := p.exchange(ctx, init); err != nil {
		return err
	}
	p.digestOpen = true
	return nil
}

func (p *Provider) UpdateTerminalSessionMac(ctx context.Context, data []byte) ([]byte, error) {
	if !p.digestOpen {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "UpdateTerminalSessionMac", "digest not initialized")
	}
	upd := &samcmd.DigestUpdate{Data: data}
	if err := p.exchange(ctx, upd); err != nil {
		return nil, err
	}
	// The data is returned unchanged, also after ActivateEncryption: this
	// provider does no ciphering, and the SAM returns no ciphered payload
	// for a plain digest update.
	return data, nil
}

func (p *Provider) FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error) {
	closeCmd := &samcmd.DigestClose{}
	if err := p.exchange(ctx, closeCmd); err != nil {
		return nil, err
	}
	p.digestOpen = false
	return closeCmd.TerminalMAC, nil
}

func (p *Provider) GenerateTerminalSessionMac(ctx context.Context) ([]byte, error) {
	closeCmd := &samcmd.DigestClose{}
	if err := p.exchange(ctx, closeCmd); err != nil {
		return nil, err
	}
	return closeCmd.TerminalMAC, nil
}

func (p *Provider) ActivateEncryption(ctx context.Context) error {
	p.encrypting = true
	return nil
}

func (p *Provider) DeactivateEncryption(ctx context.Context) error {
	p.encrypting = false
	return nil
}

func (p *Provider) IsCardSessionMacValid(ctx context.Context, cardMAC []byte) (bool, error) {
	auth := &samcmd.DigestAuthenticate{CardMAC: cardMAC}
	err := p.exchange(ctx, auth)
	if err != nil && !calypsoerr.Is(err, calypsoerr.KindCrypto) {
		return false, err
	}
	return auth.Valid, nil
}

func (p *Provider) ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error) {
	op := samcmd.SVPrepareLoad
	if amount < 0 {
		op = samcmd.SVPrepareDebit
	}
	prep := &samcmd.SVPrepare{Op: op, SVGetRespData: svGetRespData, Amount: amount, Date: date, Time: t}
	if err := p.exchange(ctx, prep); err != nil {
		return nil, err
	}
	p.transactionNum++
	return prep.Signature, nil
}

func (p *Provider) IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error) {
	check := &samcmd.SVCheck{SVOperationRespData: svOperationRespData}
	err := p.exchange(ctx, check)
	if err != nil && !calypsoerr.Is(err, calypsoerr.KindCrypto) {
		return false, err
	}
	return check.Valid, nil
}

func (p *Provider) CipherPinForPresentation(ctx context.Context, cardChallenge, pin []byte, kif, kvc byte) ([]byte, error) {
	cipher := &samcmd.CardCipherPIN{NewPIN: pin}
	if err := p.exchange(ctx, cipher); err != nil {
		return nil, err
	}
	return cipher.CipheredBlock, nil
}

func (p *Provider) CipherPinForModification(ctx context.Context, cardChallenge, currentPIN, newPIN []byte, kif, kvc byte) ([]byte, error) {
	cipher := &samcmd.CardCipherPIN{CurrentPIN: currentPIN, NewPIN: newPIN}
	if err := p.exchange(ctx, cipher); err != nil {
		return nil, err
	}
	return cipher.CipheredBlock, nil
}

func (p *Provider) GenerateCipheredCardKey(ctx context.Context, cardChallenge []byte, issuerKIF, issuerKVC, targetKIF, targetKVC byte) ([]byte, error) {
	gen := &samcmd.CardGenerateKey{KIF: targetKIF, KVC: targetKVC}
	if err := p.exchange(ctx, gen); err != nil {
		return nil, fmt.Errorf("sam: generate ciphered card key: %w", err)
	}
	return gen.CipheredKeyData, nil
}
