// Package crypto defines the abstract symmetric-crypto contract the core
// consumes (spec.md §6.2): the concrete DES/AES key store and MAC engine
// never appears above this interface. A transaction owns exactly one
// provider for its lifetime; providers are not safe for concurrent use,
// matching the teacher's own unlocked Client/Session types.
package crypto

import "context"

// SymmetricCryptoProvider is implemented by every backing crypto engine:
// the SAM-driven default (package sam) and the software reference
// implementation used by tests and the CLI's simulate mode (package
// desprov).
type SymmetricCryptoProvider interface {
	// InitTerminalSecureSessionContext is called before Open Secure
	// Session and returns the terminal challenge (4 or 8 bytes).
	InitTerminalSecureSessionContext(ctx context.Context) ([]byte, error)

	// InitTerminalSessionMac primes the session digest from the Open
	// Secure Session response data, plus the KIF/KVC the card reported.
	InitTerminalSessionMac(ctx context.Context, openDataOut []byte, kif, kvc byte) error

	// UpdateTerminalSessionMac feeds one exchanged APDU into the running
	// digest. When encryption is active it returns the ciphered (for a
	// request) or deciphered (for a response) form; otherwise it returns
	// apdu unchanged.
	UpdateTerminalSessionMac(ctx context.Context, apdu []byte) ([]byte, error)

	// FinalizeTerminalSessionMac emits the terminal's closing MAC.
	FinalizeTerminalSessionMac(ctx context.Context) ([]byte, error)

	// GenerateTerminalSessionMac produces an early terminal MAC for mutual
	// authentication via Manage Secure Session, without closing the digest.
	GenerateTerminalSessionMac(ctx context.Context) ([]byte, error)

	// ActivateEncryption / DeactivateEncryption toggle ciphering of
	// subsequent UpdateTerminalSessionMac calls.
	ActivateEncryption(ctx context.Context) error
	DeactivateEncryption(ctx context.Context) error

	// IsCardSessionMacValid verifies the card's closing MAC against the
	// provider's own accumulated digest.
	IsCardSessionMacValid(ctx context.Context, cardMAC []byte) (bool, error)

	// ComputeSvCommandSecurityData fills the SAM-id/transaction-number/
	// terminal-SV-MAC fields into an SV command's data carrier.
	ComputeSvCommandSecurityData(ctx context.Context, svGetRespData []byte, amount int32, date, t [2]byte) ([]byte, error)

	// IsCardSvMacValid verifies the card's SV operation MAC.
	IsCardSvMacValid(ctx context.Context, svOperationRespData []byte) (bool, error)

	// CipherPinForPresentation produces the 8-byte PIN verification cipher
	// block.
	CipherPinForPresentation(ctx context.Context, cardChallenge, pin []byte, kif, kvc byte) ([]byte, error)

	// CipherPinForModification produces the 8- or 16-byte PIN-change
	// cipher block.
	CipherPinForModification(ctx context.Context, cardChallenge, currentPIN, newPIN []byte, kif, kvc byte) ([]byte, error)

	// GenerateCipheredCardKey produces the 24- or 32-byte ciphered key
	// block for Change Key.
	GenerateCipheredCardKey(ctx context.Context, cardChallenge []byte, issuerKIF, issuerKVC, targetKIF, targetKVC byte) ([]byte, error)
}
