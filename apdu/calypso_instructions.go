package apdu

// Calypso and SAM proprietary instruction codes (spec.md §4.4, §4.5).
// These sit alongside the ISO 7816-4 table in instruction.go; NewInstruction
// still rejects the 6X/9X ranges reserved for status words, so none of the
// values below fall in that range.
const (
	InsOpenSecureSession   InsCode = 0x8A
	InsCloseSecureSession  InsCode = 0x8E
	InsManageSecureSession InsCode = 0x8C

	InsIncrease         InsCode = 0x32
	InsDecrease         InsCode = 0x30
	InsIncreaseMultiple InsCode = 0x3A
	InsDecreaseMultiple InsCode = 0x38

	InsSVGet     InsCode = 0x7C
	InsSVReload  InsCode = 0x56
	InsSVDebit   InsCode = 0x54
	InsSVUndebit InsCode = 0x5C

	InsChangeKey InsCode = 0xD8

	// SAM command set (spec.md §4.5). PSO Compute/Verify Signature and the
	// SAM's own Get Challenge reuse the ISO instruction codes
	// (INS_PERFORM_SECURITY_OPERATION, INS_GET_CHALLENGE): they are
	// genuinely the same ISO 7816-8 command, distinguished by P1/P2.
	InsSAMUnlock             InsCode = 0x1A
	InsSAMSelectDiversifier  InsCode = 0x19
	InsSAMDigestInit         InsCode = 0x8F
	InsSAMDigestUpdate       InsCode = 0x8D
	InsSAMDigestClose        InsCode = 0x48
	InsSAMDigestAuthenticate InsCode = 0x42
	InsSAMGiveRandom         InsCode = 0x81
	InsSAMCardCipherPIN      InsCode = 0x11
	InsSAMCardGenerateKey    InsCode = 0x18
	InsSAMSVPrepare          InsCode = 0x5A
	InsSAMSVCheck            InsCode = 0x58
	InsSAMReadKeyParameters  InsCode = 0xBC
	InsSAMReadCeilings       InsCode = 0xBE
	InsSAMReadEventCounter   InsCode = 0xBF
	InsSAMWriteKey           InsCode = 0x1C
)
