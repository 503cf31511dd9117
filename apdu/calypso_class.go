package apdu

// Calypso command APDUs never need the ISO 7816-4 logical-channel or command
// chaining machinery modeled by Class/Instruction above: every Calypso
// command is a plain Case 1-4 APDU built from one of three fixed class
// bytes. ProductType selects which one a given card speaks.

// ProductType identifies the Calypso revision family of a selected card.
// The exact set of recognised families is deliberately small: it only needs
// to answer "does this card want the legacy class byte", which is the one
// fact the APDU builder depends on.
type ProductType int

const (
	ProductUnknown ProductType = iota
	ProductISO
	ProductLegacy
	ProductLegacyStoredValue
)

// Calypso class bytes (spec.md §4.1).
const (
	ClassISO               byte = 0x00
	ClassLegacy            byte = 0x94
	ClassLegacyStoredValue byte = 0xFA
)

// CalypsoClass selects the class byte to use for a command against a card of
// the given product family. isStoredValueCommand must be true only for the
// SV-specific card commands (SV Get/Reload/Debit/Undebit); every other
// command uses the card's plain ISO-or-legacy class.
func CalypsoClass(family ProductType, isStoredValueCommand bool) byte {
	switch family {
	case ProductLegacy:
		if isStoredValueCommand {
			return ClassLegacyStoredValue
		}
		return ClassLegacy
	case ProductLegacyStoredValue:
		if isStoredValueCommand {
			return ClassLegacyStoredValue
		}
		return ClassLegacy
	default:
		return ClassISO
	}
}
