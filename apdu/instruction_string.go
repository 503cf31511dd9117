package apdu

import "fmt"

var insCodeNames = map[InsCode]string{
	INS_DEACTIVATE_FILE:              "DEACTIVATE_FILE",
	INS_ERASE_RECORD:                 "ERASE_RECORD",
	INS_ERASE_BINARY:                 "ERASE_BINARY",
	INS_ERASE_BINARY_BER:             "ERASE_BINARY_BER",
	INS_PERFORM_SCQL_OPERATION:       "PERFORM_SCQL_OPERATION",
	INS_PERFORM_TRANSACTION_OPER:     "PERFORM_TRANSACTION_OPER",
	INS_PERFORM_USER_OPERATION:       "PERFORM_USER_OPERATION",
	INS_VERIFY:                       "VERIFY",
	INS_VERIFY_BER:                   "VERIFY_BER",
	INS_MANAGE_SECURITY_ENVIRONMENT:  "MANAGE_SECURITY_ENVIRONMENT",
	INS_CHANGE_REFERENCE_DATA:        "CHANGE_REFERENCE_DATA",
	INS_DISABLE_VERIF_REQ:            "DISABLE_VERIF_REQ",
	INS_ENABLE_VERIF_REQ:             "ENABLE_VERIF_REQ",
	INS_PERFORM_SECURITY_OPERATION:   "PERFORM_SECURITY_OPERATION",
	INS_RESET_RETRY_COUNTER:          "RESET_RETRY_COUNTER",
	INS_ACTIVATE_FILE:                "ACTIVATE_FILE",
	INS_GENERATE_ASYMMETRIC_KEY_PAIR: "GENERATE_ASYMMETRIC_KEY_PAIR",
	INS_MANAGE_CHANNEL:               "MANAGE_CHANNEL",
	INS_EXTERNAL_AUTHENTICATE:        "EXTERNAL_AUTHENTICATE",
	INS_GET_CHALLENGE:                "GET_CHALLENGE",
	INS_GENERAL_AUTHENTICATE:         "GENERAL_AUTHENTICATE",
	INS_GENERAL_AUTHENTICATE_BER:     "GENERAL_AUTHENTICATE_BER",
	INS_INTERNAL_AUTHENTICATE:        "INTERNAL_AUTHENTICATE",
	INS_SEARCH_BINARY:                "SEARCH_BINARY",
	INS_SEARCH_BINARY_BER:            "SEARCH_BINARY_BER",
	INS_SEARCH_RECORD:                "SEARCH_RECORD",
	INS_SELECT:                       "SELECT",
	INS_READ_BINARY:                  "READ_BINARY",
	INS_READ_BINARY_BER:              "READ_BINARY_BER",
	INS_READ_RECORD:                  "READ_RECORD",
	INS_READ_RECORD_BER:              "READ_RECORD_BER",
	INS_GET_RESPONSE:                 "GET_RESPONSE",
	INS_ENVELOPE:                     "ENVELOPE",
	INS_ENVELOPE_BER:                 "ENVELOPE_BER",
	INS_GET_DATA:                     "GET_DATA",
	INS_GET_DATA_BER:                 "GET_DATA_BER",
	INS_WRITE_BINARY:                 "WRITE_BINARY",
	INS_WRITE_BINARY_BER:             "WRITE_BINARY_BER",
	INS_WRITE_RECORD:                 "WRITE_RECORD",
	INS_UPDATE_BINARY:                "UPDATE_BINARY",
	INS_UPDATE_BINARY_BER:            "UPDATE_BINARY_BER",
	INS_PUT_DATA:                     "PUT_DATA",
	INS_PUT_DATA_BER:                 "PUT_DATA_BER",
	INS_UPDATE_RECORD:                "UPDATE_RECORD",
	INS_UPDATE_RECORD_BER:            "UPDATE_RECORD_BER",
	INS_CREATE_FILE:                  "CREATE_FILE",
	INS_APPEND_RECORD:                "APPEND_RECORD",
	INS_DELETE_FILE:                  "DELETE_FILE",
	INS_TERMINATE_DF:                 "TERMINATE_DF",
	INS_TERMINATE_EF:                 "TERMINATE_EF",
	INS_TERMINATE_CARD_USAGE:         "TERMINATE_CARD_USAGE",

	// Calypso/SAM-proprietary instruction bytes (spec.md §4.4/§4.5); these
	// fall outside the ISO 7816-4 table above but share the same InsCode type
	// so every command built by calypso/cmd and calypso/sam can report a
	// readable name.
	InsOpenSecureSession:    "OPEN_SECURE_SESSION",
	InsCloseSecureSession:   "CLOSE_SECURE_SESSION",
	InsManageSecureSession:  "MANAGE_SECURE_SESSION",
	InsIncrease:             "INCREASE",
	InsDecrease:             "DECREASE",
	InsIncreaseMultiple:     "INCREASE_MULTIPLE",
	InsDecreaseMultiple:     "DECREASE_MULTIPLE",
	InsSVGet:                "SV_GET",
	InsSVReload:             "SV_RELOAD",
	InsSVDebit:              "SV_DEBIT",
	InsSVUndebit:            "SV_UNDEBIT",
	InsChangeKey:            "CHANGE_KEY",
	InsSAMUnlock:             "SAM_UNLOCK",
	InsSAMSelectDiversifier:  "SAM_SELECT_DIVERSIFIER",
	InsSAMDigestInit:         "SAM_DIGEST_INIT",
	InsSAMDigestUpdate:       "SAM_DIGEST_UPDATE",
	InsSAMDigestClose:        "SAM_DIGEST_CLOSE",
	InsSAMDigestAuthenticate: "SAM_DIGEST_AUTHENTICATE",
	InsSAMGiveRandom:         "SAM_GIVE_RANDOM",
	InsSAMCardCipherPIN:      "SAM_CARD_CIPHER_PIN",
	InsSAMCardGenerateKey:    "SAM_CARD_GENERATE_KEY",
	InsSAMSVPrepare:          "SAM_SV_PREPARE",
	InsSAMSVCheck:            "SAM_SV_CHECK",
	InsSAMReadKeyParameters:  "SAM_READ_KEY_PARAMETERS",
	InsSAMReadCeilings:       "SAM_READ_CEILINGS",
	InsSAMReadEventCounter:   "SAM_READ_EVENT_COUNTER",
	InsSAMWriteKey:           "SAM_WRITE_KEY",
}

// String implements fmt.Stringer for InsCode. It is hand-written rather than
// `go:generate`d: the instruction set spans both the ISO 7816-4 table above
// and the Calypso/SAM-proprietary codes declared in calypso_instructions.go,
// so one map covers both without a second generated file.
func (i InsCode) String() string {
	if name, ok := insCodeNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}
