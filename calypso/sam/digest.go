package sam

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
)

// The Digest Init/Update/Close/Authenticate sequence is the SAM's half of
// the session MAC computation (spec.md §4.5, §4.6): every APDU the terminal
// exchanges with the card during a session is also fed to the SAM via
// Digest Update, the same "accumulate over every exchanged block, finalize
// once" shape as the teacher-pack's SCP02Session.computeCMAC/retailMAC
// running-ICV chain (_examples/1ph-sim_reader/card/globalplatform_scp02.go).

// DigestInit starts a new digest computation, seeded with the card's Open
// Secure Session response (KIF, KVC, challenges).
type DigestInit struct {
	Ciphered            bool
	KIF                 byte
	KVC                 byte
	OpenSessionRespData []byte
}

func (d *DigestInit) Ref() string { return "DigestInit" }

func (d *DigestInit) FinalizeRequest() (*apdu.CommandAPDU, error) {
	p1 := byte(0x00)
	if d.Ciphered {
		p1 = 0x01
	}
	data := append([]byte{d.KIF, d.KVC}, d.OpenSessionRespData...)
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMDigestInit, p1, 0x00, data, 0)
}

func (d *DigestInit) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: DigestInit failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (d *DigestInit) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// DigestUpdate feeds one exchanged APDU (request or response bytes) into
// the running digest. It carries no parity field: which half of the pair is
// being fed follows from the order of the calls, matching §4.5's
// "even call = command, odd call = response" rule.
type DigestUpdate struct {
	Data []byte
}

func (d *DigestUpdate) Ref() string { return "DigestUpdate" }

func (d *DigestUpdate) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMDigestUpdate, 0x00, 0x00, d.Data, 0)
}

func (d *DigestUpdate) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: DigestUpdate failed: %s", resp.Status.Verbose())
	}
	return nil
}

func (d *DigestUpdate) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// DigestClose finalizes the digest and returns the terminal's session MAC,
// ready to attach to Close Secure Session.
type DigestClose struct {
	TerminalMAC []byte
}

func (d *DigestClose) Ref() string { return "DigestClose" }

func (d *DigestClose) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMDigestClose, 0x00, 0x00, nil, 4)
}

func (d *DigestClose) ParseResponse(resp *apdu.ResponseAPDU) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("sam: DigestClose failed: %s", resp.Status.Verbose())
	}
	d.TerminalMAC = resp.Data
	return nil
}

func (d *DigestClose) StatusTable() apdu.StatusTable { return DefaultStatusTable }

// DigestAuthenticate validates the card's session MAC (received from Close
// Secure Session) against the SAM's own computation.
type DigestAuthenticate struct {
	CardMAC []byte

	Valid bool
}

func (d *DigestAuthenticate) Ref() string { return "DigestAuthenticate" }

func (d *DigestAuthenticate) FinalizeRequest() (*apdu.CommandAPDU, error) {
	return apdu.BuildCalypso(apdu.ClassISO, apdu.InsSAMDigestAuthenticate, 0x00, 0x00, d.CardMAC, 0)
}

func (d *DigestAuthenticate) ParseResponse(resp *apdu.ResponseAPDU) error {
	d.Valid = resp.Status.IsSuccess()
	if !d.Valid {
		return fmt.Errorf("sam: DigestAuthenticate: card MAC rejected: %s", resp.Status.Verbose())
	}
	return nil
}

func (d *DigestAuthenticate) StatusTable() apdu.StatusTable { return DefaultStatusTable }
