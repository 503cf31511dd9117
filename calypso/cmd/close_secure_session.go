package cmd

import (
	"bytes"
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// CloseSecureSession closes the currently open secure session (spec.md
// §4.4, §4.6). TerminalSessionMAC must already hold the 4- or 8-byte
// terminal MAC computed over every exchanged APDU by the session state
// machine; this command only carries it onto the wire and validates the
// card's own MAC in the response.
type CloseSecureSession struct {
	Ratify             bool
	TerminalSessionMAC []byte

	CardSessionMAC  []byte
	PostponedBlocks [][]byte
}

func (c *CloseSecureSession) Ref() CommandRef { return CommandRef{Name: "CloseSecureSession"} }

func (c *CloseSecureSession) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	if len(c.TerminalSessionMAC) == 0 {
		return nil, fmt.Errorf("cmd: CloseSecureSession requires a terminal session MAC")
	}
	cla := apdu.CalypsoClass(ctx.Product, false)
	p1 := byte(0x80)
	if !c.Ratify {
		p1 = 0x00
	}
	return apdu.BuildCalypso(cla, apdu.InsCloseSecureSession, p1, 0x00, c.TerminalSessionMAC, apdu.MaxShortLe)
}

func (c *CloseSecureSession) CryptoNeed() CryptoNeed { return NeedsCryptoNow }

func (c *CloseSecureSession) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

// ParseResponse splits the response into the postponed-block sequence and
// the trailing card session MAC. The MAC is the last 4 (or 8, under an
// extended-MAC key) bytes; everything before it is a run of len|payload
// chunks carried over from commands the card deferred until session close.
func (c *CloseSecureSession) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: CloseSecureSession failed: %s", resp.Status.Verbose())
	}
	macLen := 4
	if len(c.TerminalSessionMAC) == 8 {
		macLen = 8
	}
	if len(resp.Data) < macLen {
		return fmt.Errorf("cmd: CloseSecureSession: response too short (%d bytes)", len(resp.Data))
	}
	split := len(resp.Data) - macLen
	c.CardSessionMAC = append([]byte(nil), resp.Data[split:]...)

	blocks, err := parsePostponedBlocks(resp.Data[:split])
	if err != nil {
		return fmt.Errorf("cmd: CloseSecureSession: %w", err)
	}
	c.PostponedBlocks = blocks
	return nil
}

// parsePostponedBlocks reads a run of len|payload chunks, as the card emits
// one per command it deferred (SV reload/debit) until the session closed.
func parsePostponedBlocks(data []byte) ([][]byte, error) {
	var blocks [][]byte
	for len(data) > 0 {
		n := int(data[0])
		data = data[1:]
		if n > len(data) {
			return nil, fmt.Errorf("truncated postponed block")
		}
		blocks = append(blocks, data[:n])
		data = data[n:]
	}
	return blocks, nil
}

// ValidateCardMAC compares the card's returned session MAC against the one
// the terminal independently computed. A mismatch is reported as false; no
// error is raised here.
func (c *CloseSecureSession) ValidateCardMAC(expected []byte) bool {
	return bytes.Equal(c.CardSessionMAC, expected)
}

func (c *CloseSecureSession) SessionBufferUsed() bool { return false }

func (c *CloseSecureSession) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_SECURITY_STATUS_NOT_SAT, false, "MAC check failed or no session open"},
	})
}
