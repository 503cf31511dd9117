// Package card models the terminal's view of a Calypso card: the file tree,
// elementary file contents, stored-value context, and PIN state kept between
// command preparation and response parsing. It plays the role the teacher's
// FileControlInfo/SelectResult pair plays for a single SELECT, generalized to
// the whole card for the lifetime of a transaction.
package card

import "fmt"

// LID is a two-byte Calypso file identifier (e.g. the MF's 3F00).
type LID uint16

// SFI is a Short File Identifier (5 significant bits, 0 meaning "current EF").
type SFI byte

// FileType distinguishes the four structures a Calypso EF can have.
type FileType int

const (
	FileUnknown FileType = iota
	FileLinear           // fixed-length records, read by number
	FileCyclic           // ring buffer of fixed-length records, newest-first
	FileBinary           // flat byte array
	FileCounters         // triplet-of-counters EF, read via Read Binary/Get Data
)

// EF is one elementary file as currently known to the terminal: its
// descriptor plus whatever content has been read or staged for write during
// the transaction.
type EF struct {
	LID         LID
	SFI         SFI
	Type        FileType
	RecordSize  int
	RecordCount int

	// Records holds linear/cyclic file content keyed by 1-based record
	// number. For cyclic files, record 1 is always the most recently
	// written one (matching the card's own renumbering on AppendRecord).
	Records map[int][]byte

	// Binary holds FileBinary / FileCounters content as a flat buffer.
	Binary []byte
}

// DF is a Dedicated File: a node in the MF/DF tree, holding its AID (when
// selected by name) and the EFs declared directly under it.
type DF struct {
	LID LID
	AID []byte
	EFs map[LID]*EF
}

// SVContext tracks the Stored Value purse state across SV Get / Reload /
// Debit / Undebit within one secure session, per spec.md §4.4's SV command
// family.
type SVContext struct {
	Balance        int32
	LastTNum       int
	KVC            byte
	LoadLogRecord  []byte
	DebitLogRecord []byte
	OperationDone  bool // set by UpdateSVData once a Reload/Debit/Undebit response has been applied
}

// PINContext tracks the verification state exposed to Verify PIN / Change
// PIN, per spec.md §4.4.
type PINContext struct {
	RemainingAttempts int
	Verified          bool
	Blocked           bool
}

// SessionContext carries the card-reported state captured by Open Secure
// Session that downstream commands and the session state machine need:
// the card challenge, the KVC/KIF pair the card proposed, and whether the
// card requires ratification before a new session.
type SessionContext struct {
	Challenge       []byte
	KIF             byte
	KVC             byte
	RatificationOK  bool
	TransactionCtr  uint32
}

// Image is the terminal's working model of one card for the duration of a
// Transaction: the DF tree, the currently-selected file, and the volatile
// contexts (SV, PIN, session) that commands read and mutate as the
// orchestrator processes them (spec.md §3, §4.3).
type Image struct {
	MF *DF

	byLID map[LID]*EF
	bySFI map[SFI]*EF

	CurrentDF *DF
	CurrentEF *EF

	SV      SVContext
	PIN     PINContext
	Session SessionContext
}

// NewImage returns an empty Image rooted at a fresh Master File (LID 3F00).
func NewImage() *Image {
	mf := &DF{LID: 0x3F00, EFs: map[LID]*EF{}}
	return &Image{
		MF:        mf,
		byLID:     map[LID]*EF{},
		bySFI:     map[SFI]*EF{},
		CurrentDF: mf,
	}
}

// Declare registers an EF under the given DF, indexing it by both LID and
// SFI so GetEFBySFI/GetEFByLID can find it regardless of how a later command
// addresses it (spec.md §4.3).
func (img *Image) Declare(df *DF, ef *EF) {
	if df.EFs == nil {
		df.EFs = map[LID]*EF{}
	}
	df.EFs[ef.LID] = ef
	img.byLID[ef.LID] = ef
	if ef.SFI != 0 {
		img.bySFI[ef.SFI] = ef
	}
}

// GetEFBySFI resolves an EF by Short File Identifier. SFI 0 means "current
// EF" per the READ RECORD / READ BINARY P2 convention (spec.md §4.4).
func (img *Image) GetEFBySFI(sfi SFI) (*EF, error) {
	if sfi == 0 {
		if img.CurrentEF == nil {
			return nil, fmt.Errorf("card: no current EF selected")
		}
		return img.CurrentEF, nil
	}
	ef, ok := img.bySFI[sfi]
	if !ok {
		return nil, fmt.Errorf("card: no EF declared for sfi %02X", byte(sfi))
	}
	return ef, nil
}

// GetEFByLID resolves an EF by its two-byte file identifier.
func (img *Image) GetEFByLID(lid LID) (*EF, error) {
	ef, ok := img.byLID[lid]
	if !ok {
		return nil, fmt.Errorf("card: no EF declared for lid %04X", uint16(lid))
	}
	return ef, nil
}

// SetContent overwrites one record (linear/cyclic) or, for binary and counter
// files, writes data at the given byte offset (growing the buffer as needed),
// mirroring what Update Record / Update Binary do to the terminal's
// image once the card has acknowledged the write (spec.md §4.3).
func (ef *EF) SetContent(recordOrOffset int, data []byte) {
	switch ef.Type {
	case FileBinary, FileCounters:
		end := recordOrOffset + len(data)
		if end > len(ef.Binary) {
			grown := make([]byte, end)
			copy(grown, ef.Binary)
			ef.Binary = grown
		}
		copy(ef.Binary[recordOrOffset:end], data)
	default:
		if ef.Records == nil {
			ef.Records = map[int][]byte{}
		}
		ef.Records[recordOrOffset] = append([]byte(nil), data...)
	}
}

// AddCyclicContent pushes a new record to the front of a cyclic file and
// renumbers the rest, matching the card's own ring-buffer behaviour on
// Append Record (spec.md §4.4's cyclic-file note).
func (ef *EF) AddCyclicContent(data []byte) {
	if ef.Records == nil {
		ef.Records = map[int][]byte{}
	}
	for n := ef.RecordCount; n >= 1; n-- {
		if prev, ok := ef.Records[n]; ok {
			if n+1 <= ef.RecordCount {
				ef.Records[n+1] = prev
			}
		}
	}
	ef.Records[1] = append([]byte(nil), data...)
}

// SetCounter writes a 3-byte counter value into a FileCounters EF at the
// slot for the given counter number (1-based, 3 bytes per counter per the
// Calypso counter-file layout named in spec.md §4.4's Increase/Decrease
// section).
func (ef *EF) SetCounter(counterNumber int, value uint32) {
	offset := (counterNumber - 1) * 3
	buf := []byte{byte(value >> 16), byte(value >> 8), byte(value)}
	ef.SetContent(offset, buf)
}

// Counter reads back a 3-byte counter value previously written by SetCounter.
func (ef *EF) Counter(counterNumber int) (uint32, error) {
	offset := (counterNumber - 1) * 3
	if offset+3 > len(ef.Binary) {
		return 0, fmt.Errorf("card: counter %d not present", counterNumber)
	}
	b := ef.Binary[offset : offset+3]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// UpdateSVData records the outcome of an SV Reload/Debit/Undebit into the
// SV context, as the card's own purse would after accepting the command
// (spec.md §4.4 SV family).
func (img *Image) UpdateSVData(delta int32, logRecord []byte, isDebit bool) {
	img.SV.Balance += delta
	img.SV.OperationDone = true
	if isDebit {
		img.SV.DebitLogRecord = logRecord
	} else {
		img.SV.LoadLogRecord = logRecord
	}
}

// SetPIN installs the PIN verification state reported by the card in
// response to Verify PIN (spec.md §4.4).
func (img *Image) SetPIN(remainingAttempts int, verified, blocked bool) {
	img.PIN = PINContext{RemainingAttempts: remainingAttempts, Verified: verified, Blocked: blocked}
}

// SetChallenge records the card challenge and session parameters returned by
// Open Secure Session (spec.md §4.4, §4.6).
func (img *Image) SetChallenge(challenge []byte, kif, kvc byte, ratificationOK bool, txCounter uint32) {
	img.Session = SessionContext{
		Challenge:      challenge,
		KIF:            kif,
		KVC:            kvc,
		RatificationOK: ratificationOK,
		TransactionCtr: txCounter,
	}
}

// SetSVData seeds the SV context from an SV Get response (balance, last
// transaction number, KVC) ahead of a Reload/Debit/Undebit in the same
// session (spec.md §4.4).
func (img *Image) SetSVData(balance int32, lastTNum int, kvc byte) {
	img.SV.Balance = balance
	img.SV.LastTNum = lastTNum
	img.SV.KVC = kvc
}

// RestoreFiles reverts every EF touched during an aborted session back to
// the snapshot taken when the session opened, per spec.md §4.6's
// session-abort rule ("ABORTED discards all postponed writes").
func (img *Image) RestoreFiles(snapshot *Image) {
	img.byLID = snapshot.byLID
	img.bySFI = snapshot.bySFI
	img.MF = snapshot.MF
	img.CurrentDF = snapshot.CurrentDF
	img.CurrentEF = snapshot.CurrentEF
	img.SV = snapshot.SV
}

// Snapshot returns a copy of the current file-tree state suitable for a
// later RestoreFiles call. Every EF reachable by LID (and by SFI) is
// deep-copied, records and binary content included; MF, CurrentDF and
// CurrentEF are kept as the same pointers. session.Open takes the snapshot,
// matching the single-threaded cooperative model of spec.md §5.
func (img *Image) Snapshot() *Image {
	byLID := make(map[LID]*EF, len(img.byLID))
	for k, v := range img.byLID {
		cp := *v
		cp.Records = make(map[int][]byte, len(v.Records))
		for rn, rv := range v.Records {
			cp.Records[rn] = append([]byte(nil), rv...)
		}
		cp.Binary = append([]byte(nil), v.Binary...)
		byLID[k] = &cp
	}
	bySFI := make(map[SFI]*EF, len(img.bySFI))
	for k, v := range byLID {
		if orig, ok := img.byLID[k]; ok {
			for sfi, ef := range img.bySFI {
				if ef == orig {
					bySFI[sfi] = v
				}
			}
		}
	}
	return &Image{
		MF:        img.MF,
		byLID:     byLID,
		bySFI:     bySFI,
		CurrentDF: img.CurrentDF,
		CurrentEF: img.CurrentEF,
		SV:        img.SV,
		PIN:       img.PIN,
		Session:   img.Session,
	}
}
