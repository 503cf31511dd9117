package apdu

// StatusTableEntry binds one status word to the outcome a command library
// assigns it: whether the card considered the operation successful, and a
// short human-readable reason. This is the generalization of the ad-hoc
// sw1==0x90 / sw1==0x61 checks scattered through the teacher's Describe()
// methods into one declarative table a command can carry alongside itself.
type StatusTableEntry struct {
	SW   StatusWord
	OK   bool
	Info string
}

// StatusTable is an ordered list of known outcomes for one command. Command
// libraries compose a command-specific table from a shared default plus a
// per-command overlay (spec.md §4.2).
type StatusTable []StatusTableEntry

// Lookup finds the entry for sw, if the table declares one.
func (t StatusTable) Lookup(sw StatusWord) (StatusTableEntry, bool) {
	for _, e := range t {
		if e.SW == sw {
			return e, true
		}
	}
	return StatusTableEntry{}, false
}

// DefaultStatusTable covers the status words every ISO 7816-4 command
// shares, regardless of the command-specific overlay it is merged with.
var DefaultStatusTable = StatusTable{
	{SW_NO_ERROR, true, "success"},
	{SW_ERR_WRONG_P1P2, false, "incorrect P1-P2"},
	{SW_ERR_INS_INVALID, false, "instruction not supported"},
	{SW_ERR_CLA_NOT_SUPPORTED, false, "class not supported"},
	{SW_ERR_CMD_NOT_ALLOWED_NO_INFO, false, "command not allowed"},
}

// Merge returns a new table with overlay's entries taking precedence over
// any identical status word already present in t.
func (t StatusTable) Merge(overlay StatusTable) StatusTable {
	out := make(StatusTable, 0, len(t)+len(overlay))
	seen := make(map[StatusWord]bool, len(overlay))
	for _, e := range overlay {
		seen[e.SW] = true
		out = append(out, e)
	}
	for _, e := range t {
		if !seen[e.SW] {
			out = append(out, e)
		}
	}
	return out
}
