// Package log centralizes the structured logger used across the core.
// Fields follow the key/value style the pack uses for card traffic logging
// (hex-encoded APDU bytes, uppercase, tagged by command).
package log

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
)

// Logger is the structured logger type, an alias for *slog.Logger. The PC/SC
// transceiver is the component that logs card traffic; pcsc.Connect gives
// each Reader the Default() logger, so output follows the process-wide slog
// default.
type Logger = *slog.Logger

// Default returns a text-handler logger writing to the process's default
// slog output, for callers (tests, the CLI harness) that don't wire their
// own.
func Default() Logger {
	return slog.Default()
}

// HexField renders a byte slice the way the card-traffic logs in this
// package expect: uppercase hex, no separators.
func HexField(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// APDU logs one request/response exchange at debug level.
func APDU(ctx context.Context, l Logger, label string, req, resp []byte, sw uint16) {
	l.DebugContext(ctx, "apdu exchange",
		"label", label,
		"req", HexField(req),
		"resp", HexField(resp),
		"sw", sw,
	)
}
