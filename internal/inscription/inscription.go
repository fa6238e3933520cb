// Package inscription implements the best-effort "does this output
// carry an ordinal inscription marker" flag described in spec §9: not
// part of the core, allowed to always return false, included here
// because the teacher's script-classification helpers (formerly
// internal/heuristics/script_analysis.go's isOPReturn/classifyOPReturn)
// give it a natural home adapted to raw script bytes instead of hex
// strings of a CoinJoin peer's scriptPubKey.
package inscription

import "bytes"

// opReturn is the OP_RETURN opcode (0x6a).
const opReturn = 0x6a

var ordMarker = []byte("ord")

// Scan reports whether script looks like an OP_RETURN output carrying
// an "ord" marker. It never returns true on anything else, and is
// intentionally shallow: inscription envelopes embedded in taproot
// witness data are out of scope (spec Non-goals — "decoding
// inscription payloads").
func Scan(script []byte) bool {
	if len(script) < 2 || script[0] != opReturn {
		return false
	}
	// script[1] is conventionally a push-length byte; the marker may
	// follow immediately or after it depending on how the pushdata was
	// encoded, so just search the remainder rather than computing the
	// exact push length.
	return bytes.Contains(script[1:], ordMarker)
}
