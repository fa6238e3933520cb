// Package ordinal defines the data model for the satoshi-range index:
// ordinals, ranges, and the per-output entries that record which
// ordinals an output currently holds.
package ordinal

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Number is the 64-bit sequence number of a satoshi in mining order.
// The first satoshi ever mined has Number 0.
type Number uint64

// Range is a half-open interval [Start, End) of ordinal numbers.
type Range struct {
	Start Number `json:"start"`
	End   Number `json:"end"`
}

// Size returns the count of ordinals in the range.
func (r Range) Size() uint64 {
	return uint64(r.End - r.Start)
}

// Valid reports whether the range satisfies the Start < End invariant.
func (r Range) Valid() bool {
	return r.Start < r.End
}

// Contains reports whether the ordinal n falls within the range.
func (r Range) Contains(n Number) bool {
	return n >= r.Start && n < r.End
}

// List is a sequence of pairwise non-overlapping Ranges kept in FIFO
// assignment order. That order is not necessarily ascending: an input
// pool follows the order of the inputs, and a coinbase's list holds the
// mint range ahead of lower-numbered fee ranges.
// Adjacent ranges are not required to be coalesced; see rangeset.Merge.
type List []Range

// Outpoint uniquely identifies a transaction output. Txid holds the
// txid in display byte order (the reverse of chainhash's internal
// order), as the chain-feed driver and the API parser fill it. Txid is
// untagged for JSON because its wire form (MarshalJSON below) is the
// hex display string.
type Outpoint struct {
	Txid [32]byte `json:"-"`
	Vout uint32   `json:"vout"`
}

// TxidHex returns the display form of Txid, matching how Bitcoin txids
// are conventionally printed. Txid is already in display byte order,
// so its bytes are hex-encoded as they are.
func (o Outpoint) TxidHex() string {
	return hex.EncodeToString(o.Txid[:])
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxidHex(), o.Vout)
}

// outpointJSON is the wire shape of Outpoint: txid in its conventional
// display order, not the zero-value "-" that the struct tag alone
// would produce.
type outpointJSON struct {
	Txid string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// MarshalJSON emits Txid as its display-order hex string so that
// responses built directly from an Outpoint (outputsContaining,
// currentLocationOf) carry a usable txid instead of silently omitting
// it.
func (o Outpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(outpointJSON{Txid: o.TxidHex(), Vout: o.Vout})
}

// UnmarshalJSON parses the same display-order hex shape MarshalJSON
// produces.
func (o *Outpoint) UnmarshalJSON(data []byte) error {
	var v outpointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	raw, err := decodeTxidHex(v.Txid)
	if err != nil {
		return fmt.Errorf("ordinal: unmarshal outpoint: %w", err)
	}
	o.Txid = raw
	o.Vout = v.Vout
	return nil
}

// decodeTxidHex parses a display-order hex txid string back into an
// Outpoint's Txid bytes, the inverse of TxidHex.
func decodeTxidHex(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("txid must decode to 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// Entry is the persistent value stored per transaction output.
type Entry struct {
	Ranges      List  `json:"ranges"`
	BlockHeight int32 `json:"blockHeight"`
	Spent       bool  `json:"spent"`
	Inscription bool  `json:"inscription"`
}
