package store

import (
	"encoding/binary"
	"fmt"

	"github.com/rawblock/ordinal-index/internal/rangeset"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

const (
	flagSpent       byte = 1 << 0
	flagInscription byte = 1 << 1
)

// encodeEntry serializes an OutputEntry to a stable binary form:
//
//	blockHeight int32 | flags byte | rangeCount uint32 | (start uint64, end uint64)...
//
// The encoding is implementation-defined per spec §4.B — stable within
// an installation, not a cross-implementation wire format. Ranges are
// merge-normalized before encoding so that disconnect-then-reconnect
// produces byte-identical store contents (spec §8, invariant 5),
// regardless of how many discrete skim steps produced them.
func encodeEntry(e ordinal.Entry) []byte {
	ranges := rangeset.Merge(e.Ranges)
	buf := make([]byte, 4+1+4+len(ranges)*16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.BlockHeight))
	var flags byte
	if e.Spent {
		flags |= flagSpent
	}
	if e.Inscription {
		flags |= flagInscription
	}
	buf[4] = flags
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(ranges)))
	off := 9
	for _, r := range ranges {
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(r.Start))
		binary.BigEndian.PutUint64(buf[off+8:off+16], uint64(r.End))
		off += 16
	}
	return buf
}

func decodeEntry(buf []byte) (ordinal.Entry, error) {
	if len(buf) < 9 {
		return ordinal.Entry{}, fmt.Errorf("store: entry too short (%d bytes)", len(buf))
	}
	e := ordinal.Entry{
		BlockHeight: int32(binary.BigEndian.Uint32(buf[0:4])),
		Spent:       buf[4]&flagSpent != 0,
		Inscription: buf[4]&flagInscription != 0,
	}
	count := binary.BigEndian.Uint32(buf[5:9])
	off := 9
	e.Ranges = make(ordinal.List, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+16 > len(buf) {
			return ordinal.Entry{}, fmt.Errorf("store: truncated entry (range %d/%d)", i, count)
		}
		start := binary.BigEndian.Uint64(buf[off : off+8])
		end := binary.BigEndian.Uint64(buf[off+8 : off+16])
		e.Ranges = append(e.Ranges, ordinal.Range{Start: ordinal.Number(start), End: ordinal.Number(end)})
		off += 16
	}
	return e, nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("store: expected 8-byte uint64, got %d bytes", len(buf))
	}
	return binary.BigEndian.Uint64(buf), nil
}

// encodeOutpoints serializes a list of outpoints for the pending-prune
// record: a flat sequence of (txid[32], vout uint32).
func encodeOutpoints(outpoints []ordinal.Outpoint) []byte {
	buf := make([]byte, len(outpoints)*36)
	for i, o := range outpoints {
		off := i * 36
		copy(buf[off:off+32], o.Txid[:])
		binary.BigEndian.PutUint32(buf[off+32:off+36], o.Vout)
	}
	return buf
}

func decodeOutpoints(buf []byte) ([]ordinal.Outpoint, error) {
	if len(buf)%36 != 0 {
		return nil, fmt.Errorf("store: malformed outpoint list (%d bytes)", len(buf))
	}
	out := make([]ordinal.Outpoint, 0, len(buf)/36)
	for off := 0; off < len(buf); off += 36 {
		var o ordinal.Outpoint
		copy(o.Txid[:], buf[off:off+32])
		o.Vout = binary.BigEndian.Uint32(buf[off+32 : off+36])
		out = append(out, o)
	}
	return out, nil
}
