package store

import (
	"encoding/binary"
)

// Key tags, matching spec §4.B's logical key space
// (T, "O", txid, vout), (T, "L"), (T, "B"), (T, "P", height).
// The leading tag byte keeps the four subspaces from colliding when
// scanned in key order under a single BYTEA-keyed table.
const (
	tagOutput       byte = 'O'
	tagLastOrdinal  byte = 'L'
	tagBestBlock    byte = 'B'
	tagPendingPrune byte = 'P'
)

// outputKey builds the (T,"O",txid,vout) key. txid is stored as held
// in ordinal.Outpoint, i.e. in display byte order, so key ordering
// follows the hex txid as it is printed.
func outputKey(txid [32]byte, vout uint32) []byte {
	k := make([]byte, 1+32+4)
	k[0] = tagOutput
	copy(k[1:33], txid[:])
	binary.BigEndian.PutUint32(k[33:37], vout)
	return k
}

// outputScanPrefix returns the prefix shared by every output key, used
// to bound the ordered full scan of the "O" subspace.
func outputScanPrefix() []byte {
	return []byte{tagOutput}
}

func lastOrdinalKey() []byte {
	return []byte{tagLastOrdinal}
}

func bestBlockKey() []byte {
	return []byte{tagBestBlock}
}

func pendingPruneKey(height int32) []byte {
	k := make([]byte, 1+4)
	k[0] = tagPendingPrune
	binary.BigEndian.PutUint32(k[1:5], uint32(height))
	return k
}

// undoKey stores the shadow pre-spend record for an outpoint consumed
// at the given height, so DisconnectBlock (spec §4.E) can restore the
// prior OutputEntry without requiring rewrite-spent mode.
func undoKey(height int32, txid [32]byte, vout uint32) []byte {
	k := make([]byte, 1+4+32+4)
	k[0] = 'U'
	binary.BigEndian.PutUint32(k[1:5], uint32(height))
	copy(k[5:37], txid[:])
	binary.BigEndian.PutUint32(k[37:41], vout)
	return k
}
