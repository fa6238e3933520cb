// Package coinbase implements Bitcoin's halving schedule (spec §4.C)
// and the pure function that derives the newly-minted ordinal range
// for a given block height.
package coinbase

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// InitialSubsidySats is the block-0 subsidy: 50 BTC in satoshis.
const InitialSubsidySats uint64 = 50 * 1e8

// halvingInterval is sourced from chaincfg.MainNetParams rather than a
// hand-rolled constant, so the schedule tracks the same network
// parameter the rest of this repo uses for chain identity.
var halvingInterval = uint64(chaincfg.MainNetParams.SubsidyReductionInterval)

// Subsidy returns the newly-minted satoshi amount for height, truncated
// toward zero at each halving and 0 once it underflows past 64 halvings.
func Subsidy(height int32) uint64 {
	halvings := uint64(height) / halvingInterval
	if halvings >= 64 {
		return 0
	}
	return InitialSubsidySats >> halvings
}

// MintRange derives the half-open ordinal range minted by the coinbase
// of the block at height, given the current last-ordinal upper bound.
func MintRange(height int32, lastOrdinal ordinal.Number) ordinal.Range {
	subsidy := Subsidy(height)
	return ordinal.Range{
		Start: lastOrdinal,
		End:   lastOrdinal + ordinal.Number(subsidy),
	}
}
