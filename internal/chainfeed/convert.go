package chainfeed

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
)

// btcToSats converts Bitcoin Core's float64 BTC value to satoshis
// using btcutil.NewAmount, which performs correct IEEE-754 rounding
// instead of naive float multiplication — adapted from the teacher's
// routes.go btcToSats helper.
func btcToSats(btc float64) (uint64, error) {
	amt, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, err
	}
	return uint64(amt), nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
