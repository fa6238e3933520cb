// Package prune owns the pending-prune record bookkeeping described in
// spec §4.E: outputs spent under prune-mode are enqueued per-height and
// physically deleted once they age past the reorg horizon (default 6
// blocks, configurable — spec §9's Open Question).
package prune

import (
	"context"

	"github.com/rawblock/ordinal-index/internal/store"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// DefaultHorizon matches the conventional "deep reorg" horizon cited in
// spec §4.E/§9. It is a tuning knob, not a correctness boundary.
const DefaultHorizon = 6

// Sweep deletes every OutputEntry listed in the pending-prune record
// for height-horizon and drops that record, staging both into batch.
// Called at the end of every successful ConnectBlock under prune-mode.
func Sweep(ctx context.Context, st *store.Store, batch *store.Batch, height int32, horizon int32) error {
	target := height - horizon
	if target < 0 {
		return nil
	}
	outpoints, err := st.PendingPrune(ctx, target)
	if err != nil {
		return err
	}
	if len(outpoints) == 0 {
		return nil
	}
	for _, o := range outpoints {
		batch.DeleteEntry(o.Txid, o.Vout)
	}
	batch.DeletePendingPrune(target)
	return nil
}

// Enqueue appends spent outpoints to the height's pending-prune record,
// merging with whatever record the store already holds for that height.
func Enqueue(existing []ordinal.Outpoint, spent []ordinal.Outpoint) []ordinal.Outpoint {
	return append(existing, spent...)
}
