// Package flow implements the ordinal flow engine (spec §4.D/§4.E):
// the deterministic per-block algorithm that takes a confirmed block
// plus the prior index state and produces the new per-output range
// sets, plus the rewind algorithm used on chain disconnection.
//
// The per-block commit discipline (accumulate a batch, commit once)
// mirrors the teacher's db.PostgresStore.SaveAnalysisResult, which
// opened one pgx transaction per persisted unit of work; here the unit
// of work is an entire block instead of a single heuristic result.
package flow

import (
	"context"
	"fmt"
	"log"

	"github.com/rawblock/ordinal-index/internal/coinbase"
	"github.com/rawblock/ordinal-index/internal/inscription"
	"github.com/rawblock/ordinal-index/internal/prune"
	"github.com/rawblock/ordinal-index/internal/rangeset"
	"github.com/rawblock/ordinal-index/internal/store"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// Engine applies and rewinds blocks against a Store under a fixed
// Mode. It is single-threaded with respect to state mutation (spec
// §5): callers must serialize ConnectBlock/DisconnectBlock calls.
type Engine struct {
	st           *store.Store
	mode         Mode
	pruneHorizon int32
}

// Config controls engine construction.
type Config struct {
	Mode         Mode
	PruneHorizon int32 // 0 means prune.DefaultHorizon
}

// New constructs an Engine, substituting prune.DefaultHorizon for a
// zero PruneHorizon. It does not validate the mode or the horizon; the
// returned error is always nil.
func New(st *store.Store, cfg Config) (*Engine, error) {
	horizon := cfg.PruneHorizon
	if horizon == 0 {
		horizon = prune.DefaultHorizon
	}
	return &Engine{st: st, mode: cfg.Mode, pruneHorizon: horizon}, nil
}

// Mode reports the engine's configured spent-retention policy.
func (e *Engine) Mode() Mode { return e.mode }

// ErrNoBestBlock is returned by BestBlock before the index has applied
// its first block.
var ErrNoBestBlock = store.ErrNotFound

// BestBlock returns the hash of the last block the engine applied,
// used by the chain-feed driver to resume from the right height on
// restart (spec §6's bestBlockOnStartup callback).
func (e *Engine) BestBlock(ctx context.Context) (string, error) {
	return e.st.BestBlock(ctx)
}

// workingSet is the in-memory overlay for entries created or modified
// earlier in the same block, consulted before the committed store so
// that a later transaction can spend an output produced by an earlier
// transaction in the same block, prior to the block's atomic commit.
type workingSet struct {
	entries map[ordinal.Outpoint]ordinal.Entry
	deleted map[ordinal.Outpoint]bool
}

func newWorkingSet() *workingSet {
	return &workingSet{
		entries: make(map[ordinal.Outpoint]ordinal.Entry),
		deleted: make(map[ordinal.Outpoint]bool),
	}
}

func (w *workingSet) put(o ordinal.Outpoint, e ordinal.Entry) {
	delete(w.deleted, o)
	w.entries[o] = e
}

func (w *workingSet) remove(o ordinal.Outpoint) {
	delete(w.entries, o)
	w.deleted[o] = true
}

func (e *Engine) lookup(ctx context.Context, ws *workingSet, o ordinal.Outpoint) (ordinal.Entry, bool, error) {
	if ws.deleted[o] {
		return ordinal.Entry{}, false, nil
	}
	if entry, ok := ws.entries[o]; ok {
		return entry, true, nil
	}
	entry, err := e.st.GetEntry(ctx, o.Txid, o.Vout)
	if err != nil {
		if err == store.ErrNotFound {
			return ordinal.Entry{}, false, nil
		}
		return ordinal.Entry{}, false, err
	}
	return entry, true, nil
}

// ConnectBlock applies a confirmed block (spec §4.D). Precondition:
// block.PrevHash equals the current best-block (or the store has no
// best-block yet and block.Height == 0, i.e. genesis).
func (e *Engine) ConnectBlock(ctx context.Context, block ordinal.Block) error {
	best, err := e.st.BestBlock(ctx)
	if err != nil && err != store.ErrNotFound {
		return fmt.Errorf("flow: read best-block: %w", err)
	}
	if err == store.ErrNotFound {
		if block.Height != 0 {
			return ErrNotBestBlock
		}
	} else if best != block.PrevHash {
		return ErrNotBestBlock
	}

	lastOrdinal, err := e.st.LastOrdinal(ctx)
	if err != nil {
		return fmt.Errorf("flow: read last_ordinal: %w", err)
	}

	batch := e.st.NewBatch()
	ws := newWorkingSet()

	var coinbaseTx *ordinal.Tx
	var blockFeePool ordinal.List
	var spentThisBlock []ordinal.Outpoint

	for i := range block.Txs {
		tx := &block.Txs[i]
		if tx.IsCoinbase {
			coinbaseTx = tx
			continue
		}

		pool, spent, err := e.gatherInputs(ctx, ws, batch, block.Height, tx)
		if err != nil {
			return err
		}
		spentThisBlock = append(spentThisBlock, spent...)

		pool, err = e.assignOutputs(ws, batch, tx, block.Height, pool)
		if err != nil {
			return err
		}

		blockFeePool = rangeset.Concat(blockFeePool, pool)
	}

	if coinbaseTx == nil {
		return fmt.Errorf("flow: block %d has no coinbase transaction", block.Height)
	}

	mint := coinbase.MintRange(block.Height, lastOrdinal)
	coinbasePool := rangeset.Concat(ordinal.List{mint}, blockFeePool)

	expectedValue := mint.Size() + rangeset.Size(blockFeePool)
	var coinbaseOutValue uint64
	for _, o := range coinbaseTx.Outputs {
		coinbaseOutValue += o.ValueSats
	}
	if coinbaseOutValue != expectedValue {
		return ErrSupplyMismatch
	}

	if _, err := e.assignOutputs(ws, batch, coinbaseTx, block.Height, coinbasePool); err != nil {
		return err
	}

	newLastOrdinal := lastOrdinal + ordinal.Number(mint.Size())

	if e.mode == ModePrune && len(spentThisBlock) > 0 {
		existing, err := e.st.PendingPrune(ctx, block.Height)
		if err != nil {
			return fmt.Errorf("flow: read pending-prune record: %w", err)
		}
		batch.SetPendingPrune(block.Height, prune.Enqueue(existing, spentThisBlock))
	}
	if e.mode == ModePrune {
		if err := prune.Sweep(ctx, e.st, batch, block.Height, e.pruneHorizon); err != nil {
			return fmt.Errorf("flow: prune sweep: %w", err)
		}
	}

	batch.SetLastOrdinal(newLastOrdinal)
	batch.SetBestBlock(block.Hash)

	if err := e.st.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("flow: commit block %d: %w", block.Height, err)
	}
	log.Printf("[flow] connected block %d (%s): %d txs, last_ordinal=%d, batch=%s",
		block.Height, block.Hash, len(block.Txs), newLastOrdinal, batch.ID)
	return nil
}

// gatherInputs implements spec §4.D step 1: build the per-tx input
// pool and stage the consumption of each input's OutputEntry according
// to the engine's mode.
func (e *Engine) gatherInputs(ctx context.Context, ws *workingSet, batch *store.Batch, height int32, tx *ordinal.Tx) (ordinal.List, []ordinal.Outpoint, error) {
	var pool ordinal.List
	var spent []ordinal.Outpoint

	for _, in := range tx.Inputs {
		o := ordinal.Outpoint{Txid: in.PrevTxid, Vout: in.PrevVout}
		entry, ok, err := e.lookup(ctx, ws, o)
		if err != nil {
			return nil, nil, fmt.Errorf("flow: lookup prevout %s: %w", o, err)
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingPrevOut, o)
		}

		pool = rangeset.Concat(pool, entry.Ranges)

		switch e.mode {
		case ModeFull:
			// Hard-delete on consumption; an undo record preserves the
			// pre-spend entry for DisconnectBlock, and is itself erased
			// once that block is disconnected (spec §4.E/§9).
			ws.remove(o)
			batch.DeleteEntry(o.Txid, o.Vout)
			batch.PutUndoRecord(height, o.Txid, o.Vout, entry)
			spent = append(spent, o)
		case ModeRewriteSpent, ModePrune:
			entry.Spent = true
			ws.put(o, entry)
			batch.PutEntry(o.Txid, o.Vout, entry)
			spent = append(spent, o)
		}
	}
	return pool, spent, nil
}

// assignOutputs implements spec §4.D step 2: FIFO-skim the pool across
// a transaction's outputs in order, writing each resulting OutputEntry.
func (e *Engine) assignOutputs(ws *workingSet, batch *store.Batch, tx *ordinal.Tx, height int32, pool ordinal.List) (ordinal.List, error) {
	for k, out := range tx.Outputs {
		taken, remainder, err := rangeset.Skim(pool, out.ValueSats)
		if err != nil {
			return nil, fmt.Errorf("flow: skim tx %x output %d: %w", tx.Txid, k, err)
		}
		pool = remainder

		o := ordinal.Outpoint{Txid: tx.Txid, Vout: uint32(k)}
		entry := ordinal.Entry{
			Ranges:      taken,
			BlockHeight: height,
			Spent:       false,
			Inscription: inscription.Scan(out.Script),
		}
		ws.put(o, entry)
		batch.PutEntry(o.Txid, o.Vout, entry)
	}
	return pool, nil
}

// DisconnectBlock rewinds a previously-connected block (spec §4.E),
// restoring every consumed input to its pre-spend state and removing
// every output the block produced.
func (e *Engine) DisconnectBlock(ctx context.Context, block ordinal.Block) error {
	best, err := e.st.BestBlock(ctx)
	if err != nil {
		return fmt.Errorf("flow: read best-block: %w", err)
	}
	if best != block.Hash {
		return fmt.Errorf("flow: block %s is not the current best-block (have %s)", block.Hash, best)
	}

	lastOrdinal, err := e.st.LastOrdinal(ctx)
	if err != nil {
		return fmt.Errorf("flow: read last_ordinal: %w", err)
	}

	batch := e.st.NewBatch()

	for i := len(block.Txs) - 1; i >= 0; i-- {
		tx := &block.Txs[i]

		for k := range tx.Outputs {
			batch.DeleteEntry(tx.Txid, uint32(k))
		}

		if tx.IsCoinbase {
			continue
		}

		for _, in := range tx.Inputs {
			o := ordinal.Outpoint{Txid: in.PrevTxid, Vout: in.PrevVout}
			if err := e.restoreInput(ctx, batch, block.Height, o); err != nil {
				return err
			}
		}
	}

	subsidy := coinbase.Subsidy(block.Height)
	batch.SetLastOrdinal(lastOrdinal - ordinal.Number(subsidy))
	batch.DeletePendingPrune(block.Height)
	batch.SetBestBlock(block.PrevHash)

	if err := e.st.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("flow: disconnect block %d: %w", block.Height, err)
	}
	log.Printf("[flow] disconnected block %d (%s)", block.Height, block.Hash)
	return nil
}

// restoreInput re-materializes the pre-spend OutputEntry for an
// outpoint consumed by the block being disconnected.
func (e *Engine) restoreInput(ctx context.Context, batch *store.Batch, height int32, o ordinal.Outpoint) error {
	switch e.mode {
	case ModeFull:
		undo, err := e.st.UndoRecord(ctx, height, o.Txid, o.Vout)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("%w: %s at height %d", ErrNoUndoData, o, height)
			}
			return err
		}
		batch.PutEntry(o.Txid, o.Vout, undo)
		batch.DeleteUndoRecord(height, o.Txid, o.Vout)
	case ModeRewriteSpent, ModePrune:
		entry, err := e.st.GetEntry(ctx, o.Txid, o.Vout)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("%w: %s at height %d (likely past the prune horizon)", ErrNoUndoData, o, height)
			}
			return err
		}
		entry.Spent = false
		batch.PutEntry(o.Txid, o.Vout, entry)
	}
	return nil
}
