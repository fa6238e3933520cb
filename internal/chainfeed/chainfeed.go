// Package chainfeed drives the flow engine from a live Bitcoin Core
// node (spec §6's node-pipeline callbacks): it follows the tip,
// catches up from the index's persisted best-block on startup, and
// detects reorgs by walking back until the node's block-at-height
// agrees with the index's best-block hash. The polling-loop structure
// (ticker-driven, context-cancellable) is adapted from the teacher's
// mempool.Poller.Run; the historical catch-up walk is adapted from
// its BlockScanner.ScanRange.
package chainfeed

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rawblock/ordinal-index/internal/bitcoin"
	"github.com/rawblock/ordinal-index/internal/eventhub"
	"github.com/rawblock/ordinal-index/internal/flow"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// notYetApplied marks a Driver that has not yet resolved its starting
// height against the engine's persisted best-block.
const notYetApplied = -1

// pollInterval matches the teacher's mempool poller cadence; there is
// no mempool here, only confirmed blocks, but the same "don't hammer
// the node" rationale applies.
const pollInterval = 5 * time.Second

// Driver connects a bitcoin.Client to a flow.Engine, feeding it
// connect/disconnect calls as the node's chain advances or reorgs.
type Driver struct {
	client *bitcoin.Client
	engine *flow.Engine
	hub    *eventhub.Hub

	tipHeight atomic.Int64
	running   atomic.Bool
}

func New(client *bitcoin.Client, engine *flow.Engine, hub *eventhub.Hub) *Driver {
	d := &Driver{client: client, engine: engine, hub: hub}
	d.tipHeight.Store(notYetApplied)
	return d
}

// Run catches up to the node's tip and then polls for new blocks until
// ctx is cancelled. It is the engine's single mutator goroutine (spec
// §5): ConnectBlock/DisconnectBlock are never called concurrently from
// anywhere else.
func (d *Driver) Run(ctx context.Context) {
	if d.client == nil {
		log.Println("[chainfeed] bitcoin client is nil; driver will not start")
		return
	}
	d.running.Store(true)
	defer d.running.Store(false)

	if err := d.resolveStartHeight(ctx); err != nil {
		log.Printf("[chainfeed] failed to resolve starting height: %v", err)
		return
	}

	if err := d.catchUp(ctx); err != nil {
		log.Printf("[chainfeed] initial catch-up failed: %v", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[chainfeed] stopping driver")
			return
		case <-ticker.C:
			if err := d.catchUp(ctx); err != nil {
				log.Printf("[chainfeed] catch-up failed: %v", err)
			}
		}
	}
}

// TipHeight reports the last height the driver successfully applied.
func (d *Driver) TipHeight() int64 { return d.tipHeight.Load() }

// resolveStartHeight implements spec §6's bestBlockOnStartup callback:
// ask the engine for its persisted best-block and, if one exists, find
// its height on the node so catch-up resumes from the right place.
func (d *Driver) resolveStartHeight(ctx context.Context) error {
	hash, err := d.engine.BestBlock(ctx)
	if err == flow.ErrNoBestBlock {
		return nil // nothing applied yet; catchUp starts at genesis
	}
	if err != nil {
		return fmt.Errorf("chainfeed: read engine best-block: %w", err)
	}

	h, err := chainhash.NewHashFromStr(hash)
	if err != nil {
		return fmt.Errorf("chainfeed: parse persisted best-block hash %q: %w", hash, err)
	}
	raw, err := d.client.GetBlockVerboseTx(h)
	if err != nil {
		return fmt.Errorf("chainfeed: look up height of persisted best-block %s: %w", hash, err)
	}
	d.tipHeight.Store(int64(raw.Height))
	return nil
}

// catchUp advances the index from its current best-block to the
// node's tip, detecting and unwinding reorgs along the way.
func (d *Driver) catchUp(ctx context.Context) error {
	info, err := d.client.GetBlockChainInfo()
	if err != nil {
		return fmt.Errorf("chainfeed: get chain info: %w", err)
	}
	nodeTip := int64(info.Blocks)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		reorged, err := d.resolveReorg(ctx)
		if err != nil {
			return err
		}
		if reorged {
			continue
		}

		nextHeight := d.tipHeight.Load() + 1
		if nextHeight > nodeTip {
			return nil
		}

		hash, err := d.client.GetBlockHash(nextHeight)
		if err != nil {
			return fmt.Errorf("chainfeed: get block hash at %d: %w", nextHeight, err)
		}
		block, err := d.fetchBlock(hash, int32(nextHeight))
		if err != nil {
			return err
		}

		if err := d.engine.ConnectBlock(ctx, block); err != nil {
			return fmt.Errorf("chainfeed: connect block %d: %w", nextHeight, err)
		}
		d.tipHeight.Store(nextHeight)
		d.hub.BroadcastConnected(block.Height, block.Hash)
	}
}

// resolveReorg checks whether the node's block at the index's current
// height still matches what was indexed; if not, it disconnects blocks
// one at a time until agreement is found (or the pending-prune horizon
// is exceeded, in which case the engine itself returns ErrNoUndoData
// and a reindex is required).
func (d *Driver) resolveReorg(ctx context.Context) (bool, error) {
	height := d.tipHeight.Load()
	if height < 0 {
		return false, nil
	}

	nodeHash, err := d.client.GetBlockHash(height)
	if err != nil {
		return false, fmt.Errorf("chainfeed: get block hash at %d: %w", height, err)
	}

	indexedBlock, err := d.lastAppliedBlock(ctx, height)
	if err != nil {
		return false, err
	}
	if indexedBlock.Hash == nodeHash.String() {
		return false, nil
	}

	log.Printf("[chainfeed] reorg detected at height %d: indexed %s, node has %s", height, indexedBlock.Hash, nodeHash)
	if err := d.engine.DisconnectBlock(ctx, indexedBlock); err != nil {
		return false, fmt.Errorf("chainfeed: disconnect block %d during reorg: %w", height, err)
	}
	d.tipHeight.Store(height - 1)
	d.hub.BroadcastReorg(height, indexedBlock.Hash)
	return true, nil
}

// lastAppliedBlock refetches the block the driver believes is at
// height (the engine's persisted best-block), the only information
// needed by DisconnectBlock (its own hash, its parent's hash, and its
// transaction set for input rewind).
func (d *Driver) lastAppliedBlock(ctx context.Context, height int64) (ordinal.Block, error) {
	indexed, err := d.engine.BestBlock(ctx)
	if err != nil {
		return ordinal.Block{}, fmt.Errorf("chainfeed: read indexed best-block at %d: %w", height, err)
	}
	hash, err := chainhash.NewHashFromStr(indexed)
	if err != nil {
		return ordinal.Block{}, fmt.Errorf("chainfeed: parse indexed best-block hash %q: %w", indexed, err)
	}
	return d.fetchBlock(hash, int32(height))
}

// fetchBlock retrieves a full block and converts it to the engine's
// minimal shape.
func (d *Driver) fetchBlock(hash *chainhash.Hash, height int32) (ordinal.Block, error) {
	raw, err := d.client.GetBlockVerboseTx(hash)
	if err != nil {
		return ordinal.Block{}, fmt.Errorf("chainfeed: get block %s: %w", hash, err)
	}
	return convertBlock(raw, height)
}

func convertBlock(raw *btcjson.GetBlockVerboseTxResult, height int32) (ordinal.Block, error) {
	block := ordinal.Block{
		Hash:     raw.Hash,
		PrevHash: raw.PreviousHash,
		Height:   height,
		Txs:      make([]ordinal.Tx, 0, len(raw.Tx)),
	}

	for i, rawTx := range raw.Tx {
		tx, err := convertTx(rawTx, i == 0)
		if err != nil {
			return ordinal.Block{}, fmt.Errorf("chainfeed: convert tx %s: %w", rawTx.Txid, err)
		}
		block.Txs = append(block.Txs, tx)
	}
	return block, nil
}

func convertTx(raw btcjson.TxRawResult, isCoinbase bool) (ordinal.Tx, error) {
	txHash, err := chainhash.NewHashFromStr(raw.Txid)
	if err != nil {
		return ordinal.Tx{}, err
	}

	tx := ordinal.Tx{IsCoinbase: isCoinbase}
	copy(tx.Txid[:], reverseBytes(txHash[:]))

	if !isCoinbase {
		tx.Inputs = make([]ordinal.TxInput, 0, len(raw.Vin))
		for _, vin := range raw.Vin {
			prevHash, err := chainhash.NewHashFromStr(vin.Txid)
			if err != nil {
				return ordinal.Tx{}, err
			}
			var in ordinal.TxInput
			copy(in.PrevTxid[:], reverseBytes(prevHash[:]))
			in.PrevVout = vin.Vout
			tx.Inputs = append(tx.Inputs, in)
		}
	}

	tx.Outputs = make([]ordinal.TxOutput, len(raw.Vout))
	for i, vout := range raw.Vout {
		sats, err := btcToSats(vout.Value)
		if err != nil {
			return ordinal.Tx{}, err
		}
		script, err := decodeHex(vout.ScriptPubKey.Hex)
		if err != nil {
			return ordinal.Tx{}, err
		}
		tx.Outputs[i] = ordinal.TxOutput{ValueSats: sats, Script: script}
	}
	return tx, nil
}

// reverseBytes returns a reversed copy, converting chainhash's
// internal little-endian byte order to the index's display/storage
// order (matching ordinal.Outpoint.TxidHex's inverse).
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
