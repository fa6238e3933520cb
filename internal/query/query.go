// Package query implements the three read operations of spec §4.F
// against a *store.Store: rangesOf, outputsContaining, and
// currentLocationOf. It owns their error contracts (spec §7) but not
// their RPC transport, which lives in internal/api.
package query

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/rawblock/ordinal-index/internal/flow"
	"github.com/rawblock/ordinal-index/internal/store"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// Errors returned to callers, mapped onto the JSON-RPC codes described
// in spec §6 by internal/api (bad argument -8, disabled/mode -32601,
// not-found/internal -5).
var (
	ErrBadTxid          = errors.New("query: malformed txid")
	ErrBadVout          = errors.New("query: malformed vout")
	ErrIndexDisabled    = errors.New("query: index is disabled")
	ErrModeRequired     = errors.New("query: rewrite-spent mode required for this operation")
	ErrNotFound         = errors.New("query: not found")
	ErrInternalScanError = errors.New("query: internal scan error")
)

// Engine is the read-side counterpart to flow.Engine: it knows the
// store and the active mode (needed to reject currentLocationOf when
// the index cannot answer it) but performs no mutation.
type Engine struct {
	st      *store.Store
	mode    flow.Mode
	enabled bool
}

func New(st *store.Store, mode flow.Mode, enabled bool) *Engine {
	return &Engine{st: st, mode: mode, enabled: enabled}
}

// RangesOfResult is the rangesOf response shape (spec §4.F).
type RangesOfResult struct {
	Ranges      ordinal.List `json:"ranges"`
	BlockHeight int32        `json:"blockHeight"`
	Spent       bool         `json:"spent"`
	Inscription bool         `json:"inscription"`
}

// RangesOf answers "what ordinals does this output currently hold (or
// hold when it was spent)".
func (e *Engine) RangesOf(ctx context.Context, txid [32]byte, vout int64) (RangesOfResult, error) {
	if !e.enabled {
		return RangesOfResult{}, ErrIndexDisabled
	}
	if vout < 0 || vout > math.MaxUint32 {
		return RangesOfResult{}, ErrBadVout
	}

	entry, err := e.st.GetEntry(ctx, txid, uint32(vout))
	if err != nil {
		if err == store.ErrNotFound {
			return RangesOfResult{}, ErrNotFound
		}
		return RangesOfResult{}, errScan(err)
	}

	return RangesOfResult{
		Ranges:      entry.Ranges,
		BlockHeight: entry.BlockHeight,
		Spent:       entry.Spent,
		Inscription: entry.Inscription,
	}, nil
}

// OutputsContaining answers "every output that has ever held ordinal n",
// via a full ordered scan of the output subspace (spec §4.F — the
// index deliberately carries no secondary ordinal→output index).
func (e *Engine) OutputsContaining(ctx context.Context, cancel <-chan struct{}, n ordinal.Number) ([]ordinal.Outpoint, error) {
	if !e.enabled {
		return nil, ErrIndexDisabled
	}

	var hits []ordinal.Outpoint
	err := e.st.ScanOutputs(ctx, cancel, func(row store.OutputRow) (bool, error) {
		for _, r := range row.Entry.Ranges {
			if r.Contains(n) {
				hits = append(hits, ordinal.Outpoint{Txid: row.Txid, Vout: row.Vout})
				break
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, errScan(err)
	}
	return hits, nil
}

// CurrentLocationOf answers "which single unspent output holds ordinal
// n right now". It requires rewrite-spent mode: without a reliable
// spent flag there is no way to tell a live entry from a historical one.
func (e *Engine) CurrentLocationOf(ctx context.Context, cancel <-chan struct{}, n ordinal.Number) (ordinal.Outpoint, error) {
	if !e.enabled {
		return ordinal.Outpoint{}, ErrIndexDisabled
	}
	if e.mode != flow.ModeRewriteSpent {
		return ordinal.Outpoint{}, ErrModeRequired
	}

	var candidates []store.OutputRow
	err := e.st.ScanOutputs(ctx, cancel, func(row store.OutputRow) (bool, error) {
		if row.Entry.Spent {
			return true, nil
		}
		for _, r := range row.Entry.Ranges {
			if r.Contains(n) {
				candidates = append(candidates, row)
				break
			}
		}
		return true, nil
	})
	if err != nil {
		return ordinal.Outpoint{}, errScan(err)
	}
	if len(candidates) == 0 {
		return ordinal.Outpoint{}, ErrNotFound
	}

	// Greatest block_height wins; ties broken lexicographically by
	// (txid, vout) — spec §4.F, covering spend-then-resend patterns
	// observed during a reorg window.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Entry.BlockHeight != b.Entry.BlockHeight {
			return a.Entry.BlockHeight > b.Entry.BlockHeight
		}
		oa := ordinal.Outpoint{Txid: a.Txid, Vout: a.Vout}
		ob := ordinal.Outpoint{Txid: b.Txid, Vout: b.Vout}
		return oa.String() < ob.String()
	})

	winner := candidates[0]
	return ordinal.Outpoint{Txid: winner.Txid, Vout: winner.Vout}, nil
}

func errScan(err error) error {
	if err == context.Canceled {
		return err
	}
	return errors.Join(ErrInternalScanError, err)
}
