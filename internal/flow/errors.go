package flow

import "errors"

// Per-block errors (spec §7). All are fail-stop for the index only:
// the caller aborts the batch, logs, and marks the index unhealthy.
// The operator remedy is a reindex.
var (
	// ErrMissingPrevOut is returned when an input references an
	// outpoint with no OutputEntry on record — implies corruption or a
	// mis-sequenced connect.
	ErrMissingPrevOut = errors.New("flow: missing prevout")

	// ErrSupplyMismatch is returned when a coinbase's output value does
	// not equal subsidy(h) + fees. This should never reach the engine
	// on consensus-valid data.
	ErrSupplyMismatch = errors.New("flow: coinbase supply mismatch")

	// ErrNoUndoData is returned on disconnect when a consumed input's
	// pre-spend state cannot be recovered: in full mode, no shadow undo
	// record exists; in rewrite-spent and prune modes, the spent-marked
	// entry is gone (e.g. pruned past the horizon).
	ErrNoUndoData = errors.New("flow: no undo data for disconnect")

	// ErrBothModesEnabled is a startup error: prune-mode and
	// rewrite-spent-mode are mutually exclusive (spec §6).
	ErrBothModesEnabled = errors.New("flow: prune-mode and rewrite-spent-mode are mutually exclusive")

	// ErrNotBestBlock is returned when ConnectBlock's precondition (the
	// previous block is the current best-block) does not hold.
	ErrNotBestBlock = errors.New("flow: block does not extend the current best-block")
)
