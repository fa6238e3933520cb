// Package store implements the ordinal index's storage layer
// (spec §4.B): point get/put/delete, an ordered full scan of the
// per-output subspace, and atomic batch commit, over a single
// bytea-keyed, bytea-valued Postgres table accessed through pgx —
// adapted from the teacher's internal/db.PostgresStore, which held
// the same kind of per-row, per-batch relationship to Postgres for
// the CoinJoin forensics schema.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// ErrNotFound is returned by point lookups that miss.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS ordinal_entries (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
);
`

// Store is the ordered key-value layer backing the ordinal index.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and ensures the backing table
// exists.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("store: schema init failed: %w", err)
	}
	log.Println("[store] connected to Postgres-backed ordinal index")
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM ordinal_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// GetEntry fetches and decodes the OutputEntry at the given outpoint.
func (s *Store) GetEntry(ctx context.Context, txid [32]byte, vout uint32) (ordinal.Entry, error) {
	buf, err := s.get(ctx, outputKey(txid, vout))
	if err != nil {
		return ordinal.Entry{}, err
	}
	return decodeEntry(buf)
}

// LastOrdinal returns the global last_ordinal scalar (spec §3), 0 if
// the index has not processed any block yet.
func (s *Store) LastOrdinal(ctx context.Context) (ordinal.Number, error) {
	buf, err := s.get(ctx, lastOrdinalKey())
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := decodeUint64(buf)
	return ordinal.Number(v), err
}

// BestBlock returns the best-indexed block hash, or ("", ErrNotFound)
// before the first block has been applied.
func (s *Store) BestBlock(ctx context.Context) (string, error) {
	buf, err := s.get(ctx, bestBlockKey())
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// PendingPrune returns the outpoints spent at the given height and
// enqueued for later physical deletion (prune-mode only).
func (s *Store) PendingPrune(ctx context.Context, height int32) ([]ordinal.Outpoint, error) {
	buf, err := s.get(ctx, pendingPruneKey(height))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOutpoints(buf)
}

// UndoRecord returns the pre-spend OutputEntry shadow-saved for an
// input consumed at the given height (spec §4.E's undo mechanism).
func (s *Store) UndoRecord(ctx context.Context, height int32, txid [32]byte, vout uint32) (ordinal.Entry, error) {
	buf, err := s.get(ctx, undoKey(height, txid, vout))
	if err != nil {
		return ordinal.Entry{}, err
	}
	return decodeEntry(buf)
}

// OutputRow is one row of a full scan over the "O" subspace.
type OutputRow struct {
	Txid  [32]byte
	Vout  uint32
	Entry ordinal.Entry
}

// ScanOutputs performs the ordered full scan of the output subspace
// used by the query layer's outputsContaining/currentLocationOf
// (spec §4.F). It is cancellable at chunk granularity: cancel is
// checked between rows so a client disconnect does not pin the cursor
// through a 100+ GB scan (spec §5).
func (s *Store) ScanOutputs(ctx context.Context, cancel <-chan struct{}, visit func(OutputRow) (keepGoing bool, err error)) error {
	prefix := outputScanPrefix()
	// Bound the scan to keys sharing the "O" tag prefix by ranging up
	// to (but excluding) the next tag byte. A fixed-width suffix would
	// under-bound: a 37-byte output key whose leading txid bytes are
	// all 0xff compares greater than any fixed-length 0xff suffix under
	// BYTEA lexicographic order, since a strict byte-string prefix
	// always sorts before a longer string it prefixes.
	upper := []byte{prefix[0] + 1}
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM ordinal_entries WHERE key >= $1 AND key < $2 ORDER BY key`, prefix, upper)
	if err != nil {
		return fmt.Errorf("store: scan query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		select {
		case <-cancel:
			return context.Canceled
		default:
		}

		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("store: scan row decode failed: %w", err)
		}
		if len(key) != 37 {
			continue
		}
		var row OutputRow
		copy(row.Txid[:], key[1:33])
		row.Vout = beUint32(key[33:37])
		entry, err := decodeEntry(value)
		if err != nil {
			return fmt.Errorf("store: scan entry decode failed: %w", err)
		}
		row.Entry = entry

		keepGoing, err := visit(row)
		if err != nil {
			return err
		}
		if !keepGoing {
			break
		}
	}
	return rows.Err()
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Batch accumulates a mixed set of puts/deletes for one block's worth
// of work (spec §4.D/§4.B), committed atomically via CommitBatch so a
// crash leaves the index either fully before or fully after the block.
type Batch struct {
	ID      uuid.UUID
	puts    map[string][]byte
	deletes map[string]bool
}

// NewBatch starts an empty batch, tagged with a correlation ID that
// shows up in the flow engine's commit log line and in store commit
// errors, so a given block's write can be traced across them.
func (s *Store) NewBatch() *Batch {
	return &Batch{
		ID:      uuid.New(),
		puts:    make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

func (b *Batch) put(key, value []byte) {
	k := string(key)
	delete(b.deletes, k)
	b.puts[k] = value
}

func (b *Batch) delete(key []byte) {
	k := string(key)
	delete(b.puts, k)
	b.deletes[k] = true
}

// PutEntry stages an OutputEntry write.
func (b *Batch) PutEntry(txid [32]byte, vout uint32, e ordinal.Entry) {
	b.put(outputKey(txid, vout), encodeEntry(e))
}

// DeleteEntry stages an OutputEntry removal.
func (b *Batch) DeleteEntry(txid [32]byte, vout uint32) {
	b.delete(outputKey(txid, vout))
}

// PutUndoRecord stages a shadow pre-spend record for reorg support.
func (b *Batch) PutUndoRecord(height int32, txid [32]byte, vout uint32, e ordinal.Entry) {
	b.put(undoKey(height, txid, vout), encodeEntry(e))
}

// DeleteUndoRecord removes the shadow record when the block that
// created it is being disconnected. Undo records are not removed as
// blocks age past the reorg horizon.
func (b *Batch) DeleteUndoRecord(height int32, txid [32]byte, vout uint32) {
	b.delete(undoKey(height, txid, vout))
}

// SetLastOrdinal stages an update to the global scalar.
func (b *Batch) SetLastOrdinal(v ordinal.Number) {
	b.put(lastOrdinalKey(), encodeUint64(uint64(v)))
}

// SetBestBlock stages an update to the best-indexed block hash.
func (b *Batch) SetBestBlock(hash string) {
	b.put(bestBlockKey(), []byte(hash))
}

// SetPendingPrune stages the pending-prune record for a height.
func (b *Batch) SetPendingPrune(height int32, outpoints []ordinal.Outpoint) {
	if len(outpoints) == 0 {
		b.delete(pendingPruneKey(height))
		return
	}
	b.put(pendingPruneKey(height), encodeOutpoints(outpoints))
}

// DeletePendingPrune removes a height's pending-prune record.
func (b *Batch) DeletePendingPrune(height int32) {
	b.delete(pendingPruneKey(height))
}

// CommitBatch applies every staged put/delete as a single Postgres
// transaction.
func (s *Store) CommitBatch(ctx context.Context, b *Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin batch %s: %w", b.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for k, v := range b.puts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ordinal_entries (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			[]byte(k), v); err != nil {
			return fmt.Errorf("store: batch %s put failed: %w", b.ID, err)
		}
	}
	for k := range b.deletes {
		if _, err := tx.Exec(ctx, `DELETE FROM ordinal_entries WHERE key = $1`, []byte(k)); err != nil {
			return fmt.Errorf("store: batch %s delete failed: %w", b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: batch %s commit failed: %w", b.ID, err)
	}
	return nil
}
