// Package rangeset implements the range algebra used throughout the
// ordinal flow engine: computing total size, skimming a prefix of
// ordinals off a RangeList (the FIFO assignment primitive), and the
// optional adjacency-merge pass used only when normalizing a RangeList
// for byte-identical serialization.
//
// This mirrors the way the teacher's UTXO-set view (bchd's
// utxoviewpoint.go, qhenkart-questcoin's blockchain/utxo.go) treats an
// accumulated set of values as a single ordered container with
// spend/append operations, specialized here to half-open ordinal
// intervals instead of coin values.
package rangeset

import (
	"errors"

	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// ErrInsufficientSupply is returned by Skim when the list holds fewer
// ordinals than requested. On valid mainnet data this never occurs
// (see spec §7); it signals engine/DB corruption when it does.
var ErrInsufficientSupply = errors.New("rangeset: insufficient supply")

// Size returns the sum of end-start over every range in the list.
func Size(list ordinal.List) uint64 {
	var total uint64
	for _, r := range list {
		total += r.Size()
	}
	return total
}

// Skim removes the first n ordinals from list, in order, returning the
// taken prefix and the remaining suffix. Both outputs preserve the
// non-overlap invariant of the input.
func Skim(list ordinal.List, n uint64) (taken ordinal.List, remainder ordinal.List, err error) {
	if Size(list) < n {
		return nil, nil, ErrInsufficientSupply
	}
	if n == 0 {
		return ordinal.List{}, list, nil
	}

	remaining := n
	i := 0
	for ; i < len(list); i++ {
		r := list[i]
		sz := r.Size()
		if sz > remaining {
			break
		}
		taken = append(taken, r)
		remaining -= sz
		if remaining == 0 {
			i++
			break
		}
	}

	if remaining > 0 && i < len(list) {
		r := list[i]
		split := r.Start + ordinal.Number(remaining)
		taken = append(taken, ordinal.Range{Start: r.Start, End: split})
		remainder = append(remainder, ordinal.Range{Start: split, End: r.End})
		i++
	}

	remainder = append(remainder, list[i:]...)
	return taken, remainder, nil
}

// Contains reports whether ordinal n is held by any range in list,
// using binary search. The search assumes list is sorted by Start; on
// a FIFO-ordered list that is not ascending (such as a coinbase's) it
// can report false for an ordinal the list holds.
func Contains(list ordinal.List, n ordinal.Number) bool {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := (lo + hi) / 2
		r := list[mid]
		switch {
		case n < r.Start:
			hi = mid
		case n >= r.End:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Merge coalesces adjacent ranges (r[i].End == r[i+1].Start) into a
// single range. It is never applied implicitly by Skim; callers that
// want a canonical, merge-normalized serialization (for the
// byte-identical round-trip property under connect/disconnect) invoke
// it explicitly.
func Merge(list ordinal.List) ordinal.List {
	if len(list) == 0 {
		return list
	}
	out := make(ordinal.List, 0, len(list))
	cur := list[0]
	for _, r := range list[1:] {
		if cur.End == r.Start {
			cur.End = r.End
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// Concat appends b after a, preserving order. Used to build the
// per-transaction input pool (§4.D.1) and the per-block fee pool.
func Concat(a, b ordinal.List) ordinal.List {
	out := make(ordinal.List, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
