package rangeset

import (
	"testing"

	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

func r(start, end uint64) ordinal.Range {
	return ordinal.Range{Start: ordinal.Number(start), End: ordinal.Number(end)}
}

func TestSize(t *testing.T) {
	tests := []struct {
		name string
		list ordinal.List
		want uint64
	}{
		{"empty", ordinal.List{}, 0},
		{"single", ordinal.List{r(0, 100)}, 100},
		{"multiple", ordinal.List{r(0, 100), r(200, 250)}, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Size(tt.list); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSkim_FIFOAcrossTwoInputs(t *testing.T) {
	// Scenario 3 from spec §8: two UTXOs holding [0,100) and [100,200)
	// spent in one tx with outputs of sizes 150 and 50.
	pool := ordinal.List{r(0, 100), r(100, 200)}

	out0, pool, err := Skim(pool, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want0 := ordinal.List{r(0, 100), r(100, 150)}
	if !listsEqual(out0, want0) {
		t.Errorf("output 0 = %v, want %v", out0, want0)
	}

	out1, pool, err := Skim(pool, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want1 := ordinal.List{r(150, 200)}
	if !listsEqual(out1, want1) {
		t.Errorf("output 1 = %v, want %v", out1, want1)
	}
	if len(pool) != 0 {
		t.Errorf("expected pool fully drained, got %v", pool)
	}
}

func TestSkim_ExactRangeBoundary(t *testing.T) {
	pool := ordinal.List{r(0, 50), r(50, 100)}
	taken, remainder, err := Skim(pool, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !listsEqual(taken, ordinal.List{r(0, 50)}) {
		t.Errorf("taken = %v", taken)
	}
	if !listsEqual(remainder, ordinal.List{r(50, 100)}) {
		t.Errorf("remainder = %v", remainder)
	}
}

func TestSkim_ZeroValueOutput(t *testing.T) {
	pool := ordinal.List{r(0, 100)}
	taken, remainder, err := Skim(pool, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(taken) != 0 {
		t.Errorf("expected empty taken for zero-value output, got %v", taken)
	}
	if !listsEqual(remainder, pool) {
		t.Errorf("remainder should equal input pool unchanged, got %v", remainder)
	}
}

func TestSkim_InsufficientSupply(t *testing.T) {
	pool := ordinal.List{r(0, 10)}
	_, _, err := Skim(pool, 11)
	if err != ErrInsufficientSupply {
		t.Fatalf("expected ErrInsufficientSupply, got %v", err)
	}
}

func TestContains(t *testing.T) {
	list := ordinal.List{r(0, 100), r(500, 600)}
	tests := []struct {
		n    ordinal.Number
		want bool
	}{
		{0, true},
		{99, true},
		{100, false},
		{550, true},
		{600, false},
		{1000, false},
	}
	for _, tt := range tests {
		if got := Contains(list, tt.n); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   ordinal.List
		want ordinal.List
	}{
		{"adjacent", ordinal.List{r(0, 100), r(100, 200)}, ordinal.List{r(0, 200)}},
		{"non-adjacent", ordinal.List{r(0, 100), r(200, 300)}, ordinal.List{r(0, 100), r(200, 300)}},
		{"empty", ordinal.List{}, ordinal.List{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			if !listsEqual(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func listsEqual(a, b ordinal.List) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
