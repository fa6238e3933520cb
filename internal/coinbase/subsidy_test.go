package coinbase

import (
	"testing"

	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

func TestSubsidy(t *testing.T) {
	tests := []struct {
		name   string
		height int32
		want   uint64
	}{
		{"genesis", 0, 50 * 1e8},
		{"just before first halving", 209_999, 50 * 1e8},
		{"first halving", 210_000, 25 * 1e8},
		{"second halving", 420_000, 1_250_000_000}, // 12.5 BTC
		{"far future, fully halved out", 210_000 * 65, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subsidy(tt.height); got != tt.want {
				t.Errorf("Subsidy(%d) = %v, want %v", tt.height, got, tt.want)
			}
		})
	}
}

func TestMintRange(t *testing.T) {
	got := MintRange(0, 0)
	want := ordinal.Range{Start: 0, End: 5_000_000_000}
	if got != want {
		t.Errorf("MintRange(0, 0) = %v, want %v", got, want)
	}

	got = MintRange(1, 5_000_000_000)
	want = ordinal.Range{Start: 5_000_000_000, End: 10_000_000_000}
	if got != want {
		t.Errorf("MintRange(1, 5e9) = %v, want %v", got, want)
	}
}
