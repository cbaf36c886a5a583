package units

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/types"
)

func TestFromSmallestString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int32
		want     string
	}{
		{name: "one ether in wei", raw: "1000000000000000000", decimals: 18, want: "1"},
		{name: "half ether in wei", raw: "500000000000000000", decimals: 18, want: "0.5"},
		{name: "one satoshi", raw: "1", decimals: 8, want: "0.00000001"},
		{name: "usdt six decimals", raw: "1234567", decimals: 6, want: "1.234567"},
		{name: "zero", raw: "0", decimals: 18, want: "0"},
		{name: "value exceeding int64", raw: "123456789012345678901234567890", decimals: 18, want: "123456789012.34567890123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromSmallestString(tt.raw, tt.decimals)
			if err != nil {
				t.Fatalf("FromSmallestString() error = %v", err)
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("FromSmallestString() = %s, want %s", got, want)
			}
		})
	}
}

func TestFromSmallestStringRejectsGarbage(t *testing.T) {
	if _, err := FromSmallestString("not-a-number", 18); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestToSmallestTruncatesTowardZero(t *testing.T) {
	// 0.0000000015 BTC is below one satoshi; the fraction is dropped
	display, _ := decimal.NewFromString("0.0000000015")
	got := ToSmallest(display, 8)
	if !got.Equal(decimal.Zero) {
		t.Errorf("ToSmallest() = %s, want 0", got)
	}

	display, _ = decimal.NewFromString("-0.0000000015")
	got = ToSmallest(display, 8)
	if !got.Equal(decimal.Zero) {
		t.Errorf("ToSmallest() negative = %s, want 0 (truncate toward zero)", got)
	}
}

func TestNativeDecimals(t *testing.T) {
	tests := []struct {
		chain types.Chain
		want  int32
	}{
		{types.ChainBitcoin, 8},
		{types.ChainSolana, 9},
		{types.ChainTron, 6},
		{types.ChainCardano, 6},
		{types.ChainEthereum, 18},
		{types.ChainPolygon, 18},
	}
	for _, tt := range tests {
		if got := NativeDecimals(tt.chain); got != tt.want {
			t.Errorf("NativeDecimals(%s) = %d, want %d", tt.chain, got, tt.want)
		}
	}
}

// Property: converting an integer smallest-unit amount to display units
// and back is lossless for any decimals used by supported chains.
func TestSmallestUnitRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("round trip is lossless", prop.ForAll(
		func(raw int64, decimals int32) bool {
			d := decimal.NewFromInt(raw)
			display := FromSmallest(d, decimals)
			return ToSmallest(display, decimals).Equal(d)
		},
		gen.Int64(),
		gen.Int32Range(0, 18),
	))

	properties.Property("display amount scales by power of ten", prop.ForAll(
		func(raw int64) bool {
			d := decimal.NewFromInt(raw)
			display := FromSmallest(d, 6)
			return display.Mul(decimal.New(1, 6)).Equal(d)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
