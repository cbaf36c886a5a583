// Package units converts between on-chain smallest-unit integers and
// display-unit decimal amounts. All arithmetic is exact decimal; float
// conversions are never used.
package units

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/types"
)

// Native smallest-unit decimals per chain family.
const (
	DecimalsEVM     int32 = 18 // wei
	DecimalsBitcoin int32 = 8  // satoshi
	DecimalsSolana  int32 = 9  // lamport
	DecimalsTron    int32 = 6  // sun
	DecimalsCardano int32 = 6  // lovelace
)

// NativeDecimals returns the smallest-unit decimals for a chain's
// native asset.
func NativeDecimals(chain types.Chain) int32 {
	switch chain {
	case types.ChainBitcoin:
		return DecimalsBitcoin
	case types.ChainSolana:
		return DecimalsSolana
	case types.ChainTron:
		return DecimalsTron
	case types.ChainCardano:
		return DecimalsCardano
	default:
		return DecimalsEVM
	}
}

// ParseRaw parses an integer-string amount as reported by explorers.
// Amounts are arbitrary precision so int64 is not enough for wei.
func ParseRaw(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid raw amount %q: %w", raw, err)
	}
	return d, nil
}

// FromSmallest converts a smallest-unit amount to display units.
func FromSmallest(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// FromSmallestString parses and converts in one step.
func FromSmallestString(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := ParseRaw(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return FromSmallest(d, decimals), nil
}

// ToSmallest converts a display-unit amount back to smallest units,
// truncating any fraction below one smallest unit toward zero.
func ToSmallest(display decimal.Decimal, decimals int32) decimal.Decimal {
	return display.Shift(decimals).Truncate(0)
}
