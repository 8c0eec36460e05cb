// Package amount converts between the integer base units held by the escrow
// engine and their human readable decimal representation.
package amount

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const DefaultPrecision = 8

var (
	ErrInvalidAmount    = fmt.Errorf("invalid amount")
	ErrNegativeAmount   = fmt.Errorf("amount must not be negative")
	ErrTooManyDecimals  = fmt.Errorf("amount has too many decimal places")
	ErrAmountOutOfRange = fmt.Errorf("amount out of range")
	ErrInvalidPrecision = fmt.Errorf("precision must be in range [0, 18]")
)

// ToBaseUnits parses a decimal string like "1.5" into base units according
// to the given precision.
func ToBaseUnits(s string, precision int32) (uint64, error) {
	if precision < 0 || precision > 18 {
		return 0, ErrInvalidPrecision
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}

	units := d.Shift(precision)
	if !units.Equal(units.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	if units.GreaterThan(decimal.NewFromBigInt(maxUint64(), 0)) {
		return 0, ErrAmountOutOfRange
	}
	return units.BigInt().Uint64(), nil
}

// FromBaseUnits formats the given base units as a decimal string with the
// given precision, trailing zeros trimmed.
func FromBaseUnits(units uint64, precision int32) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(units), -precision)
	return d.String()
}

func maxUint64() *big.Int {
	return new(big.Int).SetUint64(math.MaxUint64)
}
