package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
)

// RoundQuantity rounds a quantity to four places
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// PositiveQuantity validates and normalises an ordered or moved quantity
func PositiveQuantity(d decimal.Decimal) (decimal.Decimal, error) {
	q := RoundQuantity(d)
	if !q.IsPositive() {
		return decimal.Zero, ErrNonPositiveQuantity
	}
	return q, nil
}

// NonNegativeAmount validates and normalises a money amount that may be zero
func NonNegativeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	a := RoundMoney(d)
	if a.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return a, nil
}

// MinQuantity returns the smaller of two quantities
func MinQuantity(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
