package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scales used across the ledger
const (
	MoneyScale    int32 = 2 // amounts, line totals, journal debits/credits
	CostScale     int32 = 4 // unit costs and weighted-average cost
	QuantityScale int32 = 4
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// ErrCurrencyMismatch is returned when combining amounts in different currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// RoundMoney rounds half away from zero to two places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundCost rounds a unit cost to four places
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostScale)
}

// MoneyEqual compares two amounts at two decimal places
func MoneyEqual(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}

// SumMoney adds amounts, rounding each term first so the sum equals what was stored
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(RoundMoney(a))
	}
	return total
}

// Money is an immutable monetary amount held at two decimal places
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney rounds amount to two places
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   RoundMoney(amount),
		currency: currency,
	}, nil
}

func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// MustMoney creates Money in the given currency, defaulting the currency when empty
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	m, _ := NewMoney(amount, currency)
	return m
}

func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

func (m Money) with(amount decimal.Decimal) Money {
	return Money{amount: RoundMoney(amount), currency: m.currency}
}

// Add fails on a currency mismatch
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return m.with(m.amount.Add(other.amount)), nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return m.with(m.amount.Sub(other.amount)), nil
}

// MultiplyByQuantity returns unitPrice × qty at two places
func (m Money) MultiplyByQuantity(qty decimal.Decimal) Money {
	return m.with(m.amount.Mul(qty))
}

// Prorate returns m × numerator / denominator at two places.
// A zero denominator yields zero.
func (m Money) Prorate(numerator, denominator decimal.Decimal) Money {
	if denominator.IsZero() {
		return Zero(m.currency)
	}
	return m.with(m.amount.Mul(numerator).Div(denominator))
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String returns the amount at two places
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// moneyJSON is the wire form; the amount travels as a string so no float
// rounding happens in transit
type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", v.Amount, err)
	}
	*m = Money{amount: RoundMoney(amount), currency: v.Currency}
	return nil
}

// Value stores the amount only; the currency has its own column
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads an amount column and keeps any currency already set
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Money: %w", value, err)
	}
	m.amount = RoundMoney(d)
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
