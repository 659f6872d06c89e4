// Package valueobjects - Money combines an amount and a currency to prevent
// common bugs like mixing currencies or losing cents to float rounding.
package valueobjects

import (
	"errors"
	"fmt"
)

// Money represents a monetary amount in the smallest currency unit (cents).
//
// Value Object Pattern:
// - Immutable: All operations return new Money instances
// - Self-validating: Cannot create invalid Money
// - Type-safe: Prevents mixing currencies
//
// Amounts are stored as integer cents end to end (database, gateways,
// Telegram messages), so there is no floating point anywhere in the money
// path. Order amounts are immutable snapshots of product prices, which keeps
// the representation simple: no fractional cents ever arise.
type Money struct {
	cents    int64
	currency Currency
}

// Common domain errors for Money operations
var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrCurrencyMismatch = errors.New("cannot operate on different currencies")
)

// NewMoneyFromCents creates Money from the smallest currency unit.
// This is the only constructor: prices and order amounts live as cents.
//
// Example:
//
//	NewMoneyFromCents(2000, EUR) // 20.00 EUR
func NewMoneyFromCents(cents int64, currency Currency) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	if currency.IsZero() {
		return Money{}, ErrInvalidCurrency
	}

	return Money{cents: cents, currency: currency}, nil
}

// Zero creates a zero money amount for the given currency.
func Zero(currency Currency) Money {
	return Money{cents: 0, currency: currency}
}

// Cents returns the amount in the smallest currency unit.
func (m Money) Cents() int64 {
	return m.cents
}

// Currency returns the currency of this money.
func (m Money) Currency() Currency {
	return m.currency
}

// String returns a human-readable representation, e.g. "20.00 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.cents/100, m.cents%100, m.currency.Code())
}

// Add returns a new Money with the sum of two amounts.
// IMMUTABLE: Returns new instance, doesn't modify receiver.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{cents: m.cents + other.cents, currency: m.currency}, nil
}

// CommissionCents returns the commission for this amount at the given rate in
// basis points, rounded down. Used for tipster payout previews.
func (m Money) CommissionCents(basisPoints int64) int64 {
	return m.cents * basisPoints / 10000
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.cents == 0
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.cents > 0
}

// Equals checks if two money values are equal (amount and currency).
func (m Money) Equals(other Money) bool {
	return m.currency.Equals(other.currency) && m.cents == other.cents
}
