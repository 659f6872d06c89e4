// Package valueobjects contains immutable value objects that represent domain concepts
// without identity. They are compared by their values, not by identity.
package valueobjects

import (
	"errors"
	"strings"
)

// Currency represents a monetary currency code (ISO 4217).
// It's a value object - immutable and validated on creation.
//
// Order amounts are snapshotted from products at creation time, so an invalid
// currency code must never enter the domain in the first place.
type Currency struct {
	code string // Private field ensures immutability
}

// Predefined supported currencies (can be extended)
var (
	EUR = Currency{code: "EUR"}
	USD = Currency{code: "USD"}
	GBP = Currency{code: "GBP"}
)

// supportedCurrencies defines the whitelist of currencies the marketplace
// sells in. The set follows the payment gateways: Redsys is EUR-only, Stripe
// covers the rest.
var supportedCurrencies = map[string]bool{
	"EUR": true,
	"USD": true,
	"GBP": true,
}

// ErrInvalidCurrency is returned when an invalid currency code is provided.
var ErrInvalidCurrency = errors.New("invalid currency code")

// NewCurrency creates a new Currency value object with validation.
//
// Example:
//
//	curr, err := NewCurrency("EUR")
//	if err != nil {
//	    // handle error
//	}
func NewCurrency(code string) (Currency, error) {
	// Normalize to uppercase for case-insensitive comparison
	code = strings.ToUpper(strings.TrimSpace(code))

	if !supportedCurrencies[code] {
		return Currency{}, ErrInvalidCurrency
	}

	return Currency{code: code}, nil
}

// MustNewCurrency creates a Currency or panics.
// Use only in tests and package-level initialization.
func MustNewCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string {
	return c.code
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return c.code
}

// Equals compares two currencies by value.
func (c Currency) Equals(other Currency) bool {
	return c.code == other.code
}

// IsZero returns true for the zero-value Currency (no code).
// A zero Currency never comes out of NewCurrency.
func (c Currency) IsZero() bool {
	return c.code == ""
}

// RedsysNumericCode returns the ISO 4217 numeric code used by the Redsys
// protocol (Ds_Merchant_Currency). Only currencies the gateway accepts map.
func (c Currency) RedsysNumericCode() (string, bool) {
	switch c.code {
	case "EUR":
		return "978", true
	case "USD":
		return "840", true
	case "GBP":
		return "826", true
	default:
		return "", false
	}
}
