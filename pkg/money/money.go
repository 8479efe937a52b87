// Package money formats decimal transaction amounts for display using
// go-money, respecting ISO-4217 minor-unit conventions.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	JPY = "JPY"
)

// Format renders a decimal amount with its currency symbol, e.g. "-$5.40".
// Unknown currency codes fall back to USD formatting.
func Format(amount decimal.Decimal, currencyCode string) string {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(USD)
	}
	cents := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(cents, currency.Code).Display()
}

// FromFloat converts a float amount to a decimal suitable for Transaction
// amounts, rounded to the currency's minor units.
func FromFloat(value float64, currencyCode string) decimal.Decimal {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(USD)
	}
	return decimal.NewFromFloat(value).Round(int32(currency.Fraction))
}
