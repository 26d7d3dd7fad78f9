// Package types holds the value types of the ledger: Money and Quantity.
package types

import "github.com/shopspring/decimal"

// Money is an exact decimal amount. Computed amounts are rounded to MoneyPlaces;
// inputs keep the precision they were given.
type Money = decimal.Decimal

const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// MustMoney parses s or panics. For constants and tests.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// Percent returns pct percent of m, unrounded.
func Percent(m Money, pct decimal.Decimal) Money {
	return m.Mul(pct).Div(hundred)
}
