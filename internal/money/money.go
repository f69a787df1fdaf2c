// Package money converts between decimal display amounts and the integer
// minor-unit amounts the ledger stores. All float-to-integer rounding happens
// here and nowhere else; ledger mutation only ever works on minor-unit ints.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// defaultDecimals is used for currency codes go-money does not know about.
const defaultDecimals = 2

// Decimals returns the number of decimal places for a currency code.
func Decimals(currencyCode string) int32 {
	if cur := gomoney.GetCurrency(currencyCode); cur != nil {
		return int32(cur.Fraction)
	}
	return defaultDecimals
}

// ToMinorUnits converts a major-unit decimal amount to minor units, rounding
// half away from zero at the currency's precision.
func ToMinorUnits(amountMajor decimal.Decimal, currencyCode string) int64 {
	return amountMajor.Shift(Decimals(currencyCode)).Round(0).IntPart()
}

// FromMinorUnits converts a minor-unit amount to its major-unit decimal value.
func FromMinorUnits(amountMinor int64, currencyCode string) decimal.Decimal {
	return decimal.NewFromInt(amountMinor).Shift(-Decimals(currencyCode))
}

// ConvertMinor converts a minor-unit amount from one currency to another at
// the given rate (quote units per base unit). The conversion runs in decimal
// major units and rounds once, at the destination currency's precision.
func ConvertMinor(amountMinor int64, fromCurrency, toCurrency string, rate decimal.Decimal) int64 {
	major := FromMinorUnits(amountMinor, fromCurrency).Mul(rate)
	return ToMinorUnits(major, toCurrency)
}
