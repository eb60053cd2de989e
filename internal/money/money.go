// Package money holds the fixed-point representation used for every stored
// monetary amount: an integer number of minor currency units (cents).
// Decimal values exist only at the service boundary; all arithmetic in
// between happens on int64 cents.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ToCents converts a decimal currency amount to cents, rounding half away
// from zero. The rounding rule is deliberate and tested: 0.005 becomes 1
// cent, -0.005 becomes -1 cent.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts cents back to a decimal amount. Exact.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// MulQuantity scales a unit price in cents by a (possibly fractional)
// quantity, rounding the product half away from zero. For whole quantities
// the result is exact integer arithmetic with no residual.
func MulQuantity(cents int64, quantity decimal.Decimal) int64 {
	return quantity.Mul(decimal.NewFromInt(cents)).Round(0).IntPart()
}

// Format renders cents as a display string in the given ISO currency code,
// e.g. Format(250050, "BRL") -> "R$2,500.50". Unknown codes fall back to BRL.
func Format(cents int64, currency string) string {
	if gomoney.GetCurrency(currency) == nil {
		currency = gomoney.BRL
	}
	return gomoney.New(cents, currency).Display()
}
