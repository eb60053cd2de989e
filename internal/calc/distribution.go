// Package calc implements the exact-arithmetic allocation and percentage
// helpers. It has no dependency on market data or storage.
package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"carteira/internal/money"
)

var (
	ErrEmptyAllocation  = errors.New("allocation needs at least one percentage or amount")
	ErrZeroTotal        = errors.New("total must be positive")
	ErrPercentSum       = errors.New("percentages must sum to 100")
	ErrResidualTooLarge = errors.New("allocation does not sum to total within one cent")
)

var oneHundred = decimal.NewFromInt(100)

// cent tolerance for the post-condition check
var centTolerance = decimal.New(1, -2)

// PercentageOf returns value/total*100 as an exact decimal, rounded to two
// places only for presentation.
func PercentageOf(value, total decimal.Decimal) (decimal.Decimal, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrZeroTotal
	}
	return value.Mul(oneHundred).Div(total).Round(2), nil
}

// Allocation is one line of a distribution result.
type Allocation struct {
	Target     string          `json:"target"`
	Amount     decimal.Decimal `json:"amount"`
	Formatted  string          `json:"formatted_amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Result carries the distribution lines and the self-verification of the sum
// invariant. Residual is signed (total - sum of amounts); callers must
// surface it, it is a correctness signal rather than cosmetics.
type Result struct {
	Total          decimal.Decimal `json:"total"`
	FormattedTotal string          `json:"formatted_total"`
	Items          []Allocation    `json:"distribution"`
	IsExact        bool            `json:"is_exact"`
	Residual       decimal.Decimal `json:"residual"`
}

// Distribute splits total across either percentages or fixed amounts
// (exactly one of the two slices must be non-empty). Targets are optional
// labels; missing ones are numbered. Each allocated amount is rounded to the
// cent; the post-condition requires the amounts to sum back to total within
// one cent, and the result reports the exact signed residual.
func Distribute(total decimal.Decimal, percentages, amounts []decimal.Decimal, targets []string) (*Result, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrZeroTotal
	}
	if len(percentages) == 0 && len(amounts) == 0 {
		return nil, ErrEmptyAllocation
	}

	var items []Allocation
	if len(percentages) > 0 {
		sum := decimal.Zero
		for _, p := range percentages {
			sum = sum.Add(p)
		}
		if sum.Sub(oneHundred).Abs().GreaterThan(centTolerance) {
			return nil, fmt.Errorf("%w: got %s", ErrPercentSum, sum.String())
		}
		for i, p := range percentages {
			amount := total.Mul(p).Div(oneHundred).Round(2)
			items = append(items, Allocation{
				Target:     targetName(targets, i),
				Amount:     amount,
				Formatted:  money.Format(money.ToCents(amount), "BRL"),
				Percentage: p.Round(2),
			})
		}
	} else {
		for i, a := range amounts {
			pct, err := PercentageOf(a, total)
			if err != nil {
				return nil, err
			}
			amount := a.Round(2)
			items = append(items, Allocation{
				Target:     targetName(targets, i),
				Amount:     amount,
				Formatted:  money.Format(money.ToCents(amount), "BRL"),
				Percentage: pct,
			})
		}
	}

	allocated := decimal.Zero
	for _, it := range items {
		allocated = allocated.Add(it.Amount)
	}
	residual := total.Sub(allocated)
	if residual.Abs().GreaterThan(centTolerance) {
		return nil, fmt.Errorf("%w: residual %s", ErrResidualTooLarge, residual.String())
	}

	return &Result{
		Total:          total,
		FormattedTotal: money.Format(money.ToCents(total), "BRL"),
		Items:          items,
		IsExact:        residual.IsZero(),
		Residual:       residual,
	}, nil
}

func targetName(targets []string, i int) string {
	if i < len(targets) && targets[i] != "" {
		return targets[i]
	}
	return fmt.Sprintf("Investimento %d", i+1)
}
