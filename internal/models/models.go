package models

import "fmt"

// InvestmentType selects the valuation rule for a holding. Quoted types are
// valued against market quotes; fixed-value types carry the amount the user
// deposited, with quantity pinned to 1.
type InvestmentType string

const (
	TypeStock    InvestmentType = "stock"
	TypeFund     InvestmentType = "fund"
	TypeCDB      InvestmentType = "cdb"
	TypeTreasury InvestmentType = "treasury"
	TypeOther    InvestmentType = "other"
)

func (t InvestmentType) Quoted() bool {
	return t == TypeStock || t == TypeFund
}

func ParseInvestmentType(s string) (InvestmentType, error) {
	switch InvestmentType(s) {
	case TypeStock, TypeFund, TypeCDB, TypeTreasury, TypeOther:
		return InvestmentType(s), nil
	case "":
		return TypeStock, nil
	}
	return "", fmt.Errorf("unknown investment type %q", s)
}
