package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"carteira/internal/database"
	"carteira/internal/models"
	"carteira/internal/money"
)

type PortfolioService struct {
	repo   InvestmentStore
	quotes Quoter
	delay  time.Duration
	log    *logrus.Logger
}

func NewPortfolioService(repo InvestmentStore, quotes Quoter, delay time.Duration, log *logrus.Logger) *PortfolioService {
	return &PortfolioService{repo: repo, quotes: quotes, delay: delay, log: log}
}

type HoldingSummary struct {
	ID             string                `json:"id"`
	Ticker         string                `json:"ticker"`
	Name           string                `json:"name"`
	Type           models.InvestmentType `json:"type"`
	Quantity       decimal.Decimal       `json:"quantity"`
	AveragePrice   int64                 `json:"average_price"`
	TotalInvested  int64                 `json:"total_invested"`
	CurrentValue   int64                 `json:"current_value"`
	FormattedValue string                `json:"formatted_value"`
	ReturnPercent  decimal.Decimal       `json:"return_percent"`
}

type PortfolioSummary struct {
	TotalInvested          int64            `json:"total_invested"`
	CurrentTotal           int64            `json:"current_total"`
	FormattedTotalInvested string           `json:"formatted_total_invested"`
	FormattedCurrentTotal  string           `json:"formatted_current_total"`
	MonthlyReturnPercent   decimal.Decimal  `json:"monthly_return_percent"`
	Holdings               []HoldingSummary `json:"holdings"`
}

// Summary aggregates a user's holdings. A holding without a usable
// currentValue counts at its invested amount so a missed refresh never
// deflates the total.
func (s *PortfolioService) Summary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	holdings, err := s.repo.ListInvestments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}

	summary := &PortfolioSummary{Holdings: make([]HoldingSummary, 0, len(holdings))}
	for _, h := range holdings {
		value := h.CurrentValue
		if value <= 0 {
			value = h.TotalInvested
		}
		item := HoldingSummary{
			ID:             h.ID,
			Ticker:         h.Ticker,
			Name:           h.Name,
			Type:           h.Type,
			Quantity:       h.Quantity,
			AveragePrice:   h.AveragePrice,
			TotalInvested:  h.TotalInvested,
			CurrentValue:   value,
			FormattedValue: money.Format(value, h.Currency),
			ReturnPercent:  returnPercent(value, h.TotalInvested),
		}
		summary.TotalInvested += h.TotalInvested
		summary.CurrentTotal += value
		summary.Holdings = append(summary.Holdings, item)
	}

	summary.MonthlyReturnPercent = returnPercent(summary.CurrentTotal, summary.TotalInvested)
	summary.FormattedTotalInvested = money.Format(summary.TotalInvested, "BRL")
	summary.FormattedCurrentTotal = money.Format(summary.CurrentTotal, "BRL")
	return summary, nil
}

// returnPercent is (value - invested) / invested * 100, or 0 when there is
// no invested base to divide by.
func returnPercent(value, invested int64) decimal.Decimal {
	if invested <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(value - invested).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(invested)).
		Round(2)
}

type HoldingExpectation struct {
	ID                    string          `json:"id"`
	Ticker                string          `json:"ticker"`
	TotalInvested         int64           `json:"total_invested"`
	CurrentPrice          int64           `json:"current_price"`
	AvgPrice30d           int64           `json:"avg_price_30d"`
	ExpectedReturnPercent decimal.Decimal `json:"expected_return_percent"`
	ExpectedReturn        int64           `json:"expected_return"`
	ExpectedValue         int64           `json:"expected_value"`
	Note                  string          `json:"note,omitempty"`
}

type ExpectedReturnReport struct {
	Holdings                 []HoldingExpectation `json:"holdings"`
	TotalInvested            int64                `json:"total_invested"`
	ExpectedValue            int64                `json:"expected_value"`
	PortfolioExpectedPercent decimal.Decimal      `json:"portfolio_expected_percent"`
	FormattedExpectedValue   string               `json:"formatted_expected_value"`
}

// ExpectedMonthlyReturn projects each quoted holding against its trailing
// 30-day average price. A holding whose lookup fails, and every fixed-value
// holding, contributes 0% rather than failing the report. External calls run
// sequentially with a pause between holdings.
func (s *PortfolioService) ExpectedMonthlyReturn(ctx context.Context, userID string) (*ExpectedReturnReport, error) {
	holdings, err := s.repo.ListInvestments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}

	report := &ExpectedReturnReport{Holdings: make([]HoldingExpectation, 0, len(holdings))}
	first := true
	for _, h := range holdings {
		item := HoldingExpectation{
			ID:            h.ID,
			Ticker:        h.Ticker,
			TotalInvested: h.TotalInvested,
			ExpectedValue: h.TotalInvested,
		}
		if h.Type.Quoted() {
			if !first {
				pause(ctx, s.delay)
			}
			first = false
			s.project(ctx, &item, h)
		} else {
			item.Note = "fixed value, no projection"
		}
		report.TotalInvested += item.TotalInvested
		report.ExpectedValue += item.ExpectedValue
		report.Holdings = append(report.Holdings, item)
	}

	report.PortfolioExpectedPercent = returnPercent(report.ExpectedValue, report.TotalInvested)
	report.FormattedExpectedValue = money.Format(report.ExpectedValue, "BRL")
	return report, nil
}

func (s *PortfolioService) project(ctx context.Context, item *HoldingExpectation, h database.Investment) {
	history, err := s.quotes.GetHistory(ctx, h.Ticker, "1mo", "1d", false)
	if err != nil || !history.History.AvgPrice.IsPositive() {
		s.log.Warnf("[portfolio] no 30d average for %s, assuming flat: %v", h.Ticker, err)
		item.Note = "no 30d average available"
		return
	}
	quote, err := s.quotes.GetQuote(ctx, h.Ticker, false)
	if err != nil || !quote.Entry.CurrentPrice.Valid {
		s.log.Warnf("[portfolio] no current price for %s, assuming flat: %v", h.Ticker, err)
		item.Note = "no current price available"
		return
	}

	avg := history.History.AvgPrice
	current := money.FromCents(quote.Entry.CurrentPrice.Int64)
	pct := current.Sub(avg).Mul(decimal.NewFromInt(100)).Div(avg).Round(2)

	item.CurrentPrice = quote.Entry.CurrentPrice.Int64
	item.AvgPrice30d = money.ToCents(avg)
	item.ExpectedReturnPercent = pct
	item.ExpectedReturn = money.ToCents(money.FromCents(h.TotalInvested).Mul(pct).Div(decimal.NewFromInt(100)))
	item.ExpectedValue = h.TotalInvested + item.ExpectedReturn
}
