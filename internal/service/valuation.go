package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"carteira/internal/brapi"
	"carteira/internal/database"
	"carteira/internal/models"
	"carteira/internal/money"
)

// InvestmentStore is the slice of the repository the valuation engine needs.
type InvestmentStore interface {
	EnsureUserExists(ctx context.Context, userID, name string) error
	ListInvestments(ctx context.Context, userID string) ([]database.Investment, error)
	GetInvestment(ctx context.Context, userID, id string) (*database.Investment, error)
	InsertInvestment(ctx context.Context, inv database.Investment) (string, error)
	UpdateInvestment(ctx context.Context, userID, id string, update database.InvestmentUpdate) error
	DeleteInvestment(ctx context.Context, userID, id string) error
}

// Quoter is what the valuation engine needs from the quote service.
type Quoter interface {
	GetQuote(ctx context.Context, ticker string, forceRefresh bool) (*QuoteResult, error)
	GetHistory(ctx context.Context, ticker, period, interval string, forceRefresh bool) (*HistoryResult, error)
}

type InvestmentService struct {
	repo   InvestmentStore
	quotes Quoter
	delay  time.Duration
	log    *logrus.Logger
}

func NewInvestmentService(repo InvestmentStore, quotes Quoter, delay time.Duration, log *logrus.Logger) *InvestmentService {
	return &InvestmentService{repo: repo, quotes: quotes, delay: delay, log: log}
}

type CreateInvestmentInput struct {
	UserID   string          `json:"-"`
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes"`
}

// CreateInvestment books a new holding. For quoted types the purchase price
// is the latest resolvable quote and the creation fails without one. For
// fixed-value types the quantity field carries the invested amount, the
// stored quantity is pinned to 1 and all three monetary fields equal that
// amount.
func (s *InvestmentService) CreateInvestment(ctx context.Context, in CreateInvestmentInput) (*database.Investment, error) {
	invType, err := models.ParseInvestmentType(in.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	ticker := brapi.NormalizeTicker(in.Ticker)
	if invType.Quoted() && ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required for %s investments", ErrValidation, invType)
	}
	if ticker == "" {
		ticker = strings.ToUpper(strings.TrimSpace(in.Name))
	}

	inv := database.Investment{
		UserID:   in.UserID,
		Ticker:   ticker,
		Name:     strings.TrimSpace(in.Name),
		Type:     invType,
		Currency: "BRL",
	}
	if in.Notes != "" {
		inv.Notes.String, inv.Notes.Valid = in.Notes, true
	}

	if invType.Quoted() {
		res, err := s.quotes.GetQuote(ctx, ticker, false)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrNoPrice, ticker, err)
		}
		if !res.Entry.CurrentPrice.Valid {
			return nil, fmt.Errorf("%w for %s", ErrNoPrice, ticker)
		}
		price := res.Entry.CurrentPrice.Int64
		inv.Quantity = in.Quantity
		inv.AveragePrice = price
		inv.TotalInvested = money.MulQuantity(price, in.Quantity)
		inv.CurrentValue = money.MulQuantity(price, in.Quantity)
		if inv.Name == "" && res.Entry.Name.Valid {
			inv.Name = res.Entry.Name.String
		}
		if res.Entry.Currency != "" {
			inv.Currency = res.Entry.Currency
		}
	} else {
		// fixed value: the quantity field carries the invested amount
		amount := money.ToCents(in.Quantity)
		inv.Quantity = decimal.NewFromInt(1)
		inv.AveragePrice = amount
		inv.TotalInvested = amount
		inv.CurrentValue = amount
	}
	if inv.Name == "" {
		inv.Name = ticker
	}

	if err := s.repo.EnsureUserExists(ctx, in.UserID, ""); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	id, err := s.repo.InsertInvestment(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("insert investment: %w", err)
	}
	inv.ID = id
	return &inv, nil
}

type UpdateInvestmentInput struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Notes    *string          `json:"notes"`
}

// UpdateInvestment changes a holding's quantity, notes or both. A quantity
// change on a quoted holding refetches the price and recomputes the derived
// fields; the update fails with the row untouched when no price resolves.
// On a fixed-value holding the supplied quantity is the new invested amount.
func (s *InvestmentService) UpdateInvestment(ctx context.Context, userID, id string, in UpdateInvestmentInput) (*database.Investment, error) {
	if in.Quantity == nil && in.Notes == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	existing, err := s.repo.GetInvestment(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	update := database.InvestmentUpdate{Notes: in.Notes}
	if in.Quantity != nil {
		if existing.Type.Quoted() {
			res, qerr := s.quotes.GetQuote(ctx, existing.Ticker, false)
			if qerr != nil {
				return nil, fmt.Errorf("%w for %s: %v", ErrNoPrice, existing.Ticker, qerr)
			}
			if !res.Entry.CurrentPrice.Valid {
				return nil, fmt.Errorf("%w for %s", ErrNoPrice, existing.Ticker)
			}
			price := res.Entry.CurrentPrice.Int64
			avg := existing.AveragePrice
			if avg == 0 {
				avg = price
				update.AveragePrice = &avg
			}
			quantity := *in.Quantity
			invested := money.MulQuantity(avg, quantity)
			value := money.MulQuantity(price, quantity)
			update.Quantity = &quantity
			update.TotalInvested = &invested
			update.CurrentValue = &value
		} else {
			amount := money.ToCents(*in.Quantity)
			one := decimal.NewFromInt(1)
			update.Quantity = &one
			update.AveragePrice = &amount
			update.TotalInvested = &amount
			update.CurrentValue = &amount
		}
	}

	if err := s.repo.UpdateInvestment(ctx, userID, id, update); err != nil {
		return nil, err
	}
	return s.repo.GetInvestment(ctx, userID, id)
}

func (s *InvestmentService) DeleteInvestment(ctx context.Context, userID, id string) error {
	return s.repo.DeleteInvestment(ctx, userID, id)
}

func (s *InvestmentService) ListInvestments(ctx context.Context, userID string) ([]database.Investment, error) {
	return s.repo.ListInvestments(ctx, userID)
}

// HoldingRefresh is one line of the bulk holding refresh report.
type HoldingRefresh struct {
	ID      string `json:"id"`
	Ticker  string `json:"ticker"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type RefreshReport struct {
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Items   []HoldingRefresh `json:"items"`
}

// RefreshAll refetches quotes for every quoted holding of a user and updates
// currentValue only. Calls run sequentially with a pause between them;
// per-holding failures are reported and never stop the batch. Fixed-value
// holdings have nothing to refresh and are skipped.
func (s *InvestmentService) RefreshAll(ctx context.Context, userID string) (*RefreshReport, error) {
	holdings, err := s.repo.ListInvestments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}

	report := &RefreshReport{Items: make([]HoldingRefresh, 0, len(holdings))}
	first := true
	for _, h := range holdings {
		if !h.Type.Quoted() {
			continue
		}
		if !first {
			pause(ctx, s.delay)
		}
		first = false

		item := HoldingRefresh{ID: h.ID, Ticker: h.Ticker}
		res, qerr := s.quotes.GetQuote(ctx, h.Ticker, false)
		switch {
		case qerr != nil:
			item.Error = qerr.Error()
		case !res.Entry.CurrentPrice.Valid:
			item.Error = "no price available"
		default:
			value := money.MulQuantity(res.Entry.CurrentPrice.Int64, h.Quantity)
			if uerr := s.repo.UpdateInvestment(ctx, userID, h.ID, database.InvestmentUpdate{CurrentValue: &value}); uerr != nil {
				item.Error = uerr.Error()
			} else {
				item.Success = true
			}
		}
		if item.Success {
			report.Updated++
		} else {
			report.Failed++
			s.log.Warnf("[portfolio] refresh %s failed: %s", h.Ticker, item.Error)
		}
		report.Items = append(report.Items, item)
	}
	return report, nil
}
