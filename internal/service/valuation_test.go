package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteira/internal/brapi"
	"carteira/internal/database"
	"carteira/internal/models"
)

type fakeInvRepo struct {
	nextID   int
	rows     map[string]database.Investment
	order    []string
	listErr  error
	updates  []database.InvestmentUpdate
	inserted []database.Investment
}

func newFakeInvRepo() *fakeInvRepo {
	return &fakeInvRepo{rows: make(map[string]database.Investment)}
}

func (f *fakeInvRepo) EnsureUserExists(context.Context, string, string) error { return nil }

func (f *fakeInvRepo) ListInvestments(_ context.Context, userID string) ([]database.Investment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]database.Investment, 0, len(f.order))
	for _, id := range f.order {
		if row := f.rows[id]; row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeInvRepo) GetInvestment(_ context.Context, userID, id string) (*database.Investment, error) {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return nil, database.ErrInvestmentNotFound
	}
	copied := row
	return &copied, nil
}

func (f *fakeInvRepo) InsertInvestment(_ context.Context, inv database.Investment) (string, error) {
	f.nextID++
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	f.rows[inv.ID] = inv
	f.order = append(f.order, inv.ID)
	f.inserted = append(f.inserted, inv)
	return inv.ID, nil
}

func (f *fakeInvRepo) UpdateInvestment(_ context.Context, userID, id string, update database.InvestmentUpdate) error {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return database.ErrInvestmentNotFound
	}
	f.updates = append(f.updates, update)
	if update.Quantity != nil {
		row.Quantity = *update.Quantity
	}
	if update.AveragePrice != nil {
		row.AveragePrice = *update.AveragePrice
	}
	if update.TotalInvested != nil {
		row.TotalInvested = *update.TotalInvested
	}
	if update.CurrentValue != nil {
		row.CurrentValue = *update.CurrentValue
	}
	if update.Notes != nil {
		row.Notes = sql.NullString{String: *update.Notes, Valid: *update.Notes != ""}
	}
	f.rows[id] = row
	return nil
}

func (f *fakeInvRepo) DeleteInvestment(_ context.Context, userID, id string) error {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return database.ErrInvestmentNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeQuoter struct {
	prices   map[string]int64
	quoteErr error
	history  map[string]*brapi.History
	histErr  error
}

func (f *fakeQuoter) GetQuote(_ context.Context, ticker string, _ bool) (*QuoteResult, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	entry := database.StockCacheEntry{Ticker: ticker, Currency: "BRL"}
	if cents, ok := f.prices[ticker]; ok {
		entry.CurrentPrice = sql.NullInt64{Int64: cents, Valid: true}
		entry.Name = sql.NullString{String: ticker + " Corp", Valid: true}
	}
	return &QuoteResult{Entry: entry, Origin: OriginSource}, nil
}

func (f *fakeQuoter) GetHistory(_ context.Context, ticker, _, _ string, _ bool) (*HistoryResult, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	h, ok := f.history[ticker]
	if !ok {
		return nil, brapi.ErrNotFound
	}
	return &HistoryResult{History: *h, Origin: OriginSource}, nil
}

func TestCreateInvestment_QuotedDerivesAllFieldsFromQuote(t *testing.T) {
	repo := newFakeInvRepo()
	quoter := &fakeQuoter{prices: map[string]int64{"PETR4": 2550}}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	inv, err := svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID:   "u1",
		Ticker:   "petr4",
		Type:     "stock",
		Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "PETR4", inv.Ticker)
	assert.Equal(t, int64(2550), inv.AveragePrice)
	assert.Equal(t, int64(25500), inv.TotalInvested)
	assert.Equal(t, int64(25500), inv.CurrentValue)
	assert.True(t, inv.Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "PETR4 Corp", inv.Name, "name fills in from the quote")
}

func TestCreateInvestment_QuotedWithoutPriceFails(t *testing.T) {
	repo := newFakeInvRepo()
	quoter := &fakeQuoter{prices: map[string]int64{}}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	_, err := svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID:   "u1",
		Ticker:   "PETR4",
		Type:     "stock",
		Quantity: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Empty(t, repo.inserted, "failed creation must not persist anything")
}

func TestCreateInvestment_FixedValueReinterpretsQuantityAsAmount(t *testing.T) {
	repo := newFakeInvRepo()
	svc := NewInvestmentService(repo, &fakeQuoter{}, 0, quietLogger())

	inv, err := svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID:   "u1",
		Name:     "CDB Banco X",
		Type:     "cdb",
		Quantity: decimal.NewFromFloat(5000.00),
	})
	require.NoError(t, err)
	assert.True(t, inv.Quantity.Equal(decimal.NewFromInt(1)), "fixed value holdings pin quantity to 1")
	assert.Equal(t, int64(500000), inv.AveragePrice)
	assert.Equal(t, int64(500000), inv.TotalInvested)
	assert.Equal(t, int64(500000), inv.CurrentValue)
}

func TestCreateInvestment_Validation(t *testing.T) {
	svc := NewInvestmentService(newFakeInvRepo(), &fakeQuoter{}, 0, quietLogger())

	_, err := svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID: "u1", Ticker: "PETR4", Type: "stock", Quantity: decimal.Zero,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID: "u1", Ticker: "PETR4", Type: "bond", Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateInvestment(context.Background(), CreateInvestmentInput{
		UserID: "u1", Type: "stock", Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateInvestment_QuantityRecomputesQuotedHolding(t *testing.T) {
	repo := newFakeInvRepo()
	quoter := &fakeQuoter{prices: map[string]int64{"PETR4": 2600}}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	id, err := repo.InsertInvestment(context.Background(), database.Investment{
		UserID:        "u1",
		Ticker:        "PETR4",
		Type:          models.TypeStock,
		Quantity:      decimal.NewFromInt(10),
		AveragePrice:  2550,
		TotalInvested: 25500,
		CurrentValue:  25500,
	})
	require.NoError(t, err)

	qty := decimal.NewFromInt(20)
	updated, err := svc.UpdateInvestment(context.Background(), "u1", id, UpdateInvestmentInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(2550), updated.AveragePrice, "existing average price is kept")
	assert.Equal(t, int64(51000), updated.TotalInvested)
	assert.Equal(t, int64(52000), updated.CurrentValue, "current value uses the fresh price")
}

func TestUpdateInvestment_BackfillsMissingAveragePrice(t *testing.T) {
	repo := newFakeInvRepo()
	quoter := &fakeQuoter{prices: map[string]int64{"PETR4": 2600}}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	id, err := repo.InsertInvestment(context.Background(), database.Investment{
		UserID:   "u1",
		Ticker:   "PETR4",
		Type:     models.TypeStock,
		Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	qty := decimal.NewFromInt(10)
	updated, err := svc.UpdateInvestment(context.Background(), "u1", id, UpdateInvestmentInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(2600), updated.AveragePrice, "zero average price backfills from the quote")
	assert.Equal(t, int64(26000), updated.TotalInvested)
}

func TestUpdateInvestment_FailedQuoteLeavesRowUntouched(t *testing.T) {
	repo := newFakeInvRepo()
	quoter := &fakeQuoter{quoteErr: brapi.ErrRateLimited}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	id, err := repo.InsertInvestment(context.Background(), database.Investment{
		UserID:        "u1",
		Ticker:        "PETR4",
		Type:          models.TypeStock,
		Quantity:      decimal.NewFromInt(10),
		AveragePrice:  2550,
		TotalInvested: 25500,
		CurrentValue:  25500,
	})
	require.NoError(t, err)

	qty := decimal.NewFromInt(20)
	_, err = svc.UpdateInvestment(context.Background(), "u1", id, UpdateInvestmentInput{Quantity: &qty})
	assert.ErrorIs(t, err, ErrNoPrice)

	row, err := repo.GetInvestment(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.True(t, row.Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(25500), row.CurrentValue)
}

func TestUpdateInvestment_FixedValueReplacesAmount(t *testing.T) {
	repo := newFakeInvRepo()
	svc := NewInvestmentService(repo, &fakeQuoter{}, 0, quietLogger())

	id, err := repo.InsertInvestment(context.Background(), database.Investment{
		UserID:        "u1",
		Ticker:        "CDB BANCO X",
		Type:          models.TypeCDB,
		Quantity:      decimal.NewFromInt(1),
		AveragePrice:  500000,
		TotalInvested: 500000,
		CurrentValue:  500000,
	})
	require.NoError(t, err)

	amount := decimal.NewFromFloat(6000.00)
	updated, err := svc.UpdateInvestment(context.Background(), "u1", id, UpdateInvestmentInput{Quantity: &amount})
	require.NoError(t, err)
	assert.True(t, updated.Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(600000), updated.AveragePrice)
	assert.Equal(t, int64(600000), updated.TotalInvested)
	assert.Equal(t, int64(600000), updated.CurrentValue)
}

func TestRefreshAll_UpdatesCurrentValueOnlyAndReportsFailures(t *testing.T) {
	repo := newFakeInvRepo()
	ctx := context.Background()

	idStock, err := repo.InsertInvestment(ctx, database.Investment{
		UserID:        "u1",
		Ticker:        "PETR4",
		Type:          models.TypeStock,
		Quantity:      decimal.NewFromInt(10),
		AveragePrice:  2550,
		TotalInvested: 25500,
		CurrentValue:  25500,
	})
	require.NoError(t, err)
	_, err = repo.InsertInvestment(ctx, database.Investment{
		UserID:        "u1",
		Ticker:        "XXXX3",
		Type:          models.TypeStock,
		Quantity:      decimal.NewFromInt(5),
		AveragePrice:  1000,
		TotalInvested: 5000,
		CurrentValue:  5000,
	})
	require.NoError(t, err)
	_, err = repo.InsertInvestment(ctx, database.Investment{
		UserID:        "u1",
		Ticker:        "CDB BANCO X",
		Type:          models.TypeCDB,
		Quantity:      decimal.NewFromInt(1),
		AveragePrice:  500000,
		TotalInvested: 500000,
		CurrentValue:  500000,
	})
	require.NoError(t, err)

	quoter := &fakeQuoter{prices: map[string]int64{"PETR4": 2600}}
	svc := NewInvestmentService(repo, quoter, 0, quietLogger())

	report, err := svc.RefreshAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Items, 2, "fixed value holdings are skipped")

	row, err := repo.GetInvestment(ctx, "u1", idStock)
	require.NoError(t, err)
	assert.Equal(t, int64(26000), row.CurrentValue)
	assert.Equal(t, int64(2550), row.AveragePrice, "refresh must not touch averagePrice")
	assert.Equal(t, int64(25500), row.TotalInvested, "refresh must not touch totalInvested")
}
