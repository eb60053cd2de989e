package database

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"carteira/internal/models"
)

func setupDB(t *testing.T) *sqlx.DB {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set; skipping integration tests")
	}
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	files := []string{"../../migrations/0001_init.up.sql"}
	for _, f := range files {
		b, err := ioutil.ReadFile(f)
		if err != nil {
			t.Fatalf("read migration %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Logf("exec migration %s: %v", f, err)
		}
	}
	return db
}

func testRepo(t *testing.T) *Repo {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return New(setupDB(t), logger)
}

func TestUpsertStockCache_MergePreservesStoredFields(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	ticker := "TESTMERGE3"

	if _, err := r.db.Exec(`DELETE FROM stock_cache WHERE ticker = $1`, ticker); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if err := r.UpsertStockCache(ctx, StockCachePatch{
		Ticker:       ticker,
		Name:         str("Merge Test"),
		CurrentPrice: i64(3842),
	}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	if err := r.UpsertStockCache(ctx, StockCachePatch{
		Ticker:      ticker,
		HistoryData: str(`{"history":[{"close":38.00}]}`),
	}); err != nil {
		t.Fatalf("history upsert failed: %v", err)
	}

	entry, err := r.GetCachedStock(ctx, ticker)
	if err != nil {
		t.Fatalf("get cached stock failed: %v", err)
	}
	if entry == nil {
		t.Fatalf("expected cached entry")
	}
	if !entry.CurrentPrice.Valid || entry.CurrentPrice.Int64 != 3842 {
		t.Fatalf("expected price 3842 preserved; got %+v", entry.CurrentPrice)
	}
	if entry.Name.String != "Merge Test" {
		t.Fatalf("expected name preserved; got %q", entry.Name.String)
	}
	if !entry.HistoryData.Valid {
		t.Fatalf("expected history stored")
	}

	stale, err := r.IsStockCacheStale(ctx, ticker, 240*time.Minute)
	if err != nil {
		t.Fatalf("staleness check failed: %v", err)
	}
	if stale {
		t.Fatalf("expected freshly written entry to be fresh")
	}
}

func TestUpsertStockCache_EmptyFirstInsertRejected(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	ticker := "TESTEMPTY3"

	if _, err := r.db.Exec(`DELETE FROM stock_cache WHERE ticker = $1`, ticker); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	err := r.UpsertStockCache(ctx, StockCachePatch{Ticker: ticker, Name: str("No Price")})
	if err == nil {
		t.Fatalf("expected empty first insert to fail")
	}
}

func TestInvestments_CRUDAndOwnership(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	userID := "test-user-crud"
	otherID := "test-user-other"

	if _, err := r.db.Exec(`DELETE FROM investments WHERE user_id IN ($1, $2)`, userID, otherID); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	for _, u := range []string{userID, otherID} {
		if err := r.EnsureUserExists(ctx, u, "Test User"); err != nil {
			t.Fatalf("ensure user failed: %v", err)
		}
	}

	inv := Investment{
		UserID:        userID,
		Ticker:        "PETR4",
		Name:          "Petrobras",
		Type:          models.TypeStock,
		Quantity:      decimal.NewFromInt(10),
		AveragePrice:  2550,
		TotalInvested: 25500,
		CurrentValue:  25500,
		Currency:      "BRL",
	}
	id, err := r.InsertInvestment(ctx, inv)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}

	got, err := r.GetInvestment(ctx, userID, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.TotalInvested != 25500 || !got.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected row: %+v", got)
	}

	// another user must not see or touch the row
	if _, err := r.GetInvestment(ctx, otherID, id); err != ErrInvestmentNotFound {
		t.Fatalf("expected not found for other user; got %v", err)
	}
	if err := r.DeleteInvestment(ctx, otherID, id); err != ErrInvestmentNotFound {
		t.Fatalf("expected delete blocked for other user; got %v", err)
	}

	newValue := int64(26000)
	if err := r.UpdateInvestment(ctx, userID, id, InvestmentUpdate{CurrentValue: &newValue}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err = r.GetInvestment(ctx, userID, id)
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if got.CurrentValue != 26000 {
		t.Fatalf("expected updated value 26000; got %d", got.CurrentValue)
	}

	if err := r.DeleteInvestment(ctx, userID, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := r.GetInvestment(ctx, userID, id); err != ErrInvestmentNotFound {
		t.Fatalf("expected not found after delete; got %v", err)
	}
}

func TestMonitoredStocks_CapAndOrder(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	userID := "test-user-watchlist"

	if _, err := r.db.Exec(`DELETE FROM monitored_stocks WHERE user_id = $1`, userID); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if err := r.EnsureUserExists(ctx, userID, "Watchlist User"); err != nil {
		t.Fatalf("ensure user failed: %v", err)
	}

	tickers := []string{"PETR4", "VALE3", "ITUB4", "BBDC4", "WEGE3", "ABEV3"}
	for _, tk := range tickers {
		if err := r.AddMonitoredStock(ctx, userID, tk); err != nil {
			t.Fatalf("add %s failed: %v", tk, err)
		}
	}

	if err := r.AddMonitoredStock(ctx, userID, "PETR4"); err != ErrAlreadyMonitored {
		t.Fatalf("expected duplicate rejection; got %v", err)
	}
	if err := r.AddMonitoredStock(ctx, userID, "MGLU3"); err != ErrWatchlistFull {
		t.Fatalf("expected watchlist full; got %v", err)
	}

	reversed := []string{"ABEV3", "WEGE3", "BBDC4", "ITUB4", "VALE3", "PETR4"}
	if err := r.UpdateMonitoredStockOrder(ctx, userID, reversed); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	list, err := r.ListMonitoredStocks(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != MaxMonitoredStocks {
		t.Fatalf("expected %d entries; got %d", MaxMonitoredStocks, len(list))
	}
	for i, m := range list {
		if m.Ticker != reversed[i] {
			t.Fatalf("position %d: expected %s, got %s", i, reversed[i], m.Ticker)
		}
	}
}
