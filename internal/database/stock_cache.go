package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// GetCachedStock returns the cache entry for a ticker, or nil when none
// exists.
func (r *Repo) GetCachedStock(ctx context.Context, ticker string) (*StockCacheEntry, error) {
	var entry StockCacheEntry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM stock_cache WHERE ticker = $1`, strings.ToUpper(ticker))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertStockCache merges a partial write into the stored entry per the
// rules in mergeEntry. The read-modify-write sequence is not atomic against
// a concurrent writer for the same ticker; the last write wins, which is an
// accepted property of this cache.
func (r *Repo) UpsertStockCache(ctx context.Context, patch StockCachePatch) error {
	existing, err := r.GetCachedStock(ctx, patch.Ticker)
	if err != nil {
		return err
	}
	entry, err := mergeEntry(existing, patch, time.Now().UTC())
	if err != nil {
		return err
	}

	q := `INSERT INTO stock_cache (
		ticker, normalized_ticker, name, current_price, previous_close, change,
		change_percent, day_high, day_low, volume, currency, market, sector,
		industry, market_cap, history_data, last_updated, created_at
	) VALUES (
		:ticker, :normalized_ticker, :name, :current_price, :previous_close, :change,
		:change_percent, :day_high, :day_low, :volume, :currency, :market, :sector,
		:industry, :market_cap, :history_data, :last_updated, :created_at
	) ON CONFLICT (ticker) DO UPDATE SET
		normalized_ticker = EXCLUDED.normalized_ticker,
		name = EXCLUDED.name,
		current_price = EXCLUDED.current_price,
		previous_close = EXCLUDED.previous_close,
		change = EXCLUDED.change,
		change_percent = EXCLUDED.change_percent,
		day_high = EXCLUDED.day_high,
		day_low = EXCLUDED.day_low,
		volume = EXCLUDED.volume,
		currency = EXCLUDED.currency,
		market = EXCLUDED.market,
		sector = EXCLUDED.sector,
		industry = EXCLUDED.industry,
		market_cap = EXCLUDED.market_cap,
		history_data = EXCLUDED.history_data,
		last_updated = EXCLUDED.last_updated`
	_, err = r.db.NamedExecContext(ctx, q, entry)
	return err
}

// IsStockCacheStale is true when no entry exists or the entry is older than
// maxAge.
func (r *Repo) IsStockCacheStale(ctx context.Context, ticker string, maxAge time.Duration) (bool, error) {
	entry, err := r.GetCachedStock(ctx, ticker)
	if err != nil {
		return true, err
	}
	if entry == nil {
		return true, nil
	}
	return Stale(entry.LastUpdated, maxAge, time.Now().UTC()), nil
}

func (r *Repo) ListCachedStocks(ctx context.Context) ([]StockCacheEntry, error) {
	entries := []StockCacheEntry{}
	if err := r.db.SelectContext(ctx, &entries, `SELECT * FROM stock_cache ORDER BY ticker`); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearStockCache wipes every entry. Administrative operation only; entries
// are otherwise never auto-deleted.
func (r *Repo) ClearStockCache(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_cache`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	r.log.Infof("[cache] cleared %d entries", n)
	return n, nil
}

func (r *Repo) DeleteStockFromCache(ctx context.Context, ticker string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stock_cache WHERE ticker = $1`, strings.ToUpper(ticker))
	return err
}
