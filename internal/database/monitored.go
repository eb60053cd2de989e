package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// The watchlist is capped so the dashboard grid stays a fixed size.
const MaxMonitoredStocks = 6

var (
	ErrAlreadyMonitored = errors.New("ticker is already monitored")
	ErrWatchlistFull    = errors.New("monitored stock limit reached")
)

func (r *Repo) ListMonitoredStocks(ctx context.Context, userID string) ([]MonitoredStock, error) {
	stocks := []MonitoredStock{}
	err := r.db.SelectContext(ctx, &stocks,
		`SELECT * FROM monitored_stocks WHERE user_id = $1 ORDER BY display_order, created_at`, userID)
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *Repo) AddMonitoredStock(ctx context.Context, userID, ticker string) error {
	ticker = strings.ToUpper(ticker)
	current, err := r.ListMonitoredStocks(ctx, userID)
	if err != nil {
		return err
	}
	maxOrder := 0
	for _, s := range current {
		if s.Ticker == ticker {
			return ErrAlreadyMonitored
		}
		if s.DisplayOrder > maxOrder {
			maxOrder = s.DisplayOrder
		}
	}
	if len(current) >= MaxMonitoredStocks {
		return ErrWatchlistFull
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO monitored_stocks (user_id, ticker, display_order) VALUES ($1, $2, $3)`,
		userID, ticker, maxOrder+1)
	return err
}

func (r *Repo) RemoveMonitoredStock(ctx context.Context, userID, ticker string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM monitored_stocks WHERE user_id = $1 AND ticker = $2`,
		userID, strings.ToUpper(ticker))
	return err
}

// ListAllMonitoredTickers returns the distinct tickers on any user's
// watchlist, for the background cache refresh.
func (r *Repo) ListAllMonitoredTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.SelectContext(ctx, &tickers,
		`SELECT DISTINCT ticker FROM monitored_stocks ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list monitored tickers: %w", err)
	}
	return tickers, nil
}

// UpdateMonitoredStockOrder rewrites display order to match the given
// sequence (1-based).
func (r *Repo) UpdateMonitoredStockOrder(ctx context.Context, userID string, tickers []string) error {
	for i, ticker := range tickers {
		_, err := r.db.ExecContext(ctx,
			`UPDATE monitored_stocks SET display_order = $1 WHERE user_id = $2 AND ticker = $3`,
			i+1, userID, strings.ToUpper(ticker))
		if err != nil {
			return err
		}
	}
	return nil
}
