package database

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/models"
)

// StockCacheEntry is the persisted last-known market data for one ticker.
// Monetary columns are integer cents; ChangePercent is percent * 100.
type StockCacheEntry struct {
	Ticker           string         `db:"ticker" json:"ticker"`
	NormalizedTicker sql.NullString `db:"normalized_ticker" json:"normalized_ticker"`
	Name             sql.NullString `db:"name" json:"name"`
	CurrentPrice     sql.NullInt64  `db:"current_price" json:"current_price"`
	PreviousClose    sql.NullInt64  `db:"previous_close" json:"previous_close"`
	Change           sql.NullInt64  `db:"change" json:"change"`
	ChangePercent    sql.NullInt64  `db:"change_percent" json:"change_percent"`
	DayHigh          sql.NullInt64  `db:"day_high" json:"day_high"`
	DayLow           sql.NullInt64  `db:"day_low" json:"day_low"`
	Volume           sql.NullInt64  `db:"volume" json:"volume"`
	Currency         string         `db:"currency" json:"currency"`
	Market           sql.NullString `db:"market" json:"market"`
	Sector           sql.NullString `db:"sector" json:"sector"`
	Industry         sql.NullString `db:"industry" json:"industry"`
	MarketCap        sql.NullString `db:"market_cap" json:"market_cap"`
	HistoryData      sql.NullString `db:"history_data" json:"-"`
	LastUpdated      time.Time      `db:"last_updated" json:"last_updated"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// StockCachePatch is a partial update for a cache entry. A nil field means
// "not supplied in this write": the stored value is kept.
type StockCachePatch struct {
	Ticker           string
	NormalizedTicker *string
	Name             *string
	CurrentPrice     *int64
	PreviousClose    *int64
	Change           *int64
	ChangePercent    *int64
	DayHigh          *int64
	DayLow           *int64
	Volume           *int64
	Currency         *string
	Market           *string
	Sector           *string
	Industry         *string
	MarketCap        *string
	HistoryData      *string
}

type Investment struct {
	ID            string                `db:"id" json:"id"`
	UserID        string                `db:"user_id" json:"user_id"`
	Ticker        string                `db:"ticker" json:"ticker"`
	Name          string                `db:"name" json:"name"`
	Type          models.InvestmentType `db:"type" json:"type"`
	Quantity      decimal.Decimal       `db:"quantity" json:"quantity"`
	AveragePrice  int64                 `db:"average_price" json:"average_price"`
	TotalInvested int64                 `db:"total_invested" json:"total_invested"`
	CurrentValue  int64                 `db:"current_value" json:"current_value"`
	Currency      string                `db:"currency" json:"currency"`
	Notes         sql.NullString        `db:"notes" json:"notes"`
	CreatedAt     time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time             `db:"updated_at" json:"updated_at"`
}

// InvestmentUpdate is a partial mutation; nil fields are left untouched.
type InvestmentUpdate struct {
	Quantity      *decimal.Decimal
	AveragePrice  *int64
	TotalInvested *int64
	CurrentValue  *int64
	Notes         *string
}

type MonitoredStock struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Ticker       string    `db:"ticker" json:"ticker"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
