package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/money"
)

// ErrEmptyCacheEntry rejects a first insert that carries neither a price nor
// a history series; such an entry would be meaningless.
var ErrEmptyCacheEntry = errors.New("cache entry needs currentPrice or historyData")

// mergeEntry applies a partial write onto an existing entry (nil for a first
// insert) and returns the row to persist. Merge is field level, never a
// destructive overwrite: anything the patch omits keeps its stored value. On
// first insert with a history series but no price, the initial price is
// derived from the last close of the series. Pure, so it can be tested
// without storage.
func mergeEntry(existing *StockCacheEntry, patch StockCachePatch, now time.Time) (StockCacheEntry, error) {
	var entry StockCacheEntry
	if existing != nil {
		entry = *existing
	} else {
		entry.Ticker = strings.ToUpper(patch.Ticker)
		entry.Currency = "BRL"
		entry.CreatedAt = now
	}

	if patch.NormalizedTicker != nil {
		entry.NormalizedTicker = nullString(*patch.NormalizedTicker)
	}
	if patch.Name != nil {
		entry.Name = nullString(*patch.Name)
	}
	if patch.CurrentPrice != nil {
		entry.CurrentPrice = nullInt64(*patch.CurrentPrice)
	}
	if patch.PreviousClose != nil {
		entry.PreviousClose = nullInt64(*patch.PreviousClose)
	}
	if patch.Change != nil {
		entry.Change = nullInt64(*patch.Change)
	}
	if patch.ChangePercent != nil {
		entry.ChangePercent = nullInt64(*patch.ChangePercent)
	}
	if patch.DayHigh != nil {
		entry.DayHigh = nullInt64(*patch.DayHigh)
	}
	if patch.DayLow != nil {
		entry.DayLow = nullInt64(*patch.DayLow)
	}
	if patch.Volume != nil {
		entry.Volume = nullInt64(*patch.Volume)
	}
	if patch.Currency != nil && *patch.Currency != "" {
		entry.Currency = *patch.Currency
	}
	if patch.Market != nil {
		entry.Market = nullString(*patch.Market)
	}
	if patch.Sector != nil {
		entry.Sector = nullString(*patch.Sector)
	}
	if patch.Industry != nil {
		entry.Industry = nullString(*patch.Industry)
	}
	if patch.MarketCap != nil {
		entry.MarketCap = nullString(*patch.MarketCap)
	}
	if patch.HistoryData != nil {
		entry.HistoryData = nullString(*patch.HistoryData)
	}

	if existing == nil {
		if !entry.CurrentPrice.Valid && !entry.HistoryData.Valid {
			return entry, fmt.Errorf("%w: %s", ErrEmptyCacheEntry, entry.Ticker)
		}
		if !entry.CurrentPrice.Valid && entry.HistoryData.Valid {
			if cents, ok := lastCloseCents(entry.HistoryData.String); ok {
				entry.CurrentPrice = nullInt64(cents)
			}
		}
	}

	entry.LastUpdated = now
	return entry, nil
}

// Stale reports whether a cache timestamp is older than maxAge at the given
// instant. A zero timestamp is always stale.
func Stale(lastUpdated time.Time, maxAge time.Duration, now time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	return now.Sub(lastUpdated) > maxAge
}

// serialized history as written by the quote service; only the closes matter
// here
type historySeries struct {
	Points []struct {
		Close decimal.Decimal `json:"close"`
	} `json:"history"`
}

func lastCloseCents(raw string) (int64, bool) {
	var series historySeries
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		return 0, false
	}
	if len(series.Points) == 0 {
		return 0, false
	}
	last := series.Points[len(series.Points)-1].Close
	if !last.IsPositive() {
		return 0, false
	}
	return money.ToCents(last), true
}
