// Package service holds the business rules between the HTTP handlers and the
// storage/market-data collaborators: the quote fallback chain, the valuation
// engine and the portfolio aggregation math.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"carteira/internal/brapi"
	"carteira/internal/database"
	"carteira/internal/money"
)

var (
	// ErrValidation marks a request rejected before any side effect.
	ErrValidation = errors.New("validation error")
	// ErrNoPrice marks an operation that needed a live price and could not
	// resolve one through the fallback chain.
	ErrNoPrice = errors.New("no valid price available")
)

// CacheStore is the slice of the repository the quote service reads and
// writes.
type CacheStore interface {
	GetCachedStock(ctx context.Context, ticker string) (*database.StockCacheEntry, error)
	UpsertStockCache(ctx context.Context, patch database.StockCachePatch) error
}

// QuoteSource is the external market-data collaborator.
type QuoteSource interface {
	GetQuote(ctx context.Context, ticker string) (*brapi.Quote, error)
	GetHistory(ctx context.Context, ticker, period, interval string) (*brapi.History, error)
	Search(ctx context.Context, query string, limit int, instrumentType string) ([]brapi.SearchResult, error)
}

// Origin says where a quote result came from, so callers can tell a live
// price from a cached or degraded one.
type Origin string

const (
	OriginCache      Origin = "cache"
	OriginSource     Origin = "source"
	OriginStaleCache Origin = "stale-cache"
)

type QuoteResult struct {
	Entry  database.StockCacheEntry `json:"entry"`
	Origin Origin                   `json:"origin"`
}

type HistoryResult struct {
	History brapi.History `json:"history"`
	Origin  Origin        `json:"origin"`
}

type QuoteService struct {
	store  CacheStore
	source QuoteSource
	maxAge time.Duration
	delay  time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

func NewQuoteService(store CacheStore, source QuoteSource, maxAge, delay time.Duration, log *logrus.Logger) *QuoteService {
	if maxAge <= 0 {
		maxAge = 4 * time.Hour
	}
	return &QuoteService{
		store:  store,
		source: source,
		maxAge: maxAge,
		delay:  delay,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetQuote resolves a ticker through the fallback chain: fresh cache, then
// the external source, then stale cache. forceRefresh skips the cache read
// and disables the stale fallback. A stale entry with a valid price always
// beats a source payload without one.
func (s *QuoteService) GetQuote(ctx context.Context, ticker string, forceRefresh bool) (*QuoteResult, error) {
	normalized := brapi.NormalizeTicker(ticker)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrValidation)
	}

	var cached *database.StockCacheEntry
	if !forceRefresh {
		entry, err := s.store.GetCachedStock(ctx, normalized)
		if err != nil {
			s.log.Warnf("[stocks] cache read for %s failed: %v", normalized, err)
		} else {
			cached = entry
		}
		if cached != nil && cached.CurrentPrice.Valid && !database.Stale(cached.LastUpdated, s.maxAge, s.now()) {
			return &QuoteResult{Entry: *cached, Origin: OriginCache}, nil
		}
	}

	quote, err := s.source.GetQuote(ctx, normalized)
	if err == nil && !quote.HasPrice() && cached == nil && forceRefresh {
		// a stored valid price still beats an empty payload on a forced
		// refresh, so read the cache skipped above
		if entry, gerr := s.store.GetCachedStock(ctx, normalized); gerr == nil {
			cached = entry
		}
	}
	switch {
	case err == nil && quote.HasPrice():
		return &QuoteResult{Entry: s.persistQuote(ctx, quote), Origin: OriginSource}, nil

	case err == nil && cached != nil && cached.CurrentPrice.Valid:
		s.log.Warnf("[stocks] source returned %s without a price, keeping cached entry", normalized)
		return &QuoteResult{Entry: *cached, Origin: OriginStaleCache}, nil

	case err == nil:
		s.log.Warnf("[stocks] source returned %s without a price and nothing is cached", normalized)
		return &QuoteResult{Entry: entryFromQuote(quote, s.now()), Origin: OriginSource}, nil

	case !forceRefresh && cached != nil:
		s.log.Warnf("[stocks] source failed for %s, falling back to stale cache: %v", normalized, err)
		return &QuoteResult{Entry: *cached, Origin: OriginStaleCache}, nil

	default:
		return nil, fmt.Errorf("quote for %s: %w", normalized, err)
	}
}

// GetHistory runs the same chain for historical series. Only the default
// one-month daily series is cached; other windows always go to the source.
// When a fetched series lands on a ticker with no cache entry yet, a full
// quote fetch seeds the entry so the series has a name and price next to it.
func (s *QuoteService) GetHistory(ctx context.Context, ticker, period, interval string, forceRefresh bool) (*HistoryResult, error) {
	normalized := brapi.NormalizeTicker(ticker)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrValidation)
	}
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	cacheable := period == "1mo" && interval == "1d"

	var cached *database.StockCacheEntry
	if cacheable && !forceRefresh {
		entry, err := s.store.GetCachedStock(ctx, normalized)
		if err != nil {
			s.log.Warnf("[stocks] cache read for %s failed: %v", normalized, err)
		} else {
			cached = entry
		}
		if cached != nil && cached.HistoryData.Valid && !database.Stale(cached.LastUpdated, s.maxAge, s.now()) {
			if h, ok := decodeHistory(cached.HistoryData.String); ok {
				return &HistoryResult{History: *h, Origin: OriginCache}, nil
			}
			s.log.Warnf("[stocks] cached history for %s is unreadable, refetching", normalized)
		}
	}

	h, err := s.source.GetHistory(ctx, normalized, period, interval)
	if err != nil {
		if !forceRefresh && cached != nil && cached.HistoryData.Valid {
			if stale, ok := decodeHistory(cached.HistoryData.String); ok {
				s.log.Warnf("[stocks] history source failed for %s, falling back to stale cache: %v", normalized, err)
				return &HistoryResult{History: *stale, Origin: OriginStaleCache}, nil
			}
		}
		return nil, fmt.Errorf("history for %s: %w", normalized, err)
	}

	if cacheable {
		s.cacheHistory(ctx, normalized, cached, h)
	}
	return &HistoryResult{History: *h, Origin: OriginSource}, nil
}

// Search proxies to the source, which already falls back to a local table.
func (s *QuoteService) Search(ctx context.Context, query string, limit int, instrumentType string) ([]brapi.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrValidation)
	}
	return s.source.Search(ctx, query, limit, instrumentType)
}

// RefreshOutcome is one line of a bulk refresh report.
type RefreshOutcome struct {
	Ticker  string `json:"ticker"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RefreshTickers force-refreshes a list of tickers sequentially, pausing
// between calls to stay under the source's rate limit. A payload that comes
// back without a price is retried once. Failures are reported per ticker and
// never stop the batch.
func (s *QuoteService) RefreshTickers(ctx context.Context, tickers []string) []RefreshOutcome {
	report := make([]RefreshOutcome, 0, len(tickers))
	for i, ticker := range tickers {
		if i > 0 {
			pause(ctx, s.delay)
		}
		outcome := RefreshOutcome{Ticker: brapi.NormalizeTicker(ticker), Success: true}
		res, err := s.GetQuote(ctx, ticker, true)
		if err == nil && !res.Entry.CurrentPrice.Valid {
			pause(ctx, s.delay)
			res, err = s.GetQuote(ctx, ticker, true)
		}
		if err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
		} else if !res.Entry.CurrentPrice.Valid {
			outcome.Success = false
			outcome.Error = "no price available"
		}
		report = append(report, outcome)
	}
	return report
}

// pause sleeps between sequential external calls so batches stay under the
// source's rate limit. Returns early on context cancellation.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// persistQuote writes the snapshot through the merge-on-upsert path and
// returns the merged row. The upsert is best effort: a storage failure is
// logged and the in-memory snapshot returned so the caller still gets a
// price.
func (s *QuoteService) persistQuote(ctx context.Context, q *brapi.Quote) database.StockCacheEntry {
	patch := patchFromQuote(q)
	if err := s.store.UpsertStockCache(ctx, patch); err != nil {
		s.log.Errorf("[stocks] cache write for %s failed: %v", q.Ticker, err)
		return entryFromQuote(q, s.now())
	}
	entry, err := s.store.GetCachedStock(ctx, q.Ticker)
	if err != nil || entry == nil {
		return entryFromQuote(q, s.now())
	}
	return *entry
}

func (s *QuoteService) cacheHistory(ctx context.Context, ticker string, cached *database.StockCacheEntry, h *brapi.History) {
	raw, err := json.Marshal(h)
	if err != nil {
		s.log.Warnf("[stocks] encode history for %s: %v", ticker, err)
		return
	}
	serialized := string(raw)

	if cached == nil {
		entry, err := s.store.GetCachedStock(ctx, ticker)
		if err == nil {
			cached = entry
		}
	}

	patch := database.StockCachePatch{Ticker: ticker, HistoryData: &serialized}
	if cached == nil {
		// no entry yet: seed it with a full quote so the row carries a
		// name and live price, not just a series
		if q, qerr := s.source.GetQuote(ctx, ticker); qerr == nil && q.HasPrice() {
			patch = patchFromQuote(q)
			patch.HistoryData = &serialized
		}
	}
	if err := s.store.UpsertStockCache(ctx, patch); err != nil {
		s.log.Warnf("[stocks] cache history for %s: %v", ticker, err)
	}
}

func decodeHistory(raw string) (*brapi.History, bool) {
	var h brapi.History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, false
	}
	if len(h.Points) == 0 {
		return nil, false
	}
	return &h, true
}

func patchFromQuote(q *brapi.Quote) database.StockCachePatch {
	patch := database.StockCachePatch{
		Ticker:           q.Ticker,
		NormalizedTicker: strPtr(q.NormalizedTicker),
		Name:             strPtr(q.Name),
		Currency:         strPtr(q.Currency),
		Market:           strPtr(q.Market),
		Sector:           strPtr(q.Sector),
		Industry:         strPtr(q.Industry),
		MarketCap:        strPtr(q.MarketCap),
		Volume:           q.Volume,
	}
	if q.CurrentPrice != nil {
		patch.CurrentPrice = centsPtr(money.ToCents(*q.CurrentPrice))
		patch.Change = centsPtr(money.ToCents(q.Change))
		patch.ChangePercent = centsPtr(money.ToCents(q.ChangePercent))
	}
	if q.PreviousClose != nil {
		patch.PreviousClose = centsPtr(money.ToCents(*q.PreviousClose))
	}
	if q.DayHigh != nil {
		patch.DayHigh = centsPtr(money.ToCents(*q.DayHigh))
	}
	if q.DayLow != nil {
		patch.DayLow = centsPtr(money.ToCents(*q.DayLow))
	}
	return patch
}

// entryFromQuote builds a non-persisted entry for payloads that never made
// it into the cache.
func entryFromQuote(q *brapi.Quote, now time.Time) database.StockCacheEntry {
	entry := database.StockCacheEntry{
		Ticker:      q.Ticker,
		Currency:    q.Currency,
		LastUpdated: now,
		CreatedAt:   now,
	}
	if entry.Currency == "" {
		entry.Currency = "BRL"
	}
	setNullString(&entry.NormalizedTicker, q.NormalizedTicker)
	setNullString(&entry.Name, q.Name)
	setNullString(&entry.Market, q.Market)
	setNullString(&entry.Sector, q.Sector)
	setNullString(&entry.Industry, q.Industry)
	setNullString(&entry.MarketCap, q.MarketCap)
	if q.CurrentPrice != nil {
		entry.CurrentPrice.Int64, entry.CurrentPrice.Valid = money.ToCents(*q.CurrentPrice), true
		entry.Change.Int64, entry.Change.Valid = money.ToCents(q.Change), true
		entry.ChangePercent.Int64, entry.ChangePercent.Valid = money.ToCents(q.ChangePercent), true
	}
	if q.PreviousClose != nil {
		entry.PreviousClose.Int64, entry.PreviousClose.Valid = money.ToCents(*q.PreviousClose), true
	}
	if q.DayHigh != nil {
		entry.DayHigh.Int64, entry.DayHigh.Valid = money.ToCents(*q.DayHigh), true
	}
	if q.DayLow != nil {
		entry.DayLow.Int64, entry.DayLow.Valid = money.ToCents(*q.DayLow), true
	}
	if q.Volume != nil {
		entry.Volume.Int64, entry.Volume.Valid = *q.Volume, true
	}
	return entry
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func centsPtr(v int64) *int64 { return &v }

func setNullString(dst *sql.NullString, s string) {
	if s != "" {
		dst.String, dst.Valid = s, true
	}
}
