// Package brapi is the market data collaborator: a thin client for the
// brapi.dev quote API covering current quotes, historical series and ticker
// search. The API is rate limited; 401 and 429 responses surface as
// ErrRateLimited so the caller can fall back to cached data.
package brapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrRateLimited = errors.New("brapi: rate limited")
	ErrNotFound    = errors.New("brapi: ticker not found")
)

const DefaultBaseURL = "https://brapi.dev/api"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger
}

func New(baseURL, token string, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if token == "" {
		log.Warn("[brapi] no API token configured; some tickers may be unavailable")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Quote is a point-in-time snapshot for one ticker. Prices are decimal here;
// conversion to cents happens when the snapshot is persisted.
type Quote struct {
	Ticker           string
	NormalizedTicker string
	Name             string
	CurrentPrice     *decimal.Decimal
	PreviousClose    *decimal.Decimal
	Change           decimal.Decimal
	ChangePercent    decimal.Decimal
	DayHigh          *decimal.Decimal
	DayLow           *decimal.Decimal
	Volume           *int64
	Currency         string
	Market           string
	Sector           string
	Industry         string
	MarketCap        string
}

// HasPrice reports whether the source returned a usable current price.
func (q *Quote) HasPrice() bool {
	return q != nil && q.CurrentPrice != nil
}

type HistoryPoint struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume *int64          `json:"volume,omitempty"`
}

// History is a closed series plus the derived period statistics the
// portfolio math depends on (notably AvgPrice for the expected-return
// figure).
type History struct {
	Ticker              string          `json:"ticker"`
	NormalizedTicker    string          `json:"normalized_ticker"`
	Period              string          `json:"period"`
	Interval            string          `json:"interval"`
	DataPoints          int             `json:"data_points"`
	FirstDate           string          `json:"first_date"`
	LastDate            string          `json:"last_date"`
	FirstClose          decimal.Decimal `json:"first_close"`
	LastClose           decimal.Decimal `json:"last_close"`
	PeriodChange        decimal.Decimal `json:"period_change"`
	PeriodChangePercent decimal.Decimal `json:"period_change_percent"`
	HighPrice           decimal.Decimal `json:"high_price"`
	LowPrice            decimal.Decimal `json:"low_price"`
	AvgPrice            decimal.Decimal `json:"avg_price"`
	Points              []HistoryPoint  `json:"history"`
	Currency            string          `json:"currency"`
}

type SearchResult struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Type   string `json:"type"`
}

// NormalizeTicker uppercases and strips the Yahoo-style .SA suffix, which
// brapi does not use.
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	return strings.TrimSuffix(t, ".SA")
}

// IsBrazilianTicker uses the B3 convention of a trailing digit (PETR4,
// HGLG11) to classify the ticker.
func IsBrazilianTicker(ticker string) bool {
	t := NormalizeTicker(ticker)
	if t == "" {
		return false
	}
	last := t[len(t)-1]
	return last >= '0' && last <= '9'
}

type quoteResponse struct {
	Results []quoteResult `json:"results"`
	Message string        `json:"message"`
}

type quoteResult struct {
	Symbol                     string           `json:"symbol"`
	LongName                   string           `json:"longName"`
	ShortName                  string           `json:"shortName"`
	Currency                   string           `json:"currency"`
	MarketCap                  json.Number      `json:"marketCap"`
	Sector                     string           `json:"sector"`
	Industry                   string           `json:"industry"`
	RegularMarketPrice         *decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketChange        *decimal.Decimal `json:"regularMarketChange"`
	RegularMarketChangePercent *decimal.Decimal `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       *decimal.Decimal `json:"regularMarketDayHigh"`
	RegularMarketDayLow        *decimal.Decimal `json:"regularMarketDayLow"`
	RegularMarketVolume        *int64           `json:"regularMarketVolume"`
	HistoricalDataPrice        []historicalBar  `json:"historicalDataPrice"`
}

type historicalBar struct {
	Date   int64            `json:"date"`
	Open   *decimal.Decimal `json:"open"`
	High   *decimal.Decimal `json:"high"`
	Low    *decimal.Decimal `json:"low"`
	Close  *decimal.Decimal `json:"close"`
	Volume *int64           `json:"volume"`
}

func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	normalized := NormalizeTicker(ticker)
	result, err := c.fetchQuote(ctx, normalized, nil)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Ticker:           normalized,
		NormalizedTicker: normalized,
		Name:             firstNonEmpty(result.LongName, result.ShortName, normalized),
		CurrentPrice:     round2Ptr(result.RegularMarketPrice),
		Change:           round2(result.RegularMarketChange),
		ChangePercent:    round2(result.RegularMarketChangePercent),
		DayHigh:          round2Ptr(result.RegularMarketDayHigh),
		DayLow:           round2Ptr(result.RegularMarketDayLow),
		Volume:           result.RegularMarketVolume,
		Currency:         firstNonEmpty(result.Currency, "BRL"),
		Sector:           result.Sector,
		Industry:         result.Industry,
		MarketCap:        result.MarketCap.String(),
	}
	if result.RegularMarketPrice != nil {
		prev := result.RegularMarketPrice.Sub(q.Change).Round(2)
		q.PreviousClose = &prev
	}
	if IsBrazilianTicker(normalized) {
		q.Market = "B3"
	} else {
		q.Market = "NYSE/NASDAQ"
	}
	return q, nil
}

func (c *Client) GetHistory(ctx context.Context, ticker, period, interval string) (*History, error) {
	normalized := NormalizeTicker(ticker)
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	result, err := c.fetchQuote(ctx, normalized, url.Values{
		"range":    {period},
		"interval": {interval},
	})
	if err != nil {
		return nil, err
	}
	if len(result.HistoricalDataPrice) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNotFound, normalized)
	}

	points := make([]HistoryPoint, 0, len(result.HistoricalDataPrice))
	for _, bar := range result.HistoricalDataPrice {
		if bar.Date == 0 || bar.Close == nil {
			continue
		}
		points = append(points, HistoryPoint{
			Date:   time.Unix(bar.Date, 0).UTC().Format("2006-01-02"),
			Open:   round2(bar.Open),
			High:   round2(bar.High),
			Low:    round2(bar.Low),
			Close:  bar.Close.Round(2),
			Volume: bar.Volume,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty history for %s", ErrNotFound, normalized)
	}

	h := &History{
		Ticker:           normalized,
		NormalizedTicker: normalized,
		Period:           period,
		Interval:         interval,
		DataPoints:       len(points),
		FirstDate:        points[0].Date,
		LastDate:         points[len(points)-1].Date,
		FirstClose:       points[0].Close,
		LastClose:        points[len(points)-1].Close,
		Currency:         firstNonEmpty(result.Currency, "BRL"),
		Points:           points,
	}
	h.PeriodChange = h.LastClose.Sub(h.FirstClose).Round(2)
	if h.FirstClose.IsPositive() {
		h.PeriodChangePercent = h.PeriodChange.Mul(decimal.NewFromInt(100)).Div(h.FirstClose).Round(2)
	}

	high, low, sum := points[0].Close, points[0].Close, decimal.Zero
	for _, p := range points {
		if p.Close.GreaterThan(high) {
			high = p.Close
		}
		if p.Close.LessThan(low) {
			low = p.Close
		}
		sum = sum.Add(p.Close)
	}
	h.HighPrice = high
	h.LowPrice = low
	h.AvgPrice = sum.Div(decimal.NewFromInt(int64(len(points)))).Round(2)
	return h, nil
}

func (c *Client) fetchQuote(ctx context.Context, ticker string, extra url.Values) (*quoteResult, error) {
	params := url.Values{}
	for k, vs := range extra {
		params[k] = vs
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	endpoint := fmt.Sprintf("%s/quote/%s", c.baseURL, url.PathEscape(ticker))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brapi: request for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		c.log.Warnf("[brapi] status %d for %s, treating as rate limit", resp.StatusCode, ticker)
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, ticker)
	default:
		return nil, fmt.Errorf("brapi: status %d for %s", resp.StatusCode, ticker)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("brapi: decode response for %s: %w", ticker, err)
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	return &body.Results[0], nil
}

type availableResponse struct {
	Stocks []availableStock `json:"stocks"`
}

type availableStock struct {
	Stock    string `json:"stock"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Search looks up instruments by name or symbol on the /v2/available
// endpoint. When the endpoint is unreachable it falls back to a local table
// of well-known B3 tickers so the search box keeps working offline.
func (c *Client) Search(ctx context.Context, query string, limit int, instrumentType string) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{"search": {query}}
	if c.token != "" {
		params.Set("token", c.token)
	}
	switch instrumentType {
	case "fund":
		params.Set("type", "real-estate-investment-funds")
	case "stock":
		params.Set("type", "stocks")
	}

	endpoint := fmt.Sprintf("%s/v2/available?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnf("[brapi] search unavailable, using local list: %v", err)
		return searchLocal(query, limit, instrumentType), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnf("[brapi] search status %d, using local list", resp.StatusCode)
		return searchLocal(query, limit, instrumentType), nil
	}

	var body availableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("brapi: decode search response: %w", err)
	}
	if len(body.Stocks) == 0 {
		return searchLocal(query, limit, instrumentType), nil
	}

	results := make([]SearchResult, 0, limit)
	for _, s := range body.Stocks {
		sym := firstNonEmpty(s.Stock, s.Symbol)
		if sym == "" {
			continue
		}
		results = append(results, SearchResult{
			Ticker: sym,
			Name:   firstNonEmpty(s.Name, sym),
			Market: firstNonEmpty(s.Exchange, "B3"),
			Type:   classifyTicker(sym),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// FII tickers on B3 end in 11.
func classifyTicker(ticker string) string {
	if strings.HasSuffix(ticker, "11") {
		return "fund"
	}
	return "stock"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func round2(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func round2Ptr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}
