// Package marketdata fetches prices, symbol search results and company
// statistics from Yahoo Finance and caches prices in Redis.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/valuation"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSearchURL  = "https://query1.finance.yahoo.com/v1/finance/search"
	yahooSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	yahooUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

	// maxConcurrentFetches bounds per-request fan-out to the upstream.
	maxConcurrentFetches = 4
)

// yahooChartResponse is the v8 chart endpoint payload.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Bar is one OHLC sample; only open and close are kept.
type Bar struct {
	Time  time.Time
	Open  decimal.Decimal
	Close decimal.Decimal
}

// OpenCents returns the bar's open in whole cents.
func (b Bar) OpenCents() int64 {
	return toCents(b.Open)
}

// chartQuery selects a chart window either by explicit period or by range.
type chartQuery struct {
	interval valuation.Interval
	start    time.Time
	end      time.Time
	rng      string
}

func (q chartQuery) values() url.Values {
	v := url.Values{}
	v.Set("interval", string(q.interval))
	if q.rng != "" {
		v.Set("range", q.rng)
		return v
	}
	v.Set("period1", strconv.FormatInt(q.start.Unix(), 10))
	v.Set("period2", strconv.FormatInt(q.end.Unix(), 10))
	return v
}

// YahooClient reads the Yahoo Finance chart API. It implements
// valuation.PriceLookup.
type YahooClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	searchURL  string
	summaryURL string
	now        func() time.Time
}

// NewYahooClient creates a client. An empty baseURL selects the public endpoint.
func NewYahooClient(httpClient *http.Client, baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = yahooChartURL
	}
	return &YahooClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		searchURL:  yahooSearchURL,
		summaryURL: yahooSummaryURL,
		now:        time.Now,
	}
}

// WithEndpoints overrides the symbol search and quote summary endpoints.
// Empty values keep the current ones.
func (c *YahooClient) WithEndpoints(searchURL, summaryURL string) *YahooClient {
	if searchURL != "" {
		c.searchURL = strings.TrimRight(searchURL, "/")
	}
	if summaryURL != "" {
		c.summaryURL = strings.TrimRight(summaryURL, "/")
	}
	return c
}

var _ valuation.PriceLookup = (*YahooClient)(nil)

// PriceOnDate returns the opening price in cents for the calendar date of day.
func (c *YahooClient) PriceOnDate(ctx context.Context, ticker string, day time.Time) (int64, error) {
	start := valuation.Day(day)
	bars, err := c.fetch(ctx, "price_on_date", ticker, chartQuery{
		interval: valuation.Daily,
		start:    start,
		end:      start.AddDate(0, 0, 1),
	})
	if err != nil {
		return 0, err
	}
	for _, b := range bars {
		if valuation.DateKey(b.Time) == valuation.DateKey(start) && b.Open.IsPositive() {
			return toCents(b.Open), nil
		}
	}
	return 0, fmt.Errorf("%w: %s on %s", valuation.ErrMissingPrice, ticker, valuation.DateKey(start))
}

// LatestPrice returns the most recent daily close in cents.
func (c *YahooClient) LatestPrice(ctx context.Context, ticker string) (int64, error) {
	bars, err := c.fetch(ctx, "latest_price", ticker, chartQuery{interval: valuation.Daily, rng: "5d"})
	if err != nil {
		return 0, err
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close.IsPositive() {
			return toCents(bars[i].Close), nil
		}
	}
	return 0, fmt.Errorf("%w: no recent close for %s", valuation.ErrDataUnavailable, ticker)
}

// DailyBars returns daily bars for the full available history of ticker.
func (c *YahooClient) DailyBars(ctx context.Context, ticker string) ([]Bar, error) {
	return c.fetch(ctx, "daily_bars", ticker, chartQuery{interval: valuation.Daily, rng: "max"})
}

// HistoricalSeries fetches closes for every ticker from start until now and
// merges them into one grid keyed by timestamp. Within a ticker a missing
// sample carries the previous close forward; nothing is filled before a
// ticker's first sample.
func (c *YahooClient) HistoricalSeries(ctx context.Context, tickers []string, start time.Time, interval valuation.Interval) (valuation.PriceGrid, error) {
	query := chartQuery{interval: interval, start: start, end: c.now()}

	results := make([][]Bar, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			bars, err := c.fetch(gctx, "historical_series", ticker, query)
			if err != nil {
				return err
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeBars(tickers, results), nil
}

func mergeBars(tickers []string, results [][]Bar) valuation.PriceGrid {
	stamps := make(map[int64]time.Time)
	closes := make([]map[int64]decimal.Decimal, len(tickers))
	for i, bars := range results {
		closes[i] = make(map[int64]decimal.Decimal, len(bars))
		for _, b := range bars {
			if !b.Close.IsPositive() {
				continue
			}
			stamps[b.Time.Unix()] = b.Time
			closes[i][b.Time.Unix()] = b.Close
		}
	}

	keys := make([]int64, 0, len(stamps))
	for k := range stamps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	grid := make(valuation.PriceGrid, 0, len(keys))
	last := make([]decimal.Decimal, len(tickers))
	for _, k := range keys {
		gp := valuation.GridPoint{Time: stamps[k], Prices: make(map[string]decimal.Decimal, len(tickers))}
		for i, ticker := range tickers {
			if v, ok := closes[i][k]; ok {
				last[i] = v
			}
			if last[i].IsPositive() {
				gp.Prices[ticker] = last[i]
			}
		}
		grid = append(grid, gp)
	}
	return grid
}

// fetch issues one chart request and decodes its bars.
func (c *YahooClient) fetch(ctx context.Context, op, ticker string, q chartQuery) ([]Bar, error) {
	var chartResp yahooChartResponse
	u := c.baseURL + "/" + url.PathEscape(ticker) + "?" + q.values().Encode()
	if err := c.getJSON(ctx, op, ticker, u, &chartResp); err != nil {
		return nil, err
	}
	if e := chartResp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", valuation.ErrDataUnavailable, ticker, e.Description)
	}
	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no data for %s", valuation.ErrDataUnavailable, ticker)
	}

	return decodeBars(chartResp.Chart.Result[0]), nil
}

// getJSON issues one GET against Yahoo and decodes the body into dst.
// subject names the ticker or query in errors and logs.
func (c *YahooClient) getJSON(ctx context.Context, op, subject, rawURL string, dst any) (err error) {
	start := time.Now()
	defer func() {
		metrics.MarketDataLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.MarketDataRequests.WithLabelValues(op, outcome(err)).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", valuation.ErrDataUnavailable, subject, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		logger.Get().Warnw("market data rate limited", "subject", subject, "operation", op)
		return fmt.Errorf("%w: %s", valuation.ErrRateLimited, subject)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s not found", valuation.ErrDataUnavailable, subject)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s: unexpected status %d", valuation.ErrDataUnavailable, subject, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", valuation.ErrDataUnavailable, subject, err)
	}
	return nil
}

func decodeBars(r yahooChartResult) []Bar {
	var opens, closes []*float64
	if len(r.Indicators.Quote) > 0 {
		opens, closes = r.Indicators.Quote[0].Open, r.Indicators.Quote[0].Close
	}

	bars := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		b := Bar{Time: time.Unix(ts, 0).UTC()}
		if i < len(opens) && opens[i] != nil {
			b.Open = decimal.NewFromFloat(*opens[i])
		}
		if i < len(closes) && closes[i] != nil {
			b.Close = decimal.NewFromFloat(*closes[i])
		}
		bars = append(bars, b)
	}
	return bars
}

// toCents converts a dollar price to whole cents.
func toCents(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, valuation.ErrRateLimited):
		return "rate_limited"
	default:
		return metrics.Outcome(err)
	}
}
