package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/valuation"
)

// stubPrices is an in-memory PriceLookup.
type stubPrices struct {
	mu       sync.Mutex
	opens    map[string]int64 // "TICKER/2006-01-02" -> cents
	latest   map[string]int64
	grid     valuation.PriceGrid
	err      error
	requests [][]string
}

func newStubPrices() *stubPrices {
	return &stubPrices{opens: map[string]int64{}, latest: map[string]int64{}}
}

func (s *stubPrices) PriceOnDate(_ context.Context, ticker string, day time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	cents, ok := s.opens[ticker+"/"+valuation.DateKey(day)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", valuation.ErrMissingPrice, ticker)
	}
	return cents, nil
}

func (s *stubPrices) LatestPrice(_ context.Context, ticker string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	cents, ok := s.latest[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: %s", valuation.ErrDataUnavailable, ticker)
	}
	return cents, nil
}

func (s *stubPrices) HistoricalSeries(_ context.Context, tickers []string, _ time.Time, _ valuation.Interval) (valuation.PriceGrid, error) {
	s.mu.Lock()
	s.requests = append(s.requests, tickers)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.grid, nil
}

// point builds a grid sample at 21:00 UTC on date with dollar prices.
func point(date string, prices map[string]string) valuation.GridPoint {
	d, _ := time.Parse("2006-01-02", date)
	gp := valuation.GridPoint{Time: d.Add(21 * time.Hour), Prices: map[string]decimal.Decimal{}}
	for ticker, p := range prices {
		gp.Prices[ticker] = decimal.RequireFromString(p)
	}
	return gp
}
