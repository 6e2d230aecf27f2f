package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"folio/internal/metrics"
	"folio/internal/valuation"
)

// CachedSource wraps a PriceLookup with a Redis read-through cache. Reads
// check Redis first and fall back to the primary on a miss or any cache
// failure; a cache outage never fails a lookup.
type CachedSource struct {
	primary valuation.PriceLookup
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedSource creates a cached wrapper around a primary price source.
func NewCachedSource(primary valuation.PriceLookup, rdb *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{primary: primary, rdb: rdb, ttl: ttl}
}

var _ valuation.PriceLookup = (*CachedSource)(nil)

// PriceOnDate is cached without expiry once the date is in the past.
func (s *CachedSource) PriceOnDate(ctx context.Context, ticker string, day time.Time) (int64, error) {
	key := priceOnDateKey(ticker, day)
	var cents int64
	if s.get(ctx, "price_on_date", key, &cents) {
		return cents, nil
	}

	cents, err := s.primary.PriceOnDate(ctx, ticker, day)
	if err != nil {
		return 0, err
	}

	ttl := s.ttl
	if valuation.Day(day).Before(valuation.Day(time.Now())) {
		ttl = 0
	}
	s.set(ctx, key, cents, ttl)
	return cents, nil
}

func (s *CachedSource) LatestPrice(ctx context.Context, ticker string) (int64, error) {
	key := latestKey(ticker)
	var cents int64
	if s.get(ctx, "latest_price", key, &cents) {
		return cents, nil
	}

	cents, err := s.primary.LatestPrice(ctx, ticker)
	if err != nil {
		return 0, err
	}
	s.set(ctx, key, cents, s.ttl)
	return cents, nil
}

func (s *CachedSource) HistoricalSeries(ctx context.Context, tickers []string, start time.Time, interval valuation.Interval) (valuation.PriceGrid, error) {
	key := seriesKey(tickers, start, interval)
	var grid valuation.PriceGrid
	if s.get(ctx, "historical_series", key, &grid) {
		return grid, nil
	}

	grid, err := s.primary.HistoricalSeries(ctx, tickers, start, interval)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, grid, s.ttl)
	return grid, nil
}

// get reports whether key was found and decoded into dst.
func (s *CachedSource) get(ctx context.Context, kind, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.PriceCacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	case err != nil:
		metrics.PriceCacheLookups.WithLabelValues(kind, "error").Inc()
		return false
	}
	if json.Unmarshal(data, dst) != nil {
		metrics.PriceCacheLookups.WithLabelValues(kind, "error").Inc()
		return false
	}
	metrics.PriceCacheLookups.WithLabelValues(kind, "hit").Inc()
	return true
}

func (s *CachedSource) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, ttl)
	}
}

func priceOnDateKey(ticker string, day time.Time) string {
	return fmt.Sprintf("price:open:%s:%s", ticker, valuation.DateKey(day))
}

func latestKey(ticker string) string { return fmt.Sprintf("price:latest:%s", ticker) }

func seriesKey(tickers []string, start time.Time, interval valuation.Interval) string {
	return fmt.Sprintf("price:series:%s:%d:%s", strings.Join(tickers, ","), start.Unix(), interval)
}
