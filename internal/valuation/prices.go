package valuation

import (
	"context"
	"time"
)

// PriceLookup is the market-data dependency of the engine.
//
// PriceOnDate returns ErrMissingPrice when the market has no price for the
// day. Remote implementations report throttling as ErrRateLimited and empty
// upstream responses as ErrDataUnavailable; callers decide whether to retry.
type PriceLookup interface {
	PriceOnDate(ctx context.Context, ticker string, day time.Time) (int64, error)
	LatestPrice(ctx context.Context, ticker string) (int64, error)
	HistoricalSeries(ctx context.Context, tickers []string, start time.Time, interval Interval) (PriceGrid, error)
}
