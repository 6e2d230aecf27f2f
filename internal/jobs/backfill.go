package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"folio/internal/logger"
	"folio/internal/marketdata"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/valuation"
)

// DailyBarSource returns the full daily history of a ticker.
type DailyBarSource interface {
	DailyBars(ctx context.Context, ticker string) ([]marketdata.Bar, error)
}

// BackfillJob rebuilds a ticker's stored price history from its full daily
// series.
type BackfillJob struct {
	ticker string
	bars   DailyBarSource
	store  services.IndexPriceServicer
	log    *zap.SugaredLogger
}

// NewBackfillJob creates a history backfill for ticker.
func NewBackfillJob(ticker string, bars DailyBarSource, store services.IndexPriceServicer) *BackfillJob {
	return &BackfillJob{ticker: ticker, bars: bars, store: store, log: logger.Named("backfill_job")}
}

// Name implements scheduler.Job.
func (j *BackfillJob) Name() string { return "index_price_backfill" }

// Run implements scheduler.Job.
func (j *BackfillJob) Run(ctx context.Context) error {
	_, err := j.Backfill(ctx)
	return err
}

// Backfill replaces the stored history with one row per trading day that has
// a positive open and returns the number of rows written. Existing rows are
// kept when the upstream returns nothing usable.
func (j *BackfillJob) Backfill(ctx context.Context) (int, error) {
	bars, err := j.bars.DailyBars(ctx, j.ticker)
	if err != nil {
		return 0, services.MarketDataError(err)
	}

	seen := make(map[string]bool, len(bars))
	prices := make([]models.IndexPrice, 0, len(bars))
	for _, b := range bars {
		cents := b.OpenCents()
		key := valuation.DateKey(b.Time)
		if cents <= 0 || seen[key] {
			continue
		}
		seen[key] = true
		prices = append(prices, models.IndexPrice{Date: valuation.Day(b.Time), OpenPriceCents: cents})
	}
	if len(prices) == 0 {
		return 0, services.MarketDataError(fmt.Errorf("%w: no usable daily bars for %s", valuation.ErrDataUnavailable, j.ticker))
	}

	n, err := j.store.ReplaceHistory(j.ticker, prices)
	if err != nil {
		return 0, err
	}
	j.log.Infow("index price history replaced", "ticker", j.ticker, "rows", n,
		"from", valuation.DateKey(prices[0].Date), "to", valuation.DateKey(prices[len(prices)-1].Date))
	return n, nil
}
