// Package jobs holds the background work that maintains the benchmark price
// history.
package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/services"
	"folio/internal/valuation"
)

// OpenPriceSource returns a ticker's opening price on a day.
type OpenPriceSource interface {
	PriceOnDate(ctx context.Context, ticker string, day time.Time) (int64, error)
}

// FetchResult describes one daily index price fetch.
type FetchResult struct {
	Ticker         string `json:"ticker"`
	Date           string `json:"date"`
	OpenPriceCents int64  `json:"open_price_cents,omitempty"`
	Stored         bool   `json:"stored"`
	Skipped        string `json:"skipped,omitempty"`
}

// IndexPriceJob records the benchmark's opening price for the current day.
type IndexPriceJob struct {
	ticker string
	prices OpenPriceSource
	store  services.IndexPriceServicer
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewIndexPriceJob creates the daily fetch job for ticker.
func NewIndexPriceJob(ticker string, prices OpenPriceSource, store services.IndexPriceServicer) *IndexPriceJob {
	return &IndexPriceJob{
		ticker: ticker,
		prices: prices,
		store:  store,
		log:    logger.Named("index_price_job"),
		now:    time.Now,
	}
}

// Name implements scheduler.Job.
func (j *IndexPriceJob) Name() string { return "index_price_fetch" }

// Run implements scheduler.Job.
func (j *IndexPriceJob) Run(ctx context.Context) error {
	_, err := j.Fetch(ctx)
	return err
}

// Fetch stores today's open if the market traded and the day is not yet
// recorded. Re-running on the same day is a no-op.
func (j *IndexPriceJob) Fetch(ctx context.Context) (*FetchResult, error) {
	day := valuation.Day(j.now())
	result := &FetchResult{Ticker: j.ticker, Date: valuation.DateKey(day)}

	if !valuation.IsTradingDay(day) {
		result.Skipped = "market closed"
		metrics.IndexPriceFetches.WithLabelValues("skipped").Inc()
		j.log.Infow("market closed, skipping index price fetch", "ticker", j.ticker, "date", result.Date)
		return result, nil
	}

	cents, err := j.prices.PriceOnDate(ctx, j.ticker, day)
	if errors.Is(err, valuation.ErrMissingPrice) {
		result.Skipped = "no price published"
		metrics.IndexPriceFetches.WithLabelValues("missing").Inc()
		j.log.Warnw("no open price published yet", "ticker", j.ticker, "date", result.Date)
		return result, nil
	}
	if err != nil {
		metrics.IndexPriceFetches.WithLabelValues("error").Inc()
		return nil, services.MarketDataError(err)
	}

	stored, err := j.store.RecordPrice(j.ticker, day, cents)
	if err != nil {
		metrics.IndexPriceFetches.WithLabelValues("error").Inc()
		return nil, err
	}

	result.OpenPriceCents = cents
	result.Stored = stored
	if stored {
		metrics.IndexPriceFetches.WithLabelValues("stored").Inc()
	} else {
		metrics.IndexPriceFetches.WithLabelValues("exists").Inc()
	}
	j.log.Infow("index price fetched", "ticker", j.ticker, "date", result.Date, "open_cents", cents, "stored", stored)
	return result, nil
}
