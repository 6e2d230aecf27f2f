package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/valuation"
)

// indexPriceBatchSize bounds the rows written per INSERT when replacing history.
const indexPriceBatchSize = 1000

// indexPriceService stores benchmark opening prices.
type indexPriceService struct {
	db     *gorm.DB
	prices valuation.PriceLookup
}

// NewIndexPriceService creates a new IndexPriceServicer. prices is consulted
// when a requested day has not been recorded yet.
func NewIndexPriceService(db *gorm.DB, prices valuation.PriceLookup) IndexPriceServicer {
	return &indexPriceService{db: db, prices: prices}
}

// PricesOn returns the recorded opening prices of ticker covering days, keyed
// by calendar date. Days without a record are absent from the result.
func (s *indexPriceService) PricesOn(ticker string, days []time.Time) (valuation.BenchmarkPrices, error) {
	prices := valuation.BenchmarkPrices{}
	if len(days) == 0 {
		return prices, nil
	}

	from, to := valuation.Day(days[0]), valuation.Day(days[0])
	for _, d := range days[1:] {
		d = valuation.Day(d)
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}

	var rows []models.IndexPrice
	if err := s.db.Where("ticker = ? AND date >= ? AND date <= ?", ticker, from, to).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, r := range rows {
		prices[valuation.DateKey(r.Date)] = r.OpenPriceCents
	}
	return prices, nil
}

// EnsurePrice returns the recorded price of ticker on day, fetching and
// storing it when absent.
func (s *indexPriceService) EnsurePrice(ctx context.Context, ticker string, day time.Time) (int64, error) {
	day = valuation.Day(day)

	var row models.IndexPrice
	err := s.db.Where("ticker = ? AND date = ?", ticker, day).First(&row).Error
	if err == nil {
		return row.OpenPriceCents, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !valuation.IsTradingDay(day) {
		return 0, apperrors.WithMessage(apperrors.ErrMarketClosed,
			fmt.Sprintf("The market was closed on %s", valuation.DateKey(day)))
	}

	cents, err := s.prices.PriceOnDate(ctx, ticker, day)
	if err != nil {
		return 0, MarketDataError(err)
	}
	if _, err := s.RecordPrice(ticker, day, cents); err != nil {
		return 0, err
	}
	return cents, nil
}

// RecordPrice stores the opening price for ticker on day. It reports false
// without error when the day was already recorded.
func (s *indexPriceService) RecordPrice(ticker string, day time.Time, openCents int64) (bool, error) {
	if openCents <= 0 {
		return false, apperrors.WithMessage(apperrors.ErrInvalidInput, "open price must be positive")
	}

	row := &models.IndexPrice{Ticker: ticker, Date: valuation.Day(day), OpenPriceCents: openCents}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReplaceHistory deletes every stored price of ticker and inserts prices in
// batches, all inside one database transaction.
func (s *indexPriceService) ReplaceHistory(ticker string, prices []models.IndexPrice) (int, error) {
	for i := range prices {
		prices[i].Ticker = ticker
		prices[i].Date = valuation.Day(prices[i].Date)
		if prices[i].OpenPriceCents <= 0 {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("non-positive open price on %s", valuation.DateKey(prices[i].Date)))
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticker = ?", ticker).Delete(&models.IndexPrice{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(prices) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(prices, indexPriceBatchSize).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(prices), nil
}
