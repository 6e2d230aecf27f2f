package services

import (
	"context"
	"strings"

	"folio/internal/marketdata"
	"folio/internal/metrics"
	"folio/internal/valuation"
)

// statisticsService reports company fundamentals and portfolio totals.
type statisticsService struct {
	companies  CompanyStatistics
	valuations ValuationServicer
}

// NewStatisticsService creates a new StatisticsServicer.
func NewStatisticsService(companies CompanyStatistics, valuations ValuationServicer) StatisticsServicer {
	return &statisticsService{companies: companies, valuations: valuations}
}

// GetStockStatistics returns the profile and fundamentals of ticker.
func (s *statisticsService) GetStockStatistics(ctx context.Context, ticker string) (*marketdata.StockStatistics, error) {
	stats, err := s.companies.StockStatistics(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return nil, MarketDataError(err)
	}
	return stats, nil
}

// GetPortfolioStatistics totals the positions of one of the user's portfolios.
func (s *statisticsService) GetPortfolioStatistics(ctx context.Context, userID, portfolioID string) (stats *valuation.PortfolioStatistics, err error) {
	defer func() { metrics.Valuations.WithLabelValues("statistics", metrics.Outcome(err)).Inc() }()

	positions, err := s.valuations.GetPortfolioPositions(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	summary := valuation.SummarizePositions(positions)
	return &summary, nil
}
