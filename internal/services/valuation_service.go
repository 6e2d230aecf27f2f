package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"folio/internal/logger"
	"folio/internal/metrics"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/valuation"
)

// maxConcurrentCharts bounds the per-request fan-out when charting a page of portfolios.
const maxConcurrentCharts = 4

// compare symbol prefixes
const (
	symbolStock     = "STOCK"
	symbolPortfolio = "PORTFOLIO"
)

// valuationService values holdings against live and historical prices.
type valuationService struct {
	transactions    TransactionServicer
	portfolios      PortfolioServicer
	indexPrices     IndexPriceServicer
	prices          valuation.PriceLookup
	benchmarkTicker string
	now             func() time.Time
}

// NewValuationService creates a new ValuationServicer.
func NewValuationService(
	transactions TransactionServicer,
	portfolios PortfolioServicer,
	indexPrices IndexPriceServicer,
	prices valuation.PriceLookup,
	benchmarkTicker string,
) ValuationServicer {
	return &valuationService{
		transactions:    transactions,
		portfolios:      portfolios,
		indexPrices:     indexPrices,
		prices:          prices,
		benchmarkTicker: benchmarkTicker,
		now:             time.Now,
	}
}

// GetUserPositions returns one position per ticker across all of the user's portfolios.
func (s *valuationService) GetUserPositions(ctx context.Context, userID string) ([]valuation.Position, error) {
	rows, err := s.transactions.ListForValuation(userID, "")
	if err != nil {
		return nil, err
	}
	return s.positions(ctx, rows)
}

// GetPortfolioPositions returns one position per ticker in a single portfolio.
func (s *valuationService) GetPortfolioPositions(ctx context.Context, userID, portfolioID string) ([]valuation.Position, error) {
	rows, err := s.transactions.ListForValuation(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.positions(ctx, rows)
}

func (s *valuationService) positions(ctx context.Context, rows []models.Transaction) (positions []valuation.Position, err error) {
	defer func() { metrics.Valuations.WithLabelValues("positions", metrics.Outcome(err)).Inc() }()

	txs := models.ToValuation(rows)
	metrics.ReplayedTransactions.Observe(float64(len(txs)))
	if len(txs) == 0 {
		return []valuation.Position{}, nil
	}

	bench, err := s.indexPrices.PricesOn(s.benchmarkTicker, valuation.Dates(txs))
	if err != nil {
		return nil, err
	}
	quotes, err := s.quotes(ctx, valuation.Tickers(txs))
	if err != nil {
		return nil, valuationError(err)
	}

	positions, err = valuation.AggregatePositions(txs, quotes, bench)
	if err != nil {
		return nil, valuationError(err)
	}
	return positions, nil
}

// quotes fetches the latest price of every ticker and of the benchmark.
func (s *valuationService) quotes(ctx context.Context, tickers []string) (map[string]valuation.PositionQuote, error) {
	latest := make(map[string]int64, len(tickers)+1)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCharts)
	for _, ticker := range withTicker(tickers, s.benchmarkTicker) {
		ticker := ticker
		g.Go(func() error {
			cents, err := s.prices.LatestPrice(gctx, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			latest[ticker] = cents
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes := make(map[string]valuation.PositionQuote, len(tickers))
	for _, ticker := range tickers {
		quotes[ticker] = valuation.PositionQuote{
			PriceCents:          latest[ticker],
			BenchmarkPriceCents: latest[s.benchmarkTicker],
		}
	}
	return quotes, nil
}

// GetPortfolioChart charts one portfolio against the benchmark.
func (s *valuationService) GetPortfolioChart(ctx context.Context, userID, portfolioID string, tf valuation.Timeframe) (*valuation.Chart, error) {
	rows, err := s.transactions.ListForValuation(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.holdingsChart(ctx, rows, tf)
}

// GetSummaryChart charts all of the user's portfolios combined.
func (s *valuationService) GetSummaryChart(ctx context.Context, userID string, tf valuation.Timeframe) (*valuation.Chart, error) {
	rows, err := s.transactions.ListForValuation(userID, "")
	if err != nil {
		return nil, err
	}
	return s.holdingsChart(ctx, rows, tf)
}

func (s *valuationService) holdingsChart(ctx context.Context, rows []models.Transaction, tf valuation.Timeframe) (chart *valuation.Chart, err error) {
	defer func() { metrics.Valuations.WithLabelValues("chart", metrics.Outcome(err)).Inc() }()

	txs := models.ToValuation(rows)
	metrics.ReplayedTransactions.Observe(float64(len(txs)))

	window, err := tf.Resolve(s.now(), firstPurchase(txs))
	if err != nil {
		return nil, valuationError(err)
	}
	if len(txs) == 0 {
		empty := valuation.Render(nil, window.DateLayout)
		return &empty, nil
	}

	grid, err := s.grid(ctx, valuation.Tickers(txs), window)
	if err != nil {
		return nil, err
	}
	series, err := s.series(txs, window, grid)
	if err != nil {
		return nil, err
	}

	rendered := valuation.Render(series.Pairs(), window.DateLayout)
	return &rendered, nil
}

// GetStockChart charts a single ticker with the benchmark scaled to the
// ticker's first price.
func (s *valuationService) GetStockChart(ctx context.Context, ticker string, tf valuation.Timeframe) (chart *valuation.Chart, err error) {
	defer func() { metrics.Valuations.WithLabelValues("stock_chart", metrics.Outcome(err)).Inc() }()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	window, err := tf.Resolve(s.now(), time.Time{})
	if err != nil {
		return nil, valuationError(err)
	}

	grid, err := s.grid(ctx, []string{ticker}, window)
	if err != nil {
		return nil, err
	}
	pairs, err := valuation.ScaleRight(valuation.Align(grid.Closes(ticker), grid.Closes(s.benchmarkTicker)))
	if err != nil {
		return nil, valuationError(err)
	}

	rendered := valuation.Render(pairs, window.DateLayout)
	return &rendered, nil
}

// compareSymbol is one side of a comparison: a ticker or one of the user's portfolios.
type compareSymbol struct {
	kind  string
	value string
}

func parseCompareSymbol(raw string) (compareSymbol, error) {
	kind, value, ok := strings.Cut(strings.TrimSpace(raw), ":")
	kind = strings.ToUpper(kind)
	value = strings.TrimSpace(value)
	if !ok || value == "" || (kind != symbolStock && kind != symbolPortfolio) {
		return compareSymbol{}, fmt.Errorf("%w: %q", valuation.ErrInvalidCompareSymbol, raw)
	}
	if kind == symbolStock {
		value = strings.ToUpper(value)
	}
	return compareSymbol{kind: kind, value: value}, nil
}

// GetCompareChart rebases two symbols to 100 at their first common sample.
func (s *valuationService) GetCompareChart(ctx context.Context, userID, left, right string, tf valuation.Timeframe) (chart *valuation.Chart, err error) {
	defer func() { metrics.Valuations.WithLabelValues("compare_chart", metrics.Outcome(err)).Inc() }()

	symbols := make([]compareSymbol, 2)
	for i, raw := range []string{left, right} {
		if symbols[i], err = parseCompareSymbol(raw); err != nil {
			return nil, valuationError(err)
		}
	}

	txsBySymbol := make([][]valuation.Transaction, 2)
	var tickers []string
	var first time.Time
	for i, sym := range symbols {
		if sym.kind == symbolStock {
			tickers = append(tickers, sym.value)
			continue
		}
		rows, err := s.transactions.ListForValuation(userID, sym.value)
		if err != nil {
			return nil, err
		}
		txs := models.ToValuation(rows)
		txsBySymbol[i] = txs
		tickers = append(tickers, valuation.Tickers(txs)...)
		if f := firstPurchase(txs); !f.IsZero() && (first.IsZero() || f.Before(first)) {
			first = f
		}
	}

	window, err := tf.Resolve(s.now(), first)
	if err != nil {
		return nil, valuationError(err)
	}
	grid, err := s.grid(ctx, tickers, window)
	if err != nil {
		return nil, err
	}

	lines := make([][]valuation.TimedValue, 2)
	for i, sym := range symbols {
		if sym.kind == symbolStock {
			lines[i] = grid.Closes(sym.value)
			continue
		}
		series, err := s.series(txsBySymbol[i], window, grid)
		if err != nil {
			return nil, err
		}
		lines[i] = series.PortfolioValues()
	}

	pairs, err := valuation.Compare(lines[0], lines[1])
	if err != nil {
		return nil, valuationError(err)
	}
	rendered := valuation.Render(pairs, window.DateLayout)
	return &rendered, nil
}

// GetPortfoliosWithCharts returns a page of portfolios, each with its ALL chart.
func (s *valuationService) GetPortfoliosWithCharts(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[PortfolioWithChart], error) {
	portfolios, err := s.portfolios.GetUserPortfolios(userID, page)
	if err != nil {
		return nil, err
	}

	items := make([]PortfolioWithChart, len(portfolios.Data))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCharts)
	for i, p := range portfolios.Data {
		i, p := i, p
		g.Go(func() error {
			chart, err := s.GetPortfolioChart(gctx, userID, p.ID, valuation.All)
			if err != nil {
				return err
			}
			items[i] = PortfolioWithChart{Portfolio: p, Chart: *chart}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pagination.WithData(portfolios, items), nil
}

// grid fetches closes for tickers plus the benchmark over the window.
func (s *valuationService) grid(ctx context.Context, tickers []string, window valuation.Window) (valuation.PriceGrid, error) {
	all := withTicker(tickers, s.benchmarkTicker)
	grid, err := s.prices.HistoricalSeries(ctx, all, window.Start, window.Interval)
	if err != nil {
		logger.Get().Warnw("historical series unavailable",
			"tickers", all, "start", window.Start, "interval", window.Interval, "error", err)
		return nil, valuationError(err)
	}
	return grid, nil
}

// series replays txs across the grid.
func (s *valuationService) series(txs []valuation.Transaction, window valuation.Window, grid valuation.PriceGrid) (valuation.Series, error) {
	bench, err := s.indexPrices.PricesOn(s.benchmarkTicker, valuation.Dates(txs))
	if err != nil {
		return valuation.Series{}, err
	}
	series, err := valuation.BuildSeries(valuation.SeriesInput{
		WindowStart:     window.Start,
		Transactions:    txs,
		Grid:            grid,
		BenchmarkTicker: s.benchmarkTicker,
		Benchmark:       bench,
	})
	if err != nil {
		return valuation.Series{}, valuationError(err)
	}
	return series, nil
}

func firstPurchase(txs []valuation.Transaction) time.Time {
	var first time.Time
	for _, t := range txs {
		if first.IsZero() || t.PurchasedAt.Before(first) {
			first = t.PurchasedAt
		}
	}
	return first
}

// withTicker returns the sorted, de-duplicated union of tickers and extra.
func withTicker(tickers []string, extra string) []string {
	seen := map[string]bool{extra: true}
	out := []string{extra}
	for _, t := range tickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
