package valuation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GridPoint is one sample of the price grid: ticker -> price in dollars.
type GridPoint struct {
	Time   time.Time
	Prices map[string]decimal.Decimal
}

// PriceGrid is a chronological sequence of price samples.
type PriceGrid []GridPoint

// Closes returns ticker's samples as a timed series, skipping gaps.
func (g PriceGrid) Closes(ticker string) []TimedValue {
	values := make([]TimedValue, 0, len(g))
	for _, p := range g {
		if v, ok := p.Prices[ticker]; ok {
			values = append(values, TimedValue{Time: p.Time, Value: v})
		}
	}
	return values
}

// TimedValue is a single value at a point in time.
type TimedValue struct {
	Time  time.Time
	Value decimal.Decimal
}

// SeriesPoint is one step of a portfolio valuation series. Values are
// dollars at full precision.
type SeriesPoint struct {
	Time           time.Time
	Portfolio      decimal.Decimal
	Benchmark      decimal.Decimal
	CostBasisCents int64
}

// Series is a portfolio valuation series and the cost basis at its end.
type Series struct {
	Points         []SeriesPoint
	CostBasisCents int64
}

// Empty reports whether the series has no points.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// SeriesInput holds everything BuildSeries needs.
type SeriesInput struct {
	WindowStart     time.Time
	Transactions    []Transaction
	Grid            PriceGrid
	BenchmarkTicker string
	Benchmark       BenchmarkPrices
}

// BuildSeries values a transaction history over a price grid.
//
// Transactions dated before the window seed the starting state. Walking the
// grid, every in-window transaction whose calendar date has been reached is
// applied before the point is valued. Afterwards each point whose recorded
// cost basis is below the final cost basis has the shortfall added to both
// the portfolio and benchmark values, so capital injected later in the window
// does not read as a gain against the benchmark.
func BuildSeries(in SeriesInput) (Series, error) {
	if len(in.Transactions) == 0 {
		return Series{}, nil
	}

	sorted := SortTransactions(in.Transactions)
	before, within := SplitAt(sorted, in.WindowStart)

	replayer := NewReplayer(in.Benchmark)
	state, err := replayer.Replay(before)
	if err != nil {
		return Series{}, err
	}

	points := make([]SeriesPoint, 0, len(in.Grid))
	next := 0
	for _, gp := range in.Grid {
		day := Day(gp.Time)
		for next < len(within) && !Day(within[next].PurchasedAt).After(day) {
			if err := replayer.Apply(state, within[next]); err != nil {
				return Series{}, err
			}
			next++
		}

		point, err := valuePoint(gp, state, in.BenchmarkTicker)
		if err != nil {
			return Series{}, err
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return Series{CostBasisCents: state.CostBasisCents}, nil
	}

	final := points[len(points)-1].CostBasisCents
	for i := range points {
		if shortfall := final - points[i].CostBasisCents; shortfall > 0 {
			adj := decimal.New(shortfall, -2)
			points[i].Portfolio = points[i].Portfolio.Add(adj)
			points[i].Benchmark = points[i].Benchmark.Add(adj)
		}
	}
	return Series{Points: points, CostBasisCents: final}, nil
}

func valuePoint(gp GridPoint, state *HoldingsState, benchmarkTicker string) (SeriesPoint, error) {
	value := decimal.New(state.CashCents, -2)
	for ticker, shares := range state.Holdings() {
		price, ok := gp.Prices[ticker]
		if !ok {
			return SeriesPoint{}, fmt.Errorf("%w: %s at %s", ErrMissingPrice, ticker, gp.Time.Format(time.RFC3339))
		}
		value = value.Add(shares.Mul(price))
	}

	bench := decimal.Zero
	if !state.BenchmarkShares.IsZero() {
		price, ok := gp.Prices[benchmarkTicker]
		if !ok {
			return SeriesPoint{}, fmt.Errorf("%w: %s at %s", ErrMissingPrice, benchmarkTicker, gp.Time.Format(time.RFC3339))
		}
		bench = state.BenchmarkShares.Mul(price)
	}

	return SeriesPoint{
		Time:           gp.Time,
		Portfolio:      value,
		Benchmark:      bench,
		CostBasisCents: state.CostBasisCents,
	}, nil
}
