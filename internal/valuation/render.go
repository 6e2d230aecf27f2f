package valuation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChartPoint is a display-ready sample. Values are rounded to cents and
// percent changes are measured from the first point of the chart.
type ChartPoint struct {
	Date               string  `json:"date"`
	PortfolioValue     float64 `json:"portfolio_value"`
	BenchmarkValue     float64 `json:"benchmark_value"`
	PctChangePortfolio float64 `json:"pct_change_portfolio"`
	PctChangeBenchmark float64 `json:"pct_change_benchmark"`
}

// ChartSummary holds first-to-last totals for both series.
type ChartSummary struct {
	LastValue                   float64 `json:"last_value"`
	TotalReturn                 float64 `json:"total_return"`
	TotalReturnPercent          float64 `json:"total_return_percent"`
	LastBenchmarkValue          float64 `json:"last_benchmark_value"`
	TotalReturnBenchmark        float64 `json:"total_return_benchmark"`
	TotalReturnPercentBenchmark float64 `json:"total_return_percent_benchmark"`
}

// Chart is a rendered two-line chart.
type Chart struct {
	Points  []ChartPoint `json:"points"`
	Summary ChartSummary `json:"summary"`
}

// Pair is an unrounded left/right sample ready for rendering.
type Pair struct {
	Time  time.Time
	Left  decimal.Decimal
	Right decimal.Decimal
}

// Pairs converts a valuation series into render input.
func (s Series) Pairs() []Pair {
	pairs := make([]Pair, len(s.Points))
	for i, p := range s.Points {
		pairs[i] = Pair{Time: p.Time, Left: p.Portfolio, Right: p.Benchmark}
	}
	return pairs
}

// Render rounds pairs for display, formatting dates with layout. An empty
// input renders an empty chart.
func Render(pairs []Pair, layout string) Chart {
	chart := Chart{Points: make([]ChartPoint, 0, len(pairs))}
	if len(pairs) == 0 {
		return chart
	}

	first, last := pairs[0], pairs[len(pairs)-1]
	for _, p := range pairs {
		chart.Points = append(chart.Points, ChartPoint{
			Date:               p.Time.Format(layout),
			PortfolioValue:     round2(p.Left),
			BenchmarkValue:     round2(p.Right),
			PctChangePortfolio: round2(PercentChange(p.Left, first.Left)),
			PctChangeBenchmark: round2(PercentChange(p.Right, first.Right)),
		})
	}
	chart.Summary = ChartSummary{
		LastValue:                   round2(last.Left),
		TotalReturn:                 round2(last.Left.Sub(first.Left)),
		TotalReturnPercent:          round2(PercentChange(last.Left, first.Left)),
		LastBenchmarkValue:          round2(last.Right),
		TotalReturnBenchmark:        round2(last.Right.Sub(first.Right)),
		TotalReturnPercentBenchmark: round2(PercentChange(last.Right, first.Right)),
	}
	return chart
}

// PercentChange returns (value - start) / start x 100, or zero when start is
// zero.
func PercentChange(value, start decimal.Decimal) decimal.Decimal {
	if start.IsZero() {
		return decimal.Zero
	}
	return value.Sub(start).Div(start).Mul(hundred)
}

// Rebase scales values so the first one is 100.
func Rebase(values []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if values[0].IsZero() {
		return nil, ErrZeroBaseline
	}
	scale := hundred.Div(values[0])
	rebased := make([]decimal.Decimal, len(values))
	for i, v := range values {
		rebased[i] = v.Mul(scale)
	}
	return rebased, nil
}

// Align joins two timed series on identical timestamps, keeping left's order.
func Align(left, right []TimedValue) []Pair {
	byTime := make(map[int64]decimal.Decimal, len(right))
	for _, r := range right {
		byTime[r.Time.UnixNano()] = r.Value
	}
	pairs := make([]Pair, 0, len(left))
	for _, l := range left {
		if r, ok := byTime[l.Time.UnixNano()]; ok {
			pairs = append(pairs, Pair{Time: l.Time, Left: l.Value, Right: r})
		}
	}
	return pairs
}

// Compare aligns two series and rebases both to 100 at their first common
// point.
func Compare(left, right []TimedValue) ([]Pair, error) {
	pairs := Align(left, right)
	if len(pairs) == 0 {
		return pairs, nil
	}

	lefts := make([]decimal.Decimal, len(pairs))
	rights := make([]decimal.Decimal, len(pairs))
	for i, p := range pairs {
		lefts[i], rights[i] = p.Left, p.Right
	}
	lefts, err := Rebase(lefts)
	if err != nil {
		return nil, err
	}
	rights, err = Rebase(rights)
	if err != nil {
		return nil, err
	}
	for i := range pairs {
		pairs[i].Left, pairs[i].Right = lefts[i], rights[i]
	}
	return pairs, nil
}

// ScaleRight multiplies every right value so the first right equals the first
// left. Used to overlay the benchmark on a single ticker's price line.
func ScaleRight(pairs []Pair) ([]Pair, error) {
	if len(pairs) == 0 {
		return pairs, nil
	}
	if pairs[0].Right.IsZero() {
		return nil, ErrZeroBaseline
	}
	scale := pairs[0].Left.Div(pairs[0].Right)
	scaled := make([]Pair, len(pairs))
	for i, p := range pairs {
		scaled[i] = Pair{Time: p.Time, Left: p.Left, Right: p.Right.Mul(scale)}
	}
	return scaled, nil
}

// PortfolioValues extracts the portfolio line of a series for comparison.
func (s Series) PortfolioValues() []TimedValue {
	values := make([]TimedValue, len(s.Points))
	for i, p := range s.Points {
		values[i] = TimedValue{Time: p.Time, Value: p.Portfolio}
	}
	return values
}
