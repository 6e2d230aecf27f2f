package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PositionQuote carries the current prices used to mark a position.
type PositionQuote struct {
	PriceCents          int64
	BenchmarkPriceCents int64
}

// Position is the closed-form summary of one ticker. Money fields are
// dollars rounded to cents; percents are rounded to two places.
//
// Returns are measured against the purchase cost of the shares still held.
// ReturnUndefined is set when that cost is zero. Return and alpha
// percentages are reported as 0 in that case.
type Position struct {
	Ticker          string  `json:"ticker"`
	Shares          float64 `json:"shares"`
	EquityValue     float64 `json:"equity_value"`
	ReturnPercent   float64 `json:"return_percent"`
	ReturnValue     float64 `json:"return_value"`
	AlphaPercent    float64 `json:"alpha_percent"`
	AlphaValue      float64 `json:"alpha_value"`
	RealizedValue   float64 `json:"realized_value"`
	RealizedAlpha   float64 `json:"realized_alpha"`
	ReturnUndefined bool    `json:"return_undefined"`
}

// AggregatePosition replays one ticker's sorted transactions and marks the
// result at quote.
func AggregatePosition(txs []Transaction, quote PositionQuote, benchmark BenchmarkPrices) (Position, error) {
	if len(txs) == 0 {
		return Position{}, fmt.Errorf("%w: no transactions", ErrInvalidTransaction)
	}
	ticker := txs[0].Ticker
	for _, tx := range txs[1:] {
		if tx.Ticker != ticker {
			return Position{}, fmt.Errorf("%w: mixed tickers %s and %s", ErrInvalidTransaction, ticker, tx.Ticker)
		}
	}

	state, err := NewReplayer(benchmark).Replay(txs)
	if err != nil {
		return Position{}, err
	}
	return markPosition(ticker, state, quote), nil
}

// AggregatePositions groups sorted transactions by ticker and aggregates
// each group. quotes must contain every ticker. The result is sorted by
// ticker; empty input yields an empty slice.
func AggregatePositions(txs []Transaction, quotes map[string]PositionQuote, benchmark BenchmarkPrices) ([]Position, error) {
	byTicker := make(map[string][]Transaction)
	for _, tx := range txs {
		byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
	}

	positions := make([]Position, 0, len(byTicker))
	for _, ticker := range Tickers(txs) {
		quote, ok := quotes[ticker]
		if !ok {
			return nil, fmt.Errorf("%w: latest price for %s", ErrMissingPrice, ticker)
		}
		pos, err := AggregatePosition(byTicker[ticker], quote, benchmark)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s: %w", ticker, err)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func markPosition(ticker string, state *HoldingsState, quote PositionQuote) Position {
	lot := state.Lots[ticker]
	basis := decimal.NewFromInt(lot.CostCents)
	equity := lot.Shares.Mul(decimal.NewFromInt(quote.PriceCents)).Round(0)
	benchEquity := lot.BenchmarkShares.Mul(decimal.NewFromInt(quote.BenchmarkPriceCents)).Round(0)

	pos := Position{
		Ticker:        ticker,
		Shares:        lot.Shares.InexactFloat64(),
		EquityValue:   dollars(equity),
		ReturnValue:   dollars(equity.Sub(basis)),
		AlphaValue:    dollars(equity.Sub(benchEquity)),
		RealizedValue: dollars(decimal.NewFromInt(state.RealizedValueCents())),
		RealizedAlpha: dollars(decimal.NewFromInt(state.RealizedAlphaCents())),
	}

	if basis.IsZero() {
		pos.ReturnUndefined = true
		return pos
	}
	ret := equity.Div(basis).Mul(hundred).Sub(hundred)
	benchRet := benchEquity.Div(basis).Mul(hundred).Sub(hundred)
	pos.ReturnPercent = round2(ret)
	pos.AlphaPercent = round2(ret.Sub(benchRet))
	return pos
}

// dollars converts a cents amount to dollars rounded to cents.
func dollars(cents decimal.Decimal) float64 {
	return round2(cents.Shift(-2))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
