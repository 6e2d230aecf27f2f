package valuation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the running position in a single ticker. CostBasisCents and
// BenchmarkShares are the parts of the portfolio totals attributed to it, so
// a sell can release them proportionally.
//
// CostCents is the full purchase cost of the shares still held, whether the
// purchase was funded by new money or by cash from earlier sales. Realized
// gains and position returns are measured against it.
type Lot struct {
	Shares          decimal.Decimal
	CostCents       int64
	CostBasisCents  int64
	BenchmarkShares decimal.Decimal
}

// Realization is one SELL entry in the realized ledger.
type Realization struct {
	Ticker     string
	SoldAt     time.Time
	ValueCents int64
	AlphaCents int64
}

// HoldingsState is the accumulator produced by replaying transactions.
// CostBasisCents and BenchmarkShares always equal the sums over Lots.
type HoldingsState struct {
	Lots            map[string]Lot
	CashCents       int64
	CostBasisCents  int64
	BenchmarkShares decimal.Decimal
	Realized        []Realization
}

// NewHoldingsState returns an empty state.
func NewHoldingsState() *HoldingsState {
	return &HoldingsState{Lots: make(map[string]Lot)}
}

// Clone returns a deep copy of s.
func (s *HoldingsState) Clone() *HoldingsState {
	c := &HoldingsState{
		Lots:            make(map[string]Lot, len(s.Lots)),
		CashCents:       s.CashCents,
		CostBasisCents:  s.CostBasisCents,
		BenchmarkShares: s.BenchmarkShares,
		Realized:        make([]Realization, len(s.Realized)),
	}
	for t, lot := range s.Lots {
		c.Lots[t] = lot
	}
	copy(c.Realized, s.Realized)
	return c
}

// Shares returns the share count held in ticker.
func (s *HoldingsState) Shares(ticker string) decimal.Decimal {
	return s.Lots[ticker].Shares
}

// Holdings returns ticker -> share count for every open position.
func (s *HoldingsState) Holdings() map[string]decimal.Decimal {
	h := make(map[string]decimal.Decimal, len(s.Lots))
	for t, lot := range s.Lots {
		if !lot.Shares.IsZero() {
			h[t] = lot.Shares
		}
	}
	return h
}

// RealizedValueCents sums the realized ledger.
func (s *HoldingsState) RealizedValueCents() int64 {
	var total int64
	for _, r := range s.Realized {
		total += r.ValueCents
	}
	return total
}

// RealizedAlphaCents sums realized alpha over the ledger.
func (s *HoldingsState) RealizedAlphaCents() int64 {
	var total int64
	for _, r := range s.Realized {
		total += r.AlphaCents
	}
	return total
}

// Replayer folds transactions into a HoldingsState using benchmark prices on
// each transaction date.
type Replayer struct {
	benchmark BenchmarkPrices
}

// NewReplayer creates a Replayer backed by the given benchmark prices.
func NewReplayer(benchmark BenchmarkPrices) *Replayer {
	return &Replayer{benchmark: benchmark}
}

// Replay folds sorted transactions into a fresh state.
func (r *Replayer) Replay(txs []Transaction) (*HoldingsState, error) {
	state := NewHoldingsState()
	if err := r.Fold(state, txs); err != nil {
		return nil, err
	}
	return state, nil
}

// Fold applies sorted transactions to state in order. On error the state
// reflects every transaction before the failing one.
func (r *Replayer) Fold(state *HoldingsState, txs []Transaction) error {
	for _, tx := range txs {
		if err := r.Apply(state, tx); err != nil {
			return err
		}
	}
	return nil
}

// Apply folds a single transaction into state.
//
// A BUY spends accumulated cash first; only the part of the cost not covered
// by cash is added to cost basis. The shadow benchmark position always buys
// the full cost. A SELL releases the sold fraction of the lot's purchase cost,
// cost basis and benchmark shares, credits proceeds to cash and appends a
// ledger entry valued against the released purchase cost.
func (r *Replayer) Apply(state *HoldingsState, tx Transaction) error {
	if tx.Ticker == "" || tx.Quantity.Sign() <= 0 || tx.PriceCents < 0 {
		return fmt.Errorf("%w: %s %s @ %d", ErrInvalidTransaction, tx.Ticker, tx.Quantity, tx.PriceCents)
	}

	benchPrice, ok := r.benchmark.On(tx.PurchasedAt)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingBenchmarkPrice, DateKey(tx.PurchasedAt))
	}

	if state.Lots == nil {
		state.Lots = make(map[string]Lot)
	}
	cost := tx.CostCents()
	lot := state.Lots[tx.Ticker]

	switch tx.Type {
	case Buy:
		shadow := decimal.NewFromInt(cost).Div(decimal.NewFromInt(benchPrice))
		injected := max(0, cost-state.CashCents)
		state.CashCents = max(0, state.CashCents-cost)

		lot.Shares = lot.Shares.Add(tx.Quantity)
		lot.CostCents += cost
		lot.CostBasisCents += injected
		lot.BenchmarkShares = lot.BenchmarkShares.Add(shadow)
		state.CostBasisCents += injected
		state.BenchmarkShares = state.BenchmarkShares.Add(shadow)

	case Sell:
		if lot.Shares.LessThan(tx.Quantity) {
			return fmt.Errorf("%w: selling %s %s with %s held", ErrOversold, tx.Quantity, tx.Ticker, lot.Shares)
		}

		costOut, basisOut, shadowOut := lot.CostCents, lot.CostBasisCents, lot.BenchmarkShares
		if !tx.Quantity.Equal(lot.Shares) {
			costOut = proportion(lot.CostCents, tx.Quantity, lot.Shares)
			basisOut = proportion(lot.CostBasisCents, tx.Quantity, lot.Shares)
			shadowOut = lot.BenchmarkShares.Mul(tx.Quantity).Div(lot.Shares)
		}

		lot.Shares = lot.Shares.Sub(tx.Quantity)
		lot.CostCents -= costOut
		lot.CostBasisCents -= basisOut
		lot.BenchmarkShares = lot.BenchmarkShares.Sub(shadowOut)
		state.CostBasisCents -= basisOut
		state.BenchmarkShares = state.BenchmarkShares.Sub(shadowOut)
		state.CashCents += cost

		value := cost - costOut
		benchGain := shadowOut.Mul(decimal.NewFromInt(benchPrice)).Round(0).IntPart() - costOut
		state.Realized = append(state.Realized, Realization{
			Ticker:     tx.Ticker,
			SoldAt:     tx.PurchasedAt,
			ValueCents: value,
			AlphaCents: value - benchGain,
		})

	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
	}

	state.Lots[tx.Ticker] = lot
	return nil
}

// proportion returns cents * part / whole rounded to the nearest cent.
func proportion(cents int64, part, whole decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(part).Div(whole).Round(0).IntPart()
}
