package valuation

import "github.com/shopspring/decimal"

// PortfolioStatistics totals a portfolio's positions. Percentages are measured
// against the combined purchase cost of the shares still held.
type PortfolioStatistics struct {
	Positions       int       `json:"positions"`
	OpenPositions   int       `json:"open_positions"`
	EquityValue     float64   `json:"equity_value"`
	CostBasis       float64   `json:"cost_basis"`
	ReturnValue     float64   `json:"return_value"`
	ReturnPercent   float64   `json:"return_percent"`
	AlphaValue      float64   `json:"alpha_value"`
	AlphaPercent    float64   `json:"alpha_percent"`
	RealizedValue   float64   `json:"realized_value"`
	RealizedAlpha   float64   `json:"realized_alpha"`
	ReturnUndefined bool      `json:"return_undefined"`
	BestPerformer   *Position `json:"best_performer,omitempty"`
	WorstPerformer  *Position `json:"worst_performer,omitempty"`
}

// SummarizePositions totals positions. Best and worst performers are picked
// by return percent among positions whose return is defined.
func SummarizePositions(positions []Position) PortfolioStatistics {
	var equity, cost, ret, alpha, realized, realizedAlpha decimal.Decimal
	stats := PortfolioStatistics{Positions: len(positions)}

	for i := range positions {
		p := &positions[i]
		posEquity := decimal.NewFromFloat(p.EquityValue)
		posReturn := decimal.NewFromFloat(p.ReturnValue)

		equity = equity.Add(posEquity)
		cost = cost.Add(posEquity.Sub(posReturn))
		ret = ret.Add(posReturn)
		alpha = alpha.Add(decimal.NewFromFloat(p.AlphaValue))
		realized = realized.Add(decimal.NewFromFloat(p.RealizedValue))
		realizedAlpha = realizedAlpha.Add(decimal.NewFromFloat(p.RealizedAlpha))

		if p.Shares > 0 {
			stats.OpenPositions++
		}
		if p.ReturnUndefined {
			continue
		}
		if stats.BestPerformer == nil || p.ReturnPercent > stats.BestPerformer.ReturnPercent {
			stats.BestPerformer = p
		}
		if stats.WorstPerformer == nil || p.ReturnPercent < stats.WorstPerformer.ReturnPercent {
			stats.WorstPerformer = p
		}
	}

	stats.EquityValue = round2(equity)
	stats.CostBasis = round2(cost)
	stats.ReturnValue = round2(ret)
	stats.AlphaValue = round2(alpha)
	stats.RealizedValue = round2(realized)
	stats.RealizedAlpha = round2(realizedAlpha)

	if !cost.IsPositive() {
		stats.ReturnUndefined = true
		return stats
	}
	stats.ReturnPercent = round2(ret.Div(cost).Mul(hundred))
	stats.AlphaPercent = round2(alpha.Div(cost).Mul(hundred))
	return stats
}
