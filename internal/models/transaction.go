package models

import (
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/valuation"
)

// Transaction is a single BUY or SELL of a ticker inside a portfolio.
// Quantity is fractional; PriceCents is the per-share price.
type Transaction struct {
	Base
	UserID      string                    `gorm:"type:uuid;not null;index" json:"user_id"`
	PortfolioID string                    `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Ticker      string                    `gorm:"size:16;not null;index" json:"ticker"`
	Quantity    decimal.Decimal           `gorm:"type:numeric(20,8);not null" json:"quantity"`
	PriceCents  int64                     `gorm:"type:bigint;not null" json:"price_cents"`
	Type        valuation.TransactionType `gorm:"size:4;not null" json:"type"`
	PurchasedAt time.Time                 `gorm:"not null;index" json:"purchased_at"`
}

// Valuation converts the row to the engine's transaction record.
func (t Transaction) Valuation() valuation.Transaction {
	return valuation.Transaction{
		Ticker:      t.Ticker,
		Quantity:    t.Quantity,
		PriceCents:  t.PriceCents,
		Type:        t.Type,
		PurchasedAt: t.PurchasedAt,
		CreatedAt:   t.CreatedAt,
	}
}

// ToValuation converts rows to engine transaction records.
func ToValuation(rows []Transaction) []valuation.Transaction {
	out := make([]valuation.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.Valuation()
	}
	return out
}
