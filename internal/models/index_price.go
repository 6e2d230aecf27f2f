package models

import (
	"time"

	"gorm.io/gorm"

	"folio/internal/uuid"
)

// IndexPrice is the recorded opening price of a benchmark index on a trading day.
// This is immutable time-series data, so it carries no Base embed and no soft deletes.
type IndexPrice struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker         string    `gorm:"size:16;not null;uniqueIndex:idx_index_prices_ticker_date" json:"ticker"`
	Date           time.Time `gorm:"type:date;not null;uniqueIndex:idx_index_prices_ticker_date" json:"date"`
	OpenPriceCents int64     `gorm:"type:bigint;not null" json:"open_price_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *IndexPrice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
