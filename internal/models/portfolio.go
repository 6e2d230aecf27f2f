package models

// Portfolio is a named collection of a user's transactions.
type Portfolio struct {
	Base
	UserID       string        `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string        `gorm:"size:100;not null" json:"name"`
	Description  string        `json:"description"`
	Transactions []Transaction `gorm:"foreignKey:PortfolioID" json:"transactions,omitempty"`
}
