package models

// StrategyDisplayOption selects how the client renders a portfolio's strategy.
type StrategyDisplayOption string

const (
	StrategyDisplayNone     StrategyDisplayOption = "NONE"
	StrategyDisplayGraph    StrategyDisplayOption = "GRAPH"
	StrategyDisplayDividend StrategyDisplayOption = "DIVIDEND"
)

// User represents the user model in the database
type User struct {
	Base
	Email                 string                `gorm:"uniqueIndex;not null" json:"email"`
	Username              string                `gorm:"uniqueIndex;not null" json:"username"`
	Password              string                `gorm:"not null" json:"-"`
	FirstName             string                `json:"first_name"`
	LastName              string                `json:"last_name"`
	IsActive              bool                  `gorm:"default:true" json:"is_active"`
	IsAdmin               bool                  `gorm:"not null;default:false" json:"is_admin"`
	RefreshTokenHash      string                `gorm:"size:64" json:"-"`
	StrategyDisplayOption StrategyDisplayOption `gorm:"size:16;not null;default:NONE" json:"strategy_display_option"`
	Portfolios            []Portfolio           `gorm:"foreignKey:UserID" json:"portfolios,omitempty"`
}
