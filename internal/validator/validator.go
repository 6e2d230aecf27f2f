// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"folio/internal/models"
	"folio/internal/valuation"
)

// tickerRegex accepts exchange symbols such as AAPL, BRK.B, ^GSPC and EURUSD=X.
var tickerRegex = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9.\-=]{0,15}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("ticker", validateTicker)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("timeframe", validateTimeframe)
	_ = v.RegisterValidation("strategy_display_option", validateStrategyDisplayOption)
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch valuation.TransactionType(fl.Field().String()) {
	case valuation.Buy, valuation.Sell:
		return true
	}
	return false
}

func validateTimeframe(fl validator.FieldLevel) bool {
	_, err := valuation.ParseTimeframe(fl.Field().String())
	return err == nil
}

func validateStrategyDisplayOption(fl validator.FieldLevel) bool {
	switch models.StrategyDisplayOption(fl.Field().String()) {
	case models.StrategyDisplayNone, models.StrategyDisplayGraph, models.StrategyDisplayDividend:
		return true
	}
	return false
}
