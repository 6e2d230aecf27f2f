package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"folio/internal/models"
	"folio/internal/valuation"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date parses a YYYY-MM-DD date at midnight UTC.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("invalid date %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email. The password is "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:                 email,
		Username:              fmt.Sprintf("user%d", nextID()),
		Password:              string(hash),
		IsActive:              true,
		StrategyDisplayOption: models.StrategyDisplayNone,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPortfolio creates a portfolio owned by userID.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, userID string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		UserID: userID,
		Name:   fmt.Sprintf("Test Portfolio %d", nextID()),
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestTransaction records a trade in the portfolio. date is YYYY-MM-DD;
// the trade is placed at 15:00 UTC on that day.
func CreateTestTransaction(t *testing.T, db *gorm.DB, portfolio *models.Portfolio, txType valuation.TransactionType, ticker string, qty, priceCents int64, date string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      portfolio.UserID,
		PortfolioID: portfolio.ID,
		Ticker:      ticker,
		Quantity:    decimal.NewFromInt(qty),
		PriceCents:  priceCents,
		Type:        txType,
		PurchasedAt: Date(t, date).Add(15 * time.Hour),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestIndexPrices stores benchmark opening prices keyed by YYYY-MM-DD.
func CreateTestIndexPrices(t *testing.T, db *gorm.DB, ticker string, prices map[string]int64) {
	t.Helper()

	for date, cents := range prices {
		row := &models.IndexPrice{Ticker: ticker, Date: Date(t, date), OpenPriceCents: cents}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to create index price: %v", err)
		}
	}
}
