package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/valuation"
)

// transactionService records trades and guards holdings integrity.
type transactionService struct {
	db              *gorm.DB
	portfolios      PortfolioServicer
	indexPrices     IndexPriceServicer
	benchmarkTicker string
	now             func() time.Time
}

// NewTransactionService creates a new TransactionServicer. Every recorded
// trade date gets a stored benchmark price for benchmarkTicker.
func NewTransactionService(db *gorm.DB, portfolios PortfolioServicer, indexPrices IndexPriceServicer, benchmarkTicker string) TransactionServicer {
	return &transactionService{
		db:              db,
		portfolios:      portfolios,
		indexPrices:     indexPrices,
		benchmarkTicker: benchmarkTicker,
		now:             time.Now,
	}
}

// CreateTransaction records a BUY or SELL in one of the user's portfolios.
// A SELL may never take the ticker's holding below zero at any point in the
// portfolio's history.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*models.Transaction, error) {
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	if in.Ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker is required")
	}
	if in.Type != valuation.Buy && in.Type != valuation.Sell {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !in.Quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if in.PriceCents < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price cannot be negative")
	}
	if in.PurchasedAt.IsZero() {
		in.PurchasedAt = s.now()
	}
	if in.PurchasedAt.After(s.now()) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "purchased_at cannot be in the future")
	}

	portfolio, err := s.portfolios.GetPortfolioByID(userID, in.PortfolioID)
	if err != nil {
		return nil, err
	}

	if _, err := s.indexPrices.EnsurePrice(ctx, s.benchmarkTicker, in.PurchasedAt); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		PortfolioID: portfolio.ID,
		Ticker:      in.Ticker,
		Quantity:    in.Quantity,
		PriceCents:  in.PriceCents,
		Type:        in.Type,
		PurchasedAt: in.PurchasedAt.UTC(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if transaction.Type == valuation.Sell {
			return checkHoldings(tx, portfolio.ID, transaction.Ticker)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetTransactionByID returns the transaction if it belongs to the user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// DeleteTransaction removes a trade. Removing a BUY that later SELLs depend on
// is rejected.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if transaction.Type == valuation.Buy {
			return checkHoldings(tx, transaction.PortfolioID, transaction.Ticker)
		}
		return nil
	})
}

// GetPortfolioTransactions lists a portfolio's trades, newest first.
func (s *transactionService) GetPortfolioTransactions(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.portfolios.GetPortfolioByID(userID, portfolioID); err != nil {
		return nil, err
	}
	return s.list(page, "user_id = ? AND portfolio_id = ?", userID, portfolioID)
}

// GetTickerTransactions lists the user's trades of one ticker, newest first.
func (s *transactionService) GetTickerTransactions(userID, ticker string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	return s.list(page, "user_id = ? AND ticker = ?", userID, strings.ToUpper(ticker))
}

// GetUserTransactions lists all of the user's trades, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	return s.list(page, "user_id = ?", userID)
}

func (s *transactionService) list(page pagination.PageRequest, query string, args ...interface{}) (*pagination.PageResponse[models.Transaction], error) {
	result, err := pagination.Find[models.Transaction](s.db.Where(query, args...), page,
		"purchased_at DESC, created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// ListForValuation returns the trades in scope ordered for replay.
func (s *transactionService) ListForValuation(userID, portfolioID string) ([]models.Transaction, error) {
	q := s.db.Where("user_id = ?", userID)
	if portfolioID != "" {
		if _, err := s.portfolios.GetPortfolioByID(userID, portfolioID); err != nil {
			return nil, err
		}
		q = q.Where("portfolio_id = ?", portfolioID)
	}

	var transactions []models.Transaction
	if err := q.Order("purchased_at ASC, created_at ASC, id ASC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// checkHoldings walks the ticker's trades in replay order and fails if the
// holding ever goes negative.
func checkHoldings(tx *gorm.DB, portfolioID, ticker string) error {
	var rows []models.Transaction
	if err := tx.Where("portfolio_id = ? AND ticker = ?", portfolioID, ticker).Find(&rows).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	shares := decimal.Zero
	for _, t := range valuation.SortTransactions(models.ToValuation(rows)) {
		switch t.Type {
		case valuation.Buy:
			shares = shares.Add(t.Quantity)
		case valuation.Sell:
			shares = shares.Sub(t.Quantity)
		}
		if shares.IsNegative() {
			return apperrors.WithMessage(apperrors.ErrInsufficientShares,
				fmt.Sprintf("Insufficient %s shares on %s", ticker, valuation.DateKey(t.PurchasedAt)))
		}
	}
	return nil
}
