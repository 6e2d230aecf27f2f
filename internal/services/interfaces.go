package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/marketdata"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/valuation"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, username, password, firstName, lastName string) (*models.User, error)
	AttemptLogin(login, password string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	UpdatePreferences(userID string, option models.StrategyDisplayOption) (*models.User, error)
	UpdateUser(userID string, in UpdateUserInput) (*models.User, error)
	DeleteUser(userID string) error

	ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	SetAdmin(username string, admin bool) (*models.User, error)
	DeleteUserByUsername(username string) (*models.User, error)
	IsAdmin(userID string) (bool, error)
}

// UpdateUserInput holds profile changes. Nil fields are left unchanged; an
// empty NewPassword keeps the current password.
type UpdateUserInput struct {
	Email       *string
	Username    *string
	FirstName   *string
	LastName    *string
	OldPassword string
	NewPassword string
}

// PortfolioServicer defines the contract for portfolio CRUD.
type PortfolioServicer interface {
	CreatePortfolio(userID, name, description string) (*models.Portfolio, error)
	GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error)
	UpdatePortfolio(userID, portfolioID string, name, description *string) (*models.Portfolio, error)
	DeletePortfolio(userID, portfolioID string) error
}

// CreateTransactionInput holds the fields of a new trade.
type CreateTransactionInput struct {
	PortfolioID string
	Ticker      string
	Type        valuation.TransactionType
	Quantity    decimal.Decimal
	PriceCents  int64
	PurchasedAt time.Time
}

// TransactionServicer defines the contract for recording and listing trades.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetPortfolioTransactions(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	GetTickerTransactions(userID, ticker string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	GetUserTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	// ListForValuation returns every transaction in scope in replay order.
	// An empty portfolioID selects all of the user's portfolios.
	ListForValuation(userID, portfolioID string) ([]models.Transaction, error)
}

// IndexPriceServicer defines the contract for the benchmark price history.
type IndexPriceServicer interface {
	PricesOn(ticker string, days []time.Time) (valuation.BenchmarkPrices, error)
	EnsurePrice(ctx context.Context, ticker string, day time.Time) (int64, error)
	RecordPrice(ticker string, day time.Time, openCents int64) (bool, error)
	ReplaceHistory(ticker string, prices []models.IndexPrice) (int, error)
}

// PortfolioWithChart pairs a portfolio with its ALL-timeframe chart.
type PortfolioWithChart struct {
	models.Portfolio
	Chart valuation.Chart `json:"chart"`
}

// ValuationServicer defines the contract for positions and charts.
type ValuationServicer interface {
	GetUserPositions(ctx context.Context, userID string) ([]valuation.Position, error)
	GetPortfolioPositions(ctx context.Context, userID, portfolioID string) ([]valuation.Position, error)
	GetPortfolioChart(ctx context.Context, userID, portfolioID string, tf valuation.Timeframe) (*valuation.Chart, error)
	GetSummaryChart(ctx context.Context, userID string, tf valuation.Timeframe) (*valuation.Chart, error)
	GetStockChart(ctx context.Context, ticker string, tf valuation.Timeframe) (*valuation.Chart, error)
	GetCompareChart(ctx context.Context, userID, left, right string, tf valuation.Timeframe) (*valuation.Chart, error)
	GetPortfoliosWithCharts(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[PortfolioWithChart], error)
}

// SymbolSearcher looks up market symbols by name or ticker.
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, query string, limit int) ([]marketdata.SymbolMatch, error)
}

// CompanyStatistics fetches company fundamentals.
type CompanyStatistics interface {
	StockStatistics(ctx context.Context, ticker string) (*marketdata.StockStatistics, error)
}

// PortfolioMatch is a portfolio whose name matched a search.
type PortfolioMatch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchResults groups search matches by kind.
type SearchResults struct {
	TickerResults    []marketdata.SymbolMatch `json:"ticker_results"`
	PortfolioResults []PortfolioMatch         `json:"portfolio_results"`
}

// SearchServicer defines the contract for symbol and portfolio search.
type SearchServicer interface {
	Search(ctx context.Context, userID, query string) (*SearchResults, error)
}

// StatisticsServicer defines the contract for company and portfolio statistics.
type StatisticsServicer interface {
	GetStockStatistics(ctx context.Context, ticker string) (*marketdata.StockStatistics, error)
	GetPortfolioStatistics(ctx context.Context, userID, portfolioID string) (*valuation.PortfolioStatistics, error)
}
