package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/services"
	"folio/internal/valuation"
)

const testTransactionID = "0190a8b2-7c4e-7d3a-9f10-5b2c1d3e4f52"

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn        func(ctx context.Context, userID string, in services.CreateTransactionInput) (*models.Transaction, error)
	getTransactionByIDFn       func(userID, transactionID string) (*models.Transaction, error)
	deleteTransactionFn        func(userID, transactionID string) error
	getPortfolioTransactionsFn func(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	getTickerTransactionsFn    func(userID, ticker string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	getUserTransactionsFn      func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

func emptyTransactionPage() *pagination.PageResponse[models.Transaction] {
	return pagination.NewPageResponse([]models.Transaction{}, pagination.PageRequest{Page: 1, PageSize: 20}, 0)
}

func (m *mockTransactionService) CreateTransaction(ctx context.Context, userID string, in services.CreateTransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(ctx, userID, in)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{Base: models.Base{ID: transactionID}}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) GetPortfolioTransactions(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getPortfolioTransactionsFn != nil {
		return m.getPortfolioTransactionsFn(userID, portfolioID, page)
	}
	return emptyTransactionPage(), nil
}

func (m *mockTransactionService) GetTickerTransactions(userID, ticker string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getTickerTransactionsFn != nil {
		return m.getTickerTransactionsFn(userID, ticker, page)
	}
	return emptyTransactionPage(), nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page)
	}
	return emptyTransactionPage(), nil
}

func (m *mockTransactionService) ListForValuation(_, _ string) ([]models.Transaction, error) {
	return nil, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	auth.GET("/portfolios/:id/transactions", handler.GetPortfolioTransactions)
	auth.GET("/stocks/:ticker/transactions", handler.GetTickerTransactions)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CreateTransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(_ context.Context, _ string, in services.CreateTransactionInput) (*models.Transaction, error) {
				got = in
				return &models.Transaction{
					Base:       models.Base{ID: testTransactionID},
					Ticker:     in.Ticker,
					Quantity:   in.Quantity,
					PriceCents: in.PriceCents,
					Type:       in.Type,
				}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "POST", "/transactions",
			`{"portfolio_id":"`+testPortfolioID+`","ticker":"AAPL","type":"BUY","quantity":"1.5","price_cents":18500,"purchased_at":"2024-01-02"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Quantity.String() != "1.5" || got.Type != valuation.Buy || got.PortfolioID != testPortfolioID {
			t.Errorf("unexpected input %+v", got)
		}
		if got.PurchasedAt.Format("2006-01-02") != "2024-01-02" {
			t.Errorf("unexpected purchase date %v", got.PurchasedAt)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["quantity"] != "1.5" {
			t.Errorf("expected quantity to serialize as a string, got %v", tx["quantity"])
		}
	})

	t.Run("accepts numeric quantity and RFC 3339 timestamps", func(t *testing.T) {
		var got services.CreateTransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(_ context.Context, _ string, in services.CreateTransactionInput) (*models.Transaction, error) {
				got = in
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "POST", "/transactions",
			`{"portfolio_id":"`+testPortfolioID+`","ticker":"BRK.B","type":"SELL","quantity":2,"price_cents":40000,"purchased_at":"2024-01-02T15:30:00-05:00"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Quantity.String() != "2" || got.PurchasedAt.Hour() != 20 {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"portfolio_id":"`+testPortfolioID+`","ticker":"AAPL","type":"SHORT","quantity":1,"price_cents":100}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on malformed date", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"portfolio_id":"`+testPortfolioID+`","ticker":"AAPL","type":"BUY","quantity":1,"price_cents":100,"purchased_at":"01/02/2024"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"insufficient shares", apperrors.ErrInsufficientShares, http.StatusBadRequest, "INSUFFICIENT_SHARES"},
			{"market closed", apperrors.ErrMarketClosed, http.StatusBadRequest, "MARKET_CLOSED"},
			{"portfolio not found", apperrors.ErrPortfolioNotFound, http.StatusNotFound, "PORTFOLIO_NOT_FOUND"},
			{"rate limited", apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := &mockTransactionService{
					createTransactionFn: func(_ context.Context, _ string, _ services.CreateTransactionInput) (*models.Transaction, error) {
						return nil, tt.err
					},
				}
				r := setupTransactionRouter(NewTransactionHandler(svc))

				rec := doRequest(r, "POST", "/transactions",
					`{"portfolio_id":"`+testPortfolioID+`","ticker":"AAPL","type":"SELL","quantity":1,"price_cents":100}`)

				if rec.Code != tt.status {
					t.Fatalf("expected %d, got %d", tt.status, rec.Code)
				}
				assertErrorCode(t, parseJSON(t, rec), tt.code)
			})
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTransactionService{
			deleteTransactionFn: func(_, _ string) error { return apperrors.ErrTransactionNotFound },
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_Lists(t *testing.T) {
	t.Run("by portfolio", func(t *testing.T) {
		var gotPortfolio string
		svc := &mockTransactionService{
			getPortfolioTransactionsFn: func(_, portfolioID string, _ pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
				gotPortfolio = portfolioID
				return emptyTransactionPage(), nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "GET", "/portfolios/"+testPortfolioID+"/transactions", "")

		if rec.Code != http.StatusOK || gotPortfolio != testPortfolioID {
			t.Fatalf("expected 200 for %s, got %d (%s)", testPortfolioID, rec.Code, gotPortfolio)
		}
	})

	t.Run("by ticker", func(t *testing.T) {
		var gotTicker string
		svc := &mockTransactionService{
			getTickerTransactionsFn: func(_, ticker string, _ pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
				gotTicker = ticker
				return emptyTransactionPage(), nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc))

		rec := doRequest(r, "GET", "/stocks/msft/transactions?page=1", "")

		if rec.Code != http.StatusOK || gotTicker != "msft" {
			t.Fatalf("expected 200 for msft, got %d (%s)", rec.Code, gotTicker)
		}
	})

	t.Run("all for user", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}))

		rec := doRequest(r, "GET", "/transactions?page=0", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for page=0, got %d", rec.Code)
		}

		rec = doRequest(r, "GET", "/transactions", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if data := parseJSON(t, rec)["data"].([]interface{}); len(data) != 0 {
			t.Errorf("expected empty data, got %v", data)
		}
	})
}
