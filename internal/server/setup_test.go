package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"folio/internal/handlers"
	"folio/internal/jobs"
	"folio/internal/logger"
	"folio/internal/marketdata"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/validator"
	"folio/internal/valuation"
)

const (
	testAdminKey  = "flow-admin-key"
	testBenchmark = "SPY"
)

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Prices *fakeMarket
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "error")
	validator.Register()
}

// fakeMarket serves fixed prices for AAPL and SPY around the first trading
// days of 2024.
type fakeMarket struct {
	opens  map[string]int64
	latest map[string]int64
	grid   valuation.PriceGrid
	bars   []marketdata.Bar
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		opens: map[string]int64{
			"SPY/2024-01-02": 40000,
			"SPY/2024-01-03": 41000,
		},
		latest: map[string]int64{"AAPL": 12000, "SPY": 44000},
		grid: valuation.PriceGrid{
			sample("2024-01-02", "100", "400"),
			sample("2024-01-03", "110", "410"),
		},
		bars: []marketdata.Bar{
			{Time: time.Date(2024, time.January, 2, 14, 30, 0, 0, time.UTC), Open: decimal.RequireFromString("400")},
			{Time: time.Date(2024, time.January, 3, 14, 30, 0, 0, time.UTC), Open: decimal.RequireFromString("410")},
			{Time: time.Date(2024, time.January, 4, 14, 30, 0, 0, time.UTC), Open: decimal.RequireFromString("405.5")},
		},
	}
}

func sample(date, aapl, spy string) valuation.GridPoint {
	d, _ := time.Parse("2006-01-02", date)
	return valuation.GridPoint{
		Time: d.Add(21 * time.Hour),
		Prices: map[string]decimal.Decimal{
			"AAPL": decimal.RequireFromString(aapl),
			"SPY":  decimal.RequireFromString(spy),
		},
	}
}

func (m *fakeMarket) PriceOnDate(_ context.Context, ticker string, day time.Time) (int64, error) {
	cents, ok := m.opens[ticker+"/"+valuation.DateKey(day)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", valuation.ErrMissingPrice, ticker)
	}
	return cents, nil
}

func (m *fakeMarket) LatestPrice(_ context.Context, ticker string) (int64, error) {
	cents, ok := m.latest[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: %s", valuation.ErrDataUnavailable, ticker)
	}
	return cents, nil
}

func (m *fakeMarket) HistoricalSeries(_ context.Context, _ []string, _ time.Time, _ valuation.Interval) (valuation.PriceGrid, error) {
	return m.grid, nil
}

func (m *fakeMarket) DailyBars(_ context.Context, _ string) ([]marketdata.Bar, error) {
	return m.bars, nil
}

func (m *fakeMarket) SearchSymbols(_ context.Context, query string, _ int) ([]marketdata.SymbolMatch, error) {
	if strings.Contains("apple", strings.ToLower(query)) {
		return []marketdata.SymbolMatch{{Ticker: "AAPL", Name: "Apple Inc."}}, nil
	}
	return []marketdata.SymbolMatch{}, nil
}

func (m *fakeMarket) StockStatistics(_ context.Context, ticker string) (*marketdata.StockStatistics, error) {
	if ticker != "AAPL" {
		return nil, fmt.Errorf("%w: %s not found", valuation.ErrDataUnavailable, ticker)
	}
	return &marketdata.StockStatistics{CompanyName: "Apple Inc.", PERatio: 31.46}, nil
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:flowdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Portfolio{},
		&models.Transaction{},
		&models.IndexPrice{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	market := newFakeMarket()

	// Services
	userService := services.NewUserService(db)
	portfolioService := services.NewPortfolioService(db)
	indexPriceService := services.NewIndexPriceService(db, market)
	transactionService := services.NewTransactionService(db, portfolioService, indexPriceService, testBenchmark)
	valuationService := services.NewValuationService(transactionService, portfolioService, indexPriceService, market, testBenchmark)
	searchService := services.NewSearchService(db, market)
	statisticsService := services.NewStatisticsService(market, valuationService)

	tokens := middleware.NewTokenIssuer("flow-test-secret", time.Hour)
	router := NewRouter(Deps{
		DB:           db,
		Tokens:       tokens,
		AdminAPIKey:  testAdminKey,
		Admins:       userService,
		Auth:         handlers.NewAuthHandler(userService, tokens),
		Users:        handlers.NewUserHandler(userService),
		Portfolios:   handlers.NewPortfolioHandler(portfolioService, valuationService),
		Transactions: handlers.NewTransactionHandler(transactionService),
		Valuations:   handlers.NewValuationHandler(valuationService),
		Search:       handlers.NewSearchHandler(searchService),
		Statistics:   handlers.NewStatisticsHandler(statisticsService),
		Admin: handlers.NewAdminHandler(
			jobs.NewIndexPriceJob(testBenchmark, market, indexPriceService),
			jobs.NewBackfillJob(testBenchmark, market, indexPriceService),
		),
	})

	return &testApp{DB: db, Router: router, Prices: market}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// createPortfolio creates a portfolio and returns its ID.
func (app *testApp) createPortfolio(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/portfolios", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["portfolio"].(map[string]interface{})["id"].(string)
}

// trade records a transaction and returns the recorder.
func (app *testApp) trade(token, portfolioID, txType, ticker, quantity string, priceCents int64, date string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"portfolio_id":%q,"ticker":%q,"type":%q,"quantity":%q,"price_cents":%d,"purchased_at":%q}`,
		portfolioID, ticker, txType, quantity, priceCents, date)
	return app.request("POST", "/api/v1/transactions", body, token)
}

// adminRequest posts to an admin route with the admin API key.
func (app *testApp) adminRequest(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-API-Key", testAdminKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}
