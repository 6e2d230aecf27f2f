package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"folio/internal/models"
)

func TestAuthFlow_RegisterLoginRefresh(t *testing.T) {
	app := setupApp(t)

	access, registered, _ := app.registerUser(t, "auth@test.com", "password123")
	if access == "" || registered == "" {
		t.Fatal("expected non-empty tokens from registration")
	}

	// Username defaults to the email, so either identifier logs in.
	rec := app.request("POST", "/api/v1/auth/login", `{"username":"auth@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login by username failed: %d %s", rec.Code, rec.Body.String())
	}
	// Login rotated the stored refresh token.
	refresh := parseJSON(t, rec)["refresh_token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["access_token"].(string) == "" {
		t.Fatal("expected non-empty access token after refresh")
	}

	rec = app.request("GET", "/api/v1/positions", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestPortfolioFlow_TradePositionsChart(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "flow@test.com", "password123")
	portfolioID := app.createPortfolio(t, token, "Growth")

	// Step 1: buy 10 AAPL at $100 on the first trading day of 2024
	rec := app.trade(token, portfolioID, "BUY", "aapl", "10", 10000, "2024-01-02")
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}
	tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if tx["ticker"] != "AAPL" {
		t.Errorf("expected ticker to be upper-cased, got %v", tx["ticker"])
	}

	// Step 2: the benchmark open for the trade date was recorded
	var stored models.IndexPrice
	if err := app.DB.Where("ticker = ?", testBenchmark).First(&stored).Error; err != nil {
		t.Fatalf("expected stored benchmark price: %v", err)
	}
	if stored.OpenPriceCents != 40000 {
		t.Errorf("expected 40000, got %d", stored.OpenPriceCents)
	}

	// Step 3: positions are marked at the latest price
	rec = app.request("GET", "/api/v1/portfolios/"+portfolioID+"/positions", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("positions failed: %d %s", rec.Code, rec.Body.String())
	}
	positions := parseJSON(t, rec)["positions"].([]interface{})
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	pos := positions[0].(map[string]interface{})
	if pos["shares"] != 10.0 || pos["equity_value"] != 1200.0 || pos["return_percent"] != 20.0 {
		t.Errorf("unexpected position %v", pos)
	}
	// 2.5 benchmark shares bought at $400 are worth $1100 at $440
	if pos["alpha_percent"] != 10.0 {
		t.Errorf("expected alpha 10, got %v", pos["alpha_percent"])
	}

	// Step 4: the chart follows the grid
	rec = app.request("GET", "/api/v1/portfolios/"+portfolioID+"/chart?timeframe=ALL", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("chart failed: %d %s", rec.Code, rec.Body.String())
	}
	chart := parseJSON(t, rec)
	points := chart["points"].([]interface{})
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	last := points[1].(map[string]interface{})
	if last["portfolio_value"] != 1100.0 || last["benchmark_value"] != 1025.0 {
		t.Errorf("unexpected last point %v", last)
	}

	// Step 5: the summary chart sees the same holdings
	rec = app.request("GET", "/api/v1/charts/summary", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary failed: %d %s", rec.Code, rec.Body.String())
	}
	if summary := parseJSON(t, rec)["summary"].(map[string]interface{}); summary["last_value"] != 1100.0 {
		t.Errorf("expected last value 1100, got %v", summary["last_value"])
	}
}

func TestPortfolioFlow_HoldingsIntegrity(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "guard@test.com", "password123")
	portfolioID := app.createPortfolio(t, token, "Guarded")

	rec := app.trade(token, portfolioID, "BUY", "AAPL", "5", 10000, "2024-01-03")
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}
	buyID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)

	t.Run("sell before the buy is rejected", func(t *testing.T) {
		rec := app.trade(token, portfolioID, "SELL", "AAPL", "1", 10000, "2024-01-02")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		assertCode(t, rec, "INSUFFICIENT_SHARES")
	})

	t.Run("sell more than held is rejected", func(t *testing.T) {
		rec := app.trade(token, portfolioID, "SELL", "AAPL", "5.5", 10000, "2024-01-03")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertCode(t, rec, "INSUFFICIENT_SHARES")
	})

	t.Run("weekend trade is rejected", func(t *testing.T) {
		rec := app.trade(token, portfolioID, "BUY", "AAPL", "1", 10000, "2024-01-06")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertCode(t, rec, "MARKET_CLOSED")
	})

	t.Run("deleting the buy under a sell is rejected", func(t *testing.T) {
		rec := app.trade(token, portfolioID, "SELL", "AAPL", "2", 11000, "2024-01-03")
		if rec.Code != http.StatusCreated {
			t.Fatalf("sell failed: %d %s", rec.Code, rec.Body.String())
		}

		rec = app.request("DELETE", "/api/v1/transactions/"+buyID, "", token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		assertCode(t, rec, "INSUFFICIENT_SHARES")

		rec = app.request("GET", "/api/v1/transactions/"+buyID, "", token)
		if rec.Code != http.StatusOK {
			t.Errorf("expected buy to survive the rejected delete, got %d", rec.Code)
		}
	})
}

func TestPortfolioFlow_DeleteAndIsolation(t *testing.T) {
	app := setupApp(t)
	owner, _, _ := app.registerUser(t, "owner@test.com", "password123")
	other, _, _ := app.registerUser(t, "other@test.com", "password123")
	portfolioID := app.createPortfolio(t, owner, "Mine")

	if rec := app.trade(owner, portfolioID, "BUY", "AAPL", "1", 10000, "2024-01-02"); rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := app.request("GET", "/api/v1/portfolios/"+portfolioID+"/chart", "", other)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's portfolio, got %d", rec.Code)
	}

	rec = app.request("DELETE", "/api/v1/portfolios/"+portfolioID, "", owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/transactions", "", owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if total := parseJSON(t, rec)["total_items"].(float64); total != 0 {
		t.Errorf("expected transactions to be deleted with the portfolio, got %.0f", total)
	}

	rec = app.request("GET", "/api/v1/positions", "", owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if positions := parseJSON(t, rec)["positions"].([]interface{}); len(positions) != 0 {
		t.Errorf("expected no positions, got %v", positions)
	}
}

func TestAdminFlow_Backfill(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/v1/admin/index-prices/backfill", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	rec = app.adminRequest("/api/v1/admin/index-prices/backfill")
	if rec.Code != http.StatusOK {
		t.Fatalf("backfill failed: %d %s", rec.Code, rec.Body.String())
	}
	if rows := parseJSON(t, rec)["rows"].(float64); rows != 3 {
		t.Errorf("expected 3 rows, got %.0f", rows)
	}

	var count int64
	app.DB.Model(&models.IndexPrice{}).Where("ticker = ?", testBenchmark).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 stored prices, got %d", count)
	}
}

func TestPortfolioFlow_CashFundedRebuyRealizesLoss(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "rebuy@test.com", "password123")
	portfolioID := app.createPortfolio(t, token, "Round trips")

	for _, tr := range []struct {
		txType string
		price  int64
		at     string
	}{
		{"BUY", 10000, "2024-01-02T15:00:00Z"},
		{"SELL", 10000, "2024-01-02T16:00:00Z"},
		{"BUY", 10000, "2024-01-03T15:00:00Z"},
		{"SELL", 9000, "2024-01-03T16:00:00Z"},
	} {
		if rec := app.trade(token, portfolioID, tr.txType, "AAPL", "10", tr.price, tr.at); rec.Code != http.StatusCreated {
			t.Fatalf("%s at %s failed: %d %s", tr.txType, tr.at, rec.Code, rec.Body.String())
		}
	}

	rec := app.request("GET", "/api/v1/portfolios/"+portfolioID+"/positions", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("positions failed: %d %s", rec.Code, rec.Body.String())
	}
	pos := parseJSON(t, rec)["positions"].([]interface{})[0].(map[string]interface{})
	if pos["realized_value"] != -100.0 || pos["return_undefined"] != true {
		t.Errorf("expected a $100 realized loss on a closed position, got %v", pos)
	}
}

func TestUserFlow_UpdateAndDeleteProfile(t *testing.T) {
	app := setupApp(t)
	access, refresh, _ := app.registerUser(t, "profile@test.com", "password123")
	portfolioID := app.createPortfolio(t, access, "Doomed")
	if rec := app.trade(access, portfolioID, "BUY", "AAPL", "1", 10000, "2024-01-02"); rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := app.request("PUT", "/api/v1/profile", `{"old_password":"wrong-password","new_password":"newpassword1"}`, access)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong password, got %d", rec.Code)
	}
	assertCode(t, rec, "INCORRECT_PASSWORD")

	rec = app.request("PUT", "/api/v1/profile", `{"username":"renamed","old_password":"password123","new_password":"newpassword1"}`, access)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}
	updated := parseJSON(t, rec)
	if updated["user"].(map[string]interface{})["username"] != "renamed" {
		t.Errorf("unexpected user %v", updated["user"])
	}

	// The refresh token issued before the password change is revoked.
	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected old refresh token revoked, got %d", rec.Code)
	}

	rec = app.request("POST", "/api/v1/auth/login", `{"username":"renamed","password":"newpassword1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("DELETE", "/api/v1/profile", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}

	var portfolios, trades int64
	app.DB.Unscoped().Model(&models.Portfolio{}).Count(&portfolios)
	app.DB.Unscoped().Model(&models.Transaction{}).Count(&trades)
	if portfolios != 0 || trades != 0 {
		t.Errorf("expected owned rows removed, got %d portfolios and %d trades", portfolios, trades)
	}

	// The email is free again.
	app.registerUser(t, "profile@test.com", "password123")
}

func TestAdminFlow_UserAdministration(t *testing.T) {
	app := setupApp(t)
	admin, _, _ := app.registerUser(t, "admin@test.com", "password123")
	member, _, _ := app.registerUser(t, "member@test.com", "password123")

	rec := app.request("GET", "/api/v1/users", "", admin)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", rec.Code)
	}

	// The first admin is promoted with the API key.
	rec = app.adminRequest("/api/v1/admin/users/admin@test.com/promote")
	if rec.Code != http.StatusOK {
		t.Fatalf("bootstrap promote failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/users", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rec.Code, rec.Body.String())
	}
	if total := parseJSON(t, rec)["total_items"].(float64); total != 2 {
		t.Errorf("expected 2 users, got %.0f", total)
	}

	rec = app.request("POST", "/api/v1/users/member@test.com/promote", "", admin)
	if rec.Code != http.StatusOK || parseJSON(t, rec)["is_admin"] != true {
		t.Fatalf("promote failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("DELETE", "/api/v1/users/member@test.com", "", admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected admins to be protected, got %d", rec.Code)
	}
	assertCode(t, rec, "CANNOT_DELETE_ADMIN")

	rec = app.request("POST", "/api/v1/users/member@test.com/demote", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("demote failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("DELETE", "/api/v1/users/member@test.com", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}

	// The deleted member's token no longer resolves to a user.
	rec = app.request("GET", "/api/v1/profile", "", member)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for deleted user, got %d", rec.Code)
	}
}

func TestSearchAndStatisticsFlow(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "search@test.com", "password123")
	portfolioID := app.createPortfolio(t, token, "Apple Orchard")
	if rec := app.trade(token, portfolioID, "BUY", "AAPL", "10", 10000, "2024-01-02"); rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := app.request("GET", "/api/v1/search/stock?q=APPLE", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", rec.Code, rec.Body.String())
	}
	results := parseJSON(t, rec)
	if tickers := results["ticker_results"].([]interface{}); len(tickers) != 1 {
		t.Errorf("expected 1 ticker match, got %v", tickers)
	}
	portfolios := results["portfolio_results"].([]interface{})
	if len(portfolios) != 1 || portfolios[0].(map[string]interface{})["id"] != portfolioID {
		t.Errorf("expected the portfolio to match, got %v", portfolios)
	}

	rec = app.request("GET", "/api/v1/search/stock", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without query, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/statistics/stock/aapl", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("stock statistics failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["company_name"] != "Apple Inc." {
		t.Errorf("unexpected statistics %s", rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/statistics/portfolio/"+portfolioID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio statistics failed: %d %s", rec.Code, rec.Body.String())
	}
	stats := parseJSON(t, rec)
	if stats["equity_value"] != 1200.0 || stats["cost_basis"] != 1000.0 || stats["return_percent"] != 20.0 {
		t.Errorf("unexpected portfolio statistics %v", stats)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = app.request("OPTIONS", "/api/v1/positions", "", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
}

func assertCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}
