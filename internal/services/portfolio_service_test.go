package services

import (
	"testing"

	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/testutil"
	"folio/internal/valuation"
)

func TestCreatePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPortfolioService(db)
	user := testutil.CreateTestUser(t, db)

	t.Run("valid", func(t *testing.T) {
		p, err := svc.CreatePortfolio(user.ID, "  Growth  ", "long term")
		testutil.AssertNoError(t, err)
		if p.ID == "" || p.Name != "Growth" || p.UserID != user.ID {
			t.Errorf("unexpected portfolio: %+v", p)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		_, err := svc.CreatePortfolio(user.ID, "   ", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserPortfolios(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	for i := 0; i < 3; i++ {
		testutil.CreateTestPortfolio(t, db, user.ID)
	}
	testutil.CreateTestPortfolio(t, db, other.ID)

	res, err := svc.GetUserPortfolios(user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)
	if res.TotalItems != 3 {
		t.Errorf("expected 3 total items, got %d", res.TotalItems)
	}
	if len(res.Data) != 2 {
		t.Errorf("expected 2 items on the page, got %d", len(res.Data))
	}
	if res.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", res.TotalPages)
	}
}

func TestGetPortfolioByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	p := testutil.CreateTestPortfolio(t, db, user.ID)

	t.Run("owner", func(t *testing.T) {
		got, err := svc.GetPortfolioByID(user.ID, p.ID)
		testutil.AssertNoError(t, err)
		if got.ID != p.ID {
			t.Errorf("expected %s, got %s", p.ID, got.ID)
		}
	})

	t.Run("other_user", func(t *testing.T) {
		_, err := svc.GetPortfolioByID(other.ID, p.ID)
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestUpdatePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	p := testutil.CreateTestPortfolio(t, db, user.ID)

	t.Run("rename", func(t *testing.T) {
		name := "Renamed"
		got, err := svc.UpdatePortfolio(user.ID, p.ID, &name, nil)
		testutil.AssertNoError(t, err)
		if got.Name != "Renamed" {
			t.Errorf("expected Renamed, got %s", got.Name)
		}
		reloaded, _ := svc.GetPortfolioByID(user.ID, p.ID)
		if reloaded.Name != "Renamed" {
			t.Errorf("expected persisted name, got %s", reloaded.Name)
		}
	})

	t.Run("blank_name", func(t *testing.T) {
		blank := " "
		_, err := svc.UpdatePortfolio(user.ID, p.ID, &blank, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeletePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	p := testutil.CreateTestPortfolio(t, db, user.ID)
	testutil.CreateTestTransaction(t, db, p, valuation.Buy, "AAPL", 1, 10000, "2024-01-02")

	testutil.AssertNoError(t, svc.DeletePortfolio(user.ID, p.ID))

	_, err := svc.GetPortfolioByID(user.ID, p.ID)
	testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")

	var count int64
	db.Model(&models.Transaction{}).Where("portfolio_id = ?", p.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected transactions to be deleted, got %d", count)
	}

	err = svc.DeletePortfolio(user.ID, p.ID)
	testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
}
