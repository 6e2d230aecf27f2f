package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"folio/internal/models"
	"folio/internal/testutil"
	"folio/internal/valuation"
)

func TestRecordPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewIndexPriceService(db, newStubPrices())

	day := testutil.Date(t, "2024-01-02")

	created, err := svc.RecordPrice("SPY", day, 47000)
	testutil.AssertNoError(t, err)
	if !created {
		t.Error("expected first record to be created")
	}

	created, err = svc.RecordPrice("SPY", day.Add(14*time.Hour), 48000)
	testutil.AssertNoError(t, err)
	if created {
		t.Error("expected duplicate day to be ignored")
	}

	prices, err := svc.PricesOn("SPY", []time.Time{day})
	testutil.AssertNoError(t, err)
	if prices["2024-01-02"] != 47000 {
		t.Errorf("expected original price kept, got %d", prices["2024-01-02"])
	}

	_, err = svc.RecordPrice("SPY", day, 0)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestPricesOn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewIndexPriceService(db, newStubPrices())

	testutil.CreateTestIndexPrices(t, db, "SPY", map[string]int64{
		"2024-01-02": 47000,
		"2024-01-03": 47100,
		"2024-01-04": 47200,
	})
	testutil.CreateTestIndexPrices(t, db, "QQQ", map[string]int64{"2024-01-03": 40000})

	prices, err := svc.PricesOn("SPY", []time.Time{
		testutil.Date(t, "2024-01-04").Add(15 * time.Hour),
		testutil.Date(t, "2024-01-03"),
	})
	testutil.AssertNoError(t, err)

	if prices["2024-01-03"] != 47100 || prices["2024-01-04"] != 47200 {
		t.Errorf("unexpected prices: %v", prices)
	}
	if _, ok := prices["2024-01-02"]; ok {
		t.Error("expected days outside the requested range to be absent")
	}

	empty, err := svc.PricesOn("SPY", nil)
	testutil.AssertNoError(t, err)
	if len(empty) != 0 {
		t.Errorf("expected no prices, got %v", empty)
	}
}

func TestEnsurePrice(t *testing.T) {
	t.Run("stored_price_skips_fetch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		stub := newStubPrices()
		stub.err = valuation.ErrDataUnavailable
		svc := NewIndexPriceService(db, stub)

		testutil.CreateTestIndexPrices(t, db, "SPY", map[string]int64{"2024-01-02": 47000})

		cents, err := svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-01-02").Add(20*time.Hour))
		testutil.AssertNoError(t, err)
		if cents != 47000 {
			t.Errorf("expected 47000, got %d", cents)
		}
	})

	t.Run("fetches_and_records", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		stub := newStubPrices()
		stub.opens["SPY/2024-01-03"] = 46900
		svc := NewIndexPriceService(db, stub)

		cents, err := svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-01-03"))
		testutil.AssertNoError(t, err)
		if cents != 46900 {
			t.Errorf("expected 46900, got %d", cents)
		}

		var count int64
		db.Model(&models.IndexPrice{}).Where("ticker = ?", "SPY").Count(&count)
		if count != 1 {
			t.Errorf("expected fetched price to be stored, got %d rows", count)
		}
	})

	t.Run("market_closed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIndexPriceService(db, newStubPrices())

		_, err := svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-01-06"))
		testutil.AssertAppError(t, err, "MARKET_CLOSED")

		_, err = svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-07-04"))
		testutil.AssertAppError(t, err, "MARKET_CLOSED")
	})

	t.Run("rate_limited", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		stub := newStubPrices()
		stub.err = fmt.Errorf("%w: SPY", valuation.ErrRateLimited)
		svc := NewIndexPriceService(db, stub)

		_, err := svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-01-03"))
		testutil.AssertAppError(t, err, "RATE_LIMITED")
	})

	t.Run("missing_upstream_price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIndexPriceService(db, newStubPrices())

		_, err := svc.EnsurePrice(context.Background(), "SPY", testutil.Date(t, "2024-01-03"))
		testutil.AssertAppError(t, err, "DATA_UNAVAILABLE")
	})
}

func TestReplaceHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewIndexPriceService(db, newStubPrices())

	testutil.CreateTestIndexPrices(t, db, "SPY", map[string]int64{"2020-01-02": 1})
	testutil.CreateTestIndexPrices(t, db, "QQQ", map[string]int64{"2020-01-02": 2})

	start := testutil.Date(t, "2010-01-01")
	rows := make([]models.IndexPrice, 0, 2500)
	for i := 0; i < 2500; i++ {
		rows = append(rows, models.IndexPrice{Date: start.AddDate(0, 0, i), OpenPriceCents: int64(10000 + i)})
	}

	n, err := svc.ReplaceHistory("SPY", rows)
	testutil.AssertNoError(t, err)
	if n != 2500 {
		t.Errorf("expected 2500 rows, got %d", n)
	}

	var count int64
	db.Model(&models.IndexPrice{}).Where("ticker = ?", "SPY").Count(&count)
	if count != 2500 {
		t.Errorf("expected 2500 stored rows, got %d", count)
	}
	db.Model(&models.IndexPrice{}).Where("ticker = ?", "QQQ").Count(&count)
	if count != 1 {
		t.Errorf("expected other tickers untouched, got %d", count)
	}

	_, err = svc.ReplaceHistory("SPY", []models.IndexPrice{{Date: start, OpenPriceCents: 0}})
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
