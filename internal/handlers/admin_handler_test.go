package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/jobs"
	"folio/internal/middleware"
)

const testAdminKey = "admin-secret"

type stubFetcher struct {
	result *jobs.FetchResult
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(_ context.Context) (*jobs.FetchResult, error) {
	s.calls++
	return s.result, s.err
}

type stubBackfiller struct {
	rows int
	err  error
}

func (s *stubBackfiller) Backfill(_ context.Context) (int, error) {
	return s.rows, s.err
}

func setupAdminRouter(handler *AdminHandler) *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin", middleware.AdminKeyMiddleware(testAdminKey))
	admin.POST("/index-prices/fetch", handler.FetchIndexPrice)
	admin.POST("/index-prices/backfill", handler.BackfillIndexPrices)
	return r
}

func doAdminRequest(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(""))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAdminHandler_FetchIndexPrice(t *testing.T) {
	t.Run("returns the fetch result", func(t *testing.T) {
		fetcher := &stubFetcher{result: &jobs.FetchResult{
			Ticker:         "SPY",
			Date:           "2024-01-02",
			OpenPriceCents: 47101,
			Stored:         true,
		}}
		r := setupAdminRouter(NewAdminHandler(fetcher, &stubBackfiller{}))

		rec := doAdminRequest(r, "/admin/index-prices/fetch", testAdminKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if fetcher.calls != 1 {
			t.Errorf("expected 1 fetch, got %d", fetcher.calls)
		}
		result := parseJSON(t, rec)
		if result["ticker"] != "SPY" || result["stored"] != true {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("rejects a missing key before fetching", func(t *testing.T) {
		fetcher := &stubFetcher{}
		r := setupAdminRouter(NewAdminHandler(fetcher, &stubBackfiller{}))

		rec := doAdminRequest(r, "/admin/index-prices/fetch", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if fetcher.calls != 0 {
			t.Errorf("expected no fetch, got %d", fetcher.calls)
		}
	})

	t.Run("surfaces rate limiting", func(t *testing.T) {
		fetcher := &stubFetcher{err: apperrors.ErrRateLimited}
		r := setupAdminRouter(NewAdminHandler(fetcher, &stubBackfiller{}))

		rec := doAdminRequest(r, "/admin/index-prices/fetch", testAdminKey)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RATE_LIMITED")
	})
}

func TestAdminHandler_BackfillIndexPrices(t *testing.T) {
	t.Run("reports rows written", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&stubFetcher{}, &stubBackfiller{rows: 2520}))

		rec := doAdminRequest(r, "/admin/index-prices/backfill", testAdminKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rows := parseJSON(t, rec)["rows"]; rows != 2520.0 {
			t.Errorf("expected 2520 rows, got %v", rows)
		}
	})

	t.Run("returns 401 on wrong key", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&stubFetcher{}, &stubBackfiller{}))

		rec := doAdminRequest(r, "/admin/index-prices/backfill", "nope")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 503 when upstream is empty", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&stubFetcher{}, &stubBackfiller{err: apperrors.ErrDataUnavailable}))

		rec := doAdminRequest(r, "/admin/index-prices/backfill", testAdminKey)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}
