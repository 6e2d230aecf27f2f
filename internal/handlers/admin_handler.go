package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"folio/internal/jobs"
)

// IndexPriceFetcher records the benchmark's open for the current day.
type IndexPriceFetcher interface {
	Fetch(ctx context.Context) (*jobs.FetchResult, error)
}

// HistoryBackfiller rebuilds the stored benchmark history.
type HistoryBackfiller interface {
	Backfill(ctx context.Context) (int, error)
}

// AdminHandler exposes maintenance operations guarded by the admin API key.
type AdminHandler struct {
	fetcher    IndexPriceFetcher
	backfiller HistoryBackfiller
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(fetcher IndexPriceFetcher, backfiller HistoryBackfiller) *AdminHandler {
	return &AdminHandler{fetcher: fetcher, backfiller: backfiller}
}

// BackfillResponse reports how many index prices were written.
type BackfillResponse struct {
	Rows int `json:"rows"`
}

// FetchIndexPrice runs the daily index price fetch immediately.
// @Summary     Fetch today's index price
// @Tags        admin
// @Produce     json
// @Param       X-API-Key header string true "Admin API key"
// @Success     200 {object} jobs.FetchResult "Fetch result"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     429 {object} ErrorResponse "Market data rate limited"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /admin/index-prices/fetch [post]
func (h *AdminHandler) FetchIndexPrice(c *gin.Context) {
	result, err := h.fetcher.Fetch(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BackfillIndexPrices replaces the stored index price history.
// @Summary     Backfill index price history
// @Tags        admin
// @Produce     json
// @Param       X-API-Key header string true "Admin API key"
// @Success     200 {object} BackfillResponse "Rows written"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /admin/index-prices/backfill [post]
func (h *AdminHandler) BackfillIndexPrices(c *gin.Context) {
	rows, err := h.backfiller.Backfill(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, BackfillResponse{Rows: rows})
}
