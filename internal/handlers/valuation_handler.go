package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/services"
	"folio/internal/valuation"
)

// ValuationHandler serves positions and performance charts.
type ValuationHandler struct {
	valuationService services.ValuationServicer
}

// NewValuationHandler creates a new ValuationHandler.
func NewValuationHandler(valuationService services.ValuationServicer) *ValuationHandler {
	return &ValuationHandler{valuationService: valuationService}
}

// PositionsResponse wraps a position list.
type PositionsResponse struct {
	Positions []valuation.Position `json:"positions"`
}

// GetPositions handles listing positions across all portfolios.
// @Summary     All positions
// @Description One position per ticker across every portfolio, marked at the latest price and compared with holding the benchmark instead
// @Tags        positions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} PositionsResponse "Positions sorted by ticker"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} ErrorResponse "Inconsistent transaction history"
// @Failure     429 {object} ErrorResponse "Market data rate limited"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /positions [get]
func (h *ValuationHandler) GetPositions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	positions, err := h.valuationService.GetUserPositions(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionsResponse{Positions: positions})
}

// GetPortfolioPositions handles listing positions in one portfolio.
// @Summary     Portfolio positions
// @Tags        positions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} PositionsResponse "Positions sorted by ticker"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /portfolios/{id}/positions [get]
func (h *ValuationHandler) GetPortfolioPositions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	positions, err := h.valuationService.GetPortfolioPositions(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionsResponse{Positions: positions})
}

// GetPortfolioChart handles charting one portfolio against the benchmark.
// @Summary     Portfolio chart
// @Tags        charts
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       timeframe query string false "1D, 1W, 1M, 3M, YTD, 1Y or ALL (default ALL)"
// @Success     200 {object} valuation.Chart "Chart"
// @Failure     400 {object} ErrorResponse "Invalid input or timeframe"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /portfolios/{id}/chart [get]
func (h *ValuationHandler) GetPortfolioChart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tf, err := parseTimeframe(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	chart, err := h.valuationService.GetPortfolioChart(c.Request.Context(), userID, portfolioID, tf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}

// GetSummaryChart handles charting every portfolio combined.
// @Summary     Summary chart
// @Tags        charts
// @Produce     json
// @Security    BearerAuth
// @Param       timeframe query string false "1D, 1W, 1M, 3M, YTD, 1Y or ALL (default ALL)"
// @Success     200 {object} valuation.Chart "Chart"
// @Failure     400 {object} ErrorResponse "Invalid timeframe"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /charts/summary [get]
func (h *ValuationHandler) GetSummaryChart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tf, err := parseTimeframe(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	chart, err := h.valuationService.GetSummaryChart(c.Request.Context(), userID, tf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}

// GetStockChart handles charting a ticker against the benchmark.
// @Summary     Stock chart
// @Description Chart a ticker's closes with the benchmark scaled to the ticker's first close
// @Tags        charts
// @Produce     json
// @Security    BearerAuth
// @Param       ticker    path  string true  "Ticker symbol"
// @Param       timeframe query string false "1D, 1W, 1M, 3M, YTD, 1Y or ALL (default ALL)"
// @Success     200 {object} valuation.Chart "Chart"
// @Failure     400 {object} ErrorResponse "Invalid timeframe"
// @Failure     429 {object} ErrorResponse "Market data rate limited"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /charts/stock/{ticker} [get]
func (h *ValuationHandler) GetStockChart(c *gin.Context) {
	tf, err := parseTimeframe(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	chart, err := h.valuationService.GetStockChart(c.Request.Context(), c.Param("ticker"), tf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}

// CompareQuery holds the two symbols to compare.
type CompareQuery struct {
	Left  string `form:"left" binding:"required"`
	Right string `form:"right" binding:"required"`
}

// GetCompareChart handles comparing two stocks or portfolios.
// @Summary     Compare chart
// @Description Rebase two symbols to 100 at their first common sample. Symbols are STOCK:<ticker> or PORTFOLIO:<id>; left is reported as portfolio_value and right as benchmark_value.
// @Tags        charts
// @Produce     json
// @Security    BearerAuth
// @Param       left      query string true  "First symbol"
// @Param       right     query string true  "Second symbol"
// @Param       timeframe query string false "1D, 1W, 1M, 3M, YTD, 1Y or ALL (default ALL)"
// @Success     200 {object} valuation.Chart "Chart"
// @Failure     400 {object} ErrorResponse "Invalid symbol or timeframe"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /charts/compare [get]
func (h *ValuationHandler) GetCompareChart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q CompareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tf, err := parseTimeframe(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	chart, err := h.valuationService.GetCompareChart(c.Request.Context(), userID, q.Left, q.Right, tf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}
