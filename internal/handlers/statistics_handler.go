package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/services"
)

// StatisticsHandler serves company fundamentals and portfolio totals.
type StatisticsHandler struct {
	statisticsService services.StatisticsServicer
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(statisticsService services.StatisticsServicer) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

// TickerURI binds the :ticker path parameter.
type TickerURI struct {
	Ticker string `uri:"ticker" binding:"required,ticker"`
}

// GetStockStatistics handles company fundamentals lookups.
// @Summary     Stock statistics
// @Description Company profile, valuation ratios and margins. Margins, yields and returns are percents.
// @Tags        statistics
// @Produce     json
// @Security    BearerAuth
// @Param       ticker path string true "Ticker"
// @Success     200 {object} marketdata.StockStatistics "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid ticker"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /statistics/stock/{ticker} [get]
func (h *StatisticsHandler) GetStockStatistics(c *gin.Context) {
	var uri TickerURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid ticker"))
		return
	}

	stats, err := h.statisticsService.GetStockStatistics(c.Request.Context(), uri.Ticker)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPortfolioStatistics handles portfolio totals.
// @Summary     Portfolio statistics
// @Description Totals of a portfolio's positions with its best and worst performers
// @Tags        statistics
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} valuation.PortfolioStatistics "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /statistics/portfolio/{id} [get]
func (h *StatisticsHandler) GetPortfolioStatistics(c *gin.Context) {
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

	stats, err := h.statisticsService.GetPortfolioStatistics(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
