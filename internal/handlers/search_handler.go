package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"folio/internal/services"
)

// SearchHandler serves symbol and portfolio search.
type SearchHandler struct {
	searchService services.SearchServicer
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService services.SearchServicer) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchStock handles searching equities and the user's portfolios.
// @Summary     Search
// @Description Match equities by ticker or company name, and the user's portfolios by name
// @Tags        search
// @Produce     json
// @Security    BearerAuth
// @Param       q query string true "Search text"
// @Success     200 {object} services.SearchResults "Matches"
// @Failure     400 {object} ErrorResponse "Missing query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     429 {object} ErrorResponse "Market data rate limited"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /search/stock [get]
func (h *SearchHandler) SearchStock(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
