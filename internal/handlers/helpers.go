package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/middleware"
	"folio/internal/uuid"
	"folio/internal/valuation"
)

// defaultTimeframe is used when a chart request omits ?timeframe.
const defaultTimeframe = valuation.All

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
func parsePathID(c *gin.Context, param string) (string, error) {
	id := c.Param(param)
	if !uuid.IsValid(id) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseTimeframe reads ?timeframe, defaulting to ALL.
func parseTimeframe(c *gin.Context) (valuation.Timeframe, error) {
	raw := c.Query("timeframe")
	if raw == "" {
		return defaultTimeframe, nil
	}
	tf, err := valuation.ParseTimeframe(raw)
	if err != nil {
		return "", apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidTimeframe,
			fmt.Sprintf("Unsupported timeframe %q", raw)), err)
	}
	return tf, nil
}

// parsePurchaseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parsePurchaseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("purchased_at must be RFC 3339 or YYYY-MM-DD, got %q", s)
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
