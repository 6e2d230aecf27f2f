package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
)

var errAdminNotConfigured = &apperrors.AppError{
	Code:       "ADMIN_NOT_CONFIGURED",
	Message:    "Admin endpoints are not configured",
	StatusCode: http.StatusServiceUnavailable,
}

// AdminKeyMiddleware guards operational endpoints (index price fetch and
// backfill) with the X-API-Key header. An empty apiKey disables them.
func AdminKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithError(c, errAdminNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or missing API key"))
			return
		}
		c.Next()
	}
}

// AdminChecker reports whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(userID string) (bool, error)
}

// RequireAdmin rejects authenticated users without the admin role. It must
// run after AuthMiddleware.
func RequireAdmin(users AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		admin, err := users.IsAdmin(userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !admin {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrForbidden, "Admin privileges required"))
			return
		}
		c.Next()
	}
}
