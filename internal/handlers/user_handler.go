package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/middleware"
	"folio/internal/pagination"
	"folio/internal/services"
)

// UserHandler handles user administration
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

func usernameParam(c *gin.Context) (string, error) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid username")
	}
	return username, nil
}

// ListUsers returns a page of users
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number" default(1)
// @Param       page_size query int false "Page size" default(20)
// @Success     200 {object} pagination.PageResponse[UserResponse] "Users"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Router      /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items := make([]UserResponse, len(users.Data))
	for i := range users.Data {
		items[i] = toUserResponse(&users.Data[i])
	}
	c.JSON(http.StatusOK, pagination.WithData(users, items))
}

// PromoteUser grants the admin role
// @Summary     Promote user
// @Description Grant the admin role. Also reachable under /admin with the X-API-Key header to create the first admin.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       username path string true "Username"
// @Success     200 {object} UserResponse "Promoted user"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{username}/promote [post]
func (h *UserHandler) PromoteUser(c *gin.Context) {
	h.setAdmin(c, true)
}

// DemoteUser revokes the admin role
// @Summary     Demote user
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       username path string true "Username"
// @Success     200 {object} UserResponse "Demoted user"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{username}/demote [post]
func (h *UserHandler) DemoteUser(c *gin.Context) {
	h.setAdmin(c, false)
}

func (h *UserHandler) setAdmin(c *gin.Context, admin bool) {
	username, err := usernameParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.SetAdmin(username, admin)
	if err != nil {
		respondWithError(c, err)
		return
	}

	middleware.RequestLogger(c).Infow("admin role changed", "user_id", user.ID, "is_admin", admin)
	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteUser removes a non-admin user
// @Summary     Delete user
// @Description Permanently delete a user with all portfolios and transactions. Admins must be demoted first.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       username path string true "Username"
// @Success     200 {object} UserResponse "Deleted user"
// @Failure     400 {object} ErrorResponse "User is an admin"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{username} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	username, err := usernameParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.DeleteUserByUsername(username)
	if err != nil {
		respondWithError(c, err)
		return
	}

	middleware.RequestLogger(c).Infow("user deleted by admin", "user_id", user.ID)
	c.JSON(http.StatusOK, toUserResponse(user))
}
