package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	r := gin.New()
	users := r.Group("/users", injectUserID(testUserID))
	users.GET("", handler.ListUsers)
	users.POST("/:username/promote", handler.PromoteUser)
	users.POST("/:username/demote", handler.DemoteUser)
	users.DELETE("/:username", handler.DeleteUser)
	return r
}

func TestUserHandler_ListUsers(t *testing.T) {
	t.Run("returns a page of users", func(t *testing.T) {
		var gotPage pagination.PageRequest
		userSvc := &mockUserService{
			listUsersFn: func(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
				gotPage = page
				users := []models.User{
					{Base: models.Base{ID: "u1"}, Username: "alice", IsAdmin: true, Password: "hash"},
				}
				return pagination.NewPageResponse(users, page, 3), nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc))

		rec := doRequest(r, "GET", "/users?page=1&page_size=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.PageSize != 1 {
			t.Errorf("expected page_size 1, got %+v", gotPage)
		}

		result := parseJSON(t, rec)
		if result["total_items"] != float64(3) || result["total_pages"] != float64(3) {
			t.Errorf("unexpected page metadata %v", result)
		}
		data := result["data"].([]interface{})
		user := data[0].(map[string]interface{})
		if user["username"] != "alice" || user["is_admin"] != true {
			t.Errorf("unexpected user %v", user)
		}
		if _, ok := user["password"]; ok {
			t.Error("password must not be rendered")
		}
	})

	t.Run("rejects bad paging", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}))

		rec := doRequest(r, "GET", "/users?page_size=500", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUserHandler_Roles(t *testing.T) {
	t.Run("promote and demote", func(t *testing.T) {
		calls := map[string]bool{}
		userSvc := &mockUserService{
			setAdminFn: func(username string, admin bool) (*models.User, error) {
				calls[username] = admin
				return &models.User{Username: username, IsAdmin: admin}, nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc))

		rec := doRequest(r, "POST", "/users/alice/promote", "")
		if rec.Code != http.StatusOK || parseJSON(t, rec)["is_admin"] != true {
			t.Fatalf("unexpected promote response %d: %s", rec.Code, rec.Body.String())
		}
		rec = doRequest(r, "POST", "/users/bob/demote", "")
		if rec.Code != http.StatusOK || parseJSON(t, rec)["is_admin"] != false {
			t.Fatalf("unexpected demote response %d: %s", rec.Code, rec.Body.String())
		}
		if !calls["alice"] || calls["bob"] {
			t.Errorf("unexpected role changes %v", calls)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		userSvc := &mockUserService{
			setAdminFn: func(string, bool) (*models.User, error) { return nil, apperrors.ErrUserNotFound },
		}
		r := setupUserRouter(NewUserHandler(userSvc))

		rec := doRequest(r, "POST", "/users/nobody/promote", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "USER_NOT_FOUND")
	})
}

func TestUserHandler_DeleteUser(t *testing.T) {
	t.Run("returns the deleted user", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}))

		rec := doRequest(r, "DELETE", "/users/alice", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["username"] != "alice" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("refuses admins", func(t *testing.T) {
		userSvc := &mockUserService{
			deleteUserByUsernameFn: func(string) (*models.User, error) { return nil, apperrors.ErrCannotDeleteAdmin },
		}
		r := setupUserRouter(NewUserHandler(userSvc))

		rec := doRequest(r, "DELETE", "/users/root", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CANNOT_DELETE_ADMIN")
	})
}
