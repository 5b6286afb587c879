package handlers_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/handlers"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *services) {
	sv := newServices(t)
	handler := handlers.NewAuthHandler(sv.auth, util.DiscardLogger())

	r := chi.NewRouter()
	r.Post("/api/v1/auth/register", handler.Register)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(sv.authMiddleware())
		r.Get("/api/v1/auth/me", handler.Me)
		r.Post("/api/v1/auth/logout", handler.Logout)
	})
	return r, sv
}

func TestAuthHandler_Register(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	t.Run("successful registration", func(t *testing.T) {
		body := map[string]string{
			"email":      "newuser@example.com",
			"password":   testPassword,
			"first_name": "New",
			"last_name":  "User",
		}
		rr := serve(t, router, "POST", "/api/v1/auth/register", body, "")
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.User.ID)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, []string{models.RoleTeamMember}, resp.User.Roles)
		assert.Equal(t, models.RoleTeamMember, resp.User.PrimaryRole)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":      "newuser@example.com",
			"password":   testPassword,
			"first_name": "Again",
		}
		rr := serve(t, router, "POST", "/api/v1/auth/register", body, "")
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("validation errors", func(t *testing.T) {
		body := map[string]string{
			"email":    "not-an-email",
			"password": "weak",
		}
		rr := serve(t, router, "POST", "/api/v1/auth/register", body, "")
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "email")
		assert.Contains(t, resp.Details, "password")
		assert.Contains(t, resp.Details, "first_name")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/v1/auth/register", "{", "")
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, sv := setupAuthTestRouter(t)
	user := testutil.CreateTestUserWithPassword(t, sv.DB, testPassword, models.RoleProjectManager)

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{"email": user.Email, "password": testPassword}
		rr := serve(t, router, "POST", "/api/v1/auth/login", body, "")
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, dto.FormatID(user.ID), resp.User.ID)
		assert.Equal(t, models.RoleProjectManager, resp.User.PrimaryRole)

		claims, err := sv.JWTService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{"email": user.Email, "password": "Wr0ng!Pass"}
		rr := serve(t, router, "POST", "/api/v1/auth/login", body, "")
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		body := map[string]string{"email": "nobody@example.com", "password": testPassword}
		rr := serve(t, router, "POST", "/api/v1/auth/login", body, "")
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/v1/auth/login", map[string]string{}, "")
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("inactive account", func(t *testing.T) {
		inactive := testutil.CreateTestUserWithPassword(t, sv.DB, testPassword, models.RoleTeamMember)
		require.NoError(t, sv.DB.Model(inactive).Update("is_active", false).Error)

		body := map[string]string{"email": inactive.Email, "password": testPassword}
		rr := serve(t, router, "POST", "/api/v1/auth/login", body, "")
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	router, sv := setupAuthTestRouter(t)

	rr := serve(t, router, "GET", "/api/v1/auth/me", nil, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var user dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &user)
	assert.Equal(t, dto.FormatID(sv.Admin.ID), user.ID)
	assert.Equal(t, models.RoleOrgAdmin, user.PrimaryRole)

	rr = serve(t, router, "GET", "/api/v1/auth/me", nil, "")
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthHandler_Logout(t *testing.T) {
	router, sv := setupAuthTestRouter(t)

	rr := serve(t, router, "POST", "/api/v1/auth/logout", nil, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp dto.SuccessResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Logged out", resp.Message)
}
