package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/handlers"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrgTestRouter(t *testing.T) (*chi.Mux, *services) {
	sv := newServices(t)
	handler := handlers.NewOrganizationHandler(sv.orgs, util.DiscardLogger())

	r := sv.authed()
	r.Route("/api/v1/organizations", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Route("/{orgID}", func(r chi.Router) {
			r.Get("/", handler.Get)
			r.Put("/", handler.Update)
			r.Delete("/", handler.Delete)
			r.Get("/members", handler.Members)
			r.Post("/members", handler.AddMember)
			r.Delete("/members/{userID}", handler.RemoveMember)
			r.Post("/users", handler.CreateMember)
		})
	})
	return r, sv
}

func orgPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/v1/organizations/%d%s", id, suffix)
}

func TestOrganizationHandler_Create(t *testing.T) {
	router, sv := setupOrgTestRouter(t)
	_, saToken := sv.user(t, models.RoleSuperAdmin)

	t.Run("super admin creates", func(t *testing.T) {
		body := map[string]interface{}{
			"name":         "Acme Corp",
			"description":  "Widgets",
			"org_admin_id": dto.FormatID(sv.Admin.ID),
		}
		rr := serve(t, router, "POST", "/api/v1/organizations", body, saToken)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var org dto.OrganizationResponse
		testutil.ParseJSONResponse(t, rr, &org)
		assert.Equal(t, "Acme Corp", org.Name)
		assert.Equal(t, "acme-corp", org.Slug)
		assert.True(t, org.IsActive)
		require.NotNil(t, org.OrgAdminID)
		assert.Equal(t, dto.FormatID(sv.Admin.ID), *org.OrgAdminID)
	})

	t.Run("org admin must hold the role", func(t *testing.T) {
		pm, _ := sv.user(t, models.RoleProjectManager)
		body := map[string]interface{}{"name": "Beta", "org_admin_id": dto.FormatID(pm.ID)}
		rr := serve(t, router, "POST", "/api/v1/organizations", body, saToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing name", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/v1/organizations", map[string]string{"name": "  "}, saToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("org admin cannot create", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/v1/organizations", map[string]string{"name": "Nope"}, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/v1/organizations", map[string]string{"name": "Nope"}, "")
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestOrganizationHandler_ListAndGet(t *testing.T) {
	router, sv := setupOrgTestRouter(t)
	sa, saToken := sv.user(t, models.RoleSuperAdmin)
	other := testutil.CreateTestOrg(t, sv.DB, "Other", sa)

	t.Run("visible organizations", func(t *testing.T) {
		rr := serve(t, router, "GET", "/api/v1/organizations", nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp struct {
			Data  []dto.OrganizationResponse `json:"data"`
			Total int                        `json:"total"`
		}
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Equal(t, 1, resp.Total)
		assert.Equal(t, sv.Org.Name, resp.Data[0].Name)
		assert.EqualValues(t, 1, resp.Data[0].MemberCount)
	})

	t.Run("list all needs super admin", func(t *testing.T) {
		rr := serve(t, router, "GET", "/api/v1/organizations?all=true", nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)

		rr = serve(t, router, "GET", "/api/v1/organizations?all=true", nil, saToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.ListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("get own organization", func(t *testing.T) {
		rr := serve(t, router, "GET", orgPath(sv.Org.ID, ""), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var org dto.OrganizationResponse
		testutil.ParseJSONResponse(t, rr, &org)
		assert.Equal(t, dto.FormatID(sv.Org.ID), org.ID)
	})

	t.Run("other organization is denied", func(t *testing.T) {
		rr := serve(t, router, "GET", orgPath(other.ID, ""), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := serve(t, router, "GET", "/api/v1/organizations/abc", nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing organization", func(t *testing.T) {
		rr := serve(t, router, "GET", orgPath(987654321, ""), nil, saToken)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestOrganizationHandler_UpdateAndDelete(t *testing.T) {
	router, sv := setupOrgTestRouter(t)
	_, saToken := sv.user(t, models.RoleSuperAdmin)

	body := map[string]interface{}{"name": "Renamed", "is_active": false}
	rr := serve(t, router, "PUT", orgPath(sv.Org.ID, ""), body, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	rr = serve(t, router, "PUT", orgPath(sv.Org.ID, ""), body, saToken)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var org dto.OrganizationResponse
	testutil.ParseJSONResponse(t, rr, &org)
	assert.Equal(t, "Renamed", org.Name)
	assert.False(t, org.IsActive)

	rr = serve(t, router, "DELETE", orgPath(sv.Org.ID, ""), nil, saToken)
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	var count int64
	require.NoError(t, sv.DB.Model(&models.Organization{}).Where("id = ?", sv.Org.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrganizationHandler_Members(t *testing.T) {
	router, sv := setupOrgTestRouter(t)
	tm, _ := sv.user(t, models.RoleTeamMember)

	t.Run("add existing user", func(t *testing.T) {
		body := map[string]string{"user_id": dto.FormatID(tm.ID), "role": models.RoleTeamMember}
		rr := serve(t, router, "POST", orgPath(sv.Org.ID, "/members"), body, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var m dto.MembershipResponse
		testutil.ParseJSONResponse(t, rr, &m)
		assert.Equal(t, dto.FormatID(tm.ID), m.UserID)
		assert.Equal(t, models.RoleTeamMember, m.Role)
	})

	t.Run("unknown role", func(t *testing.T) {
		body := map[string]string{"user_id": dto.FormatID(tm.ID), "role": "OWNER"}
		rr := serve(t, router, "POST", orgPath(sv.Org.ID, "/members"), body, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("list members", func(t *testing.T) {
		rr := serve(t, router, "GET", orgPath(sv.Org.ID, "/members"), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp struct {
			Data  []orgs.Member `json:"data"`
			Total int           `json:"total"`
		}
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Equal(t, 2, resp.Total)
		ids := []int64{resp.Data[0].UserID, resp.Data[1].UserID}
		assert.ElementsMatch(t, []int64{sv.Admin.ID, tm.ID}, ids)
	})

	t.Run("team member cannot list", func(t *testing.T) {
		token := testutil.GenerateTestToken(t, sv.JWTService, tm)
		rr := serve(t, router, "GET", orgPath(sv.Org.ID, "/members"), nil, token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("remove member", func(t *testing.T) {
		rr := serve(t, router, "DELETE", orgPath(sv.Org.ID, fmt.Sprintf("/members/%d", tm.ID)), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		var removed models.User
		require.NoError(t, sv.DB.First(&removed, tm.ID).Error)
		assert.False(t, removed.IsActive)
		assert.Equal(t, "Deleted", removed.FirstName)
	})

	t.Run("removed member is gone", func(t *testing.T) {
		rr := serve(t, router, "DELETE", orgPath(sv.Org.ID, fmt.Sprintf("/members/%d", tm.ID)), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("cannot remove yourself", func(t *testing.T) {
		rr := serve(t, router, "DELETE", orgPath(sv.Org.ID, fmt.Sprintf("/members/%d", sv.Admin.ID)), nil, sv.Token)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestOrganizationHandler_CreateMember(t *testing.T) {
	router, sv := setupOrgTestRouter(t)

	body := map[string]string{
		"email":      "pm@acme.test",
		"password":   testPassword,
		"first_name": "Pat",
		"last_name":  "Manager",
		"role":       models.RoleProjectManager,
	}
	rr := serve(t, router, "POST", orgPath(sv.Org.ID, "/users"), body, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var m orgs.Member
	testutil.ParseJSONResponse(t, rr, &m)
	assert.Equal(t, "pm@acme.test", m.Email)
	assert.Equal(t, models.RoleProjectManager, m.OrgRole)

	rr = serve(t, router, "POST", orgPath(sv.Org.ID, "/users"), body, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusConflict)

	body["email"] = "sa@acme.test"
	body["role"] = models.RoleSuperAdmin
	rr = serve(t, router, "POST", orgPath(sv.Org.ID, "/users"), body, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestOrganizationHandler_MemberLimit(t *testing.T) {
	router, sv := setupOrgTestRouter(t)
	limits := settings.DefaultLimits()
	limits.MaxUsersPerOrganization = 1
	_, err := sv.settings.SaveLimits(testutil.TestContext(t), limits)
	require.NoError(t, err)

	tm, _ := sv.user(t, models.RoleTeamMember)
	body := map[string]string{"user_id": dto.FormatID(tm.ID), "role": models.RoleTeamMember}
	rr := serve(t, router, "POST", orgPath(sv.Org.ID, "/members"), body, sv.Token)
	testutil.AssertStatus(t, rr, http.StatusConflict)

	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Contains(t, resp.Error, "limit exceeded")
}
