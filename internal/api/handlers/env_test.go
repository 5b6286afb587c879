package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/projects"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/tasks"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/internal/users"
	"github.com/hugh/flow/pkg/crypto"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ng!Pass"

// services wires the domain layer over a test database the way the server
// does, minus webhook fan-out and real mail.
type services struct {
	*testutil.TestSetup
	store    *store.Store
	resolver *access.Resolver
	policy   *access.Policy
	settings *settings.Service
	orgs     *orgs.Service
	projects *projects.Service
	tasks    *tasks.Service
	inbox    *events.Inbox
	webhooks *events.WebhookConfigs
	auth     *auth.Service
	users    *users.Service
}

func newServices(t *testing.T) *services {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := util.DiscardLogger()
	s := store.New(tc.DB)
	resolver := access.NewResolver(s, "Flow", logger)
	policy, err := access.NewPolicy(resolver, logger)
	require.NoError(t, err)
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	limits := settings.NewService(s, settings.DefaultLimits())
	router := events.NewRouter(s, nil, logger, nil)
	mailer := mail.NewNoOp(logger)

	return &services{
		TestSetup: tc,
		store:     s,
		resolver:  resolver,
		policy:    policy,
		settings:  limits,
		orgs:      orgs.NewService(s, policy, resolver, limits, mailer, logger),
		projects:  projects.NewService(s, policy, resolver, limits, router, mailer, logger),
		tasks:     tasks.NewService(s, policy, resolver, limits, router, mailer, logger),
		inbox:     events.NewInbox(s),
		webhooks:  events.NewWebhookConfigs(s, enc),
		auth:      auth.NewService(s, tc.JWTService),
		users:     users.NewService(s, policy, resolver, mailer, logger),
	}
}

// authed returns a router that authenticates every request against the
// test database.
func (sv *services) authed() *chi.Mux {
	r := chi.NewRouter()
	r.Use(sv.authMiddleware())
	return r
}

func (sv *services) authMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(sv.JWTService, sv.store)
}

func (sv *services) user(t *testing.T, roles ...string) (*models.User, string) {
	t.Helper()
	u := testutil.CreateTestUser(t, sv.DB, roles...)
	return u, testutil.GenerateTestToken(t, sv.JWTService, u)
}

func serve(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, testutil.AuthenticatedRequest(t, method, path, body, token))
	return rr
}
