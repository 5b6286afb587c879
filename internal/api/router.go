package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/flow/internal/api/handlers"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/metrics"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/projects"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/tasks"
	"github.com/hugh/flow/internal/users"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Tokens      auth.TokenService
	AuthService auth.Authenticator
	Users       middleware.UserLoader
	Authorizer  handlers.Authorizer

	Dashboard      handlers.Dashboard
	Orgs           *orgs.Service
	Projects       *projects.Service
	Tasks          *tasks.Service
	Inbox          *events.Inbox
	WebhookConfigs *events.WebhookConfigs
	Settings       *settings.Service
	Accounts       *users.Service

	AllowedOrigins []string // CORS allowed origins
	Limiter        middleware.Limiter
	MetricsPath    string
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))

	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(cfg.Dashboard, cfg.Logger)
	orgHandler := handlers.NewOrganizationHandler(cfg.Orgs, cfg.Logger)
	projectHandler := handlers.NewProjectHandler(cfg.Projects, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(cfg.Tasks, cfg.Logger)
	notificationHandler := handlers.NewNotificationHandler(cfg.Inbox, cfg.Logger)
	webhookHandler := handlers.NewWebhookHandler(cfg.WebhookConfigs, cfg.Authorizer, cfg.Logger)
	settingsHandler := handlers.NewSettingsHandler(cfg.Settings, cfg.Authorizer, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.Accounts, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens, cfg.Users))
			if cfg.Limiter != nil {
				r.Use(middleware.RateLimitByUser(cfg.Limiter))
			}

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", userHandler.ChangePassword)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Get("/roles", userHandler.Roles)
				r.Get("/role/{role}", userHandler.ByRole)
				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", userHandler.Get)
					r.Put("/", userHandler.Update)
					r.Delete("/", userHandler.Delete)
					r.Patch("/status", userHandler.SetStatus)
					r.Put("/roles", userHandler.AssignRoles)
					r.Put("/password", userHandler.ResetPassword)
				})
			})

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Post("/", orgHandler.Create)
				r.Get("/mine/stats", orgHandler.MyStats)
				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Put("/", orgHandler.Update)
					r.Delete("/", orgHandler.Delete)

					r.Get("/stats", orgHandler.Stats)
					r.Get("/members", orgHandler.Members)
					r.Post("/members", orgHandler.AddMember)
					r.Delete("/members/{userID}", orgHandler.RemoveMember)
					r.Post("/users", orgHandler.CreateMember)

					r.Get("/projects", projectHandler.List)
					r.Post("/projects", projectHandler.Create)

					r.Get("/webhook", webhookHandler.Get)
					r.Put("/webhook", webhookHandler.Update)
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", projectHandler.Get)
					r.Put("/", projectHandler.Update)
					r.Delete("/", projectHandler.Delete)
					r.Put("/status", projectHandler.UpdateStatus)
					r.Get("/members", projectHandler.Members)
					r.Post("/members", projectHandler.AddMember)
					r.Post("/feedback", projectHandler.Feedback)
					r.Post("/meetings", projectHandler.RequestMeeting)

					r.Get("/tasks", taskHandler.List)
					r.Post("/tasks", taskHandler.Create)
				})
			})

			r.Route("/tasks/{taskID}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Put("/status", taskHandler.UpdateStatus)
				r.Put("/assign", taskHandler.Assign)
				r.Get("/comments", taskHandler.Comments)
				r.Post("/comments", taskHandler.Comment)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/read-all", notificationHandler.MarkAllRead)
				r.Post("/{notificationID}/read", notificationHandler.MarkRead)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", dashboardHandler.Stats)
				r.Get("/activity", dashboardHandler.Activity)
				r.Get("/deadlines", dashboardHandler.Deadlines)
			})

			r.Get("/settings/limits", settingsHandler.Limits)
			r.Put("/settings/limits", settingsHandler.UpdateLimits)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return &Router{r}
}
