package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
)

type contextKey string

const (
	ActorKey     contextKey = "actor"
	RequestIDKey contextKey = "request_id"
)

// UserLoader resolves the token subject to the current user record.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Auth validates the bearer token and loads the caller from the store, so
// roles and the active flag always reflect the current record rather than
// what was true when the token was issued.
func Auth(tokens auth.TokenService, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			// 1. Authorization header
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			// 2. X-Auth-Token header
			if token == "" {
				token = r.Header.Get("X-Auth-Token")
			}

			if token == "" {
				unauthorized(w)
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					unauthorized(w)
					return
				}
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !user.IsActive {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, access.ActorFromUser(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// WithActor stores actor in ctx. Tests use it to skip token handling.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor returns the authenticated caller. The zero Actor is inactive
// and is refused by every policy check.
func GetActor(ctx context.Context) access.Actor {
	if a, ok := ctx.Value(ActorKey).(access.Actor); ok {
		return a
	}
	return access.Actor{}
}

func GetUserID(ctx context.Context) int64 {
	return GetActor(ctx).ID
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequireRole lets the request through when the caller holds any of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetActor(r.Context()).HasAnyRole(roles...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
