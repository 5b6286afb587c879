package auth

import (
	"context"

	"github.com/hugh/flow/internal/database/models"
)

// Authenticator is what the HTTP layer needs from the account service.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenService issues and verifies bearer tokens. Tokens carry identity
// only; roles in the claims are informational.
type TokenService interface {
	GenerateToken(userID int64, email string, roles []string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// UserStore is the slice of the entity store authentication needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
