package store

import (
	"context"
	"strings"

	"github.com/hugh/flow/internal/database/models"
)

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return first[models.User](ctx, s.db, "get user", "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](ctx, s.db, "get user by email", "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUsers(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return find[models.User](ctx, s.db, "get users", "id IN ?", ids)
}

// UsersByRole matches against the JSON-encoded role list.
func (s *Store) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return find[models.User](ctx, s.db, "users by role", "roles LIKE ?", `%"`+role+`"%`)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return find[models.User](ctx, s.db, "list users", nil)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return count(ctx, s.db, &models.User{}, "count users", nil)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return wrap(s.db.WithContext(ctx).Create(u).Error, "create user")
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return wrap(s.db.WithContext(ctx).Save(u).Error, "save user")
}
