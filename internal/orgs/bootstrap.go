package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
)

// BootstrapInput names the reserved organization and the first
// SUPER_ADMIN account.
type BootstrapInput struct {
	ReservedName string
	Email        string
	Password     string
	FirstName    string
	LastName     string
}

type BootstrapResult struct {
	Organization *models.Organization
	Admin        *models.User
	CreatedOrg   bool
	CreatedAdmin bool
}

// Bootstrap creates the reserved organization and a SUPER_ADMIN that
// administers it. Running it again leaves existing rows alone; an existing
// user with the same e-mail is granted SUPER_ADMIN.
func Bootstrap(ctx context.Context, s *store.Store, in BootstrapInput) (*BootstrapResult, error) {
	name := strings.TrimSpace(in.ReservedName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: reserved name, email and password are required", ErrInvalidInput)
	}

	res := &BootstrapResult{}
	err := s.Transaction(ctx, func(tx *store.Store) error {
		admin, created, err := bootstrapAdmin(ctx, tx, email, in)
		if err != nil {
			return err
		}
		res.Admin, res.CreatedAdmin = admin, created

		existing, err := tx.OrganizationsByName(ctx, name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			org := existing[0]
			for _, o := range existing[1:] {
				if o.ID < org.ID {
					org = o
				}
			}
			res.Organization = &org
			return nil
		}

		org := &models.Organization{
			Name:        name,
			Slug:        slug.Make(name),
			Description: "System organization",
			IsActive:    true,
			OrgAdminID:  &admin.ID,
			CreatedByID: admin.ID,
		}
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if err := tx.SaveOrgMembership(ctx, &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         admin.ID,
			Role:           models.RoleSuperAdmin,
		}); err != nil {
			return err
		}
		res.Organization, res.CreatedOrg = org, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func bootstrapAdmin(ctx context.Context, tx *store.Store, email string, in BootstrapInput) (*models.User, bool, error) {
	user, err := tx.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.HasRole(models.RoleSuperAdmin) {
			user.Roles = append(user.Roles, models.RoleSuperAdmin)
			if err := tx.SaveUser(ctx, user); err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}
	user = &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Roles:        models.StringList{models.RoleSuperAdmin},
		IsActive:     true,
	}
	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
