package orgs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
)

var ErrUserExists = errors.New("user already exists")

// Member is a user as seen from an organization's member list.
type Member struct {
	UserID    int64    `json:"id,string"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
	OrgRole   string   `json:"organization_role"`
	IsActive  bool     `json:"is_active"`
}

type NewMemberInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Members lists the organization's members the actor may see, ordered by
// user id.
func (s *Service) Members(ctx context.Context, actor access.Actor, orgID int64) ([]Member, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Members(orgID)); err != nil {
		return nil, err
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	ids, err := s.visibility.VisibleMembers(ctx, actor, orgID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Member{}, nil
	}

	memberships, err := s.store.OrgMembershipsByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	orgRoles := make(map[int64]string, len(memberships))
	for _, m := range memberships {
		orgRoles[m.UserID] = m.Role
	}

	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, Member{
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Roles:     append([]string{}, u.Roles...),
			OrgRole:   orgRoles[u.ID],
			IsActive:  u.IsActive,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// AddMember puts an existing user into the organization. An existing row,
// including a removed one, only has its role updated; a new row counts
// against the per-organization user limit.
func (s *Service) AddMember(ctx context.Context, actor access.Actor, orgID, userID int64, role string) (*models.OrganizationMember, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Members(orgID)); err != nil {
		return nil, err
	}
	if err := checkGrant(actor, role); err != nil {
		return nil, err
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}

	var member *models.OrganizationMember
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		member, err = addMember(ctx, tx, orgID, userID, role, limits.MaxUsersPerOrganization)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func addMember(ctx context.Context, tx *store.Store, orgID, userID int64, role string, maxUsers int) (*models.OrganizationMember, error) {
	existing, err := tx.GetOrgMembership(ctx, orgID, userID)
	switch {
	case err == nil:
		existing.Role = role
		if err := tx.SaveOrgMembership(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	n, err := tx.CountOrgMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := settings.Check("users per organization", n, maxUsers); err != nil {
		return nil, err
	}

	member := &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role}
	if err := tx.SaveOrgMembership(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// CreateMember creates a new user holding role globally and adds it to
// the organization with the same role.
func (s *Service) CreateMember(ctx context.Context, actor access.Actor, orgID int64, in NewMemberInput) (*Member, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Members(orgID)); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if err := checkGrant(actor, in.Role); err != nil {
		return nil, err
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Roles:        models.StringList{in.Role},
		IsActive:     true,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrUserExists
			}
			return err
		}
		_, err := addMember(ctx, tx, orgID, user.ID, in.Role, limits.MaxUsersPerOrganization)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, mail.Welcome(user.Email, user.FirstName)); err != nil {
		s.logger.Warn("welcome mail failed", "user_id", user.ID, "error", err)
	}
	s.logger.Info("organization member created", "organization_id", orgID, "user_id", user.ID, "role", in.Role)

	return &Member{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     []string{in.Role},
		OrgRole:   in.Role,
		IsActive:  true,
	}, nil
}

// RemoveMember marks the membership DELETED and anonymizes and deactivates
// the user. Rows are kept so references elsewhere stay valid. The user must
// hold a live membership in orgID, and administrator accounts are refused.
func (s *Service) RemoveMember(ctx context.Context, actor access.Actor, orgID, userID int64) error {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionDelete, access.Members(orgID)); err != nil {
		return err
	}
	if userID == actor.ID {
		return fmt.Errorf("%w: cannot remove yourself", ErrInvalidInput)
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		m, err := tx.GetOrgMembership(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if m.IsDeleted() {
			return store.ErrNotFound
		}
		if access.IsProtected(user.Roles) {
			return access.ErrProtectedUser
		}

		m.Role = models.MembershipDeleted
		if err := tx.SaveOrgMembership(ctx, m); err != nil {
			return err
		}
		anonymize(user)
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return err
	}

	s.logger.Info("organization member removed", "organization_id", orgID, "user_id", userID)
	return nil
}

// checkGrant validates role and refuses grants above the actor's reach.
func checkGrant(actor access.Actor, role string) error {
	if !access.IsKnownRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if !actor.CanGrantRole(role) {
		return access.ErrAccessDenied
	}
	return nil
}

func anonymize(u *models.User) {
	u.FirstName = "Deleted"
	u.LastName = "User"
	u.Email = fmt.Sprintf("deleted_user_%d@deleted.local", u.ID)
	u.Roles = models.StringList{}
	u.IsActive = false
}
