// Package users administers user accounts: listing, creation, profile
// and role changes, deactivation and passwords. Organization admins act
// only on users of organizations they can see; SUPER_ADMIN acts on all.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/store"
)

var (
	ErrInvalidInput  = errors.New("invalid user input")
	ErrUserExists    = errors.New("user already exists")
	ErrWrongPassword = errors.New("current password is incorrect")
)

type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context, ids []int64) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error

	GetOrganizations(ctx context.Context, ids []int64) ([]models.Organization, error)
	OrganizationsByAdmin(ctx context.Context, userID int64) ([]models.Organization, error)
	OrgMembershipsByUser(ctx context.Context, userID int64) ([]models.OrganizationMember, error)
	OrgMembershipsByOrg(ctx context.Context, orgID int64) ([]models.OrganizationMember, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, action access.Action, res access.Resource) error
}

type Visibility interface {
	VisibleOrganizations(ctx context.Context, actor access.Actor) ([]int64, error)
}

type Service struct {
	store      Store
	authorizer Authorizer
	visibility Visibility
	mailer     mail.Sender
	logger     *slog.Logger
}

func NewService(s Store, authorizer Authorizer, visibility Visibility, mailer mail.Sender, logger *slog.Logger) *Service {
	return &Service{
		store:      s,
		authorizer: authorizer,
		visibility: visibility,
		mailer:     mailer,
		logger:     logger,
	}
}

// OrgRef is one organization a user belongs to, with the role held there.
type OrgRef struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// View is a user plus the organizations it belongs to.
type View struct {
	User          *models.User
	Organizations []OrgRef
}

type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []string
}

// UpdateInput changes only the fields that are set. A non-nil Roles
// replaces the user's roles.
type UpdateInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	IsActive  *bool
	Roles     []string
}

// Role describes a global role for role pickers.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
}

var roleCatalog = []Role{
	{models.RoleSuperAdmin, "Full system access", 1},
	{models.RoleOrgAdmin, "Organization administrator", 2},
	{models.RoleProjectManager, "Manages projects", 3},
	{models.RoleTeamMember, "Team member", 4},
	{models.RoleClient, "External client", 5},
}

func Roles() []Role {
	return append([]Role(nil), roleCatalog...)
}

// List returns the users the actor administers, ordered by id.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]View, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Users()); err != nil {
		return nil, err
	}
	reach, err := s.reach(ctx, actor)
	if err != nil {
		return nil, err
	}

	var list []models.User
	if reach.all {
		list, err = s.store.ListUsers(ctx)
	} else {
		list, err = s.store.GetUsers(ctx, reach.userIDs())
	}
	if err != nil {
		return nil, err
	}
	return s.views(ctx, reach, list)
}

// ByRole lists administered users holding role globally.
func (s *Service) ByRole(ctx context.Context, actor access.Actor, role string) ([]View, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Users()); err != nil {
		return nil, err
	}
	if !access.IsKnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	reach, err := s.reach(ctx, actor)
	if err != nil {
		return nil, err
	}
	list, err := s.store.UsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	kept := list[:0]
	for _, u := range list {
		if reach.has(u.ID) {
			kept = append(kept, u)
		}
	}
	return s.views(ctx, reach, kept)
}

// Get returns one user. Anyone may read their own account.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*View, error) {
	if id == actor.ID && actor.IsActive {
		user, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		views, err := s.views(ctx, &reach{all: true}, []models.User{*user})
		if err != nil {
			return nil, err
		}
		return &views[0], nil
	}

	user, reach, err := s.target(ctx, actor, access.ActionRead, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, reach, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create adds an active user holding roles, TEAM_MEMBER when none are
// given, and sends a welcome mail.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*models.User, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Users()); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleTeamMember}
	}
	roles, err := grantable(actor, roles)
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
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Roles:        models.StringList(roles),
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.mailer.Send(ctx, mail.Welcome(user.Email, user.FirstName)); err != nil {
		s.logger.Warn("welcome mail failed", "user_id", user.ID, "error", err)
	}
	s.logger.Info("user created", "user_id", user.ID, "roles", roles, "by", actor.ID)
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, in UpdateInput) (*models.User, error) {
	user, _, err := s.target(ctx, actor, access.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", ErrInvalidInput)
		}
		if email != user.Email {
			switch _, err := s.store.GetUserByEmail(ctx, email); {
			case err == nil:
				return nil, ErrUserExists
			case !errors.Is(err, store.ErrNotFound):
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Roles != nil {
		if err := s.authorizer.Authorize(ctx, actor, access.ActionAssignRoles, access.Users()); err != nil {
			return nil, err
		}
		roles, err := grantable(actor, in.Roles)
		if err != nil {
			return nil, err
		}
		user.Roles = models.StringList(roles)
	}
	if in.IsActive != nil {
		if err := checkActivation(actor, user, *in.IsActive); err != nil {
			return nil, err
		}
		user.IsActive = *in.IsActive
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// SetActive switches the account on or off.
func (s *Service) SetActive(ctx context.Context, actor access.Actor, id int64, active bool) (*models.User, error) {
	return s.Update(ctx, actor, id, UpdateInput{IsActive: &active})
}

// Deactivate soft-deletes the account. Administrator accounts and the
// actor's own account are refused.
func (s *Service) Deactivate(ctx context.Context, actor access.Actor, id int64) error {
	user, _, err := s.target(ctx, actor, access.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := checkActivation(actor, user, false); err != nil {
		return err
	}
	user.IsActive = false
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info("user deactivated", "user_id", id, "by", actor.ID)
	return nil
}

// AssignRoles replaces the user's global roles.
func (s *Service) AssignRoles(ctx context.Context, actor access.Actor, id int64, roles []string) (*models.User, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", ErrInvalidInput)
	}
	user, _, err := s.target(ctx, actor, access.ActionAssignRoles, id)
	if err != nil {
		return nil, err
	}
	granted, err := grantable(actor, roles)
	if err != nil {
		return nil, err
	}
	user.Roles = models.StringList(granted)
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user roles assigned", "user_id", id, "roles", granted, "by", actor.ID)
	return user, nil
}

// ResetPassword sets a new password for another user and tells them.
func (s *Service) ResetPassword(ctx context.Context, actor access.Actor, id int64, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	user, _, err := s.target(ctx, actor, access.ActionUpdate, id)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, password)
}

// ChangePassword replaces the actor's own password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actor access.Actor, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	if !actor.IsActive {
		return access.ErrAccessDenied
	}
	user, err := s.store.GetUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, user, next)
}

func (s *Service) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, mail.PasswordChanged(user.Email, user.FirstName)); err != nil {
		s.logger.Warn("password mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// target authorizes action on user id and loads it. Users outside the
// actor's reach, and SUPER_ADMIN accounts for anyone but a SUPER_ADMIN,
// are refused.
func (s *Service) target(ctx context.Context, actor access.Actor, action access.Action, id int64) (*models.User, *reach, error) {
	if err := s.authorizer.Authorize(ctx, actor, action, access.Users()); err != nil {
		return nil, nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	reach, err := s.reach(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	if !reach.has(id) {
		return nil, nil, access.ErrAccessDenied
	}
	if user.HasRole(models.RoleSuperAdmin) && !actor.HasRole(models.RoleSuperAdmin) {
		return nil, nil, access.ErrAccessDenied
	}
	return user, reach, nil
}

func checkActivation(actor access.Actor, user *models.User, active bool) error {
	if active {
		return nil
	}
	if user.ID == actor.ID {
		return fmt.Errorf("%w: cannot deactivate yourself", ErrInvalidInput)
	}
	if access.IsProtected(user.Roles) {
		return access.ErrProtectedUser
	}
	return nil
}

// grantable validates and deduplicates roles the actor hands out.
func grantable(actor access.Actor, roles []string) ([]string, error) {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if !access.IsKnownRole(r) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, r)
		}
		if !actor.CanGrantRole(r) {
			return nil, access.ErrAccessDenied
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// reach is the set of users and organizations an actor administers.
type reach struct {
	all   bool
	users map[int64]bool
	orgs  map[int64]bool
}

func (r *reach) has(userID int64) bool {
	return r.all || r.users[userID]
}

func (r *reach) hasOrg(orgID int64) bool {
	return r.all || r.orgs[orgID]
}

func (r *reach) userIDs() []int64 {
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) reach(ctx context.Context, actor access.Actor) (*reach, error) {
	if actor.HasRole(models.RoleSuperAdmin) {
		return &reach{all: true}, nil
	}
	orgIDs, err := s.visibility.VisibleOrganizations(ctx, actor)
	if err != nil {
		return nil, err
	}
	r := &reach{users: map[int64]bool{}, orgs: map[int64]bool{}}
	orgs, err := s.store.GetOrganizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		r.orgs[o.ID] = true
		if o.OrgAdminID != nil {
			r.users[*o.OrgAdminID] = true
		}
		members, err := s.store.OrgMembershipsByOrg(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			r.users[m.UserID] = true
		}
	}
	return r, nil
}

// views attaches organizations to each user: live memberships first, then
// organizations the user administers without a membership row.
func (s *Service) views(ctx context.Context, r *reach, list []models.User) ([]View, error) {
	out := make([]View, 0, len(list))
	for i := range list {
		u := &list[i]
		memberships, err := s.store.OrgMembershipsByUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		roleIn := make(map[int64]string, len(memberships))
		ids := make([]int64, 0, len(memberships))
		for _, m := range memberships {
			if r.hasOrg(m.OrganizationID) {
				roleIn[m.OrganizationID] = m.Role
				ids = append(ids, m.OrganizationID)
			}
		}
		orgs, err := s.store.GetOrganizations(ctx, ids)
		if err != nil {
			return nil, err
		}
		refs := make([]OrgRef, 0, len(orgs))
		for _, o := range orgs {
			refs = append(refs, OrgRef{ID: o.ID, Name: o.Name, Role: roleIn[o.ID]})
		}

		if u.HasRole(models.RoleOrgAdmin) {
			administered, err := s.store.OrganizationsByAdmin(ctx, u.ID)
			if err != nil {
				return nil, err
			}
			for _, o := range administered {
				if _, ok := roleIn[o.ID]; ok || !r.hasOrg(o.ID) {
					continue
				}
				refs = append(refs, OrgRef{ID: o.ID, Name: o.Name, Role: models.RoleOrgAdmin})
			}
		}
		out = append(out, View{User: u, Organizations: refs})
	}
	return out, nil
}
