// Package orgs manages organizations and their membership lists.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
)

var (
	ErrInvalidInput    = errors.New("invalid organization input")
	ErrInvalidOrgAdmin = errors.New("organization admin must hold ORG_ADMIN")
)

type Store interface {
	Transaction(ctx context.Context, fn func(tx *store.Store) error) error

	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	GetOrganizations(ctx context.Context, ids []int64) ([]models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	OrganizationSlugExists(ctx context.Context, slug string) (bool, error)
	CreateOrganization(ctx context.Context, o *models.Organization) error
	SaveOrganization(ctx context.Context, o *models.Organization) error
	DeleteOrganization(ctx context.Context, id int64) error
	CountProjectsByOrganization(ctx context.Context, orgID int64) (int64, error)

	GetOrgMembership(ctx context.Context, orgID, userID int64) (*models.OrganizationMember, error)
	OrgMembershipsByOrg(ctx context.Context, orgID int64) ([]models.OrganizationMember, error)
	CountOrgMembers(ctx context.Context, orgID int64) (int64, error)
	SaveOrgMembership(ctx context.Context, m *models.OrganizationMember) error

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUsers(ctx context.Context, ids []int64) ([]models.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, action access.Action, res access.Resource) error
}

type Visibility interface {
	VisibleOrganizations(ctx context.Context, actor access.Actor) ([]int64, error)
	VisibleMembers(ctx context.Context, actor access.Actor, orgID int64) ([]int64, error)
}

type LimitSource interface {
	Limits(ctx context.Context) (settings.Limits, error)
}

type Service struct {
	store      Store
	authorizer Authorizer
	visibility Visibility
	limits     LimitSource
	mailer     mail.Sender
	logger     *slog.Logger
}

func NewService(s Store, authorizer Authorizer, visibility Visibility, limits LimitSource, mailer mail.Sender, logger *slog.Logger) *Service {
	return &Service{
		store:      s,
		authorizer: authorizer,
		visibility: visibility,
		limits:     limits,
		mailer:     mailer,
		logger:     logger,
	}
}

// Summary is an organization with its project and member counts. Counts
// that cannot be loaded are reported as zero.
type Summary struct {
	models.Organization
	ProjectCount int64 `json:"project_count"`
	MemberCount  int64 `json:"member_count"`
}

type CreateInput struct {
	Name        string
	Description string
	OrgAdminID  *int64
}

type UpdateInput struct {
	Name        *string
	Description *string
	OrgAdminID  *int64
	IsActive    *bool
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*Summary, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Organization(0)); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.OrgAdminID != nil {
		if err := s.checkOrgAdmin(ctx, *in.OrgAdminID); err != nil {
			return nil, err
		}
	}

	orgSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:        name,
		Slug:        orgSlug,
		Description: in.Description,
		IsActive:    true,
		OrgAdminID:  in.OrgAdminID,
		CreatedByID: actor.ID,
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	s.logger.Info("organization created", "organization_id", org.ID, "slug", org.Slug, "user_id", actor.ID)
	return s.summarize(ctx, *org), nil
}

// List returns the organizations visible to the actor.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]Summary, error) {
	ids, err := s.visibility.VisibleOrganizations(ctx, actor)
	if err != nil {
		return nil, err
	}
	orgs, err := s.store.GetOrganizations(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, orgs), nil
}

// ListAll returns every organization regardless of scope.
func (s *Service) ListAll(ctx context.Context, actor access.Actor) ([]Summary, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionListAll, access.Organization(0)); err != nil {
		return nil, err
	}
	orgs, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, orgs), nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Summary, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Organization(id)); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, *org), nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, in UpdateInput) (*Summary, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionUpdate, access.Organization(id)); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		org.Name = name
	}
	if in.Description != nil {
		org.Description = *in.Description
	}
	if in.OrgAdminID != nil {
		if err := s.checkOrgAdmin(ctx, *in.OrgAdminID); err != nil {
			return nil, err
		}
		org.OrgAdminID = in.OrgAdminID
	}
	if in.IsActive != nil {
		org.IsActive = *in.IsActive
	}

	if err := s.store.SaveOrganization(ctx, org); err != nil {
		return nil, err
	}
	return s.summarize(ctx, *org), nil
}

// Delete removes the organization with its projects, tasks, memberships
// and webhook config.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionDelete, access.Organization(id)); err != nil {
		return err
	}
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.logger.Info("organization deleted", "organization_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) checkOrgAdmin(ctx context.Context, userID int64) error {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: user %d not found", ErrInvalidOrgAdmin, userID)
	}
	if err != nil {
		return err
	}
	if !u.HasRole(models.RoleOrgAdmin) {
		return ErrInvalidOrgAdmin
	}
	return nil
}

func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.store.OrganizationSlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Service) summarizeAll(ctx context.Context, orgs []models.Organization) []Summary {
	out := make([]Summary, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, *s.summarize(ctx, o))
	}
	return out
}

func (s *Service) summarize(ctx context.Context, org models.Organization) *Summary {
	sum := &Summary{Organization: org}

	projects, err := s.store.CountProjectsByOrganization(ctx, org.ID)
	if err != nil {
		s.logger.Warn("count organization projects failed", "organization_id", org.ID, "error", err)
	}
	sum.ProjectCount = projects

	members, err := s.store.CountOrgMembers(ctx, org.ID)
	if err != nil {
		s.logger.Warn("count organization members failed", "organization_id", org.ID, "error", err)
	}
	sum.MemberCount = members
	return sum
}
