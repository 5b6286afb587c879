package store

import (
	"context"
	"strings"

	"github.com/hugh/flow/internal/database/models"
)

func (s *Store) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	return first[models.Organization](ctx, s.db, "get organization", "id = ?", id)
}

func (s *Store) GetOrganizations(ctx context.Context, ids []int64) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return find[models.Organization](ctx, s.db, "get organizations", "id IN ?", ids)
}

func (s *Store) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return find[models.Organization](ctx, s.db, "list organizations", nil)
}

func (s *Store) OrganizationsByAdmin(ctx context.Context, userID int64) ([]models.Organization, error) {
	return find[models.Organization](ctx, s.db, "organizations by admin", "org_admin_id = ?", userID)
}

func (s *Store) OrganizationsByCreator(ctx context.Context, userID int64) ([]models.Organization, error) {
	return find[models.Organization](ctx, s.db, "organizations by creator", "created_by_id = ?", userID)
}

// OrganizationsByName matches case-insensitively, lowest id first.
func (s *Store) OrganizationsByName(ctx context.Context, name string) ([]models.Organization, error) {
	return find[models.Organization](ctx, s.db, "organizations by name", "LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
}

func (s *Store) RecentOrganizations(ctx context.Context, limit int) ([]models.Organization, error) {
	var out []models.Organization
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, wrap(err, "recent organizations")
}

func (s *Store) CountOrganizations(ctx context.Context) (int64, error) {
	return count(ctx, s.db, &models.Organization{}, "count organizations", nil)
}

func (s *Store) CountActiveOrganizations(ctx context.Context) (int64, error) {
	return count(ctx, s.db, &models.Organization{}, "count active organizations", "is_active = ?", true)
}

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	return wrap(s.db.WithContext(ctx).Create(o).Error, "create organization")
}

func (s *Store) SaveOrganization(ctx context.Context, o *models.Organization) error {
	return wrap(s.db.WithContext(ctx).Save(o).Error, "save organization")
}

// DeleteOrganization removes the organization and everything below it in
// one transaction.
func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var projectIDs []int64
		if err := tx.db.Model(&models.Project{}).Where("organization_id = ?", id).Pluck("id", &projectIDs).Error; err != nil {
			return wrap(err, "delete organization")
		}
		if err := tx.deleteProjects(projectIDs); err != nil {
			return err
		}
		if err := tx.db.Where("organization_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return wrap(err, "delete organization members")
		}
		if err := tx.db.Where("organization_id = ?", id).Delete(&models.WebhookConfig{}).Error; err != nil {
			return wrap(err, "delete webhook configs")
		}
		res := tx.db.Delete(&models.Organization{}, id)
		if res.Error != nil {
			return wrap(res.Error, "delete organization")
		}
		if res.RowsAffected == 0 {
			return wrap(ErrNotFound, "delete organization")
		}
		return nil
	})
}

// Organization memberships. Rows with the DELETED sentinel are excluded
// from every listing but still returned by GetOrgMembership.

func (s *Store) GetOrgMembership(ctx context.Context, orgID, userID int64) (*models.OrganizationMember, error) {
	return first[models.OrganizationMember](ctx, s.db, "get organization membership", "organization_id = ? AND user_id = ?", orgID, userID)
}

func (s *Store) OrgMembershipsByUser(ctx context.Context, userID int64) ([]models.OrganizationMember, error) {
	return find[models.OrganizationMember](ctx, s.db, "organization memberships by user", "user_id = ? AND role <> ?", userID, models.MembershipDeleted)
}

func (s *Store) OrgMembershipsByOrg(ctx context.Context, orgID int64) ([]models.OrganizationMember, error) {
	return find[models.OrganizationMember](ctx, s.db, "organization memberships by organization", "organization_id = ? AND role <> ?", orgID, models.MembershipDeleted)
}

func (s *Store) CountOrgMembers(ctx context.Context, orgID int64) (int64, error) {
	return count(ctx, s.db, &models.OrganizationMember{}, "count organization members", "organization_id = ? AND role <> ?", orgID, models.MembershipDeleted)
}

func (s *Store) SaveOrgMembership(ctx context.Context, m *models.OrganizationMember) error {
	return wrap(s.db.WithContext(ctx).Save(m).Error, "save organization membership")
}

func (s *Store) OrganizationSlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := count(ctx, s.db, &models.Organization{}, "organization slug exists", "slug = ?", slug)
	return n > 0, err
}
