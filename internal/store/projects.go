package store

import (
	"context"

	"github.com/hugh/flow/internal/database/models"
)

func (s *Store) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return first[models.Project](ctx, s.db, "get project", "id = ?", id)
}

func (s *Store) GetProjects(ctx context.Context, ids []int64) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return find[models.Project](ctx, s.db, "get projects", "id IN ?", ids)
}

func (s *Store) ProjectsByOrganizations(ctx context.Context, orgIDs []int64) ([]models.Project, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	return find[models.Project](ctx, s.db, "projects by organization", "organization_id IN ?", orgIDs)
}

func (s *Store) ProjectsByManager(ctx context.Context, userID int64) ([]models.Project, error) {
	return find[models.Project](ctx, s.db, "projects by manager", "project_manager_id = ?", userID)
}

func (s *Store) ProjectsByCreator(ctx context.Context, userID int64) ([]models.Project, error) {
	return find[models.Project](ctx, s.db, "projects by creator", "created_by_id = ?", userID)
}

func (s *Store) RecentProjects(ctx context.Context, orgID int64, limit int) ([]models.Project, error) {
	var out []models.Project
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, wrap(err, "recent projects")
}

func (s *Store) CountProjects(ctx context.Context) (int64, error) {
	return count(ctx, s.db, &models.Project{}, "count projects", nil)
}

func (s *Store) CountProjectsByOrganization(ctx context.Context, orgID int64) (int64, error) {
	return count(ctx, s.db, &models.Project{}, "count projects by organization", "organization_id = ?", orgID)
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return wrap(s.db.WithContext(ctx).Create(p).Error, "create project")
}

func (s *Store) SaveProject(ctx context.Context, p *models.Project) error {
	return wrap(s.db.WithContext(ctx).Save(p).Error, "save project")
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.GetProject(ctx, id); err != nil {
			return err
		}
		return tx.deleteProjects([]int64{id})
	})
}

func (s *Store) deleteProjects(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	taskIDs := s.db.Model(&models.Task{}).Select("id").Where("project_id IN ?", ids)
	if err := s.db.Where("task_id IN (?)", taskIDs).Delete(&models.TaskComment{}).Error; err != nil {
		return wrap(err, "delete task comments")
	}
	if err := s.db.Where("project_id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
		return wrap(err, "delete tasks")
	}
	if err := s.db.Where("project_id IN ?", ids).Delete(&models.Meeting{}).Error; err != nil {
		return wrap(err, "delete meetings")
	}
	if err := s.db.Where("project_id IN ?", ids).Delete(&models.ProjectMember{}).Error; err != nil {
		return wrap(err, "delete project members")
	}
	if err := s.db.Where("id IN ?", ids).Delete(&models.Project{}).Error; err != nil {
		return wrap(err, "delete projects")
	}
	return nil
}

// Project memberships.

func (s *Store) GetProjectMembership(ctx context.Context, projectID, userID int64) (*models.ProjectMember, error) {
	return first[models.ProjectMember](ctx, s.db, "get project membership", "project_id = ? AND user_id = ?", projectID, userID)
}

func (s *Store) ProjectMembershipsByUser(ctx context.Context, userID int64) ([]models.ProjectMember, error) {
	return find[models.ProjectMember](ctx, s.db, "project memberships by user", "user_id = ? AND role <> ?", userID, models.MembershipDeleted)
}

func (s *Store) ProjectMembershipsByProjects(ctx context.Context, projectIDs []int64) ([]models.ProjectMember, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return find[models.ProjectMember](ctx, s.db, "project memberships by project", "project_id IN ? AND role <> ?", projectIDs, models.MembershipDeleted)
}

func (s *Store) CountProjectMembers(ctx context.Context, projectID int64) (int64, error) {
	return count(ctx, s.db, &models.ProjectMember{}, "count project members", "project_id = ? AND role <> ?", projectID, models.MembershipDeleted)
}

func (s *Store) SaveProjectMembership(ctx context.Context, m *models.ProjectMember) error {
	return wrap(s.db.WithContext(ctx).Save(m).Error, "save project membership")
}

// Meetings.

func (s *Store) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	return wrap(s.db.WithContext(ctx).Create(m).Error, "create meeting")
}

func (s *Store) MeetingsByProject(ctx context.Context, projectID int64) ([]models.Meeting, error) {
	return find[models.Meeting](ctx, s.db, "meetings by project", "project_id = ?", projectID)
}
