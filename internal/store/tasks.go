package store

import (
	"context"
	"time"

	"github.com/hugh/flow/internal/database/models"
)

func (s *Store) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return first[models.Task](ctx, s.db, "get task", "id = ?", id)
}

func (s *Store) GetTasks(ctx context.Context, ids []int64) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return find[models.Task](ctx, s.db, "get tasks", "id IN ?", ids)
}

func (s *Store) TasksByProjects(ctx context.Context, projectIDs []int64) ([]models.Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return find[models.Task](ctx, s.db, "tasks by project", "project_id IN ?", projectIDs)
}

func (s *Store) TasksByAssignee(ctx context.Context, userID int64) ([]models.Task, error) {
	return find[models.Task](ctx, s.db, "tasks by assignee", "assigned_to_id = ?", userID)
}

func (s *Store) TasksByCreator(ctx context.Context, userID int64) ([]models.Task, error) {
	return find[models.Task](ctx, s.db, "tasks by creator", "created_by_id = ?", userID)
}

// TasksDueBetween returns assigned tasks whose due date falls in [from, to).
func (s *Store) TasksDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	return find[models.Task](ctx, s.db, "tasks due between",
		"due_date >= ? AND due_date < ? AND assigned_to_id IS NOT NULL", from, to)
}

func (s *Store) CountTasksByProject(ctx context.Context, projectID int64) (int64, error) {
	return count(ctx, s.db, &models.Task{}, "count tasks by project", "project_id = ?", projectID)
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	return wrap(s.db.WithContext(ctx).Create(t).Error, "create task")
}

func (s *Store) SaveTask(ctx context.Context, t *models.Task) error {
	return wrap(s.db.WithContext(ctx).Save(t).Error, "save task")
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return wrap(err, "delete task comments")
		}
		res := tx.db.Delete(&models.Task{}, id)
		if res.Error != nil {
			return wrap(res.Error, "delete task")
		}
		if res.RowsAffected == 0 {
			return wrap(ErrNotFound, "delete task")
		}
		return nil
	})
}

func (s *Store) CreateComment(ctx context.Context, c *models.TaskComment) error {
	return wrap(s.db.WithContext(ctx).Create(c).Error, "create comment")
}

func (s *Store) CommentsByTask(ctx context.Context, taskID int64) ([]models.TaskComment, error) {
	return find[models.TaskComment](ctx, s.db, "comments by task", "task_id = ?", taskID)
}
