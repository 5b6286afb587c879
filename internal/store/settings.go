package store

import (
	"context"

	"github.com/hugh/flow/internal/database/models"
	"gorm.io/gorm/clause"
)

func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	var rows []models.SystemConfig
	if err := s.db.WithContext(ctx).Order("key").Find(&rows).Error; err != nil {
		return nil, wrap(err, "list settings")
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.SystemConfig{Key: key, Value: value}).Error
	return wrap(err, "put setting")
}
