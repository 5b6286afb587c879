// Package store is the gorm-backed entity store. It exposes narrow lookups
// (by id, by foreign key, by role, counts) and single-record writes; the
// policy and aggregation logic lives in the packages that consume it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func first[T any](ctx context.Context, db *gorm.DB, what string, query interface{}, args ...interface{}) (*T, error) {
	var out T
	if err := db.WithContext(ctx).Where(query, args...).First(&out).Error; err != nil {
		return nil, wrap(err, what)
	}
	return &out, nil
}

func find[T any](ctx context.Context, db *gorm.DB, what string, query interface{}, args ...interface{}) ([]T, error) {
	var out []T
	q := db.WithContext(ctx)
	if query != nil {
		q = q.Where(query, args...)
	}
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, wrap(err, what)
	}
	return out, nil
}

func count(ctx context.Context, db *gorm.DB, model interface{}, what string, query interface{}, args ...interface{}) (int64, error) {
	var n int64
	q := db.WithContext(ctx).Model(model)
	if query != nil {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, wrap(err, what)
	}
	return n, nil
}
