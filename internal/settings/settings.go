// Package settings manages the system-wide resource limits stored as
// key/value rows.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

const (
	KeyMaxUsersPerOrganization    = "limit.max_users_org"
	KeyMaxProjectsPerOrganization = "limit.max_projects_org"
	KeyMaxMembersPerProject       = "limit.max_members_project"
	KeyMaxTasksPerProject         = "limit.max_tasks_project"
)

type Limits struct {
	MaxUsersPerOrganization    int `json:"maxUsersPerOrganization"`
	MaxProjectsPerOrganization int `json:"maxProjectsPerOrganization"`
	MaxMembersPerProject       int `json:"maxMembersPerProject"`
	MaxTasksPerProject         int `json:"maxTasksPerProject"`
}

// DefaultLimits are used for any key that has no stored value.
func DefaultLimits() Limits {
	return Limits{
		MaxUsersPerOrganization:    50,
		MaxProjectsPerOrganization: 10,
		MaxMembersPerProject:       20,
		MaxTasksPerProject:         500,
	}
}

type Store interface {
	Settings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
}

type Service struct {
	store    Store
	defaults Limits
}

// NewService uses defaults for unset or unparsable values. Zero fields in
// defaults fall back to DefaultLimits.
func NewService(store Store, defaults Limits) *Service {
	d := DefaultLimits()
	if defaults.MaxUsersPerOrganization > 0 {
		d.MaxUsersPerOrganization = defaults.MaxUsersPerOrganization
	}
	if defaults.MaxProjectsPerOrganization > 0 {
		d.MaxProjectsPerOrganization = defaults.MaxProjectsPerOrganization
	}
	if defaults.MaxMembersPerProject > 0 {
		d.MaxMembersPerProject = defaults.MaxMembersPerProject
	}
	if defaults.MaxTasksPerProject > 0 {
		d.MaxTasksPerProject = defaults.MaxTasksPerProject
	}
	return &Service{store: store, defaults: d}
}

func (s *Service) Limits(ctx context.Context) (Limits, error) {
	raw, err := s.store.Settings(ctx)
	if err != nil {
		return Limits{}, fmt.Errorf("load settings: %w", err)
	}
	return Limits{
		MaxUsersPerOrganization:    intOr(raw[KeyMaxUsersPerOrganization], s.defaults.MaxUsersPerOrganization),
		MaxProjectsPerOrganization: intOr(raw[KeyMaxProjectsPerOrganization], s.defaults.MaxProjectsPerOrganization),
		MaxMembersPerProject:       intOr(raw[KeyMaxMembersPerProject], s.defaults.MaxMembersPerProject),
		MaxTasksPerProject:         intOr(raw[KeyMaxTasksPerProject], s.defaults.MaxTasksPerProject),
	}, nil
}

// SaveLimits stores all four limits. Zero fields keep their current value.
func (s *Service) SaveLimits(ctx context.Context, in Limits) (Limits, error) {
	current, err := s.Limits(ctx)
	if err != nil {
		return Limits{}, err
	}

	updates := []struct {
		key   string
		value int
		dst   *int
	}{
		{KeyMaxUsersPerOrganization, in.MaxUsersPerOrganization, &current.MaxUsersPerOrganization},
		{KeyMaxProjectsPerOrganization, in.MaxProjectsPerOrganization, &current.MaxProjectsPerOrganization},
		{KeyMaxMembersPerProject, in.MaxMembersPerProject, &current.MaxMembersPerProject},
		{KeyMaxTasksPerProject, in.MaxTasksPerProject, &current.MaxTasksPerProject},
	}
	for _, u := range updates {
		if u.value < 0 {
			return Limits{}, fmt.Errorf("%w: %s", ErrInvalidLimit, u.key)
		}
	}
	for _, u := range updates {
		if u.value == 0 {
			continue
		}
		if err := s.store.PutSetting(ctx, u.key, strconv.Itoa(u.value)); err != nil {
			return Limits{}, err
		}
		*u.dst = u.value
	}
	return current, nil
}

// Check returns ErrLimitExceeded when adding one more item to a collection
// of size current would exceed max.
func Check(what string, current int64, max int) error {
	if current >= int64(max) {
		return fmt.Errorf("%w: %s (max %d)", ErrLimitExceeded, what, max)
	}
	return nil
}

func intOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
