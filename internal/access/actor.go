package access

import "github.com/hugh/flow/internal/database/models"

// RoleUnknown is reported for actors holding none of the recognised roles.
const RoleUnknown = "UNKNOWN"

// rolePriority orders global roles from most to least privileged.
var rolePriority = []string{
	models.RoleSuperAdmin,
	models.RoleOrgAdmin,
	models.RoleProjectManager,
	models.RoleTeamMember,
	models.RoleClient,
}

// Actor is the authenticated user a decision is made for.
type Actor struct {
	ID       int64
	Email    string
	Roles    []string
	IsActive bool
}

func ActorFromUser(u *models.User) Actor {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return Actor{
		ID:       u.ID,
		Email:    u.Email,
		Roles:    roles,
		IsActive: u.IsActive,
	}
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor's roles intersect roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// PrimaryRole picks the highest-priority recognised role.
func (a Actor) PrimaryRole() string {
	return PrimaryRole(a.Roles)
}

func PrimaryRole(roles []string) string {
	for _, candidate := range rolePriority {
		for _, r := range roles {
			if r == candidate {
				return candidate
			}
		}
	}
	return RoleUnknown
}

// IsKnownRole reports whether role is one of the global roles.
func IsKnownRole(role string) bool {
	for _, r := range rolePriority {
		if r == role {
			return true
		}
	}
	return false
}

// CanGrantRole reports whether the actor may give role to another user.
// SUPER_ADMIN is only handed out by another SUPER_ADMIN.
func (a Actor) CanGrantRole(role string) bool {
	if !IsKnownRole(role) {
		return false
	}
	return role != models.RoleSuperAdmin || a.HasRole(models.RoleSuperAdmin)
}

// IsProtected reports whether roles make an account exempt from removal
// and deactivation.
func IsProtected(roles []string) bool {
	for _, r := range roles {
		if r == models.RoleSuperAdmin || r == models.RoleOrgAdmin {
			return true
		}
	}
	return false
}
