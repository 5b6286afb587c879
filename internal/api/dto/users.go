package dto

import (
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/users"
)

type CreateUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

func (r CreateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is invalid"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if strings.TrimSpace(r.FirstName) == "" {
		errors["first_name"] = "First name is required"
	}
	validateRoles(errors, r.Roles, false)

	return errors
}

type UpdateUserRequest struct {
	Email     *string  `json:"email,omitempty"`
	Password  *string  `json:"password,omitempty"`
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

func (r UpdateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email != nil && !validation.IsValidEmail(*r.Email) {
		errors["email"] = "Email is invalid"
	}
	if r.Password != nil && *r.Password != "" {
		if ok, msg := validation.IsValidPassword(*r.Password); !ok {
			errors["password"] = msg
		}
	}
	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		errors["first_name"] = "First name must not be empty"
	}
	if r.Roles != nil {
		validateRoles(errors, r.Roles, true)
	}

	return errors
}

type UserStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (r UserStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.IsActive == nil {
		errors["is_active"] = "is_active is required"
	}
	return errors
}

type AssignRolesRequest struct {
	Roles []string `json:"roles"`
}

func (r AssignRolesRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateRoles(errors, r.Roles, true)
	return errors
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	return errors
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.CurrentPassword == "" {
		errors["current_password"] = "Current password is required"
	}
	if r.NewPassword == "" {
		errors["new_password"] = "New password is required"
	} else if ok, msg := validation.IsValidPassword(r.NewPassword); !ok {
		errors["new_password"] = msg
	}
	return errors
}

func validateRoles(errors map[string]string, roles []string, required bool) {
	if required && len(roles) == 0 {
		errors["roles"] = "At least one role is required"
		return
	}
	for _, role := range roles {
		if !access.IsKnownRole(strings.ToUpper(strings.TrimSpace(role))) {
			errors["roles"] = "Unknown role: " + role
			return
		}
	}
}

type UserOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type UserDetailResponse struct {
	UserDTO
	Organizations []UserOrganization `json:"organizations"`
}

func NewUserDetailResponse(v *users.View) UserDetailResponse {
	orgs := make([]UserOrganization, len(v.Organizations))
	for i, o := range v.Organizations {
		orgs[i] = UserOrganization{ID: FormatID(o.ID), Name: o.Name, Role: o.Role}
	}
	return UserDetailResponse{
		UserDTO:       NewUserDTO(v.User, access.PrimaryRole(v.User.Roles)),
		Organizations: orgs,
	}
}
