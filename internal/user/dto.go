package user

import (
	errs "github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/internal/core/common/validation"
)

type CreateUserDTO struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (d CreateUserDTO) Validate() error {
	if err := validation.ValidateUsername(d.Username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(d.Email); err != nil {
		return err
	}
	if err := errOrNil(validation.ValidatePassword(d.Password)); err != nil {
		return err
	}
	return nil
}

type UpdateUserDTO struct {
	Email     *string `json:"email,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	if d.Email != nil {
		if err := errOrNil(validation.ValidateEmail(*d.Email)); err != nil {
			return err
		}
	}
	if d.Username != nil {
		if err := errOrNil(validation.ValidateUsername(*d.Username)); err != nil {
			return err
		}
	}
	return nil
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (d ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if err := errOrNil(validation.ValidatePassword(d.NewPassword)); err != nil {
		return err
	}
	if d.NewPassword != d.ConfirmPassword {
		return errs.NewValidationError("Password confirmation does not match", errs.ErrCodeValidationFailed)
	}
	return nil
}

type RoleAssignmentDTO struct {
	RoleName string `json:"role_name"`
}

func (d RoleAssignmentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("role_name", d.RoleName).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ListUsersResponse struct {
	Users  []*User `json:"users"`
	Total  int64   `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

func errOrNil(err *errs.AppError) error {
	if err != nil {
		return err
	}
	return nil
}
