package rbac

import (
	"github.com/frahmantamala/agent-management/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (d CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(50)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CreatePermissionDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (d CreatePermissionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdatePermissionDTO struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type AttachPermissionDTO struct {
	PermissionID string `json:"permission_id"`
}

func (d AttachPermissionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("permission_id", d.PermissionID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
