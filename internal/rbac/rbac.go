package rbac

import (
	"errors"
	"time"
)

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Permissions []Permission `json:"permissions,omitempty"`
}

type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrNameTaken          = errors.New("name already in use")
)

type Repository interface {
	CreateRole(role *Role) error
	GetRole(id string) (*Role, error)
	GetRoleByName(name string) (*Role, error)
	ListRoles() ([]*Role, error)
	UpdateRole(role *Role) error
	DeleteRole(id string) error

	CreatePermission(perm *Permission) error
	GetPermission(id string) (*Permission, error)
	ListPermissions(category string) ([]*Permission, error)
	UpdatePermission(perm *Permission) error
	DeletePermission(id string) error

	AttachPermission(roleID, permissionID string) error
	DetachPermission(roleID, permissionID string) error
}
