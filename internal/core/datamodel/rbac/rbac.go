package rbac

import (
	"time"

	"gorm.io/gorm"
)

type Role struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	Name        string         `gorm:"column:name;uniqueIndex;not null;size:50"`
	Description string         `gorm:"column:description;size:255"`
	IsActive    bool           `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Permissions []Permission `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	Name        string         `gorm:"column:name;uniqueIndex;not null;size:100"`
	Description string         `gorm:"column:description;size:255"`
	Category    string         `gorm:"column:category;size:50"`
	IsActive    bool           `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Permission) TableName() string { return "permissions" }

type RolePermission struct {
	RoleID       string `gorm:"column:role_id;primaryKey;type:uuid"`
	PermissionID string `gorm:"column:permission_id;primaryKey;type:uuid"`
}

func (RolePermission) TableName() string { return "role_permissions" }

type UserRole struct {
	UserID string `gorm:"column:user_id;primaryKey;type:uuid"`
	RoleID string `gorm:"column:role_id;primaryKey;type:uuid"`
}

func (UserRole) TableName() string { return "user_roles" }

type UserPermission struct {
	UserID       string `gorm:"column:user_id;primaryKey;type:uuid"`
	PermissionID string `gorm:"column:permission_id;primaryKey;type:uuid"`
}

func (UserPermission) TableName() string { return "user_permissions" }
