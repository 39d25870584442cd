package user

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/agent-management/internal/core/datamodel/rbac"
)

const (
	TypeUser  = "user"
	TypeAgent = "agent"
)

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"column:email;uniqueIndex;not null;size:255"`
	Username     string `gorm:"column:username;uniqueIndex;not null;size:50"`
	PasswordHash string `gorm:"column:password_hash;not null;size:255"`
	FirstName    string `gorm:"column:first_name;size:100"`
	LastName     string `gorm:"column:last_name;size:100"`
	IsActive     bool   `gorm:"column:is_active;default:true"`
	UserType     string `gorm:"column:user_type;default:user;size:20"`

	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	RefreshToken *string    `gorm:"column:refresh_token;type:text"`

	// Password reset state lives in its own columns, deliberately
	// separate from the refresh token session slot.
	ResetToken          *string    `gorm:"column:reset_token;index"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`

	ManagingAgentID *string `gorm:"column:managing_agent_id;type:uuid;index"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Roles       []rbac.Role       `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
	Permissions []rbac.Permission `gorm:"many2many:user_permissions;joinForeignKey:UserID;joinReferences:PermissionID"`
}

func (User) TableName() string { return "users" }
