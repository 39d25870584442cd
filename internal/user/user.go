package user

import (
	"errors"
	"time"
)

// User is the domain projection of an account as the management
// surface sees it.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	IsActive        bool       `json:"is_active"`
	UserType        string     `json:"user_type"`
	ManagingAgentID *string    `json:"managing_agent_id,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Roles           []string   `json:"roles"`
	Permissions     []string   `json:"permissions"`

	PasswordHash string `json:"-"`
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
)

// Repository is the persistence surface the user service depends on.
type Repository interface {
	Create(u *User, passwordHash string) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByUsername(username string) (*User, error)
	List(offset, limit int, includeDeleted bool) ([]*User, int64, error)
	Update(u *User) error
	UpdatePassword(id, passwordHash string) error
	SoftDelete(id string) error
	Restore(id string) error
	AssignRole(userID, roleName string) error
	RemoveRole(userID, roleName string) error
}
