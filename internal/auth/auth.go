package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account is the credential-store view of a user: everything the auth
// flows need and nothing more.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	UserType     string
	LastLoginAt  *time.Time
	RefreshToken *string

	Roles             []RoleGrant
	DirectPermissions []string
}

// RoleGrant is a role assigned to an account together with the
// permission names that role carries.
type RoleGrant struct {
	Name        string
	Permissions []string
}

// RoleNames returns the names of all assigned roles.
func (a *Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// EffectivePermissions is the de-duplicated union of direct permissions
// and every assigned role's permissions.
func (a *Account) EffectivePermissions() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(a.DirectPermissions))
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range a.DirectPermissions {
		add(p)
	}
	for _, r := range a.Roles {
		for _, p := range r.Permissions {
			add(p)
		}
	}
	return out
}

// Claims carried by access tokens. Refresh tokens carry only the
// registered claims plus TokenType.
type Claims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenGenerator creates and verifies signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(account *Account, roles, permissions []string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(userID string) (string, error)
	VerifyAccessToken(tokenString string) (*Claims, error)
	VerifyRefreshToken(tokenString string) (*Claims, error)
}

// UserRepository is the credential store contract used by the Service.
// Lookup misses return ErrAccountNotFound.
type UserRepository interface {
	FindByID(id string) (*Account, error)
	FindByUsername(username string) (*Account, error)
	FindByEmail(email string) (*Account, error)

	CreateAccount(account *NewAccount) (*Account, error)
	AssignRoleByName(userID, roleName string) error

	UpdateLastLogin(userID string) error
	UpdateRefreshToken(userID string, token *string) error

	StoreResetToken(userID, token string, expiresAt time.Time) error
	FindByResetToken(token string) (*Account, error)
	UpdatePassword(userID, passwordHash string) error
	ClearResetToken(userID string) error
}

// NewAccount holds the fields persisted at registration time.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already taken")
	ErrUsernameTaken   = errors.New("username already taken")
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "user"
