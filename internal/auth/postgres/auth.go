package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/agent-management/internal/auth"
	rbacdm "github.com/frahmantamala/agent-management/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
)

// Repository implements auth.UserRepository on GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(id string) (*auth.Account, error) {
	return r.findBy("id = ?", id)
}

func (r *Repository) FindByUsername(username string) (*auth.Account, error) {
	return r.findBy("username = ?", username)
}

func (r *Repository) FindByEmail(email string) (*auth.Account, error) {
	return r.findBy("email = ?", email)
}

func (r *Repository) findBy(query string, arg interface{}) (*auth.Account, error) {
	var u userdm.User
	err := r.db.
		Preload("Roles.Permissions").
		Preload("Permissions").
		Where(query, arg).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return toAccount(&u), nil
}

func (r *Repository) CreateAccount(account *auth.NewAccount) (*auth.Account, error) {
	u := userdm.User{
		ID:           uuid.NewString(),
		Username:     account.Username,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		IsActive:     true,
		UserType:     userdm.TypeUser,
	}

	if err := r.db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The unique index that fired is not exposed; re-check to
			// classify the conflict.
			var count int64
			r.db.Model(&userdm.User{}).Where("email = ?", account.Email).Count(&count)
			if count > 0 {
				return nil, auth.ErrEmailTaken
			}
			return nil, auth.ErrUsernameTaken
		}
		return nil, err
	}

	return toAccount(&u), nil
}

func (r *Repository) AssignRoleByName(userID, roleName string) error {
	var role rbacdm.Role
	if err := r.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return err
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rbacdm.UserRole{UserID: userID, RoleID: role.ID}).Error
}

func (r *Repository) UpdateLastLogin(userID string) error {
	now := time.Now()
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Update("last_login_at", now).Error
}

func (r *Repository) UpdateRefreshToken(userID string, token *string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token).Error
}

func (r *Repository) StoreResetToken(userID, token string, expiresAt time.Time) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_token":            token,
			"reset_token_expires_at": expiresAt,
		}).Error
}

func (r *Repository) FindByResetToken(token string) (*auth.Account, error) {
	var u userdm.User
	err := r.db.
		Where("reset_token = ? AND reset_token_expires_at > ?", token, time.Now()).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return toAccount(&u), nil
}

func (r *Repository) UpdatePassword(userID, passwordHash string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *Repository) ClearResetToken(userID string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		}).Error
}

func toAccount(u *userdm.User) *auth.Account {
	acc := &auth.Account{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		UserType:     u.UserType,
		LastLoginAt:  u.LastLoginAt,
		RefreshToken: u.RefreshToken,
	}

	for _, role := range u.Roles {
		grant := auth.RoleGrant{Name: role.Name}
		for _, p := range role.Permissions {
			grant.Permissions = append(grant.Permissions, p.Name)
		}
		acc.Roles = append(acc.Roles, grant)
	}

	for _, p := range u.Permissions {
		acc.DirectPermissions = append(acc.DirectPermissions, p.Name)
	}

	return acc
}
