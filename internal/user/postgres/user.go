package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/agent-management/internal/agent"
	agentdm "github.com/frahmantamala/agent-management/internal/core/datamodel/agent"
	rbacdm "github.com/frahmantamala/agent-management/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
	"github.com/frahmantamala/agent-management/internal/user"
)

// Repository backs both the user service and the agent hierarchy's
// view of users.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(u *user.User, passwordHash string) error {
	m := &userdm.User{
		ID:           uuid.NewString(),
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: passwordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     u.IsActive,
		UserType:     u.UserType,
	}

	if err := r.db.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var count int64
			r.db.Model(&userdm.User{}).Where("email = ?", u.Email).Count(&count)
			if count > 0 {
				return user.ErrEmailTaken
			}
			return user.ErrUsernameTaken
		}
		return err
	}

	u.ID = m.ID
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *Repository) GetByID(id string) (*user.User, error) {
	return r.getBy("id = ?", id)
}

func (r *Repository) GetByEmail(email string) (*user.User, error) {
	return r.getBy("email = ?", email)
}

func (r *Repository) GetByUsername(username string) (*user.User, error) {
	return r.getBy("username = ?", username)
}

func (r *Repository) getBy(query string, arg any) (*user.User, error) {
	var m userdm.User
	err := r.db.
		Preload("Roles.Permissions").
		Preload("Permissions").
		Where(query, arg).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *Repository) List(offset, limit int, includeDeleted bool) ([]*user.User, int64, error) {
	q := r.db.Model(&userdm.User{})
	if includeDeleted {
		q = q.Unscoped()
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []userdm.User
	err := q.
		Preload("Roles").
		Order("username asc").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*user.User, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out, total, nil
}

func (r *Repository) Update(u *user.User) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"email":      u.Email,
			"username":   u.Username,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"is_active":  u.IsActive,
		}).Error
}

func (r *Repository) UpdatePassword(id, passwordHash string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *Repository) SoftDelete(id string) error {
	return r.db.Delete(&userdm.User{}, "id = ?", id).Error
}

func (r *Repository) Restore(id string) error {
	res := r.db.Unscoped().Model(&userdm.User{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *Repository) AssignRole(userID, roleName string) error {
	var role rbacdm.Role
	if err := r.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.ErrNotFound
		}
		return err
	}

	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rbacdm.UserRole{UserID: userID, RoleID: role.ID}).Error
}

func (r *Repository) RemoveRole(userID, roleName string) error {
	var role rbacdm.Role
	if err := r.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.ErrNotFound
		}
		return err
	}

	return r.db.
		Where("user_id = ? AND role_id = ?", userID, role.ID).
		Delete(&rbacdm.UserRole{}).Error
}

// GetSummary implements agent.UserDirectory.
func (r *Repository) GetSummary(userID string) (*agent.UserSummary, error) {
	var m userdm.User
	if err := r.db.Where("id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, agent.ErrUserNotFound
		}
		return nil, err
	}

	var agentCount int64
	if err := r.db.Model(&agentdm.Agent{}).
		Where("user_id = ?", userID).
		Count(&agentCount).Error; err != nil {
		return nil, err
	}

	return &agent.UserSummary{
		ID:              m.ID,
		Username:        m.Username,
		UserType:        m.UserType,
		ManagingAgentID: m.ManagingAgentID,
		HasAgentRecord:  agentCount > 0,
	}, nil
}

func (r *Repository) SetUserType(userID, userType string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Update("user_type", userType).Error
}

func (r *Repository) SetManagingAgent(userID string, agentID *string) error {
	return r.db.Model(&userdm.User{}).
		Where("id = ?", userID).
		Update("managing_agent_id", agentID).Error
}

func (r *Repository) ListManagedBy(agentIDs []string) ([]*agent.ManagedUser, error) {
	if len(agentIDs) == 0 {
		return []*agent.ManagedUser{}, nil
	}

	var models []userdm.User
	err := r.db.
		Where("managing_agent_id IN ?", agentIDs).
		Order("username asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*agent.ManagedUser, 0, len(models))
	for i := range models {
		m := &models[i]
		out = append(out, &agent.ManagedUser{
			ID:              m.ID,
			Username:        m.Username,
			Email:           m.Email,
			IsActive:        m.IsActive,
			ManagingAgentID: m.ManagingAgentID,
		})
	}
	return out, nil
}

func toDomain(m *userdm.User) *user.User {
	roles := make([]string, 0, len(m.Roles))
	perms := make([]string, 0)
	seen := make(map[string]struct{})

	for _, role := range m.Roles {
		roles = append(roles, role.Name)
		for _, p := range role.Permissions {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			perms = append(perms, p.Name)
		}
	}
	for _, p := range m.Permissions {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		perms = append(perms, p.Name)
	}

	return &user.User{
		ID:              m.ID,
		Email:           m.Email,
		Username:        m.Username,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		IsActive:        m.IsActive,
		UserType:        m.UserType,
		ManagingAgentID: m.ManagingAgentID,
		LastLoginAt:     m.LastLoginAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Roles:           roles,
		Permissions:     perms,
		PasswordHash:    m.PasswordHash,
	}
}
