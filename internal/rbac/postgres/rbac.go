package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	rbacdm "github.com/frahmantamala/agent-management/internal/core/datamodel/rbac"
	"github.com/frahmantamala/agent-management/internal/rbac"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateRole(role *rbac.Role) error {
	m := &rbacdm.Role{
		ID:          uuid.NewString(),
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
	}

	if err := r.db.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rbac.ErrNameTaken
		}
		return err
	}

	role.ID = m.ID
	role.CreatedAt = m.CreatedAt
	role.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *Repository) GetRole(id string) (*rbac.Role, error) {
	var m rbacdm.Role
	err := r.db.Preload("Permissions").Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, err
	}
	return roleToDomain(&m), nil
}

func (r *Repository) GetRoleByName(name string) (*rbac.Role, error) {
	var m rbacdm.Role
	err := r.db.Preload("Permissions").Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, err
	}
	return roleToDomain(&m), nil
}

func (r *Repository) ListRoles() ([]*rbac.Role, error) {
	var models []rbacdm.Role
	if err := r.db.Preload("Permissions").Order("name asc").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*rbac.Role, 0, len(models))
	for i := range models {
		out = append(out, roleToDomain(&models[i]))
	}
	return out, nil
}

func (r *Repository) UpdateRole(role *rbac.Role) error {
	return r.db.Model(&rbacdm.Role{}).
		Where("id = ?", role.ID).
		Updates(map[string]any{
			"description": role.Description,
			"is_active":   role.IsActive,
		}).Error
}

func (r *Repository) DeleteRole(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&rbacdm.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&rbacdm.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rbacdm.Role{}, "id = ?", id).Error
	})
}

func (r *Repository) CreatePermission(perm *rbac.Permission) error {
	m := &rbacdm.Permission{
		ID:          uuid.NewString(),
		Name:        perm.Name,
		Description: perm.Description,
		Category:    perm.Category,
		IsActive:    perm.IsActive,
	}

	if err := r.db.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rbac.ErrNameTaken
		}
		return err
	}

	perm.ID = m.ID
	perm.CreatedAt = m.CreatedAt
	perm.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *Repository) GetPermission(id string) (*rbac.Permission, error) {
	var m rbacdm.Permission
	if err := r.db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrPermissionNotFound
		}
		return nil, err
	}
	return permToDomain(&m), nil
}

func (r *Repository) ListPermissions(category string) ([]*rbac.Permission, error) {
	q := r.db.Order("category asc").Order("name asc")
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var models []rbacdm.Permission
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*rbac.Permission, 0, len(models))
	for i := range models {
		out = append(out, permToDomain(&models[i]))
	}
	return out, nil
}

func (r *Repository) UpdatePermission(perm *rbac.Permission) error {
	return r.db.Model(&rbacdm.Permission{}).
		Where("id = ?", perm.ID).
		Updates(map[string]any{
			"description": perm.Description,
			"category":    perm.Category,
			"is_active":   perm.IsActive,
		}).Error
}

func (r *Repository) DeletePermission(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&rbacdm.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&rbacdm.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rbacdm.Permission{}, "id = ?", id).Error
	})
}

func (r *Repository) AttachPermission(roleID, permissionID string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rbacdm.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}

func (r *Repository) DetachPermission(roleID, permissionID string) error {
	return r.db.
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&rbacdm.RolePermission{}).Error
}

func roleToDomain(m *rbacdm.Role) *rbac.Role {
	perms := make([]rbac.Permission, 0, len(m.Permissions))
	for i := range m.Permissions {
		perms = append(perms, *permToDomain(&m.Permissions[i]))
	}

	return &rbac.Role{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Permissions: perms,
	}
}

func permToDomain(m *rbacdm.Permission) *rbac.Permission {
	return &rbac.Permission{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
