package rbac

import (
	"errors"
	"log/slog"

	"github.com/frahmantamala/agent-management/internal"
)

type ServiceAPI interface {
	CreateRole(dto CreateRoleDTO) (*Role, error)
	GetRole(id string) (*Role, error)
	ListRoles() ([]*Role, error)
	UpdateRole(id string, dto UpdateRoleDTO) (*Role, error)
	DeleteRole(id string) error

	CreatePermission(dto CreatePermissionDTO) (*Permission, error)
	GetPermission(id string) (*Permission, error)
	ListPermissions(category string) ([]*Permission, error)
	UpdatePermission(id string, dto UpdatePermissionDTO) (*Permission, error)
	DeletePermission(id string) error

	AttachPermission(roleID, permissionID string) error
	DetachPermission(roleID, permissionID string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateRole(dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role := &Role{
		Name:        dto.Name,
		Description: dto.Description,
		IsActive:    true,
	}

	if err := s.repo.CreateRole(role); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, internal.ErrRoleExists
		}
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "name", role.Name)
	return role, nil
}

func (s *Service) GetRole(id string) (*Role, error) {
	role, err := s.repo.GetRole(id)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, internal.NewInternalError("failed to load role", err)
	}
	return role, nil
}

func (s *Service) ListRoles() ([]*Role, error) {
	roles, err := s.repo.ListRoles()
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (s *Service) UpdateRole(id string, dto UpdateRoleDTO) (*Role, error) {
	role, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}

	if dto.Description != nil {
		role.Description = *dto.Description
	}
	if dto.IsActive != nil {
		role.IsActive = *dto.IsActive
	}

	if err := s.repo.UpdateRole(role); err != nil {
		return nil, internal.NewInternalError("failed to update role", err)
	}
	return role, nil
}

func (s *Service) DeleteRole(id string) error {
	if _, err := s.GetRole(id); err != nil {
		return err
	}
	if err := s.repo.DeleteRole(id); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role deleted", "role_id", id)
	return nil
}

func (s *Service) CreatePermission(dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	perm := &Permission{
		Name:        dto.Name,
		Description: dto.Description,
		Category:    dto.Category,
		IsActive:    true,
	}

	if err := s.repo.CreatePermission(perm); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, internal.ErrPermissionExists
		}
		return nil, internal.NewInternalError("failed to create permission", err)
	}

	s.logger.Info("permission created", "name", perm.Name)
	return perm, nil
}

func (s *Service) GetPermission(id string) (*Permission, error) {
	perm, err := s.repo.GetPermission(id)
	if err != nil {
		if errors.Is(err, ErrPermissionNotFound) {
			return nil, internal.ErrPermissionNotFound
		}
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	return perm, nil
}

func (s *Service) ListPermissions(category string) ([]*Permission, error) {
	perms, err := s.repo.ListPermissions(category)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return perms, nil
}

func (s *Service) UpdatePermission(id string, dto UpdatePermissionDTO) (*Permission, error) {
	perm, err := s.GetPermission(id)
	if err != nil {
		return nil, err
	}

	if dto.Description != nil {
		perm.Description = *dto.Description
	}
	if dto.Category != nil {
		perm.Category = *dto.Category
	}
	if dto.IsActive != nil {
		perm.IsActive = *dto.IsActive
	}

	if err := s.repo.UpdatePermission(perm); err != nil {
		return nil, internal.NewInternalError("failed to update permission", err)
	}
	return perm, nil
}

func (s *Service) DeletePermission(id string) error {
	if _, err := s.GetPermission(id); err != nil {
		return err
	}
	if err := s.repo.DeletePermission(id); err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}
	s.logger.Info("permission deleted", "permission_id", id)
	return nil
}

func (s *Service) AttachPermission(roleID, permissionID string) error {
	if _, err := s.GetRole(roleID); err != nil {
		return err
	}
	if _, err := s.GetPermission(permissionID); err != nil {
		return err
	}
	if err := s.repo.AttachPermission(roleID, permissionID); err != nil {
		return internal.NewInternalError("failed to attach permission", err)
	}
	return nil
}

func (s *Service) DetachPermission(roleID, permissionID string) error {
	if _, err := s.GetRole(roleID); err != nil {
		return err
	}
	if err := s.repo.DetachPermission(roleID, permissionID); err != nil {
		return internal.NewInternalError("failed to detach permission", err)
	}
	return nil
}
