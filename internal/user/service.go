package user

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/agent-management/internal"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
)

type ServiceAPI interface {
	Create(dto CreateUserDTO) (*User, error)
	Get(id string) (*User, error)
	List(offset, limit int, includeDeleted bool) ([]*User, int64, error)
	Update(id string, dto UpdateUserDTO) (*User, error)
	ChangePassword(id string, dto ChangePasswordDTO) error
	Delete(id string) error
	Restore(id string) error
	AssignRole(userID, roleName string) error
	RemoveRole(userID, roleName string) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) Create(dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(dto.Email); err == nil {
		return nil, internal.ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("failed to check email", err)
	}

	if _, err := s.repo.GetByUsername(dto.Username); err == nil {
		return nil, internal.ErrUsernameExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("failed to check username", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:     dto.Email,
		Username:  dto.Username,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		IsActive:  true,
		UserType:  userdm.TypeUser,
	}

	if err := s.repo.Create(u, string(hash)); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, internal.ErrEmailExists
		case errors.Is(err, ErrUsernameTaken):
			return nil, internal.ErrUsernameExists
		}
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "username", u.Username)
	return u, nil
}

func (s *Service) Get(id string) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return u, nil
}

func (s *Service) List(offset, limit int, includeDeleted bool) ([]*User, int64, error) {
	users, total, err := s.repo.List(offset, limit, includeDeleted)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}
	return users, total, nil
}

func (s *Service) Update(id string, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if dto.Email != nil && *dto.Email != u.Email {
		if existing, err := s.repo.GetByEmail(*dto.Email); err == nil && existing.ID != u.ID {
			return nil, internal.ErrEmailExists
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, internal.NewInternalError("failed to check email", err)
		}
		u.Email = *dto.Email
	}

	if dto.Username != nil && *dto.Username != u.Username {
		if existing, err := s.repo.GetByUsername(*dto.Username); err == nil && existing.ID != u.ID {
			return nil, internal.ErrUsernameExists
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, internal.NewInternalError("failed to check username", err)
		}
		u.Username = *dto.Username
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// ChangePassword requires the caller to prove knowledge of the current
// password before setting a new one.
func (s *Service) ChangePassword(id string, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return internal.NewValidationError("Current password is incorrect", internal.ErrCodeValidationFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	if err := s.repo.UpdatePassword(id, string(hash)); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	s.logger.Info("password changed", "user_id", id)
	return nil
}

func (s *Service) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(id); err != nil {
		return internal.NewInternalError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) Restore(id string) error {
	if err := s.repo.Restore(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrUserNotFound
		}
		return internal.NewInternalError("failed to restore user", err)
	}
	s.logger.Info("user restored", "user_id", id)
	return nil
}

func (s *Service) AssignRole(userID, roleName string) error {
	if _, err := s.Get(userID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(userID, roleName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrRoleNotFound
		}
		return internal.NewInternalError("failed to assign role", err)
	}
	return nil
}

func (s *Service) RemoveRole(userID, roleName string) error {
	if _, err := s.Get(userID); err != nil {
		return err
	}
	if err := s.repo.RemoveRole(userID, roleName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrRoleNotFound
		}
		return internal.NewInternalError("failed to remove role", err)
	}
	return nil
}
