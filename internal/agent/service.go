package agent

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/agent-management/internal"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
)

type Service struct {
	repo   Repository
	users  UserDirectory
	logger *slog.Logger
}

func NewService(repo Repository, users UserDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// CreateAgent promotes a user to agent status, placing the new agent
// under the optional parent.
func (s *Service) CreateAgent(dto CreateAgentDTO) (*Agent, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByCode(dto.Code); err == nil {
		return nil, internal.ErrAgentCodeExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("failed to check agent code", err)
	}

	owner, err := s.users.GetSummary(dto.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if owner.HasAgentRecord {
		return nil, internal.ErrUserAlreadyAgent
	}

	level := 0
	path := RootPath
	var parentID *string

	if dto.ParentAgentID != nil && *dto.ParentAgentID != "" {
		parent, err := s.repo.GetByID(*dto.ParentAgentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, internal.NewNotFoundError("Parent agent not found", internal.ErrCodeAgentNotFound)
			}
			return nil, internal.NewInternalError("failed to look up parent agent", err)
		}
		level = parent.Level + 1
		path = parent.FullPath()
		parentID = &parent.ID
	}

	a := &Agent{
		ID:            uuid.NewString(),
		Code:          dto.Code,
		Name:          dto.Name,
		Description:   dto.Description,
		ParentAgentID: parentID,
		UserID:        dto.UserID,
		IsActive:      true,
		Level:         level,
		Path:          path,
	}

	if err := s.repo.Create(a); err != nil {
		return nil, internal.NewInternalError("failed to create agent", err)
	}

	if err := s.users.SetUserType(dto.UserID, userdm.TypeAgent); err != nil {
		return nil, internal.NewInternalError("failed to flag user as agent", err)
	}

	s.logger.Info("agent created", "code", a.Code, "user_id", a.UserID, "level", a.Level)
	return a, nil
}

func (s *Service) GetAgent(id string) (*Agent, error) {
	a, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrAgentNotFound
		}
		return nil, internal.NewInternalError("failed to load agent", err)
	}
	return a, nil
}

func (s *Service) ListAgents(offset, limit int) ([]*Agent, int64, error) {
	agents, total, err := s.repo.List(offset, limit)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list agents", err)
	}
	return agents, total, nil
}

// GetHierarchy returns the agent followed by all its descendants,
// ordered by level ascending then name ascending.
func (s *Service) GetHierarchy(agentID string) ([]*Agent, error) {
	a, err := s.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	descendants, err := s.repo.ListDescendants(a.FullPath())
	if err != nil {
		return nil, internal.NewInternalError("failed to load descendants", err)
	}

	return append([]*Agent{a}, descendants...), nil
}

// Reparent moves an agent (and implicitly its whole subtree) under a
// new parent, or to the root when newParentID is nil. The moved agent's
// level and path are recomputed, and every descendant's level and path
// are rewritten so that only the prefix changes: relative depth and the
// subtree's internal structure are preserved. All writes happen in one
// repository transaction.
func (s *Service) Reparent(agentID string, newParentID *string) (*Agent, error) {
	if newParentID != nil && *newParentID == "" {
		newParentID = nil
	}

	// All state is read, rewritten and written back inside the
	// repository's transaction; the closure only sees rows held under
	// its locks, so an overlapping move cannot be lost.
	moved, err := s.repo.Reparent(agentID, newParentID, func(a *Agent, parent *Agent, descendants []*Agent) error {
		oldFull := a.FullPath()

		newLevel := 0
		newPath := RootPath
		var parentID *string

		if parent != nil {
			if parent.ID == a.ID || parent.IsDescendantOf(a) {
				return internal.ErrAgentCycle
			}
			newLevel = parent.Level + 1
			newPath = parent.FullPath()
			parentID = &parent.ID
		}

		a.ParentAgentID = parentID
		a.Level = newLevel
		a.Path = newPath
		newFull := a.FullPath()

		for _, d := range descendants {
			rel, ok := d.Path.After(oldFull)
			if !ok {
				// The repository selected by this prefix under lock; a
				// miss here means the row set and the paths disagree.
				return internal.NewInternalError("descendant path out of sync", nil)
			}
			d.Path = newFull + rel
			d.Level = newLevel + 1 + rel.Depth()
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, internal.ErrAgentNotFound
		case errors.Is(err, ErrParentNotFound):
			return nil, internal.NewNotFoundError("New parent agent not found", internal.ErrCodeAgentNotFound)
		}
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.NewInternalError("failed to persist hierarchy update", err)
	}

	s.logger.Info("agent reparented",
		"code", moved.Code,
		"new_level", moved.Level)
	return moved, nil
}

// VerifyAccess succeeds when the requesting user's own agent is the
// target or a strict ancestor of it.
func (s *Service) VerifyAccess(agentID, requestingUserID string) error {
	requester, err := s.repo.GetByUserID(requestingUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrNotAnAgent
		}
		return internal.NewInternalError("failed to resolve requesting agent", err)
	}

	target, err := s.repo.GetByID(agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.NewNotFoundError("Target agent not found", internal.ErrCodeAgentNotFound)
		}
		return internal.NewInternalError("failed to load target agent", err)
	}

	if requester.ID == target.ID || target.IsDescendantOf(requester) {
		return nil
	}

	return internal.ErrAgentAccessDenied
}

// AssignUser puts a plain user under an agent's management.
func (s *Service) AssignUser(agentID, userID, requestingUserID string) error {
	if err := s.VerifyAccess(agentID, requestingUserID); err != nil {
		return err
	}

	u, err := s.users.GetSummary(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return internal.ErrUserNotFound
		}
		return internal.NewInternalError("failed to look up user", err)
	}

	if u.UserType == userdm.TypeAgent {
		return internal.ErrAgentAsManagedUser
	}

	if err := s.users.SetManagingAgent(userID, &agentID); err != nil {
		return internal.NewInternalError("failed to assign user", err)
	}

	s.logger.Info("user assigned to agent", "user_id", userID, "agent_id", agentID)
	return nil
}

func (s *Service) RemoveUser(userID, requestingUserID string) error {
	u, err := s.users.GetSummary(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return internal.ErrNoManagingAgent
		}
		return internal.NewInternalError("failed to look up user", err)
	}

	if u.ManagingAgentID == nil {
		return internal.ErrNoManagingAgent
	}

	if err := s.VerifyAccess(*u.ManagingAgentID, requestingUserID); err != nil {
		return err
	}

	if err := s.users.SetManagingAgent(userID, nil); err != nil {
		return internal.NewInternalError("failed to remove user", err)
	}

	s.logger.Info("user removed from agent", "user_id", userID, "agent_id", *u.ManagingAgentID)
	return nil
}

// ManagedUsers returns the users managed by the agent and by every
// agent below it, ordered by username.
func (s *Service) ManagedUsers(agentID, requestingUserID string) ([]*ManagedUser, error) {
	if err := s.VerifyAccess(agentID, requestingUserID); err != nil {
		return nil, err
	}

	hierarchy, err := s.GetHierarchy(agentID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hierarchy))
	for _, a := range hierarchy {
		ids = append(ids, a.ID)
	}

	users, err := s.users.ListManagedBy(ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to list managed users", err)
	}
	return users, nil
}

// DeleteAgent soft-deletes the agent record and reverts the owning
// user to a plain user.
func (s *Service) DeleteAgent(id string) error {
	a, err := s.GetAgent(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(a.ID); err != nil {
		return internal.NewInternalError("failed to delete agent", err)
	}

	if err := s.users.SetUserType(a.UserID, userdm.TypeUser); err != nil {
		return internal.NewInternalError("failed to reset user type", err)
	}

	s.logger.Info("agent deleted", "code", a.Code)
	return nil
}

// UpdateAgent changes the mutable display attributes.
func (s *Service) UpdateAgent(id string, dto UpdateAgentDTO) (*Agent, error) {
	a, err := s.GetAgent(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		a.Name = *dto.Name
	}
	if dto.Description != nil {
		a.Description = *dto.Description
	}
	if dto.IsActive != nil {
		a.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(a); err != nil {
		return nil, internal.NewInternalError("failed to update agent", err)
	}
	return a, nil
}
