package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/agent-management/internal/agent"
	agentdm "github.com/frahmantamala/agent-management/internal/core/datamodel/agent"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(a *agent.Agent) error {
	return r.db.Create(toModel(a)).Error
}

func (r *Repository) GetByID(id string) (*agent.Agent, error) {
	return r.getBy("id = ?", id)
}

func (r *Repository) GetByCode(code string) (*agent.Agent, error) {
	return r.getBy("code = ?", code)
}

func (r *Repository) GetByUserID(userID string) (*agent.Agent, error) {
	return r.getBy("user_id = ?", userID)
}

func (r *Repository) getBy(query string, arg any) (*agent.Agent, error) {
	var m agentdm.Agent
	if err := r.db.Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, agent.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *Repository) List(offset, limit int) ([]*agent.Agent, int64, error) {
	var total int64
	if err := r.db.Model(&agentdm.Agent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []agentdm.Agent
	err := r.db.
		Order("level asc").Order("name asc").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainSlice(models), total, nil
}

// ListDescendants matches every agent whose path starts with the given
// full path, which is exactly the subtree below the path's owner.
func (r *Repository) ListDescendants(prefix agent.Path) ([]*agent.Agent, error) {
	var models []agentdm.Agent
	err := r.db.
		Where("path LIKE ?", string(prefix)+"%").
		Order("level asc").Order("name asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *Repository) Update(a *agent.Agent) error {
	return r.db.Model(&agentdm.Agent{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"name":        a.Name,
			"description": a.Description,
			"is_active":   a.IsActive,
		}).Error
}

// Reparent locks and reloads the moved agent, the target parent and
// the subtree inside one transaction, lets compute rewrite them against
// that state, then persists the result. Reading under the row locks is
// what makes overlapping moves serialize: a cascade committed a moment
// earlier is part of the snapshot compute sees, not clobbered by one
// taken before it.
func (r *Repository) Reparent(agentID string, newParentID *string, compute agent.ReparentFunc) (*agent.Agent, error) {
	var moved *agent.Agent
	err := r.db.Transaction(func(tx *gorm.DB) error {
		lock := func() *gorm.DB {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var m agentdm.Agent
		if err := lock().Where("id = ?", agentID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return agent.ErrNotFound
			}
			return err
		}
		moved = toDomain(&m)

		var parent *agent.Agent
		if newParentID != nil {
			var pm agentdm.Agent
			if err := lock().Where("id = ?", *newParentID).First(&pm).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return agent.ErrParentNotFound
				}
				return err
			}
			parent = toDomain(&pm)
		}

		var dms []agentdm.Agent
		if err := lock().
			Where("path LIKE ?", string(moved.FullPath())+"%").
			Order("level asc").Order("name asc").
			Find(&dms).Error; err != nil {
			return err
		}
		descendants := toDomainSlice(dms)

		if err := compute(moved, parent, descendants); err != nil {
			return err
		}

		err := tx.Model(&agentdm.Agent{}).
			Where("id = ?", moved.ID).
			Updates(map[string]any{
				"parent_agent_id": moved.ParentAgentID,
				"level":           moved.Level,
				"path":            string(moved.Path),
			}).Error
		if err != nil {
			return err
		}

		for _, d := range descendants {
			err := tx.Model(&agentdm.Agent{}).
				Where("id = ?", d.ID).
				Updates(map[string]any{
					"level": d.Level,
					"path":  string(d.Path),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (r *Repository) Delete(id string) error {
	return r.db.Delete(&agentdm.Agent{}, "id = ?", id).Error
}

func toModel(a *agent.Agent) *agentdm.Agent {
	return &agentdm.Agent{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Description:   a.Description,
		ParentAgentID: a.ParentAgentID,
		UserID:        a.UserID,
		IsActive:      a.IsActive,
		Level:         a.Level,
		Path:          string(a.Path),
	}
}

func toDomain(m *agentdm.Agent) *agent.Agent {
	return &agent.Agent{
		ID:            m.ID,
		Code:          m.Code,
		Name:          m.Name,
		Description:   m.Description,
		ParentAgentID: m.ParentAgentID,
		UserID:        m.UserID,
		IsActive:      m.IsActive,
		Level:         m.Level,
		Path:          agent.Path(m.Path),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDomainSlice(models []agentdm.Agent) []*agent.Agent {
	out := make([]*agent.Agent, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out
}
