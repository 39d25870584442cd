package agent

import (
	"time"

	"github.com/frahmantamala/agent-management/internal/core/common/validation"
)

type CreateAgentDTO struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	UserID        string  `json:"user_id"`
	ParentAgentID *string `json:"parent_agent_id,omitempty"`
}

func (d CreateAgentDTO) Validate() error {
	if err := validation.ValidateAgentCode(d.Code); err != nil {
		return err
	}
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("user_id", d.UserID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateAgentDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (d UpdateAgentDTO) Validate() error {
	if d.Name != nil {
		v := validation.NewValidator()
		v.Field("name", *d.Name).Required().MaxLength(100)
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type ReparentDTO struct {
	NewParentAgentID *string `json:"new_parent_agent_id"`
}

type AssignUserDTO struct {
	AgentID string `json:"agent_id"`
	UserID  string `json:"user_id"`
}

func (d AssignUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("agent_id", d.AgentID).Required()
	v.Field("user_id", d.UserID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AgentView is the wire representation of an agent.
type AgentView struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ParentAgentID *string   `json:"parent_agent_id,omitempty"`
	UserID        string    `json:"user_id"`
	IsActive      bool      `json:"is_active"`
	Level         int       `json:"level"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewAgentView(a *Agent) *AgentView {
	return &AgentView{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Description:   a.Description,
		ParentAgentID: a.ParentAgentID,
		UserID:        a.UserID,
		IsActive:      a.IsActive,
		Level:         a.Level,
		Path:          string(a.Path),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func NewAgentViews(agents []*Agent) []*AgentView {
	out := make([]*AgentView, 0, len(agents))
	for _, a := range agents {
		out = append(out, NewAgentView(a))
	}
	return out
}

type ListAgentsResponse struct {
	Agents []*AgentView `json:"agents"`
	Total  int64        `json:"total"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
}
