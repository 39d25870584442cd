package agent

import (
	"time"

	"gorm.io/gorm"
)

type Agent struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	Code          string  `gorm:"column:code;uniqueIndex;not null;size:50"`
	Name          string  `gorm:"column:name;not null;size:255"`
	Description   string  `gorm:"column:description;type:text"`
	ParentAgentID *string `gorm:"column:parent_agent_id;type:uuid;index"`
	UserID        string  `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	IsActive      bool    `gorm:"column:is_active;default:true"`
	Level         int     `gorm:"column:level;default:0"`
	Path          string  `gorm:"column:path;type:text;index"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Agent) TableName() string { return "agents" }
