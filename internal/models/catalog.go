package models

import (
	"time"
)

// Reward is a supervisor-owned catalog entry an assignee can spend points on.
// Titles are unique per supervisor.
type Reward struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SupervisorID uint      `gorm:"not null;uniqueIndex:idx_reward_title" json:"supervisor_id"`
	Title        string    `gorm:"not null;size:255;uniqueIndex:idx_reward_title" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	PointCost    int       `gorm:"not null;default:0" json:"point_cost"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for Reward model.
func (Reward) TableName() string {
	return "rewards"
}

// Punishment is a supervisor-owned catalog entry applied to assignees via
// assignments. Titles are unique per supervisor.
type Punishment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SupervisorID uint      `gorm:"not null;uniqueIndex:idx_punishment_title" json:"supervisor_id"`
	Title        string    `gorm:"not null;size:255;uniqueIndex:idx_punishment_title" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for Punishment model.
func (Punishment) TableName() string {
	return "punishments"
}
