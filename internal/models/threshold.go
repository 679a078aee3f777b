package models

import (
	"time"
)

// ThresholdCooldown is the minimum time between two firings of the same
// threshold rule.
const ThresholdCooldown = 24 * time.Hour

// PointThreshold is a supervisor-defined standing rule: when an assignee's
// balance drops below ThresholdPoints, auto-assign a punishment. A nil
// AssigneeID applies the rule to all of the supervisor's assignees.
type PointThreshold struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SupervisorID    uint       `gorm:"not null;index" json:"supervisor_id"`
	AssigneeID      *uint      `gorm:"index" json:"assignee_id,omitempty"`
	ThresholdPoints int        `gorm:"not null" json:"threshold_points"`
	PunishmentID    int        `gorm:"not null;default:-1" json:"punishment_id"` // catalog id or AutoPunishmentRandom
	Active          bool       `gorm:"not null;default:true" json:"active"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for PointThreshold model.
func (PointThreshold) TableName() string {
	return "point_thresholds"
}

// OnCooldown reports whether the rule fired within the cooldown window.
func (t *PointThreshold) OnCooldown(now time.Time) bool {
	return t.LastTriggeredAt != nil && now.Sub(*t.LastTriggeredAt) < ThresholdCooldown
}

// AppliesTo reports whether the rule targets the given assignee.
func (t *PointThreshold) AppliesTo(assigneeID uint) bool {
	return t.AssigneeID == nil || *t.AssigneeID == assigneeID
}
