package models

import (
	"time"
)

// Assignment type tags. Reward and punishment assignments share one table.
const (
	AssignmentReward     = "reward"
	AssignmentPunishment = "punishment"
)

// Punishment assignment statuses. Reward assignments are plain grant records
// and always carry StatusGranted.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
	StatusGranted   = "granted"
)

// Cascade defaults: assignments created by a deadline miss or a crossed
// threshold get a fixed deadline and penalty, independent of the task's own
// point value.
const (
	CascadeDeadline = 24 * time.Hour
	CascadePenalty  = 10
)

// Assignment records a reward grant or a punishment instance for one
// assignee. Punishment rows move through the proof workflow
// (pending -> submitted -> approved/rejected, pending -> expired);
// reward rows are terminal at creation.
type Assignment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Type         string `gorm:"not null;size:20;index" json:"type"` // 'reward' or 'punishment'
	SupervisorID uint   `gorm:"not null;index" json:"supervisor_id"`
	AssigneeID   uint   `gorm:"not null;index" json:"assignee_id"`
	ItemID       uint   `gorm:"not null" json:"item_id"` // rewards.id or punishments.id
	Reason       string `gorm:"type:text" json:"reason"`

	// Punishment workflow fields.
	Deadline *time.Time `json:"deadline,omitempty"`
	Penalty  int        `gorm:"not null;default:0" json:"penalty"` // doubled on expiry
	ProofURL string     `gorm:"size:2048" json:"proof_url"`

	// ForwardTo is a third-party identity that receives the proof, only
	// once the assignment is approved.
	ForwardTo string `gorm:"size:255" json:"forward_to"`

	Status string `gorm:"not null;size:20;index" json:"status"`

	// ExpiredAt marks that the expiry penalty was deducted; cancellation
	// refunds only when it is set.
	ExpiredAt *time.Time `json:"expired_at,omitempty"`

	ReminderMinutes int `gorm:"not null;default:0" json:"reminder_minutes"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedBy  *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Assignment model.
func (Assignment) TableName() string {
	return "assignments"
}

// IsPunishment reports whether this row is a punishment instance.
func (a *Assignment) IsPunishment() bool {
	return a.Type == AssignmentPunishment
}

// Reviewable reports whether a proof review may still be applied.
func (a *Assignment) Reviewable() bool {
	return a.Status == StatusSubmitted
}

// WasExpired reports whether the expiry penalty has been applied, regardless
// of the current status (a late submission moves expired back to submitted).
func (a *Assignment) WasExpired() bool {
	return a.ExpiredAt != nil
}
