package models

import (
	"time"
)

// Task frequency classes.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// DefaultPointValue is the point value a task gets when none is specified.
const DefaultPointValue = 10

// Auto-punishment sentinel values for Task.AutoPunishmentID and
// PointThreshold.PunishmentID.
const (
	AutoPunishmentNone   = 0
	AutoPunishmentRandom = -1 // pick uniformly from the supervisor's catalog
)

// Task is an obligation owned jointly by one supervisor and one assignee.
// Visible ids are allocated gap-filling so they stay small after deletions.
type Task struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SupervisorID uint   `gorm:"not null;index" json:"supervisor_id"`
	AssigneeID   uint   `gorm:"not null;index" json:"assignee_id"`
	Title        string `gorm:"not null;size:255" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	Frequency    string `gorm:"not null;size:20" json:"frequency"` // 'daily', 'weekly', 'custom'
	PointValue   int    `gorm:"not null;default:10" json:"point_value"`

	Deadline *time.Time `json:"deadline,omitempty"`

	// Recurrence rule: either an hour interval or a weekday set plus an
	// optional wall-clock time.
	RecurrenceEnabled bool       `gorm:"not null;default:false" json:"recurrence_enabled"`
	IntervalHours     int        `gorm:"not null;default:0" json:"interval_hours"`
	Weekdays          string     `gorm:"size:64" json:"weekdays"`   // comma-separated, e.g. "mon,wed,fri"
	TimeOfDay         string     `gorm:"size:8" json:"time_of_day"` // "HH:MM"
	NextOccurrence    *time.Time `json:"next_occurrence,omitempty"`

	// DeadlineAnchor is the wall-clock time ("HH:MM", assignee timezone)
	// used to recompute the next deadline after an approved or
	// reset-rejected completion. Empty means no recompute.
	DeadlineAnchor string `gorm:"size:8" json:"deadline_anchor"`

	// AutoPunishmentID names the punishment assigned on deadline miss:
	// a catalog id, AutoPunishmentRandom, or AutoPunishmentNone.
	AutoPunishmentID int `gorm:"not null;default:0" json:"auto_punishment_id"`

	ReminderMinutes int  `gorm:"not null;default:0" json:"reminder_minutes"` // 0 disables reminders
	Active          bool `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Task model.
func (Task) TableName() string {
	return "tasks"
}

// IsExpired reports whether the task's absolute deadline has passed.
func (t *Task) IsExpired(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now)
}

// Task completion review statuses.
const (
	CompletionPending  = "pending"
	CompletionApproved = "approved"
	CompletionRejected = "rejected"
)

// TaskCompletion is a submission event for one task. PointsEarned snapshots
// the task's point value at submission time so later edits to the task do not
// retroactively change pending submissions.
type TaskCompletion struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TaskID      uint       `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"task_id"`
	Task        Task       `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	AssigneeID  uint       `gorm:"not null;index" json:"assignee_id"`
	ProofURL    string     `gorm:"size:2048" json:"proof_url"`
	PointsEarned int       `gorm:"not null" json:"points_earned"`
	Status      string     `gorm:"not null;size:20;default:pending" json:"status"`
	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedBy  *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for TaskCompletion model.
func (TaskCompletion) TableName() string {
	return "task_completions"
}
