// Package models defines the persisted domain entities of the obligation
// tracker: users, relationships, tasks, completions, the reward/punishment
// catalog, assignments, and point thresholds.
package models

import (
	"time"
)

// User roles. A role is fixed at registration and never changes.
const (
	RoleSupervisor = "supervisor"
	RoleAssignee   = "assignee"
)

// User represents a registered participant. Points are a signed balance with
// no floor; every balance change goes through UserRepository.ApplyPointsDelta.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Identity  string    `gorm:"uniqueIndex;not null;size:255" json:"identity"` // external identity string (chat handle, etc.)
	Username  string    `gorm:"not null;size:255" json:"username"`
	Role      string    `gorm:"not null;size:20" json:"role"` // 'supervisor' or 'assignee'
	Points    int       `gorm:"not null;default:0" json:"points"`
	Timezone  string    `gorm:"size:64;default:UTC" json:"timezone"` // IANA name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// IsSupervisor reports whether the user holds the supervisor role.
func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		return time.UTC
	}
	return loc
}

// Relationship is a directed supervisor->assignee edge, unique per ordered
// pair. An assignee may be linked to multiple supervisors.
type Relationship struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SupervisorID uint      `gorm:"not null;uniqueIndex:idx_relationship_pair" json:"supervisor_id"`
	AssigneeID   uint      `gorm:"not null;uniqueIndex:idx_relationship_pair;index" json:"assignee_id"`
	Supervisor   User      `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	Assignee     User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for Relationship model.
func (Relationship) TableName() string {
	return "relationships"
}
