package repository

import (
	"fmt"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// RelationshipRepository handles supervisor/assignee links.
type RelationshipRepository struct {
	db *DB
}

// NewRelationshipRepository creates a new relationship repository.
func NewRelationshipRepository(db *DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Create links a supervisor to an assignee. The ordered pair is unique;
// duplicates fail with taskerr.ErrDuplicateRelationship.
func (r *RelationshipRepository) Create(rel *models.Relationship) error {
	var count int64
	err := r.db.Model(&models.Relationship{}).
		Where("supervisor_id = ? AND assignee_id = ?", rel.SupervisorID, rel.AssigneeID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check relationship: %w", err)
	}
	if count > 0 {
		return taskerr.ErrDuplicateRelationship
	}
	if err := r.db.Create(rel).Error; err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// Exists reports whether a supervisor/assignee link is present.
func (r *RelationshipRepository) Exists(supervisorID, assigneeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Relationship{}).
		Where("supervisor_id = ? AND assignee_id = ?", supervisorID, assigneeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return count > 0, nil
}

// Assignees returns all assignees linked to a supervisor.
func (r *RelationshipRepository) Assignees(supervisorID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN relationships ON relationships.assignee_id = users.id").
		Where("relationships.supervisor_id = ?", supervisorID).
		Order("relationships.created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %w", err)
	}
	return users, nil
}

// Supervisors returns all supervisors linked to an assignee, oldest link first.
func (r *RelationshipRepository) Supervisors(assigneeID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN relationships ON relationships.supervisor_id = users.id").
		Where("relationships.assignee_id = ?", assigneeID).
		Order("relationships.created_at ASC, relationships.supervisor_id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisors: %w", err)
	}
	return users, nil
}

// PrimarySupervisor returns the assignee's earliest-linked supervisor.
// The tie-break (link creation time, then supervisor id) is deterministic;
// operations that need a specific supervisor should name one explicitly.
func (r *RelationshipRepository) PrimarySupervisor(assigneeID uint) (*models.User, error) {
	supervisors, err := r.Supervisors(assigneeID)
	if err != nil {
		return nil, err
	}
	if len(supervisors) == 0 {
		return nil, taskerr.ErrNotFound
	}
	return &supervisors[0], nil
}
