package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// recentAssignmentsLimit caps assignment listings to the most recent entries.
const recentAssignmentsLimit = 10

// AssignmentRepository handles reward grants and punishment assignments.
// All status transitions guard on the current status inside the UPDATE, so
// concurrent transitions on one row resolve to exactly one winner.
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment row.
func (r *AssignmentRepository) Create(assignment *models.Assignment) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now()
	}
	if err := r.db.Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by its ID.
func (r *AssignmentRepository) GetByID(id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.First(&assignment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment %d: %w", id, err)
	}
	return &assignment, nil
}

// ListByAssignee returns an assignee's most recent assignments, optionally
// filtered by type tag.
func (r *AssignmentRepository) ListByAssignee(assigneeID uint, assignmentType string) ([]models.Assignment, error) {
	query := r.db.Where("assignee_id = ?", assigneeID)
	if assignmentType != "" {
		query = query.Where("type = ?", assignmentType)
	}
	var assignments []models.Assignment
	err := query.Order("assigned_at DESC").Limit(recentAssignmentsLimit).Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// FindExpiredPending returns punishment assignments still pending past their
// deadline.
func (r *AssignmentRepository) FindExpiredPending(now time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.
		Where("type = ? AND status = ?", models.AssignmentPunishment, models.StatusPending).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired assignments: %w", err)
	}
	return assignments, nil
}

// FindWithReminders returns pending punishment assignments that carry a
// reminder interval and a deadline.
func (r *AssignmentRepository) FindWithReminders() ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.
		Where("type = ? AND status = ?", models.AssignmentPunishment, models.StatusPending).
		Where("reminder_minutes > 0").
		Where("deadline IS NOT NULL").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments with reminders: %w", err)
	}
	return assignments, nil
}

// MarkSubmitted attaches proof and moves pending or expired to submitted.
// A late proof after expiry stays reviewable; the doubled penalty already
// applied is settled at review time.
func (r *AssignmentRepository) MarkSubmitted(id uint, proofURL string, now time.Time) error {
	res := r.db.Model(&models.Assignment{}).
		Where("id = ? AND type = ? AND status IN ?", id, models.AssignmentPunishment,
			[]string{models.StatusPending, models.StatusExpired}).
		Updates(map[string]interface{}{
			"status":       models.StatusSubmitted,
			"proof_url":    proofURL,
			"submitted_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to submit proof: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrAlreadyReviewed
	}
	return nil
}

// FinishReview moves submitted to the given terminal status. A second
// concurrent review observes zero affected rows.
func (r *AssignmentRepository) FinishReview(id uint, status string, reviewerID uint, now time.Time) error {
	res := r.db.Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, models.StatusSubmitted).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to review assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrAlreadyReviewed
	}
	return nil
}

// ForceApprove moves a still-open assignment straight to approved
// (supervisor cancellation). Expired assignments stay cancellable so the
// doubled penalty can be refunded.
func (r *AssignmentRepository) ForceApprove(id uint, reviewerID uint, now time.Time) error {
	res := r.db.Model(&models.Assignment{}).
		Where("id = ? AND status IN ?", id,
			[]string{models.StatusPending, models.StatusSubmitted, models.StatusExpired}).
		Updates(map[string]interface{}{
			"status":      models.StatusApproved,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrAlreadyReviewed
	}
	return nil
}

// MarkExpired doubles the penalty and moves pending to expired. The status
// guard makes expiry idempotent across overlapping sweeps: only the first
// sweep observes a pending row.
func (r *AssignmentRepository) MarkExpired(id uint, doubledPenalty int, now time.Time) (bool, error) {
	res := r.db.Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     models.StatusExpired,
			"penalty":    doubledPenalty,
			"expired_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire assignment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes an assignment row.
func (r *AssignmentRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Assignment{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}
