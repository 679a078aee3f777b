package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// ThresholdRepository handles standing point-threshold rules.
type ThresholdRepository struct {
	db *DB
}

// NewThresholdRepository creates a new threshold repository.
func NewThresholdRepository(db *DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// Create inserts a threshold rule.
func (r *ThresholdRepository) Create(threshold *models.PointThreshold) error {
	if err := r.db.Create(threshold).Error; err != nil {
		return fmt.Errorf("failed to create threshold: %w", err)
	}
	return nil
}

// GetByID retrieves a threshold by its ID.
func (r *ThresholdRepository) GetByID(id uint) (*models.PointThreshold, error) {
	var threshold models.PointThreshold
	if err := r.db.First(&threshold, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get threshold %d: %w", id, err)
	}
	return &threshold, nil
}

// ListBySupervisor returns a supervisor's threshold rules.
func (r *ThresholdRepository) ListBySupervisor(supervisorID uint) ([]models.PointThreshold, error) {
	var thresholds []models.PointThreshold
	err := r.db.Where("supervisor_id = ?", supervisorID).Order("id ASC").Find(&thresholds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list thresholds: %w", err)
	}
	return thresholds, nil
}

// ActiveForAssignee returns active rules owned by any of the assignee's
// supervisors that target this assignee, either specifically or via an
// applies-to-all rule.
func (r *ThresholdRepository) ActiveForAssignee(assigneeID uint) ([]models.PointThreshold, error) {
	var thresholds []models.PointThreshold
	err := r.db.
		Joins("JOIN relationships ON relationships.supervisor_id = point_thresholds.supervisor_id").
		Where("relationships.assignee_id = ?", assigneeID).
		Where("point_thresholds.active = ?", true).
		Where("point_thresholds.assignee_id IS NULL OR point_thresholds.assignee_id = ?", assigneeID).
		Find(&thresholds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active thresholds: %w", err)
	}
	return thresholds, nil
}

// Touch records a rule firing at the given instant. The cooldown guard runs
// in the UPDATE, so two concurrent qualifying balance checks fire at most one
// cascade per rule per cooldown window.
func (r *ThresholdRepository) Touch(id uint, now time.Time) (bool, error) {
	cutoff := now.Add(-models.ThresholdCooldown)
	res := r.db.Model(&models.PointThreshold{}).
		Where("id = ?", id).
		Where("last_triggered_at IS NULL OR last_triggered_at < ?", cutoff).
		Update("last_triggered_at", now)
	if res.Error != nil {
		return false, fmt.Errorf("failed to touch threshold: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetActive flips a rule's active flag.
func (r *ThresholdRepository) SetActive(id uint, active bool) error {
	res := r.db.Model(&models.PointThreshold{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set threshold active flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}

// Delete removes a threshold rule.
func (r *ThresholdRepository) Delete(id uint) error {
	res := r.db.Delete(&models.PointThreshold{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete threshold: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}
