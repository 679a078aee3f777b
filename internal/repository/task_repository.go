package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// TaskRepository handles tasks and task completions.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task with a gap-filling visible id.
func (r *TaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		id, err := nextFreeID(tx, "tasks")
		if err != nil {
			return err
		}
		task.ID = id
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return &task, nil
}

// ListByAssignee returns an assignee's tasks, optionally only active ones.
func (r *TaskRepository) ListByAssignee(assigneeID uint, activeOnly bool) ([]models.Task, error) {
	query := r.db.Where("assignee_id = ?", assigneeID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var tasks []models.Task
	if err := query.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update saves a modified task.
func (r *TaskRepository) Update(task *models.Task) error {
	if err := r.db.Save(task).Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// SetActive flips the task's active flag.
func (r *TaskRepository) SetActive(taskID uint, active bool) error {
	res := r.db.Model(&models.Task{}).Where("id = ?", taskID).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set task active flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}

// ClaimExpired deactivates a task, returning whether this caller won the
// claim. The active guard inside the UPDATE keeps two overlapping sweep runs
// from deducting the same expiry twice.
func (r *TaskRepository) ClaimExpired(taskID uint) (bool, error) {
	res := r.db.Model(&models.Task{}).
		Where("id = ? AND active = ?", taskID, true).
		Update("active", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim expired task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a task and cascades to its completions.
func (r *TaskRepository) Delete(taskID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return fmt.Errorf("failed to delete task completions: %w", err)
		}
		res := tx.Delete(&models.Task{}, taskID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return taskerr.ErrNotFound
		}
		return nil
	})
}

// FindExpired returns active tasks whose deadline has passed with no approved
// completion dated at or after the task's creation.
func (r *TaskRepository) FindExpired(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("active = ?", true).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Where(`NOT EXISTS (
			SELECT 1 FROM task_completions tc
			WHERE tc.task_id = tasks.id
			AND tc.status = ?
			AND tc.completed_at >= tasks.created_at
		)`, models.CompletionApproved).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired tasks: %w", err)
	}
	return tasks, nil
}

// FindDueRecurring returns active recurring tasks whose next occurrence has
// passed.
func (r *TaskRepository) FindDueRecurring(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("active = ?", true).
		Where("recurrence_enabled = ?", true).
		Where("next_occurrence IS NOT NULL AND next_occurrence < ?", now).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due recurring tasks: %w", err)
	}
	return tasks, nil
}

// FindWithReminders returns active tasks that carry a deadline and a reminder
// interval.
func (r *TaskRepository) FindWithReminders() ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("active = ?", true).
		Where("reminder_minutes > 0").
		Where("deadline IS NOT NULL").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks with reminders: %w", err)
	}
	return tasks, nil
}

// CreateCompletion records a pending submission.
func (r *TaskRepository) CreateCompletion(completion *models.TaskCompletion) error {
	if err := r.db.Create(completion).Error; err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}
	return nil
}

// GetCompletionByID retrieves a completion by its ID.
func (r *TaskRepository) GetCompletionByID(id uint) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	if err := r.db.First(&completion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get completion %d: %w", id, err)
	}
	return &completion, nil
}

// HasPendingCompletion reports whether a task already has a submission
// awaiting review.
func (r *TaskRepository) HasPendingCompletion(taskID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.TaskCompletion{}).
		Where("task_id = ? AND status = ?", taskID, models.CompletionPending).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check pending completion: %w", err)
	}
	return count > 0, nil
}

// PendingCompletionsForSupervisor returns pending submissions across all of a
// supervisor's tasks, oldest first.
func (r *TaskRepository) PendingCompletionsForSupervisor(supervisorID uint) ([]models.TaskCompletion, error) {
	var completions []models.TaskCompletion
	err := r.db.
		Joins("JOIN tasks ON tasks.id = task_completions.task_id").
		Where("tasks.supervisor_id = ? AND task_completions.status = ?", supervisorID, models.CompletionPending).
		Preload("Task").
		Order("task_completions.submitted_at ASC").
		Find(&completions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending completions: %w", err)
	}
	return completions, nil
}

// FinishCompletion transitions a pending completion to the given terminal
// status. The status guard runs in the UPDATE itself, so a second concurrent
// review of the same id observes zero affected rows and fails with
// taskerr.ErrAlreadyReviewed instead of double-applying point effects.
func (r *TaskRepository) FinishCompletion(completionID uint, status string, reviewerID uint, now time.Time) error {
	res := r.db.Model(&models.TaskCompletion{}).
		Where("id = ? AND status = ?", completionID, models.CompletionPending).
		Updates(map[string]interface{}{
			"status":       status,
			"reviewed_by":  reviewerID,
			"reviewed_at":  now,
			"completed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finish completion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrAlreadyReviewed
	}
	return nil
}

// VoidPendingCompletions rejects any still-pending submissions for a task.
// Used by the recurrence reset: a stale submission is voided, never silently
// approved.
func (r *TaskRepository) VoidPendingCompletions(taskID uint, now time.Time) error {
	err := r.db.Model(&models.TaskCompletion{}).
		Where("task_id = ? AND status = ?", taskID, models.CompletionPending).
		Updates(map[string]interface{}{
			"status":      models.CompletionRejected,
			"reviewed_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to void pending completions: %w", err)
	}
	return nil
}

// DailyCount is a per-day completion aggregate used for reporting.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TaskStats summarizes an assignee's approved completions in a window.
type TaskStats struct {
	TotalCompletions int          `json:"total_completions"`
	TotalPoints      int          `json:"total_points"`
	DailyCounts      []DailyCount `json:"daily_counts"`
}

// Stats aggregates an assignee's approved completions over the trailing
// window.
func (r *TaskRepository) Stats(assigneeID uint, windowDays int) (*TaskStats, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	var totals struct {
		Completions int
		Points      int
	}
	err := r.db.Model(&models.TaskCompletion{}).
		Select("COUNT(*) AS completions, COALESCE(SUM(points_earned), 0) AS points").
		Where("assignee_id = ? AND status = ? AND completed_at >= ?", assigneeID, models.CompletionApproved, since).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	var daily []DailyCount
	err = r.db.Model(&models.TaskCompletion{}).
		Select("DATE(completed_at) AS date, COUNT(*) AS count").
		Where("assignee_id = ? AND status = ? AND completed_at >= ?", assigneeID, models.CompletionApproved, since).
		Group("DATE(completed_at)").
		Order("date ASC").
		Scan(&daily).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily stats: %w", err)
	}

	return &TaskStats{
		TotalCompletions: totals.Completions,
		TotalPoints:      totals.Points,
		DailyCounts:      daily,
	}, nil
}
