package review

import (
	"fmt"
	"time"

	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/service/recurrence"
)

// ReviewCompletion transitions a pending completion to approved or rejected
// exactly once and returns the points awarded.
//
// Approval awards the snapshotted point value; when the task was already
// deactivated by deadline expiry, the award is doubled to refund the
// automatic deduction the sweeper applied. On approval, and on a rejection
// with resetDeadline, a task carrying a deadline anchor gets its next
// deadline recomputed in the assignee's timezone and is reactivated. A plain
// rejection leaves the deadline untouched so the assignee can resubmit.
func (s *Service) ReviewCompletion(completionID, reviewerID uint, approve, resetDeadline bool) (int, error) {
	completion, err := s.tasks.GetCompletionByID(completionID)
	if err != nil {
		return 0, err
	}
	task, err := s.tasks.GetByID(completion.TaskID)
	if err != nil {
		return 0, err
	}
	if err := requireReviewer(task.SupervisorID, reviewerID, "task", task.ID); err != nil {
		return 0, err
	}

	now := time.Now()
	status := models.CompletionRejected
	if approve {
		status = models.CompletionApproved
	}

	// The pending guard inside the update is the idempotency barrier; the
	// point effects below run only for the review that won it.
	if err := s.tasks.FinishCompletion(completionID, status, reviewerID, now); err != nil {
		return 0, err
	}

	awarded := 0
	if approve {
		awarded = completion.PointsEarned
		if !task.Active {
			// Expiry already deducted the task's value; double the
			// award to make the late approval whole.
			awarded *= 2
		}
		if _, err := s.users.ApplyPointsDelta(completion.AssigneeID, awarded); err != nil {
			return 0, err
		}
		metrics.RecordCompletionReviewed("approved")
	} else {
		metrics.RecordCompletionReviewed("rejected")
	}

	if (approve || resetDeadline) && task.DeadlineAnchor != "" {
		if err := s.resetTaskDeadline(task); err != nil {
			s.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to reset task deadline")
		}
	}

	if assignee, err := s.users.GetByID(completion.AssigneeID); err == nil {
		if approve {
			s.notifyBestEffort(assignee.Identity,
				fmt.Sprintf("Task #%d approved, %d points awarded", task.ID, awarded))
		} else {
			s.notifyBestEffort(assignee.Identity,
				fmt.Sprintf("Task #%d submission rejected", task.ID))
		}
	}

	s.log.Info().
		Uint("completion_id", completionID).
		Uint("task_id", task.ID).
		Str("status", status).
		Int("points", awarded).
		Msg("Completion reviewed")

	return awarded, nil
}

// resetTaskDeadline recomputes the deadline from the anchor in the assignee's
// timezone and reactivates the task.
func (s *Service) resetTaskDeadline(task *models.Task) error {
	assignee, err := s.users.GetByID(task.AssigneeID)
	if err != nil {
		return err
	}
	deadline, err := recurrence.NextDeadline(time.Now(), task.DeadlineAnchor, assignee.Location())
	if err != nil {
		return err
	}
	task.Deadline = &deadline
	task.Active = true
	return s.tasks.Update(task)
}
