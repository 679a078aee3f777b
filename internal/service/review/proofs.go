package review

import (
	"fmt"
	"time"

	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// SubmitProof attaches proof to a punishment assignment and moves it to
// submitted. A late proof after expiry is still accepted; the doubled
// penalty already applied is settled at review time.
func (s *Service) SubmitProof(assignmentID, assigneeID uint, proofURL string) error {
	assignment, err := s.assignments.GetByID(assignmentID)
	if err != nil {
		return err
	}
	if !assignment.IsPunishment() {
		return fmt.Errorf("%w: assignment %d is not a punishment", taskerr.ErrNotFound, assignmentID)
	}
	if assignment.AssigneeID != assigneeID {
		return fmt.Errorf("%w: assignment %d is not assigned to user %d",
			taskerr.ErrUnauthorized, assignmentID, assigneeID)
	}

	if err := s.assignments.MarkSubmitted(assignmentID, proofURL, time.Now()); err != nil {
		return err
	}

	if supervisor, err := s.users.GetByID(assignment.SupervisorID); err == nil {
		s.notifyBestEffort(supervisor.Identity,
			fmt.Sprintf("Proof submitted for punishment assignment #%d", assignmentID))
	}
	return nil
}

// ReviewProof transitions a submitted punishment assignment to approved or
// rejected exactly once.
//
// Approval after an expiry refunds the doubled penalty that was deducted
// when the deadline passed. Approval also releases the proof to the
// forward-to identity, which never happens in any earlier state.
func (s *Service) ReviewProof(assignmentID, reviewerID uint, approve bool) error {
	assignment, err := s.assignments.GetByID(assignmentID)
	if err != nil {
		return err
	}
	if err := requireReviewer(assignment.SupervisorID, reviewerID, "assignment", assignmentID); err != nil {
		return err
	}

	status := models.StatusRejected
	if approve {
		status = models.StatusApproved
	}
	if err := s.assignments.FinishReview(assignmentID, status, reviewerID, time.Now()); err != nil {
		return err
	}

	if approve {
		s.settleApproval(assignment)
		metrics.RecordProofReviewed("approved")
	} else {
		metrics.RecordProofReviewed("rejected")
	}

	if assignee, err := s.users.GetByID(assignment.AssigneeID); err == nil {
		s.notifyBestEffort(assignee.Identity,
			fmt.Sprintf("Punishment assignment #%d %s", assignmentID, status))
	}

	s.log.Info().
		Uint("assignment_id", assignmentID).
		Str("status", status).
		Msg("Punishment proof reviewed")
	return nil
}

// Cancel force-approves a pending or submitted assignment. The doubled
// penalty is refunded only when the assignment had already reached expired;
// within the deadline nothing was deducted, so there is nothing to refund.
func (s *Service) Cancel(assignmentID, supervisorID uint) error {
	assignment, err := s.assignments.GetByID(assignmentID)
	if err != nil {
		return err
	}
	if err := requireReviewer(assignment.SupervisorID, supervisorID, "assignment", assignmentID); err != nil {
		return err
	}

	if err := s.assignments.ForceApprove(assignmentID, supervisorID, time.Now()); err != nil {
		return err
	}

	s.settleApproval(assignment)
	metrics.RecordProofReviewed("cancelled")

	s.log.Info().Uint("assignment_id", assignmentID).Msg("Punishment assignment cancelled")
	return nil
}

// settleApproval applies the approval side effects shared by review and
// cancellation: the expiry refund and the forward-to proof release.
func (s *Service) settleApproval(assignment *models.Assignment) {
	if assignment.WasExpired() && assignment.Penalty > 0 {
		if _, err := s.users.ApplyPointsDelta(assignment.AssigneeID, assignment.Penalty); err != nil {
			s.log.Error().Err(err).
				Uint("assignment_id", assignment.ID).
				Msg("Failed to refund expiry penalty")
		}
	}

	if assignment.ForwardTo != "" && assignment.ProofURL != "" {
		s.notifyBestEffort(assignment.ForwardTo,
			fmt.Sprintf("Approved proof for punishment assignment #%d: %s", assignment.ID, assignment.ProofURL))
	}
}
