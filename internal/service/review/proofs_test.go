package review

import (
	"errors"
	"testing"
	"time"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

func (e *testEnv) newPunishmentAssignment(t *testing.T, supervisorID, assigneeID uint, penalty int, deadline time.Time) *models.Assignment {
	t.Helper()
	assignment := &models.Assignment{
		Type:         models.AssignmentPunishment,
		SupervisorID: supervisorID,
		AssigneeID:   assigneeID,
		ItemID:       1,
		Deadline:     &deadline,
		Penalty:      penalty,
		Status:       models.StatusPending,
	}
	if err := e.assignments.Create(assignment); err != nil {
		t.Fatalf("Failed to create assignment: %v", err)
	}
	return assignment
}

func TestSubmitProof(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)
	assignment := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(time.Hour))

	if err := env.service.SubmitProof(assignment.ID, assignee.ID, "https://proof.example/1"); err != nil {
		t.Fatalf("SubmitProof() failed: %v", err)
	}

	reloaded, err := env.assignments.GetByID(assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if reloaded.Status != models.StatusSubmitted {
		t.Errorf("Expected status submitted, got %q", reloaded.Status)
	}
	if len(env.notifier.sentTo("@sup")) != 1 {
		t.Error("Expected submission notification to the supervisor")
	}
}

func TestSubmitProof_WrongAssignee(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)
	other := env.newUser(t, "@sibling", models.RoleAssignee)
	assignment := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(time.Hour))

	err := env.service.SubmitProof(assignment.ID, other.ID, "https://proof.example/1")
	if !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestReviewProof_ApproveWithinDeadline_NoRefund(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)
	assignment := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(time.Hour))

	if err := env.service.SubmitProof(assignment.ID, assignee.ID, "https://proof.example/1"); err != nil {
		t.Fatalf("SubmitProof() failed: %v", err)
	}
	if err := env.service.ReviewProof(assignment.ID, supervisor.ID, true); err != nil {
		t.Fatalf("ReviewProof() failed: %v", err)
	}

	// Nothing was deducted, so nothing is refunded.
	if got := env.balance(t, assignee.ID); got != 0 {
		t.Errorf("Expected balance 0, got %d", got)
	}
}

func TestReviewProof_ExpiryThenApprovalRefundsDoubledPenalty(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)
	assignment := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(-time.Hour))

	// The sweep doubles the penalty and deducts it.
	doubled := assignment.Penalty * 2
	if _, err := env.assignments.MarkExpired(assignment.ID, doubled, time.Now()); err != nil {
		t.Fatalf("MarkExpired() failed: %v", err)
	}
	if _, err := env.users.ApplyPointsDelta(assignee.ID, -doubled); err != nil {
		t.Fatalf("ApplyPointsDelta() failed: %v", err)
	}
	if got := env.balance(t, assignee.ID); got != -20 {
		t.Fatalf("Expected balance -20 after expiry, got %d", got)
	}

	// Late proof, then approval refunds exactly the doubled deduction.
	if err := env.service.SubmitProof(assignment.ID, assignee.ID, "https://proof.example/late"); err != nil {
		t.Fatalf("SubmitProof() failed: %v", err)
	}
	if err := env.service.ReviewProof(assignment.ID, supervisor.ID, true); err != nil {
		t.Fatalf("ReviewProof() failed: %v", err)
	}

	if got := env.balance(t, assignee.ID); got != 0 {
		t.Errorf("Expected balance restored to 0, got %d", got)
	}
}

func TestReviewProof_RejectKeepsDeduction(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)
	assignment := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(-time.Hour))

	doubled := assignment.Penalty * 2
	if _, err := env.assignments.MarkExpired(assignment.ID, doubled, time.Now()); err != nil {
		t.Fatalf("MarkExpired() failed: %v", err)
	}
	if _, err := env.users.ApplyPointsDelta(assignee.ID, -doubled); err != nil {
		t.Fatalf("ApplyPointsDelta() failed: %v", err)
	}

	if err := env.service.SubmitProof(assignment.ID, assignee.ID, "https://proof.example/late"); err != nil {
		t.Fatalf("SubmitProof() failed: %v", err)
	}
	if err := env.service.ReviewProof(assignment.ID, supervisor.ID, false); err != nil {
		t.Fatalf("ReviewProof() failed: %v", err)
	}

	if got := env.balance(t, assignee.ID); got != -20 {
		t.Errorf("Expected deduction to stand at -20, got %d", got)
	}
}

func TestReviewProof_ForwardToReleasedOnlyOnApproval(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)

	deadline := time.Now().Add(time.Hour)
	assignment := &models.Assignment{
		Type:         models.AssignmentPunishment,
		SupervisorID: supervisor.ID,
		AssigneeID:   assignee.ID,
		ItemID:       1,
		Deadline:     &deadline,
		Penalty:      10,
		ForwardTo:    "@witness",
		Status:       models.StatusPending,
	}
	if err := env.assignments.Create(assignment); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := env.service.SubmitProof(assignment.ID, assignee.ID, "https://proof.example/1"); err != nil {
		t.Fatalf("SubmitProof() failed: %v", err)
	}
	if len(env.notifier.sentTo("@witness")) != 0 {
		t.Fatal("Proof must not be forwarded before approval")
	}

	if err := env.service.ReviewProof(assignment.ID, supervisor.ID, true); err != nil {
		t.Fatalf("ReviewProof() failed: %v", err)
	}
	if len(env.notifier.sentTo("@witness")) != 1 {
		t.Error("Expected proof forwarded on approval")
	}
}

func TestCancel_RefundsOnlyAfterExpiry(t *testing.T) {
	env := setupTestEnv(t)
	supervisor := env.newUser(t, "@sup", models.RoleSupervisor)
	assignee := env.newUser(t, "@kid", models.RoleAssignee)

	// Cancel before expiry: no deduction happened, no refund due.
	early := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(time.Hour))
	if err := env.service.Cancel(early.ID, supervisor.ID); err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if got := env.balance(t, assignee.ID); got != 0 {
		t.Errorf("Expected balance 0 after pre-expiry cancel, got %d", got)
	}

	// Cancel after expiry refunds the doubled deduction.
	late := env.newPunishmentAssignment(t, supervisor.ID, assignee.ID, 10, time.Now().Add(-time.Hour))
	doubled := late.Penalty * 2
	if _, err := env.assignments.MarkExpired(late.ID, doubled, time.Now()); err != nil {
		t.Fatalf("MarkExpired() failed: %v", err)
	}
	if _, err := env.users.ApplyPointsDelta(assignee.ID, -doubled); err != nil {
		t.Fatalf("ApplyPointsDelta() failed: %v", err)
	}

	if err := env.service.Cancel(late.ID, supervisor.ID); err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if got := env.balance(t, assignee.ID); got != 0 {
		t.Errorf("Expected refund to restore balance 0, got %d", got)
	}
}
