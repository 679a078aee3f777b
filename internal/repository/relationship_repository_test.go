package repository

import (
	"errors"
	"testing"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

func TestRelationshipRepository_Create_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRelationshipRepository(db)
	supervisor := createTestUser(t, db, models.RoleSupervisor)
	assignee := createTestUser(t, db, models.RoleAssignee)

	linkTestUsers(t, db, supervisor.ID, assignee.ID)

	err := repo.Create(&models.Relationship{SupervisorID: supervisor.ID, AssigneeID: assignee.ID})
	if !errors.Is(err, taskerr.ErrDuplicateRelationship) {
		t.Errorf("Expected ErrDuplicateRelationship, got %v", err)
	}
}

func TestRelationshipRepository_MultipleSupervisors(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRelationshipRepository(db)
	first := createTestUser(t, db, models.RoleSupervisor)
	second := createTestUser(t, db, models.RoleSupervisor)
	assignee := createTestUser(t, db, models.RoleAssignee)

	linkTestUsers(t, db, first.ID, assignee.ID)
	linkTestUsers(t, db, second.ID, assignee.ID)

	supervisors, err := repo.Supervisors(assignee.ID)
	if err != nil {
		t.Fatalf("Supervisors() failed: %v", err)
	}
	if len(supervisors) != 2 {
		t.Fatalf("Expected 2 supervisors, got %d", len(supervisors))
	}

	// The earliest link wins the primary slot.
	primary, err := repo.PrimarySupervisor(assignee.ID)
	if err != nil {
		t.Fatalf("PrimarySupervisor() failed: %v", err)
	}
	if primary.ID != first.ID {
		t.Errorf("Expected supervisor %d as primary, got %d", first.ID, primary.ID)
	}
}

func TestRelationshipRepository_PrimarySupervisor_None(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRelationshipRepository(db)
	assignee := createTestUser(t, db, models.RoleAssignee)

	_, err := repo.PrimarySupervisor(assignee.ID)
	if !errors.Is(err, taskerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
