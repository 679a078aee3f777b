package repository

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/strictd/taskwarden/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all tables migrated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	// Each pooled connection to ":memory:" is a distinct database; pin
	// the pool to one connection so all queries see the same tables.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return wrapped
}

var testUserSeq int

// createTestUser creates a user with a unique identity.
func createTestUser(t *testing.T, db *DB, role string) *models.User {
	t.Helper()

	testUserSeq++
	user := &models.User{
		Identity: fmt.Sprintf("@user-%d", testUserSeq),
		Username: fmt.Sprintf("user%d", testUserSeq),
		Role:     role,
		Timezone: "UTC",
	}
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// linkTestUsers creates a supervisor/assignee relationship.
func linkTestUsers(t *testing.T, db *DB, supervisorID, assigneeID uint) {
	t.Helper()

	err := NewRelationshipRepository(db).Create(&models.Relationship{
		SupervisorID: supervisorID,
		AssigneeID:   assigneeID,
	})
	if err != nil {
		t.Fatalf("Failed to link test users: %v", err)
	}
}

// createTestTask creates a task owned by the given pair.
func createTestTask(t *testing.T, db *DB, supervisorID, assigneeID uint, title string) *models.Task {
	t.Helper()

	task := &models.Task{
		SupervisorID: supervisorID,
		AssigneeID:   assigneeID,
		Title:        title,
		Frequency:    models.FrequencyDaily,
		PointValue:   models.DefaultPointValue,
		Active:       true,
	}
	if err := NewTaskRepository(db).Create(task); err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}
	return task
}

// createTestPunishment creates a catalog punishment for a supervisor.
func createTestPunishment(t *testing.T, db *DB, supervisorID uint, title string) *models.Punishment {
	t.Helper()

	punishment := &models.Punishment{
		SupervisorID: supervisorID,
		Title:        title,
	}
	if err := NewCatalogRepository(db).CreatePunishment(punishment); err != nil {
		t.Fatalf("Failed to create test punishment: %v", err)
	}
	return punishment
}
