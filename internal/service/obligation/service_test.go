package obligation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/taskerr"
	"github.com/strictd/taskwarden/pkg/logger"
)

// recordingNotifier captures direct messages for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	directs map[string][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{directs: make(map[string][]string)}
}

func (n *recordingNotifier) SendDirect(identity, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.directs[identity] = append(n.directs[identity], text)
	return nil
}

func (n *recordingNotifier) PostChannel(text string) error { return nil }

func (n *recordingNotifier) sentTo(identity string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.directs[identity]
}

type testEnv struct {
	db       *repository.DB
	users    *repository.UserRepository
	rels     *repository.RelationshipRepository
	tasks    *repository.TaskRepository
	catalog  *repository.CatalogRepository
	notifier *recordingNotifier
	service  *Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	wrapped := &repository.DB{DB: db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	env := &testEnv{
		db:       wrapped,
		users:    repository.NewUserRepository(wrapped),
		rels:     repository.NewRelationshipRepository(wrapped),
		tasks:    repository.NewTaskRepository(wrapped),
		catalog:  repository.NewCatalogRepository(wrapped),
		notifier: newRecordingNotifier(),
	}
	log := logger.New("error", "text", "stdout")
	env.service = NewService(
		env.users,
		env.rels,
		env.tasks,
		env.catalog,
		repository.NewAssignmentRepository(wrapped),
		repository.NewThresholdRepository(wrapped),
		env.notifier,
		log,
	)
	return env
}

// linkedPair registers a supervisor and an assignee and links them.
func (e *testEnv) linkedPair(t *testing.T) (*models.User, *models.User) {
	t.Helper()

	supervisor, err := e.service.RegisterUser("@boss", "boss", models.RoleSupervisor, "")
	if err != nil {
		t.Fatalf("Failed to register supervisor: %v", err)
	}
	assignee, err := e.service.RegisterUser("@worker", "worker", models.RoleAssignee, "")
	if err != nil {
		t.Fatalf("Failed to register assignee: %v", err)
	}
	if _, err := e.service.Link(supervisor.ID, assignee.ID); err != nil {
		t.Fatalf("Failed to link users: %v", err)
	}
	return supervisor, assignee
}

func (e *testEnv) balance(t *testing.T, userID uint) int {
	t.Helper()
	user, err := e.users.GetByID(userID)
	if err != nil {
		t.Fatalf("Failed to load user: %v", err)
	}
	return user.Points
}

func TestRegisterUser_DefaultsTimezone(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.service.RegisterUser("@alice", "alice", models.RoleAssignee, "")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}
	if user.Timezone != "UTC" {
		t.Errorf("Expected default timezone UTC, got %q", user.Timezone)
	}
}

func TestRegisterUser_InvalidInputs(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.service.RegisterUser("@alice", "alice", "overlord", ""); !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for unknown role, got %v", err)
	}

	if _, err := env.service.RegisterUser("@alice", "alice", models.RoleAssignee, "Mars/Olympus"); !errors.Is(err, taskerr.ErrInvalidTimezone) {
		t.Errorf("Expected ErrInvalidTimezone, got %v", err)
	}
}

func TestLink_RejectsWrongRoles(t *testing.T) {
	env := setupTestEnv(t)

	boss, _ := env.service.RegisterUser("@boss", "boss", models.RoleSupervisor, "")
	other, _ := env.service.RegisterUser("@other", "other", models.RoleSupervisor, "")

	if _, err := env.service.Link(boss.ID, other.ID); !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized linking two supervisors, got %v", err)
	}

	worker, _ := env.service.RegisterUser("@worker", "worker", models.RoleAssignee, "")
	if _, err := env.service.Link(worker.ID, worker.ID); !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized with assignee as supervisor, got %v", err)
	}
}

func TestCreateTask_RequiresLink(t *testing.T) {
	env := setupTestEnv(t)

	boss, _ := env.service.RegisterUser("@boss", "boss", models.RoleSupervisor, "")
	worker, _ := env.service.RegisterUser("@worker", "worker", models.RoleAssignee, "")

	_, err := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
	})
	if !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for unlinked pair, got %v", err)
	}
}

func TestCreateTask_AppliesDefaults(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	task, err := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	if task.PointValue != models.DefaultPointValue {
		t.Errorf("Expected default point value %d, got %d", models.DefaultPointValue, task.PointValue)
	}
	if task.Frequency != models.FrequencyDaily {
		t.Errorf("Expected default frequency daily, got %q", task.Frequency)
	}
	if !task.Active {
		t.Error("Expected new task to be active")
	}

	if got := env.notifier.sentTo("@worker"); len(got) != 1 {
		t.Errorf("Expected 1 assignment notification, got %d", len(got))
	}
}

func TestCreateTask_RecurrenceComputesNextOccurrence(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	task, err := env.service.CreateTask(CreateTaskParams{
		SupervisorID:      boss.ID,
		AssigneeID:        worker.ID,
		Title:             "Workout",
		RecurrenceEnabled: true,
		IntervalHours:     6,
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	if task.NextOccurrence == nil {
		t.Fatal("Expected next occurrence to be set")
	}
	if !task.NextOccurrence.After(time.Now()) {
		t.Errorf("Expected next occurrence in the future, got %v", task.NextOccurrence)
	}
}

func TestCreateTask_InvalidRecurrenceRule(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	_, err := env.service.CreateTask(CreateTaskParams{
		SupervisorID:      boss.ID,
		AssigneeID:        worker.ID,
		Title:             "Workout",
		RecurrenceEnabled: true,
		Weekdays:          "blursday",
	})
	if !errors.Is(err, taskerr.ErrInvalidRecurrenceRule) {
		t.Errorf("Expected ErrInvalidRecurrenceRule, got %v", err)
	}
}

func TestSubmitCompletion_SnapshotsPointValue(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	task, err := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
		PointValue:   25,
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	completion, err := env.service.SubmitCompletion(task.ID, worker.ID, "https://example.com/proof.jpg")
	if err != nil {
		t.Fatalf("SubmitCompletion() failed: %v", err)
	}

	if completion.PointsEarned != 25 {
		t.Errorf("Expected snapshot of 25 points, got %d", completion.PointsEarned)
	}
	if completion.Status != models.CompletionPending {
		t.Errorf("Expected pending status, got %q", completion.Status)
	}

	if got := env.notifier.sentTo("@boss"); len(got) != 1 {
		t.Errorf("Expected 1 supervisor notification, got %d", len(got))
	}
}

func TestSubmitCompletion_RejectsSecondPending(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	task, _ := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
	})

	if _, err := env.service.SubmitCompletion(task.ID, worker.ID, ""); err != nil {
		t.Fatalf("First SubmitCompletion() failed: %v", err)
	}
	if _, err := env.service.SubmitCompletion(task.ID, worker.ID, ""); !errors.Is(err, taskerr.ErrPendingCompletion) {
		t.Errorf("Expected ErrPendingCompletion, got %v", err)
	}
}

func TestSubmitCompletion_WrongAssignee(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)
	stranger, _ := env.service.RegisterUser("@stranger", "stranger", models.RoleAssignee, "")

	task, _ := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
	})

	if _, err := env.service.SubmitCompletion(task.ID, stranger.ID, ""); !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestAssignReward_DeductsCost(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	reward, err := env.service.CreateReward(boss.ID, "Movie night", "", 20)
	if err != nil {
		t.Fatalf("CreateReward() failed: %v", err)
	}
	if _, err := env.users.ApplyPointsDelta(worker.ID, 30); err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}

	assignment, err := env.service.AssignReward(boss.ID, worker.ID, reward.ID, "well earned")
	if err != nil {
		t.Fatalf("AssignReward() failed: %v", err)
	}

	if assignment.Status != models.StatusGranted {
		t.Errorf("Expected granted status, got %q", assignment.Status)
	}
	if got := env.balance(t, worker.ID); got != 10 {
		t.Errorf("Expected balance 10 after deduction, got %d", got)
	}
}

func TestAssignReward_InsufficientPoints(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	reward, _ := env.service.CreateReward(boss.ID, "Movie night", "", 20)

	_, err := env.service.AssignReward(boss.ID, worker.ID, reward.ID, "")
	if !errors.Is(err, taskerr.ErrInsufficientPoints) {
		t.Errorf("Expected ErrInsufficientPoints, got %v", err)
	}
	if got := env.balance(t, worker.ID); got != 0 {
		t.Errorf("Expected balance unchanged at 0, got %d", got)
	}
}

func TestAssignPunishment_AppliesDefaults(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)

	punishment, err := env.service.CreatePunishment(boss.ID, "Extra chores", "")
	if err != nil {
		t.Fatalf("CreatePunishment() failed: %v", err)
	}

	assignment, err := env.service.AssignPunishment(AssignPunishmentParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		PunishmentID: punishment.ID,
	})
	if err != nil {
		t.Fatalf("AssignPunishment() failed: %v", err)
	}

	if assignment.Penalty != models.CascadePenalty {
		t.Errorf("Expected default penalty %d, got %d", models.CascadePenalty, assignment.Penalty)
	}
	if assignment.Deadline == nil || !assignment.Deadline.After(time.Now()) {
		t.Errorf("Expected a future default deadline, got %v", assignment.Deadline)
	}
	if assignment.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %q", assignment.Status)
	}
}

func TestAssignPunishment_ForeignCatalogItem(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)
	other, _ := env.service.RegisterUser("@other", "other", models.RoleSupervisor, "")

	punishment, _ := env.service.CreatePunishment(other.ID, "Extra chores", "")

	_, err := env.service.AssignPunishment(AssignPunishmentParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		PunishmentID: punishment.ID,
	})
	if !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for foreign punishment, got %v", err)
	}
}

func TestCreateThreshold_ValidatesPunishmentOwnership(t *testing.T) {
	env := setupTestEnv(t)
	boss, _ := env.linkedPair(t)
	other, _ := env.service.RegisterUser("@other", "other", models.RoleSupervisor, "")

	punishment, _ := env.service.CreatePunishment(other.ID, "Extra chores", "")

	_, err := env.service.CreateThreshold(boss.ID, nil, -20, int(punishment.ID))
	if !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for foreign punishment, got %v", err)
	}

	// The random sentinel needs no catalog lookup.
	threshold, err := env.service.CreateThreshold(boss.ID, nil, -20, models.AutoPunishmentRandom)
	if err != nil {
		t.Fatalf("CreateThreshold() failed: %v", err)
	}
	if !threshold.Active {
		t.Error("Expected new threshold to be active")
	}
}

func TestDeleteTask_RequiresOwnership(t *testing.T) {
	env := setupTestEnv(t)
	boss, worker := env.linkedPair(t)
	other, _ := env.service.RegisterUser("@other", "other", models.RoleSupervisor, "")

	task, _ := env.service.CreateTask(CreateTaskParams{
		SupervisorID: boss.ID,
		AssigneeID:   worker.ID,
		Title:        "Dishes",
	})

	if err := env.service.DeleteTask(task.ID, other.ID); !errors.Is(err, taskerr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.DeleteTask(task.ID, boss.ID); err != nil {
		t.Errorf("DeleteTask() by owner failed: %v", err)
	}
}
