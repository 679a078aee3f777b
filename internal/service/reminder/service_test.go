package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/strictd/taskwarden/internal/cache"
	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/pkg/logger"
)

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

func (n *recordingNotifier) count(identity string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.directs[identity])
}

type reminderEnv struct {
	db       *repository.DB
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	redis    *miniredis.Miniredis
	notifier *recordingNotifier
	service  *Service
}

func setupReminderEnv(t *testing.T) *reminderEnv {
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

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.New("error", "text", "stdout")
	dedup := cache.NewRedisCacheFromClient(client, log)

	users := repository.NewUserRepository(wrapped)
	tasks := repository.NewTaskRepository(wrapped)
	assignments := repository.NewAssignmentRepository(wrapped)
	notifier := newRecordingNotifier()

	cfg := &config.Config{}
	cfg.Reminder.Enabled = true

	return &reminderEnv{
		db:       wrapped,
		users:    users,
		tasks:    tasks,
		redis:    mr,
		notifier: notifier,
		service:  NewService(cfg, users, tasks, assignments, dedup, notifier, log),
	}
}

func (e *reminderEnv) seedAssignee(t *testing.T) *models.User {
	t.Helper()
	assignee := &models.User{Identity: "@kid", Username: "kid", Role: models.RoleAssignee}
	if err := e.users.Create(assignee); err != nil {
		t.Fatalf("Failed to create assignee: %v", err)
	}
	return assignee
}

func TestRunPass_SendsTaskReminderInsideWindow(t *testing.T) {
	env := setupReminderEnv(t)
	assignee := env.seedAssignee(t)

	deadline := time.Now().Add(30 * time.Minute)
	task := &models.Task{
		SupervisorID:    99,
		AssigneeID:      assignee.ID,
		Title:           "due soon",
		Frequency:       models.FrequencyDaily,
		PointValue:      10,
		Deadline:        &deadline,
		ReminderMinutes: 60,
		Active:          true,
	}
	if err := env.tasks.Create(task); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	env.service.RunPass(context.Background(), time.Now())

	if got := env.notifier.count("@kid"); got != 1 {
		t.Errorf("Expected 1 reminder, got %d", got)
	}
}

func TestRunPass_DeduplicatesAcrossPasses(t *testing.T) {
	env := setupReminderEnv(t)
	assignee := env.seedAssignee(t)

	deadline := time.Now().Add(30 * time.Minute)
	task := &models.Task{
		SupervisorID:    99,
		AssigneeID:      assignee.ID,
		Title:           "due soon",
		Frequency:       models.FrequencyDaily,
		PointValue:      10,
		Deadline:        &deadline,
		ReminderMinutes: 60,
		Active:          true,
	}
	if err := env.tasks.Create(task); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	env.service.RunPass(context.Background(), time.Now())
	env.service.RunPass(context.Background(), time.Now())

	if got := env.notifier.count("@kid"); got != 1 {
		t.Errorf("Expected deduplicated single reminder, got %d", got)
	}

	// Once the dedup key ages out, the next pass reminds again.
	env.redis.FastForward(61 * time.Minute)
	env.service.RunPass(context.Background(), time.Now())
	if got := env.notifier.count("@kid"); got != 2 {
		t.Errorf("Expected a second reminder after TTL, got %d", got)
	}
}

func TestRunPass_OutsideWindowOrPastDeadline(t *testing.T) {
	env := setupReminderEnv(t)
	assignee := env.seedAssignee(t)

	farOff := time.Now().Add(5 * time.Hour)
	early := &models.Task{
		SupervisorID:    99,
		AssigneeID:      assignee.ID,
		Title:           "not yet",
		Frequency:       models.FrequencyDaily,
		PointValue:      10,
		Deadline:        &farOff,
		ReminderMinutes: 60,
		Active:          true,
	}
	if err := env.tasks.Create(early); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	overdue := &models.Task{
		SupervisorID:    99,
		AssigneeID:      assignee.ID,
		Title:           "too late",
		Frequency:       models.FrequencyDaily,
		PointValue:      10,
		Deadline:        &past,
		ReminderMinutes: 60,
		Active:          true,
	}
	if err := env.tasks.Create(overdue); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	env.service.RunPass(context.Background(), time.Now())

	if got := env.notifier.count("@kid"); got != 0 {
		t.Errorf("Expected no reminders, got %d", got)
	}
}

func TestRunPass_PunishmentReminder(t *testing.T) {
	env := setupReminderEnv(t)
	assignee := env.seedAssignee(t)

	deadline := time.Now().Add(30 * time.Minute)
	assignment := &models.Assignment{
		Type:            models.AssignmentPunishment,
		SupervisorID:    99,
		AssigneeID:      assignee.ID,
		ItemID:          1,
		Deadline:        &deadline,
		Penalty:         10,
		ReminderMinutes: 60,
		Status:          models.StatusPending,
	}
	if err := repository.NewAssignmentRepository(env.db).Create(assignment); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	env.service.RunPass(context.Background(), time.Now())

	if got := env.notifier.count("@kid"); got != 1 {
		t.Errorf("Expected 1 punishment reminder, got %d", got)
	}
}
