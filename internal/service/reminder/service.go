// Package reminder runs the periodic reminder pass: it nudges assignees about
// tasks and punishment assignments approaching their deadline. Reminders are
// read-only with respect to lifecycle state; only the notifier and the dedup
// cache are touched.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/strictd/taskwarden/internal/cache"
	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/notify"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Service owns the reminder schedule. A Redis key per entity deduplicates
// sends across passes; its TTL matches the entity's reminder window, so a new
// deadline after recurrence reset naturally re-arms the reminder.
type Service struct {
	config      *config.Config
	users       *repository.UserRepository
	tasks       *repository.TaskRepository
	assignments *repository.AssignmentRepository
	cache       cache.Cache
	notifier    notify.Notifier
	log         *logger.Logger
	cron        *cron.Cron
}

// NewService creates a new reminder service.
func NewService(
	cfg *config.Config,
	users *repository.UserRepository,
	tasks *repository.TaskRepository,
	assignments *repository.AssignmentRepository,
	dedup cache.Cache,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		config:      cfg,
		users:       users,
		tasks:       tasks,
		assignments: assignments,
		cache:       dedup,
		notifier:    notifier,
		log:         log,
	}
}

// Start registers the reminder job and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Reminder.Enabled {
		s.log.Info().Msg("Reminder scheduler is disabled in configuration")
		return nil
	}

	interval, err := s.config.Reminder.GetInterval()
	if err != nil {
		return fmt.Errorf("invalid reminder interval: %w", err)
	}

	s.cron = cron.New()
	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.RunPass(context.Background(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to register reminder job: %w", err)
	}

	s.cron.Start()
	s.log.Info().Dur("interval", interval).Msg("Reminder scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running pass.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Reminder scheduler stopped")
	}
}

// RunPass executes one reminder pass at the given instant.
func (s *Service) RunPass(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		metrics.ObserveReminderRunDuration(time.Since(start).Seconds())
	}()

	sent := s.remindTasks(ctx, now)
	sent += s.remindPunishments(ctx, now)

	if sent > 0 {
		s.log.Info().Int("sent", sent).Dur("duration", time.Since(start)).Msg("Reminder pass completed")
	}
}

// remindTasks sends reminders for tasks inside their reminder window.
func (s *Service) remindTasks(ctx context.Context, now time.Time) int {
	tasks, err := s.tasks.FindWithReminders()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find tasks with reminders")
		return 0
	}

	sent := 0
	for i := range tasks {
		task := tasks[i]
		window := time.Duration(task.ReminderMinutes) * time.Minute
		if !inWindow(now, *task.Deadline, window) {
			continue
		}

		key := fmt.Sprintf("reminder:task:%d", task.ID)
		ok, err := s.claim(ctx, key, window)
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Reminder dedup check failed")
			continue
		}
		if !ok {
			continue
		}

		assignee, err := s.users.GetByID(task.AssigneeID)
		if err != nil {
			s.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to resolve task assignee")
			continue
		}

		text := fmt.Sprintf("Reminder: task #%d %q is due %s",
			task.ID, task.Title, task.Deadline.In(assignee.Location()).Format(time.RFC822))
		if err := s.notifier.SendDirect(assignee.Identity, text); err != nil {
			s.log.Warn().Err(err).Uint("task_id", task.ID).Msg("Task reminder dropped")
			continue
		}

		metrics.RecordReminderSent("task")
		sent++
	}
	return sent
}

// remindPunishments sends reminders for pending punishment assignments inside
// their reminder window.
func (s *Service) remindPunishments(ctx context.Context, now time.Time) int {
	assignments, err := s.assignments.FindWithReminders()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find assignments with reminders")
		return 0
	}

	sent := 0
	for i := range assignments {
		assignment := assignments[i]
		window := time.Duration(assignment.ReminderMinutes) * time.Minute
		if !inWindow(now, *assignment.Deadline, window) {
			continue
		}

		key := fmt.Sprintf("reminder:punishment:%d", assignment.ID)
		ok, err := s.claim(ctx, key, window)
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Reminder dedup check failed")
			continue
		}
		if !ok {
			continue
		}

		assignee, err := s.users.GetByID(assignment.AssigneeID)
		if err != nil {
			s.log.Error().Err(err).Uint("assignment_id", assignment.ID).Msg("Failed to resolve assignment assignee")
			continue
		}

		text := fmt.Sprintf("Reminder: punishment #%d is due %s (penalty %d points)",
			assignment.ID, assignment.Deadline.In(assignee.Location()).Format(time.RFC822), assignment.Penalty)
		if err := s.notifier.SendDirect(assignee.Identity, text); err != nil {
			s.log.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("Punishment reminder dropped")
			continue
		}

		metrics.RecordReminderSent("punishment")
		sent++
	}
	return sent
}

// claim marks a reminder key sent, returning false when a prior pass already
// sent it within the TTL.
func (s *Service) claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	existing, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != "" {
		return false, nil
	}
	if err := s.cache.Set(ctx, key, "1", ttl); err != nil {
		return false, err
	}
	return true, nil
}

// inWindow reports whether now falls inside the reminder window before the
// deadline. Entities already past their deadline belong to the sweeper, not
// the reminder pass.
func inWindow(now, deadline time.Time, window time.Duration) bool {
	if !now.Before(deadline) {
		return false
	}
	return deadline.Sub(now) <= window
}
