// Package sweeper runs the periodic deadline sweep: it expires overdue tasks
// and punishment assignments, applies their penalties, spawns cascade
// punishments, and advances due recurring tasks.
package sweeper

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/notify"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/service/obligation"
	"github.com/strictd/taskwarden/internal/service/threshold"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Service owns the sweep schedule. Each overdue entity is processed in its
// own transaction, so one bad row never blocks the rest of a run.
type Service struct {
	config     *config.Config
	db         *repository.DB
	obligation *obligation.Service
	thresholds *threshold.Service
	notifier   notify.Notifier
	log        *logger.Logger
	cron       *cron.Cron
}

// NewService creates a new sweeper service.
func NewService(
	cfg *config.Config,
	db *repository.DB,
	obligationService *obligation.Service,
	thresholdService *threshold.Service,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		config:     cfg,
		db:         db,
		obligation: obligationService,
		thresholds: thresholdService,
		notifier:   notifier,
		log:        log,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Sweeper.Enabled {
		s.log.Info().Msg("Sweeper is disabled in configuration")
		return nil
	}

	interval, err := s.config.Sweeper.GetInterval()
	if err != nil {
		return fmt.Errorf("invalid sweeper interval: %w", err)
	}

	s.cron = cron.New()
	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.RunSweep(time.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	s.cron.Start()
	s.log.Info().Dur("interval", interval).Msg("Sweeper started")
	return nil
}

// Stop gracefully shuts down the sweeper, waiting for a running sweep.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Sweeper stopped")
	}
}

// RunSweep executes one sweep pass at the given instant.
func (s *Service) RunSweep(now time.Time) {
	start := time.Now()
	defer func() {
		metrics.ObserveSweepDuration(time.Since(start).Seconds())
	}()

	s.log.Debug().Msg("Running deadline sweep")

	expiredTasks := s.sweepExpiredTasks(now)
	expiredPunishments := s.sweepExpiredPunishments(now)
	resetTasks := s.sweepDueRecurring(now)

	metrics.RecordSweepRun("success")
	if expiredTasks+expiredPunishments+resetTasks > 0 {
		s.log.Info().
			Int("expired_tasks", expiredTasks).
			Int("expired_punishments", expiredPunishments).
			Int("reset_tasks", resetTasks).
			Dur("duration", time.Since(start)).
			Msg("Deadline sweep completed")
	}

	if s.notifier != nil && expiredTasks+expiredPunishments > 0 {
		summary := fmt.Sprintf("Deadline sweep: %d task(s) expired, %d punishment(s) escalated",
			expiredTasks, expiredPunishments)
		if err := s.notifier.PostChannel(summary); err != nil {
			s.log.Warn().Err(err).Msg("Sweep summary dropped")
		}
	}
}

// sweepExpiredTasks deactivates overdue tasks, deducts their point value,
// spawns the configured auto-punishment, and evaluates threshold rules
// against the new balance. Returns the number of tasks expired.
func (s *Service) sweepExpiredTasks(now time.Time) int {
	tasks := repository.NewTaskRepository(s.db)
	overdue, err := tasks.FindExpired(now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find expired tasks")
		metrics.RecordSweepRun("error")
		return 0
	}

	expired := 0
	for i := range overdue {
		task := overdue[i]
		if err := s.expireTask(&task, now); err != nil {
			s.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to expire task")
			metrics.RecordSweepEntityFailure("task")
			continue
		}
		expired++
	}
	return expired
}

// expireTask processes one overdue task in a single transaction. The claim
// guard makes the deduction idempotent across overlapping sweeps.
func (s *Service) expireTask(task *models.Task, now time.Time) error {
	assigneeIdentity := ""
	err := s.db.InTx(func(txdb *repository.DB) error {
		txTasks := repository.NewTaskRepository(txdb)
		txUsers := repository.NewUserRepository(txdb)

		claimed, err := txTasks.ClaimExpired(task.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		balance, err := txUsers.ApplyPointsDelta(task.AssigneeID, -task.PointValue)
		if err != nil {
			return err
		}

		if task.AutoPunishmentID != models.AutoPunishmentNone {
			if err := s.spawnCascade(txdb, task, now); err != nil {
				return err
			}
		}

		if _, err := s.thresholds.Check(txdb, task.AssigneeID, balance, now); err != nil {
			return err
		}

		metrics.RecordTaskExpired()
		s.log.Info().
			Uint("task_id", task.ID).
			Uint("assignee_id", task.AssigneeID).
			Int("penalty", task.PointValue).
			Int("balance", balance).
			Msg("Task expired")

		if assignee, err := txUsers.GetByID(task.AssigneeID); err == nil {
			assigneeIdentity = assignee.Identity
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Notify only after the transaction committed.
	if assigneeIdentity != "" {
		s.notifyBestEffort(assigneeIdentity,
			fmt.Sprintf("Task #%d expired: %s (-%d points)", task.ID, task.Title, task.PointValue))
	}
	return nil
}

// spawnCascade creates the punishment assignment an expired task calls for,
// resolving the random sentinel through the supervisor's catalog.
func (s *Service) spawnCascade(txdb *repository.DB, task *models.Task, now time.Time) error {
	catalog := repository.NewCatalogRepository(txdb)
	assignments := repository.NewAssignmentRepository(txdb)

	var punishment *models.Punishment
	var err error
	if task.AutoPunishmentID == models.AutoPunishmentRandom {
		punishment, err = catalog.RandomPunishment(task.SupervisorID)
	} else {
		punishment, err = catalog.GetPunishment(uint(task.AutoPunishmentID))
	}
	if err != nil {
		return fmt.Errorf("failed to resolve auto punishment for task %d: %w", task.ID, err)
	}

	deadline := now.Add(models.CascadeDeadline)
	assignment := models.Assignment{
		Type:         models.AssignmentPunishment,
		SupervisorID: task.SupervisorID,
		AssigneeID:   task.AssigneeID,
		ItemID:       punishment.ID,
		Reason:       fmt.Sprintf("Missed deadline on task #%d: %s", task.ID, task.Title),
		Deadline:     &deadline,
		Penalty:      models.CascadePenalty,
		Status:       models.StatusPending,
		AssignedAt:   now,
	}
	if err := assignments.Create(&assignment); err != nil {
		return err
	}

	metrics.RecordCascade("deadline")
	return nil
}

// sweepExpiredPunishments doubles the penalty of overdue pending punishment
// assignments and deducts the doubled amount. Returns the number expired.
func (s *Service) sweepExpiredPunishments(now time.Time) int {
	assignments := repository.NewAssignmentRepository(s.db)
	overdue, err := assignments.FindExpiredPending(now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find expired punishment assignments")
		metrics.RecordSweepRun("error")
		return 0
	}

	expired := 0
	for i := range overdue {
		assignment := overdue[i]
		if err := s.expirePunishment(&assignment, now); err != nil {
			s.log.Error().Err(err).Uint("assignment_id", assignment.ID).Msg("Failed to expire punishment assignment")
			metrics.RecordSweepEntityFailure("punishment")
			continue
		}
		expired++
	}
	return expired
}

// expirePunishment processes one overdue assignment in a single transaction.
// The status guard in MarkExpired makes the doubled deduction idempotent.
func (s *Service) expirePunishment(assignment *models.Assignment, now time.Time) error {
	doubled := assignment.Penalty * 2
	assigneeIdentity := ""
	err := s.db.InTx(func(txdb *repository.DB) error {
		txAssignments := repository.NewAssignmentRepository(txdb)
		txUsers := repository.NewUserRepository(txdb)

		claimed, err := txAssignments.MarkExpired(assignment.ID, doubled, now)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		balance, err := txUsers.ApplyPointsDelta(assignment.AssigneeID, -doubled)
		if err != nil {
			return err
		}

		if _, err := s.thresholds.Check(txdb, assignment.AssigneeID, balance, now); err != nil {
			return err
		}

		metrics.RecordPunishmentExpired()
		s.log.Info().
			Uint("assignment_id", assignment.ID).
			Uint("assignee_id", assignment.AssigneeID).
			Int("penalty", doubled).
			Int("balance", balance).
			Msg("Punishment assignment expired")

		if assignee, err := txUsers.GetByID(assignment.AssigneeID); err == nil {
			assigneeIdentity = assignee.Identity
		}
		return nil
	})
	if err != nil {
		return err
	}

	if assigneeIdentity != "" {
		s.notifyBestEffort(assigneeIdentity,
			fmt.Sprintf("Punishment #%d expired, penalty doubled to %d points. Submit proof to recover it.",
				assignment.ID, doubled))
	}
	return nil
}

// sweepDueRecurring advances recurring tasks whose occurrence has passed.
// Returns the number of tasks reset.
func (s *Service) sweepDueRecurring(now time.Time) int {
	tasks := repository.NewTaskRepository(s.db)
	due, err := tasks.FindDueRecurring(now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find due recurring tasks")
		metrics.RecordSweepRun("error")
		return 0
	}

	reset := 0
	for i := range due {
		task := due[i]
		if err := s.obligation.ResetRecurringTask(&task); err != nil {
			s.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to reset recurring task")
			metrics.RecordSweepEntityFailure("recurrence")
			continue
		}
		reset++
	}
	return reset
}

// notifyBestEffort sends a direct message and drops failures.
func (s *Service) notifyBestEffort(identity, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendDirect(identity, text); err != nil {
		s.log.Warn().Err(err).Str("identity", identity).Msg("Notification dropped")
	}
}
