// Package obligation implements the obligation repository: registration,
// linking, task and catalog CRUD, submissions, assignments, and thresholds.
// Ownership, relationship, and affordability checks are enforced here rather
// than left to callers.
package obligation

import (
	"fmt"
	"time"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/notify"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/service/recurrence"
	"github.com/strictd/taskwarden/internal/taskerr"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Service coordinates repositories for obligation lifecycle operations.
type Service struct {
	users       *repository.UserRepository
	rels        *repository.RelationshipRepository
	tasks       *repository.TaskRepository
	catalog     *repository.CatalogRepository
	assignments *repository.AssignmentRepository
	thresholds  *repository.ThresholdRepository
	notifier    notify.Notifier
	log         *logger.Logger
}

// NewService creates a new obligation service.
func NewService(
	users *repository.UserRepository,
	rels *repository.RelationshipRepository,
	tasks *repository.TaskRepository,
	catalog *repository.CatalogRepository,
	assignments *repository.AssignmentRepository,
	thresholds *repository.ThresholdRepository,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		users:       users,
		rels:        rels,
		tasks:       tasks,
		catalog:     catalog,
		assignments: assignments,
		thresholds:  thresholds,
		notifier:    notifier,
		log:         log,
	}
}

// RegisterUser registers an identity with a fixed role. The timezone defaults
// to UTC and must be a valid IANA name when given.
func (s *Service) RegisterUser(identity, username, role, timezone string) (*models.User, error) {
	if role != models.RoleSupervisor && role != models.RoleAssignee {
		return nil, fmt.Errorf("%w: unknown role %q", taskerr.ErrUnauthorized, role)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("%w: %q", taskerr.ErrInvalidTimezone, timezone)
	}

	user := &models.User{
		Identity: identity,
		Username: username,
		Role:     role,
		Timezone: timezone,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().Str("identity", identity).Str("role", role).Msg("User registered")
	return user, nil
}

// Link creates a supervisor/assignee relationship.
func (s *Service) Link(supervisorID, assigneeID uint) (*models.Relationship, error) {
	supervisor, err := s.users.GetByID(supervisorID)
	if err != nil {
		return nil, err
	}
	if !supervisor.IsSupervisor() {
		return nil, fmt.Errorf("%w: user %d is not a supervisor", taskerr.ErrUnauthorized, supervisorID)
	}
	assignee, err := s.users.GetByID(assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.IsSupervisor() {
		return nil, fmt.Errorf("%w: user %d is not an assignee", taskerr.ErrUnauthorized, assigneeID)
	}

	rel := &models.Relationship{SupervisorID: supervisorID, AssigneeID: assigneeID}
	if err := s.rels.Create(rel); err != nil {
		return nil, err
	}

	s.log.Info().Uint("supervisor_id", supervisorID).Uint("assignee_id", assigneeID).Msg("Relationship created")
	return rel, nil
}

// CreateTaskParams carries the inputs for CreateTask.
type CreateTaskParams struct {
	SupervisorID      uint
	AssigneeID        uint
	Title             string
	Description       string
	Frequency         string
	PointValue        int
	Deadline          *time.Time
	RecurrenceEnabled bool
	IntervalHours     int
	Weekdays          string
	TimeOfDay         string
	DeadlineAnchor    string
	AutoPunishmentID  int
	ReminderMinutes   int
}

// CreateTask creates a task for a linked assignee. The next occurrence is
// computed eagerly when recurrence is enabled.
func (s *Service) CreateTask(p CreateTaskParams) (*models.Task, error) {
	linked, err := s.rels.Exists(p.SupervisorID, p.AssigneeID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, fmt.Errorf("%w: assignee %d is not linked to supervisor %d",
			taskerr.ErrUnauthorized, p.AssigneeID, p.SupervisorID)
	}

	if p.PointValue == 0 {
		p.PointValue = models.DefaultPointValue
	}
	if p.Frequency == "" {
		p.Frequency = models.FrequencyDaily
	}
	if p.DeadlineAnchor != "" {
		if _, _, err := recurrence.ParseTimeOfDay(p.DeadlineAnchor); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		SupervisorID:      p.SupervisorID,
		AssigneeID:        p.AssigneeID,
		Title:             p.Title,
		Description:       p.Description,
		Frequency:         p.Frequency,
		PointValue:        p.PointValue,
		Deadline:          p.Deadline,
		RecurrenceEnabled: p.RecurrenceEnabled,
		IntervalHours:     p.IntervalHours,
		Weekdays:          p.Weekdays,
		TimeOfDay:         p.TimeOfDay,
		DeadlineAnchor:    p.DeadlineAnchor,
		AutoPunishmentID:  p.AutoPunishmentID,
		ReminderMinutes:   p.ReminderMinutes,
		Active:            true,
	}

	if p.RecurrenceEnabled {
		rule, err := s.ruleForTask(task)
		if err != nil {
			return nil, err
		}
		next, err := recurrence.NextOccurrence(time.Now(), rule)
		if err != nil {
			return nil, err
		}
		task.NextOccurrence = &next
	}

	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("task_id", task.ID).
		Uint("assignee_id", task.AssigneeID).
		Str("title", task.Title).
		Msg("Task created")

	if assignee, err := s.users.GetByID(task.AssigneeID); err == nil {
		s.notifyBestEffort(assignee.Identity,
			fmt.Sprintf("New task #%d: %s (%d points)", task.ID, task.Title, task.PointValue))
	}

	return task, nil
}

// SubmitCompletion records a pending submission for an active task,
// snapshotting the task's current point value.
func (s *Service) SubmitCompletion(taskID, assigneeID uint, proofURL string) (*models.TaskCompletion, error) {
	task, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if !task.Active {
		return nil, fmt.Errorf("%w: task %d is inactive", taskerr.ErrNotFound, taskID)
	}
	if task.AssigneeID != assigneeID {
		return nil, fmt.Errorf("%w: task %d is not assigned to user %d", taskerr.ErrUnauthorized, taskID, assigneeID)
	}

	pending, err := s.tasks.HasPendingCompletion(taskID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, taskerr.ErrPendingCompletion
	}

	completion := &models.TaskCompletion{
		TaskID:       taskID,
		AssigneeID:   assigneeID,
		ProofURL:     proofURL,
		PointsEarned: task.PointValue,
		Status:       models.CompletionPending,
		SubmittedAt:  time.Now(),
	}
	if err := s.tasks.CreateCompletion(completion); err != nil {
		return nil, err
	}

	s.log.Info().Uint("task_id", taskID).Uint("completion_id", completion.ID).Msg("Completion submitted")

	if supervisor, err := s.users.GetByID(task.SupervisorID); err == nil {
		s.notifyBestEffort(supervisor.Identity,
			fmt.Sprintf("Completion #%d submitted for task #%d: %s", completion.ID, taskID, task.Title))
	}

	return completion, nil
}

// ResetRecurringTask voids any still-pending submission and recomputes the
// next occurrence. A stale submission is rejected by the reset, never
// silently approved.
func (s *Service) ResetRecurringTask(task *models.Task) error {
	now := time.Now()
	if err := s.tasks.VoidPendingCompletions(task.ID, now); err != nil {
		return err
	}

	rule, err := s.ruleForTask(task)
	if err != nil {
		return err
	}
	next, err := recurrence.NextOccurrence(now, rule)
	if err != nil {
		return err
	}
	task.NextOccurrence = &next
	if err := s.tasks.Update(task); err != nil {
		return err
	}

	s.log.Debug().Uint("task_id", task.ID).Time("next_occurrence", next).Msg("Recurring task reset")
	return nil
}

// DeleteTask removes a task and its completions after verifying ownership.
func (s *Service) DeleteTask(taskID, supervisorID uint) error {
	task, err := s.tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	if task.SupervisorID != supervisorID {
		return fmt.Errorf("%w: task %d is not owned by supervisor %d", taskerr.ErrUnauthorized, taskID, supervisorID)
	}
	return s.tasks.Delete(taskID)
}

// CreateReward adds a catalog reward for a supervisor.
func (s *Service) CreateReward(supervisorID uint, title, description string, pointCost int) (*models.Reward, error) {
	reward := &models.Reward{
		SupervisorID: supervisorID,
		Title:        title,
		Description:  description,
		PointCost:    pointCost,
	}
	if err := s.catalog.CreateReward(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// CreatePunishment adds a catalog punishment for a supervisor.
func (s *Service) CreatePunishment(supervisorID uint, title, description string) (*models.Punishment, error) {
	punishment := &models.Punishment{
		SupervisorID: supervisorID,
		Title:        title,
		Description:  description,
	}
	if err := s.catalog.CreatePunishment(punishment); err != nil {
		return nil, err
	}
	return punishment, nil
}

// DeleteReward removes a reward after verifying ownership.
func (s *Service) DeleteReward(rewardID, supervisorID uint) error {
	reward, err := s.catalog.GetReward(rewardID)
	if err != nil {
		return err
	}
	if reward.SupervisorID != supervisorID {
		return fmt.Errorf("%w: reward %d is not owned by supervisor %d", taskerr.ErrUnauthorized, rewardID, supervisorID)
	}
	return s.catalog.DeleteReward(rewardID)
}

// DeletePunishment removes a punishment after verifying ownership.
func (s *Service) DeletePunishment(punishmentID, supervisorID uint) error {
	punishment, err := s.catalog.GetPunishment(punishmentID)
	if err != nil {
		return err
	}
	if punishment.SupervisorID != supervisorID {
		return fmt.Errorf("%w: punishment %d is not owned by supervisor %d", taskerr.ErrUnauthorized, punishmentID, supervisorID)
	}
	return s.catalog.DeletePunishment(punishmentID)
}

// AssignReward grants a reward and deducts its cost. The affordability check
// lives here: a reward costing more than the assignee's balance is refused.
func (s *Service) AssignReward(supervisorID, assigneeID, rewardID uint, reason string) (*models.Assignment, error) {
	reward, err := s.catalog.GetReward(rewardID)
	if err != nil {
		return nil, err
	}
	if reward.SupervisorID != supervisorID {
		return nil, fmt.Errorf("%w: reward %d is not owned by supervisor %d", taskerr.ErrUnauthorized, rewardID, supervisorID)
	}
	if err := s.requireLink(supervisorID, assigneeID); err != nil {
		return nil, err
	}

	assignee, err := s.users.GetByID(assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.Points < reward.PointCost {
		return nil, fmt.Errorf("%w: reward costs %d, balance is %d",
			taskerr.ErrInsufficientPoints, reward.PointCost, assignee.Points)
	}

	if reward.PointCost > 0 {
		if _, err := s.users.ApplyPointsDelta(assigneeID, -reward.PointCost); err != nil {
			return nil, err
		}
	}

	assignment := &models.Assignment{
		Type:         models.AssignmentReward,
		SupervisorID: supervisorID,
		AssigneeID:   assigneeID,
		ItemID:       rewardID,
		Reason:       reason,
		Status:       models.StatusGranted,
		AssignedAt:   time.Now(),
	}
	if err := s.assignments.Create(assignment); err != nil {
		return nil, err
	}

	s.notifyBestEffort(assignee.Identity, fmt.Sprintf("Reward granted: %s", reward.Title))
	return assignment, nil
}

// AssignPunishmentParams carries the inputs for AssignPunishment.
type AssignPunishmentParams struct {
	SupervisorID    uint
	AssigneeID      uint
	PunishmentID    uint
	Reason          string
	Deadline        *time.Time
	Penalty         int
	ForwardTo       string
	ReminderMinutes int
}

// AssignPunishment creates a punishment assignment directly. Cascade-created
// assignments go through the sweeper and threshold services instead.
func (s *Service) AssignPunishment(p AssignPunishmentParams) (*models.Assignment, error) {
	punishment, err := s.catalog.GetPunishment(p.PunishmentID)
	if err != nil {
		return nil, err
	}
	if punishment.SupervisorID != p.SupervisorID {
		return nil, fmt.Errorf("%w: punishment %d is not owned by supervisor %d",
			taskerr.ErrUnauthorized, p.PunishmentID, p.SupervisorID)
	}
	if err := s.requireLink(p.SupervisorID, p.AssigneeID); err != nil {
		return nil, err
	}

	if p.Deadline == nil {
		deadline := time.Now().Add(models.CascadeDeadline)
		p.Deadline = &deadline
	}
	if p.Penalty == 0 {
		p.Penalty = models.CascadePenalty
	}

	assignment := &models.Assignment{
		Type:            models.AssignmentPunishment,
		SupervisorID:    p.SupervisorID,
		AssigneeID:      p.AssigneeID,
		ItemID:          p.PunishmentID,
		Reason:          p.Reason,
		Deadline:        p.Deadline,
		Penalty:         p.Penalty,
		ForwardTo:       p.ForwardTo,
		ReminderMinutes: p.ReminderMinutes,
		Status:          models.StatusPending,
		AssignedAt:      time.Now(),
	}
	if err := s.assignments.Create(assignment); err != nil {
		return nil, err
	}

	if assignee, err := s.users.GetByID(p.AssigneeID); err == nil {
		s.notifyBestEffort(assignee.Identity,
			fmt.Sprintf("Punishment assigned: %s (due %s)", punishment.Title, p.Deadline.Format(time.RFC822)))
	}

	return assignment, nil
}

// CreateThreshold adds a standing point-threshold rule.
func (s *Service) CreateThreshold(supervisorID uint, assigneeID *uint, thresholdPoints, punishmentID int) (*models.PointThreshold, error) {
	if assigneeID != nil {
		if err := s.requireLink(supervisorID, *assigneeID); err != nil {
			return nil, err
		}
	}
	if punishmentID > 0 {
		punishment, err := s.catalog.GetPunishment(uint(punishmentID))
		if err != nil {
			return nil, err
		}
		if punishment.SupervisorID != supervisorID {
			return nil, fmt.Errorf("%w: punishment %d is not owned by supervisor %d",
				taskerr.ErrUnauthorized, punishmentID, supervisorID)
		}
	}

	threshold := &models.PointThreshold{
		SupervisorID:    supervisorID,
		AssigneeID:      assigneeID,
		ThresholdPoints: thresholdPoints,
		PunishmentID:    punishmentID,
		Active:          true,
	}
	if err := s.thresholds.Create(threshold); err != nil {
		return nil, err
	}
	return threshold, nil
}

// DeleteThreshold removes a rule after verifying ownership.
func (s *Service) DeleteThreshold(thresholdID, supervisorID uint) error {
	threshold, err := s.thresholds.GetByID(thresholdID)
	if err != nil {
		return err
	}
	if threshold.SupervisorID != supervisorID {
		return fmt.Errorf("%w: threshold %d is not owned by supervisor %d",
			taskerr.ErrUnauthorized, thresholdID, supervisorID)
	}
	return s.thresholds.Delete(thresholdID)
}

// GetUser retrieves a user by id.
func (s *Service) GetUser(userID uint) (*models.User, error) {
	return s.users.GetByID(userID)
}

// PrimarySupervisor returns an assignee's primary supervisor. With multiple
// supervisors the earliest-created link wins, so the answer is stable.
func (s *Service) PrimarySupervisor(assigneeID uint) (*models.User, error) {
	return s.rels.PrimarySupervisor(assigneeID)
}

// ListTasks returns an assignee's tasks.
func (s *Service) ListTasks(assigneeID uint, activeOnly bool) ([]models.Task, error) {
	return s.tasks.ListByAssignee(assigneeID, activeOnly)
}

// ListAssignments returns an assignee's recent assignments.
func (s *Service) ListAssignments(assigneeID uint, assignmentType string) ([]models.Assignment, error) {
	return s.assignments.ListByAssignee(assigneeID, assignmentType)
}

// ListRewards returns a supervisor's reward catalog.
func (s *Service) ListRewards(supervisorID uint) ([]models.Reward, error) {
	return s.catalog.ListRewards(supervisorID)
}

// ListPunishments returns a supervisor's punishment catalog.
func (s *Service) ListPunishments(supervisorID uint) ([]models.Punishment, error) {
	return s.catalog.ListPunishments(supervisorID)
}

// ListThresholds returns a supervisor's threshold rules.
func (s *Service) ListThresholds(supervisorID uint) ([]models.PointThreshold, error) {
	return s.thresholds.ListBySupervisor(supervisorID)
}

// PendingCompletions returns submissions awaiting a supervisor's review.
func (s *Service) PendingCompletions(supervisorID uint) ([]models.TaskCompletion, error) {
	return s.tasks.PendingCompletionsForSupervisor(supervisorID)
}

// Stats returns an assignee's completion aggregates over the trailing window.
func (s *Service) Stats(assigneeID uint, windowDays int) (*repository.TaskStats, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	return s.tasks.Stats(assigneeID, windowDays)
}

// ruleForTask builds and validates the recurrence rule from task fields.
func (s *Service) ruleForTask(task *models.Task) (recurrence.Rule, error) {
	weekdays, err := recurrence.ParseWeekdays(task.Weekdays)
	if err != nil {
		return recurrence.Rule{}, err
	}
	rule := recurrence.Rule{
		IntervalHours: task.IntervalHours,
		Weekdays:      weekdays,
		TimeOfDay:     task.TimeOfDay,
	}
	return rule, rule.Validate()
}

// requireLink verifies a supervisor/assignee relationship exists.
func (s *Service) requireLink(supervisorID, assigneeID uint) error {
	linked, err := s.rels.Exists(supervisorID, assigneeID)
	if err != nil {
		return err
	}
	if !linked {
		return fmt.Errorf("%w: assignee %d is not linked to supervisor %d",
			taskerr.ErrUnauthorized, assigneeID, supervisorID)
	}
	return nil
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
