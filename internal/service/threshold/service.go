// Package threshold evaluates standing point-threshold rules against balance
// changes and spawns cascade punishment assignments.
package threshold

import (
	"fmt"
	"time"

	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Triggered describes one rule firing and the assignment it spawned.
type Triggered struct {
	Threshold  models.PointThreshold
	Assignment models.Assignment
}

// Service evaluates threshold rules. Check accepts the repository handle per
// call so the sweeper can pass a transaction-scoped one and commit a rule's
// firing together with the balance change that caused it.
type Service struct {
	log *logger.Logger
}

// NewService creates a new threshold service.
func NewService(log *logger.Logger) *Service {
	return &Service{log: log}
}

// Check selects active rules owned by any of the assignee's supervisors
// whose threshold lies above the new balance and whose 24h cooldown has
// elapsed, and spawns one cascade assignment per firing rule. A failure on
// one rule never aborts the remaining rules.
func (s *Service) Check(db *repository.DB, assigneeID uint, newBalance int, now time.Time) ([]Triggered, error) {
	thresholds := repository.NewThresholdRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	catalog := repository.NewCatalogRepository(db)

	rules, err := thresholds.ActiveForAssignee(assigneeID)
	if err != nil {
		return nil, err
	}

	var triggered []Triggered
	for _, rule := range rules {
		if rule.ThresholdPoints <= newBalance {
			continue
		}

		// Touch claims the firing; the cooldown guard inside the
		// update keeps a rule from firing twice in 24h across
		// concurrent balance checks.
		claimed, err := thresholds.Touch(rule.ID, now)
		if err != nil {
			s.log.Error().Err(err).Uint("threshold_id", rule.ID).Msg("Failed to claim threshold firing")
			continue
		}
		if !claimed {
			continue
		}

		punishment, err := s.resolvePunishment(catalog, &rule)
		if err != nil {
			s.log.Error().Err(err).Uint("threshold_id", rule.ID).Msg("Failed to resolve threshold punishment")
			continue
		}

		deadline := now.Add(models.CascadeDeadline)
		assignment := models.Assignment{
			Type:         models.AssignmentPunishment,
			SupervisorID: rule.SupervisorID,
			AssigneeID:   assigneeID,
			ItemID:       punishment.ID,
			Reason:       fmt.Sprintf("Balance %d fell below threshold %d", newBalance, rule.ThresholdPoints),
			Deadline:     &deadline,
			Penalty:      models.CascadePenalty,
			Status:       models.StatusPending,
			AssignedAt:   now,
		}
		if err := assignments.Create(&assignment); err != nil {
			s.log.Error().Err(err).Uint("threshold_id", rule.ID).Msg("Failed to create cascade assignment")
			continue
		}

		metrics.RecordCascade("threshold")
		s.log.Info().
			Uint("threshold_id", rule.ID).
			Uint("assignee_id", assigneeID).
			Int("balance", newBalance).
			Msg("Threshold triggered")

		triggered = append(triggered, Triggered{Threshold: rule, Assignment: assignment})
	}

	return triggered, nil
}

// resolvePunishment maps a rule's punishment reference to a catalog entry,
// honoring the random sentinel.
func (s *Service) resolvePunishment(catalog *repository.CatalogRepository, rule *models.PointThreshold) (*models.Punishment, error) {
	if rule.PunishmentID > 0 {
		return catalog.GetPunishment(uint(rule.PunishmentID))
	}
	return catalog.RandomPunishment(rule.SupervisorID)
}
