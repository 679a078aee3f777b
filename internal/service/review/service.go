// Package review implements the approval state machines for task completions
// and punishment proofs, including their point effects.
package review

import (
	"fmt"

	"github.com/strictd/taskwarden/internal/notify"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/taskerr"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Service applies reviews. Every transition is check-then-set on a single
// row, so a second concurrent review of the same id fails with
// taskerr.ErrAlreadyReviewed instead of double-applying points.
type Service struct {
	users       *repository.UserRepository
	tasks       *repository.TaskRepository
	assignments *repository.AssignmentRepository
	catalog     *repository.CatalogRepository
	notifier    notify.Notifier
	log         *logger.Logger
}

// NewService creates a new review service.
func NewService(
	users *repository.UserRepository,
	tasks *repository.TaskRepository,
	assignments *repository.AssignmentRepository,
	catalog *repository.CatalogRepository,
	notifier notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		users:       users,
		tasks:       tasks,
		assignments: assignments,
		catalog:     catalog,
		notifier:    notifier,
		log:         log,
	}
}

// requireReviewer verifies the reviewer owns the reviewed entity.
func requireReviewer(ownerID, reviewerID uint, kind string, id uint) error {
	if ownerID != reviewerID {
		return fmt.Errorf("%w: %s %d is not owned by supervisor %d", taskerr.ErrUnauthorized, kind, id, reviewerID)
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
