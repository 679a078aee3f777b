package repository

import (
	"errors"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// CatalogRepository handles the reward and punishment catalogs.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateReward inserts a reward with a gap-filling visible id. Titles are
// unique per supervisor.
func (r *CatalogRepository) CreateReward(reward *models.Reward) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Reward{}).
			Where("supervisor_id = ? AND title = ?", reward.SupervisorID, reward.Title).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check reward title: %w", err)
		}
		if count > 0 {
			return taskerr.ErrDuplicateTitle
		}
		id, err := nextFreeID(tx, "rewards")
		if err != nil {
			return err
		}
		reward.ID = id
		if err := tx.Create(reward).Error; err != nil {
			return fmt.Errorf("failed to create reward: %w", err)
		}
		return nil
	})
}

// GetReward retrieves a reward by its ID.
func (r *CatalogRepository) GetReward(id uint) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reward %d: %w", id, err)
	}
	return &reward, nil
}

// ListRewards returns a supervisor's reward catalog.
func (r *CatalogRepository) ListRewards(supervisorID uint) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.Where("supervisor_id = ?", supervisorID).Order("id ASC").Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// DeleteReward removes a reward.
func (r *CatalogRepository) DeleteReward(id uint) error {
	res := r.db.Delete(&models.Reward{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}

// CreatePunishment inserts a punishment with a gap-filling visible id. Titles
// are unique per supervisor.
func (r *CatalogRepository) CreatePunishment(punishment *models.Punishment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Punishment{}).
			Where("supervisor_id = ? AND title = ?", punishment.SupervisorID, punishment.Title).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check punishment title: %w", err)
		}
		if count > 0 {
			return taskerr.ErrDuplicateTitle
		}
		id, err := nextFreeID(tx, "punishments")
		if err != nil {
			return err
		}
		punishment.ID = id
		if err := tx.Create(punishment).Error; err != nil {
			return fmt.Errorf("failed to create punishment: %w", err)
		}
		return nil
	})
}

// GetPunishment retrieves a punishment by its ID.
func (r *CatalogRepository) GetPunishment(id uint) (*models.Punishment, error) {
	var punishment models.Punishment
	if err := r.db.First(&punishment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get punishment %d: %w", id, err)
	}
	return &punishment, nil
}

// ListPunishments returns a supervisor's punishment catalog.
func (r *CatalogRepository) ListPunishments(supervisorID uint) ([]models.Punishment, error) {
	var punishments []models.Punishment
	err := r.db.Where("supervisor_id = ?", supervisorID).Order("id ASC").Find(&punishments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list punishments: %w", err)
	}
	return punishments, nil
}

// DeletePunishment removes a punishment.
func (r *CatalogRepository) DeletePunishment(id uint) error {
	res := r.db.Delete(&models.Punishment{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete punishment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return taskerr.ErrNotFound
	}
	return nil
}

// RandomPunishment picks one punishment uniformly from a supervisor's
// catalog. Used to resolve the "choose at random" auto-punishment sentinel.
func (r *CatalogRepository) RandomPunishment(supervisorID uint) (*models.Punishment, error) {
	punishments, err := r.ListPunishments(supervisorID)
	if err != nil {
		return nil, err
	}
	if len(punishments) == 0 {
		return nil, taskerr.ErrNotFound
	}
	return &punishments[rand.Intn(len(punishments))], nil
}
