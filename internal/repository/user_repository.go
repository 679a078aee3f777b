package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/strictd/taskwarden/internal/metrics"
	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/taskerr"
)

// UserRepository handles user records and the point ledger.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create registers a new user. The identity is unique; a second registration
// for the same identity fails with taskerr.ErrDuplicateRegistration.
func (r *UserRepository) Create(user *models.User) error {
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	var count int64
	if err := r.db.Model(&models.User{}).Where("identity = ?", user.Identity).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check registration: %w", err)
	}
	if count > 0 {
		return taskerr.ErrDuplicateRegistration
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return &user, nil
}

// GetByIdentity retrieves a user by external identity string.
func (r *UserRepository) GetByIdentity(identity string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("identity = ?", identity).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskerr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by identity %s: %w", identity, err)
	}
	return &user, nil
}

// Update updates a user record. Point balances are excluded; they only move
// through ApplyPointsDelta.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Omit("points").Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// List retrieves all users with an optional role filter.
func (r *UserRepository) List(role string) ([]models.User, error) {
	query := r.db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ApplyPointsDelta applies a signed delta to a user's balance and returns the
// new total. The mutation is a single UPDATE against the row, so concurrent
// deltas on the same user serialize in the store without lost updates.
// Balances have no floor; penalties may drive them negative.
func (r *UserRepository) ApplyPointsDelta(userID uint, delta int) (int, error) {
	var balance int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("points", gorm.Expr("points + ?", delta))
		if res.Error != nil {
			return fmt.Errorf("failed to apply points delta: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return taskerr.ErrNotFound
		}
		if err := tx.Model(&models.User{}).
			Select("points").
			Where("id = ?", userID).
			Scan(&balance).Error; err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordPointDelta(delta)
	return balance, nil
}
