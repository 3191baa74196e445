package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pairdaily/pairing-service/internal/db"
)

// UserRepository provides read access to the user directory for cycle
// eligibility and block relationships.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// EligibleUsers returns the candidate pool for a cycle.
//
// Behavior:
//   - active accounts only
//   - last_active_at within recencyDays of the cycle date
//   - flake_streak strictly below maxFlakeStreak
//   - ordered by id for a stable base ordering (the matcher shuffles later)
//   - an empty pool is returned as an empty slice, not an error
func (r *UserRepository) EligibleUsers(
	ctx context.Context,
	cycleDate time.Time,
	recencyDays int,
	maxFlakeStreak int,
) ([]db.User, error) {
	var users []db.User

	since := cycleDate.AddDate(0, 0, -recencyDays)

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("last_active_at >= ?", since).
		Where("flake_streak < ?", maxFlakeStreak).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible users: %w", err)
	}

	return users, nil
}

// Blocks returns every block row touching any of the given user IDs, in
// either direction. The cycle service folds these into a symmetric
// in-memory blocklist.
func (r *UserRepository) Blocks(ctx context.Context, userIDs []uint64) ([]db.Block, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id IN ? OR blocked_id IN ?", userIDs, userIDs).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load blocks: %w", err)
	}

	return blocks, nil
}

// GetByID resolves one user record. Used by the migrator when it needs
// fresh details for a submitter who is no longer in the eligible pool.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}
