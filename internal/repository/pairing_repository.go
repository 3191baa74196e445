package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pairdaily/pairing-service/internal/db"
	"github.com/pairdaily/pairing-service/internal/utils/cycledate"
)

// incompleteStatuses are the pairing states that have not yet resolved
// into completed/migrated/flaked.
var incompleteStatuses = []string{db.StatusPending, db.StatusPartialA, db.StatusPartialB}

// PairingRepository provides data access for pairings, their conversation
// channels, and the atomic end-of-cycle commit.
type PairingRepository struct {
	db *gorm.DB
}

// NewPairingRepository creates a new repository bound to the given DB connection.
func NewPairingRepository(database *gorm.DB) *PairingRepository {
	return &PairingRepository{db: database}
}

// History returns all pairings whose date falls in
// [cycleDate - lookbackDays, cycleDate), reduced to participant pairs.
// Migrated and flaked pairings count: those users still met.
func (r *PairingRepository) History(
	ctx context.Context,
	cycleDate time.Time,
	lookbackDays int,
) ([]db.Pairing, error) {
	from, to := cycledate.Window(cycleDate, lookbackDays)

	var pairings []db.Pairing
	err := r.db.WithContext(ctx).
		Select("id", "user_a_id", "user_b_id", "date").
		Where("date >= ? AND date < ?", from, to).
		Find(&pairings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pairing history: %w", err)
	}

	return pairings, nil
}

// IncompleteForDate returns today's pairings still awaiting submissions
// (pending or half-submitted), with full records including submission
// references and timestamps.
func (r *PairingRepository) IncompleteForDate(ctx context.Context, cycleDate time.Time) ([]db.Pairing, error) {
	var pairings []db.Pairing
	err := r.db.WithContext(ctx).
		Where("date = ?", cycledate.Format(cycleDate)).
		Where("status IN ?", incompleteStatuses).
		Order("created_at ASC").
		Find(&pairings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load incomplete pairings: %w", err)
	}

	return pairings, nil
}

// ActivePairedUserIDs returns the ids of users who already hold an active
// (non-migrated, non-flaked) pairing on the cycle date. Used as the
// re-run guard: such users never re-enter the pool.
func (r *PairingRepository) ActivePairedUserIDs(ctx context.Context, cycleDate time.Time) (map[uint64]struct{}, error) {
	var pairings []db.Pairing
	err := r.db.WithContext(ctx).
		Select("user_a_id", "user_b_id").
		Where("date = ?", cycledate.Format(cycleDate)).
		Where("status NOT IN ?", []string{db.StatusMigrated, db.StatusFlaked}).
		Find(&pairings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active pairings: %w", err)
	}

	ids := make(map[uint64]struct{}, len(pairings)*2)
	for _, p := range pairings {
		ids[p.UserAID] = struct{}{}
		ids[p.UserBID] = struct{}{}
	}
	return ids, nil
}

// Retirement marks an old pairing as superseded by a migration.
type Retirement struct {
	OldID string
	NewID string
}

// CycleBatch is the full output of one pairing cycle, committed as a
// single unit.
type CycleBatch struct {
	Pairings      []db.Pairing
	Channels      []db.ConversationChannel
	Retirements   []Retirement
	WaitlistedIDs []uint64
	PairedIDs     []uint64
	Now           time.Time
}

// CommitCycle writes the whole cycle output inside one transaction:
// new pairings, their channels, migrated-from retirements, and the
// waitlist/priority flag updates. Either every write lands or none does.
func (r *PairingRepository) CommitCycle(ctx context.Context, batch *CycleBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(batch.Pairings) > 0 {
			if err := tx.Create(&batch.Pairings).Error; err != nil {
				return fmt.Errorf("failed to create pairings: %w", err)
			}
		}

		if len(batch.Channels) > 0 {
			if err := tx.Create(&batch.Channels).Error; err != nil {
				return fmt.Errorf("failed to create channels: %w", err)
			}
		}

		for _, ret := range batch.Retirements {
			res := tx.Model(&db.Pairing{}).
				Where("id = ?", ret.OldID).
				Updates(map[string]interface{}{
					"status":      db.StatusMigrated,
					"migrated_to": ret.NewID,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to retire pairing %s: %w", ret.OldID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("failed to retire pairing %s: record missing", ret.OldID)
			}
		}

		if len(batch.WaitlistedIDs) > 0 {
			err := tx.Model(&db.User{}).
				Where("id IN ?", batch.WaitlistedIDs).
				Updates(map[string]interface{}{
					"waitlisted_at":         batch.Now,
					"priority_next_pairing": true,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to flag waitlisted users: %w", err)
			}
		}

		if len(batch.PairedIDs) > 0 {
			err := tx.Model(&db.User{}).
				Where("id IN ?", batch.PairedIDs).
				Update("priority_next_pairing", false).Error
			if err != nil {
				return fmt.Errorf("failed to clear priority flags: %w", err)
			}
		}

		return nil
	})
}
