package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pairdaily/pairing-service/internal/app"
	"github.com/pairdaily/pairing-service/internal/db"
	"github.com/pairdaily/pairing-service/internal/repository"
	"github.com/pairdaily/pairing-service/internal/utils/cycledate"
)

// lockTTL bounds how long a crashed run can keep a cycle date locked.
const lockTTL = 15 * time.Minute

// Options tunes one cycle service instance. Zero values fall back to the
// defaults below; Rand may be fixed by tests for reproducible matching.
type Options struct {
	LookbackDays   int
	RecencyDays    int
	MaxFlakeStreak int
	Rand           *rand.Rand
}

// Result summarizes one cycle run.
type Result struct {
	Date             string `json:"date"`
	NewPairings      int    `json:"new_pairings"`
	MigratedPairings int    `json:"migrated_pairings"`
	Waitlisted       int    `json:"waitlisted"`
}

// Service runs the daily pairing cycle: it reads the user directory and
// pairing history, migrates submitters out of interrupted pairings,
// greedily matches the remaining pool, and commits the whole outcome in
// one transaction.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	pairingRepo *repository.PairingRepository

	lookbackDays   int
	recencyDays    int
	maxFlakeStreak int
	rng            *rand.Rand
}

// NewCycleService creates the cycle service with dependencies from AppContext.
func NewCycleService(appCtx *app.AppContext, opts Options) *Service {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	if opts.RecencyDays <= 0 {
		opts.RecencyDays = 3
	}
	if opts.MaxFlakeStreak <= 0 {
		opts.MaxFlakeStreak = 5
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		appCtx:         appCtx,
		userRepo:       repository.NewUserRepository(appCtx.DB),
		pairingRepo:    repository.NewPairingRepository(appCtx.DB),
		lookbackDays:   opts.LookbackDays,
		recencyDays:    opts.RecencyDays,
		maxFlakeStreak: opts.MaxFlakeStreak,
		rng:            opts.Rand,
	}
}

// Run executes one pairing cycle for the given date (zero value → today).
// All reads happen before the single transactional write; a per-date
// redis lock keeps concurrent runs for the same date out.
func (s *Service) Run(ctx context.Context, date time.Time) (*Result, error) {
	if date.IsZero() {
		date = time.Now()
	}
	date = cycledate.Normalize(date)
	dateStr := cycledate.Format(date)
	log := s.appCtx.Logger.With("cycle_date", dateStr)

	ok, err := s.appCtx.RedisCache.AcquireCycleLock(ctx, dateStr, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrCycleAlreadyRunning
	}
	defer func() {
		if err := s.appCtx.RedisCache.ReleaseCycleLock(context.WithoutCancel(ctx), dateStr); err != nil {
			log.Warn("failed to release cycle lock", "err", err)
		}
	}()

	// --- Reads ---

	eligible, err := s.userRepo.EligibleUsers(ctx, date, s.recencyDays, s.maxFlakeStreak)
	if err != nil {
		return nil, err
	}
	if len(eligible) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrInsufficientPool, len(eligible))
	}

	activeToday, err := s.pairingRepo.ActivePairedUserIDs(ctx, date)
	if err != nil {
		return nil, err
	}

	incomplete, err := s.pairingRepo.IncompleteForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	history, err := s.pairingRepo.History(ctx, date, s.lookbackDays)
	if err != nil {
		return nil, err
	}
	exclusions := NewExclusionSet(history)

	blockIDs := make([]uint64, 0, len(eligible)+len(incomplete)*2)
	for _, u := range eligible {
		blockIDs = append(blockIDs, u.ID)
	}
	for _, p := range incomplete {
		blockIDs = append(blockIDs, p.UserAID, p.UserBID)
	}
	blockRows, err := s.userRepo.Blocks(ctx, blockIDs)
	if err != nil {
		return nil, err
	}
	blocks := NewBlocklist(blockRows)

	// Users who already hold an active pairing today never re-enter the
	// pool; re-running a finished cycle therefore cannot duplicate them.
	pool := make([]db.User, 0, len(eligible))
	for _, u := range eligible {
		if _, taken := activeToday[u.ID]; taken {
			continue
		}
		pool = append(pool, u)
	}

	// --- Migration ---

	migratable := s.resolveSubmitters(ctx, incomplete, log)
	migrations, used, unplaced := PlanMigrations(migratable, pool, blocks, date)
	for _, p := range unplaced {
		log.Warn("leaving incomplete pairing for next cycle",
			"pairing_id", p.ID, "err", ErrPartnerNotFound)
	}

	// --- Matching ---

	matchPool := make([]db.User, 0, len(pool))
	for _, u := range pool {
		if _, taken := used[u.ID]; taken {
			continue
		}
		matchPool = append(matchPool, u)
	}
	pairs, waitlist := Match(matchPool, exclusions, blocks, s.rng)

	// --- Assemble and commit ---

	batch := s.buildBatch(date, migrations, pairs, waitlist)
	if err := s.pairingRepo.CommitCycle(ctx, batch); err != nil {
		return nil, fmt.Errorf("cycle commit failed: %w", err)
	}

	result := &Result{
		Date:             dateStr,
		NewPairings:      len(pairs),
		MigratedPairings: len(migrations),
		Waitlisted:       len(waitlist),
	}
	log.Info("cycle complete",
		"new_pairings", result.NewPairings,
		"migrated", result.MigratedPairings,
		"waitlisted", result.Waitlisted,
	)
	return result, nil
}

// resolveSubmitters drops incomplete pairings whose submitter record no
// longer resolves. A broken reference is skipped with a warning, never
// fatal for the cycle.
func (s *Service) resolveSubmitters(ctx context.Context, incomplete []db.Pairing, log *slog.Logger) []db.Pairing {
	out := make([]db.Pairing, 0, len(incomplete))
	for _, p := range incomplete {
		hasA := p.SubmissionA != nil
		hasB := p.SubmissionB != nil
		if hasA == hasB {
			out = append(out, p) // untouched either way, no lookup needed
			continue
		}
		submitterID := p.UserAID
		if hasB {
			submitterID = p.UserBID
		}
		if _, err := s.userRepo.GetByID(ctx, submitterID); err != nil {
			log.Warn("skipping pairing with unresolvable submitter",
				"pairing_id", p.ID, "user_id", submitterID, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

// buildBatch turns migrations, fresh matches, and the waitlist into the
// single atomic write set.
func (s *Service) buildBatch(
	date time.Time,
	migrations []Migration,
	pairs [][2]db.User,
	waitlist []db.User,
) *repository.CycleBatch {
	batch := &repository.CycleBatch{Now: time.Now().UTC()}

	for _, m := range migrations {
		batch.Pairings = append(batch.Pairings, m.New)
		batch.Channels = append(batch.Channels, m.Channel)
		batch.Retirements = append(batch.Retirements, repository.Retirement{
			OldID: m.Old.ID,
			NewID: m.New.ID,
		})
		batch.PairedIDs = append(batch.PairedIDs, m.New.UserAID, m.New.UserBID)
	}

	for _, pair := range pairs {
		p := db.Pairing{
			ID:        uuid.NewString(),
			Date:      cycledate.Format(date),
			ExpiresAt: cycledate.EndOfCycle(date),
			UserAID:   pair[0].ID,
			UserBID:   pair[1].ID,
			Status:    db.StatusPending,
			ChannelID: uuid.NewString(),
		}
		batch.Pairings = append(batch.Pairings, p)
		batch.Channels = append(batch.Channels, db.ConversationChannel{
			ID:        p.ChannelID,
			PairingID: p.ID,
			UserAID:   p.UserAID,
			UserBID:   p.UserBID,
		})
		batch.PairedIDs = append(batch.PairedIDs, p.UserAID, p.UserBID)
	}

	for _, u := range waitlist {
		batch.WaitlistedIDs = append(batch.WaitlistedIDs, u.ID)
	}

	return batch
}
