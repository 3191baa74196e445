package cycle_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pairdaily/pairing-service/internal/app"
	"github.com/pairdaily/pairing-service/internal/cache"
	"github.com/pairdaily/pairing-service/internal/config"
	"github.com/pairdaily/pairing-service/internal/db"
	"github.com/pairdaily/pairing-service/internal/service/cycle"
)

var testDate = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

// setupService spins up an in-memory SQLite DB, applies migrations,
// starts a miniredis, and wires everything into a cycle service with a
// fixed random seed. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*cycle.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(
		&db.User{}, &db.Block{}, &db.Pairing{}, &db.ConversationChannel{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger)
	svc := cycle.NewCycleService(appCtx, cycle.Options{
		Rand: rand.New(rand.NewSource(99)),
	})
	return svc, appCtx
}

// addUsers inserts n active users with ids 1..n, all recently active.
func addUsers(t *testing.T, gdb *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		u := db.User{
			ID:           uint64(i),
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x",
			Active:       true,
			LastActiveAt: testDate.Add(-12 * time.Hour),
		}
		require.NoError(t, gdb.Create(&u).Error)
	}
}

func allPairings(t *testing.T, gdb *gorm.DB, date string) []db.Pairing {
	t.Helper()
	var out []db.Pairing
	require.NoError(t, gdb.Where("date = ?", date).Order("created_at ASC").Find(&out).Error)
	return out
}

// Scenario A: 4 eligible users, empty history, no blocks.
func TestRunEvenPool(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 4)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewPairings)
	assert.Equal(t, 0, result.MigratedPairings)
	assert.Equal(t, 0, result.Waitlisted)

	pairings := allPairings(t, appCtx.DB, "2025-06-15")
	require.Len(t, pairings, 2)
	seen := map[uint64]bool{}
	for _, p := range pairings {
		assert.Equal(t, db.StatusPending, p.Status)
		assert.NotEqual(t, p.UserAID, p.UserBID)
		assert.False(t, seen[p.UserAID] || seen[p.UserBID], "user paired twice")
		seen[p.UserAID], seen[p.UserBID] = true, true

		// channel created atomically with its pairing
		var ch db.ConversationChannel
		require.NoError(t, appCtx.DB.Where("pairing_id = ?", p.ID).First(&ch).Error)
		assert.Equal(t, p.ChannelID, ch.ID)
		assert.Equal(t, p.UserAID, ch.UserAID)
		assert.Equal(t, p.UserBID, ch.UserBID)
	}
}

// Scenario B: 5 eligible users → 2 pairings, 1 waitlisted with the
// priority boost set.
func TestRunOddPoolWaitlists(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 5)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewPairings)
	assert.Equal(t, 1, result.Waitlisted)

	var boosted []db.User
	require.NoError(t, appCtx.DB.Where("priority_next_pairing = ?", true).Find(&boosted).Error)
	require.Len(t, boosted, 1)
	assert.NotNil(t, boosted[0].WaitlistedAt)
}

// Scenario C: a half-submitted pairing {1 submitted, 2 did not} plus a
// free user 3. The submitter is re-homed with 3, content intact; user 2
// stays untouched and 3 never reaches the general matcher pool.
func TestRunMigratesHalfSubmittedPairing(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 3)

	content := "photos/2025-06-15/1.jpg"
	submittedAt := testDate.Add(8 * time.Hour)
	old := db.Pairing{
		ID:           uuid.NewString(),
		Date:         "2025-06-15",
		ExpiresAt:    testDate.AddDate(0, 0, 1),
		UserAID:      1,
		UserBID:      2,
		Status:       db.StatusPartialA,
		SubmissionA:  &content,
		SubmittedAAt: &submittedAt,
		ChannelID:    uuid.NewString(),
	}
	require.NoError(t, appCtx.DB.Create(&old).Error)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewPairings)
	assert.Equal(t, 1, result.MigratedPairings)
	assert.Equal(t, 0, result.Waitlisted)

	// old pairing retired, pointing at its successor
	var retired db.Pairing
	require.NoError(t, appCtx.DB.First(&retired, "id = ?", old.ID).Error)
	assert.Equal(t, db.StatusMigrated, retired.Status)
	require.NotNil(t, retired.MigratedTo)

	// successor carries the transplant
	var next db.Pairing
	require.NoError(t, appCtx.DB.First(&next, "id = ?", *retired.MigratedTo).Error)
	assert.Equal(t, uint64(1), next.UserAID)
	assert.Equal(t, uint64(3), next.UserBID)
	assert.Equal(t, db.StatusPartialA, next.Status)
	require.NotNil(t, next.SubmissionA)
	assert.Equal(t, content, *next.SubmissionA)
	require.NotNil(t, next.SubmittedAAt)
	assert.Equal(t, submittedAt.UnixMilli(), next.SubmittedAAt.UnixMilli())
	require.NotNil(t, next.MigratedFrom)
	assert.Equal(t, old.ID, *next.MigratedFrom)

	// the abandoned partner is untouched: no new pairing, no boost
	var partner db.User
	require.NoError(t, appCtx.DB.First(&partner, 2).Error)
	assert.False(t, partner.PriorityNextPairing)
	assert.Nil(t, partner.WaitlistedAt)
}

// Scenario D: two users who block each other → no pairings, both
// waitlisted.
func TestRunMutualBlockersWaitlisted(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 2)
	require.NoError(t, appCtx.DB.Create(&db.Block{BlockerID: 1, BlockedID: 2}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Block{BlockerID: 2, BlockedID: 1}).Error)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewPairings)
	assert.Equal(t, 2, result.Waitlisted)
	assert.Empty(t, allPairings(t, appCtx.DB, "2025-06-15"))

	var boosted int64
	require.NoError(t, appCtx.DB.Model(&db.User{}).
		Where("priority_next_pairing = ?", true).Count(&boosted).Error)
	assert.EqualValues(t, 2, boosted)
}

// Users paired inside the lookback window are kept apart.
func TestRunHonorsLookbackWindow(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 2)

	prior := db.Pairing{
		ID:        uuid.NewString(),
		Date:      "2025-06-12", // 3 days back, inside the default window
		UserAID:   1,
		UserBID:   2,
		Status:    db.StatusCompleted,
		ChannelID: uuid.NewString(),
	}
	require.NoError(t, appCtx.DB.Create(&prior).Error)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewPairings)
	assert.Equal(t, 2, result.Waitlisted)
}

// Fewer than two eligible users: the cycle aborts and nothing is written.
func TestRunInsufficientPool(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 1)

	_, err := svc.Run(context.Background(), testDate)
	require.ErrorIs(t, err, cycle.ErrInsufficientPool)
	assert.Empty(t, allPairings(t, appCtx.DB, "2025-06-15"))
}

// Ineligible users (inactive, stale, flaky) never enter the pool.
func TestRunEligibilityFilters(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 2)

	ineligible := []db.User{
		{ID: 10, Username: "inactive", Email: "a@t", PasswordHash: "x",
			Active: false, LastActiveAt: testDate},
		{ID: 11, Username: "stale", Email: "b@t", PasswordHash: "x",
			Active: true, LastActiveAt: testDate.AddDate(0, 0, -10)},
		{ID: 12, Username: "flaky", Email: "c@t", PasswordHash: "x",
			Active: true, LastActiveAt: testDate, FlakeStreak: 6},
	}
	require.NoError(t, appCtx.DB.Create(&ineligible).Error)

	result, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewPairings)
	pairings := allPairings(t, appCtx.DB, "2025-06-15")
	require.Len(t, pairings, 1)
	assert.Less(t, pairings[0].UserAID, uint64(10))
	assert.Less(t, pairings[0].UserBID, uint64(10))
}

// Re-running a finished cycle never duplicates pairings: everyone already
// holds an active pairing for the date, so the second run is a no-op.
func TestRunTwiceIsIdempotent(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 4)

	first, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)
	require.Equal(t, 2, first.NewPairings)

	second, err := svc.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewPairings)
	assert.Equal(t, 0, second.Waitlisted)

	assert.Len(t, allPairings(t, appCtx.DB, "2025-06-15"), 2)
}

// The per-date lock rejects a second concurrent run for the same date.
func TestRunRejectsConcurrentRun(t *testing.T) {
	svc, appCtx := setupService(t)
	addUsers(t, appCtx.DB, 4)

	held, err := appCtx.RedisCache.AcquireCycleLock(context.Background(), "2025-06-15", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = svc.Run(context.Background(), testDate)
	require.ErrorIs(t, err, cycle.ErrCycleAlreadyRunning)

	// a different date is unaffected
	result, err := svc.Run(context.Background(), testDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewPairings)
}
