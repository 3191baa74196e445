package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo users,
// blocks, and prior-day pairings so a cycle run has realistic input.
//
// Behavior:
//  1. Clears pairings, channels, blocks, and users.
//  2. Creates 20 active users with hashed passwords; a couple are made
//     inactive or over the flake ceiling to exercise the eligibility
//     filters.
//  3. Adds a handful of block rows.
//  4. Creates completed pairings for yesterday (history exclusions) and
//     one half-submitted pairing for today (migration input).
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	for _, table := range []string{"conversation_channels", "pairings", "blocks", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Println("Cleared existing data")

	// --- Seed users ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       i != 19, // user19 is deactivated
			LastActiveAt: now.Add(-time.Duration(r.Intn(48)) * time.Hour),
			FlakeStreak:  0,
		}
		if i == 20 {
			user.FlakeStreak = 7 // over the default ceiling
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed blocks (a few one-directional rows) ---
	blocks := []Block{
		{BlockerID: 1, BlockedID: 2},
		{BlockerID: 5, BlockedID: 9},
		{BlockerID: 12, BlockedID: 3},
	}
	if err := db.Create(&blocks).Error; err != nil {
		return fmt.Errorf("failed to seed blocks: %w", err)
	}

	// --- Seed yesterday's completed pairings (history) ---
	yesterday := now.AddDate(0, 0, -1)
	yDate := yesterday.Format("2006-01-02")
	for _, pair := range [][2]uint64{{3, 4}, {7, 8}, {10, 11}} {
		subA := fmt.Sprintf("photos/%s/%d.jpg", yDate, pair[0])
		subB := fmt.Sprintf("photos/%s/%d.jpg", yDate, pair[1])
		subAt := yesterday.Add(10 * time.Hour)
		p := Pairing{
			ID:           uuid.NewString(),
			Date:         yDate,
			ExpiresAt:    now.Truncate(24 * time.Hour),
			UserAID:      pair[0],
			UserBID:      pair[1],
			Status:       StatusCompleted,
			SubmissionA:  &subA,
			SubmittedAAt: &subAt,
			SubmissionB:  &subB,
			SubmittedBAt: &subAt,
			ChannelID:    uuid.NewString(),
		}
		ch := ConversationChannel{
			ID:        p.ChannelID,
			PairingID: p.ID,
			UserAID:   p.UserAID,
			UserBID:   p.UserBID,
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed pairing: %w", err)
		}
		if err := db.Create(&ch).Error; err != nil {
			return fmt.Errorf("failed to seed channel: %w", err)
		}
	}

	// --- Seed a half-submitted pairing for today (migration candidate) ---
	tDate := now.Format("2006-01-02")
	sub := fmt.Sprintf("photos/%s/13.jpg", tDate)
	subAt := now.Add(-2 * time.Hour)
	incomplete := Pairing{
		ID:           uuid.NewString(),
		Date:         tDate,
		ExpiresAt:    now.AddDate(0, 0, 1).Truncate(24 * time.Hour),
		UserAID:      13,
		UserBID:      14,
		Status:       StatusPartialA,
		SubmissionA:  &sub,
		SubmittedAAt: &subAt,
		ChannelID:    uuid.NewString(),
	}
	ch := ConversationChannel{
		ID:        incomplete.ChannelID,
		PairingID: incomplete.ID,
		UserAID:   13,
		UserBID:   14,
	}
	if err := db.Create(&incomplete).Error; err != nil {
		return fmt.Errorf("failed to seed incomplete pairing: %w", err)
	}
	if err := db.Create(&ch).Error; err != nil {
		return fmt.Errorf("failed to seed channel: %w", err)
	}

	log.Println("Seeded blocks, history pairings, and one incomplete pairing.")
	return nil
}
