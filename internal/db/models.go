package db

import (
	"time"
)

// Pairing statuses. A pairing is "active" unless migrated or flaked.
const (
	StatusPending   = "pending"
	StatusPartialA  = "partial_a"
	StatusPartialB  = "partial_b"
	StatusCompleted = "completed"
	StatusMigrated  = "migrated"
	StatusFlaked    = "flaked"
)

// User table. Accounts are created by the signup flow; the pairing engine
// only ever writes PriorityNextPairing and WaitlistedAt.
type User struct {
	ID                  uint64 `gorm:"primaryKey;autoIncrement"`
	Username            string `gorm:"uniqueIndex;size:64;not null"`
	Email               string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash        string `gorm:"size:255;not null"`
	Active              bool   `gorm:"default:true"`
	LastActiveAt        time.Time
	FlakeStreak         int  `gorm:"not null;default:0"`
	PriorityNextPairing bool `gorm:"not null;default:false"`
	WaitlistedAt        *time.Time
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

// Block represents a one-directional "blocker blocked someone" row.
//
// Composite PK: (BlockerID, BlockedID)
//   - Ensures a single row per direction.
//
// Rows are one-directional, but every eligibility check treats the
// relationship as symmetric: A blocking B prevents pairing in both
// directions.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey"`
	BlockedID uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Pairing binds exactly two users for one cycle date.
//
// Slot order (A/B) only disambiguates which submission belongs to whom;
// it carries no ranking. Submission columns stay NULL until the user
// submits. Pairings are never deleted, only status-transitioned; a
// migrated pairing keeps its slots frozen and points at its successor
// via MigratedTo.
//
// Invariants:
//   - UserAID != UserBID
//   - StatusCompleted implies both submission slots are set
//   - StatusMigrated implies MigratedTo is set
//   - at most one active pairing per user per Date
type Pairing struct {
	ID            string `gorm:"primaryKey;size:36"`
	Date          string `gorm:"size:10;not null;index:idx_pairings_date_status,priority:1"`
	ExpiresAt     time.Time
	UserAID       uint64  `gorm:"not null;index"`
	UserBID       uint64  `gorm:"not null;index"`
	Status        string  `gorm:"size:16;not null;index:idx_pairings_date_status,priority:2"`
	SubmissionA   *string `gorm:"size:255"`
	SubmittedAAt  *time.Time
	SubmissionB   *string `gorm:"size:255"`
	SubmittedBAt  *time.Time
	ChannelID     string  `gorm:"size:36;not null"`
	MigratedFrom  *string `gorm:"size:36"`
	MigratedTo    *string `gorm:"size:36"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Active reports whether the pairing still occupies its participants
// for its cycle date.
func (p *Pairing) Active() bool {
	return p.Status != StatusMigrated && p.Status != StatusFlaked
}

// ConversationChannel is the 1:1 chat companion of a Pairing, created in
// the same transaction. It has no lifecycle of its own.
type ConversationChannel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	PairingID string    `gorm:"size:36;not null;uniqueIndex"`
	UserAID   uint64    `gorm:"not null"`
	UserBID   uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
