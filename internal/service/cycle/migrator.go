package cycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/pairdaily/pairing-service/internal/db"
	"github.com/pairdaily/pairing-service/internal/utils/cycledate"
)

// Migration re-homes the submitter of a half-complete pairing into a
// fresh pairing with a new partner, carrying the submission along.
type Migration struct {
	Old     db.Pairing
	New     db.Pairing
	Channel db.ConversationChannel
}

// PlanMigrations walks today's incomplete pairings and plans a migration
// for each one where exactly one slot holds a submission.
//
// Rules:
//   - pairings with no submission, or with both slots filled, are left
//     untouched for normal completion elsewhere
//   - the replacement partner is the first pool candidate (pool order)
//     that is unused this pass, not the submitter, not the original
//     partner, and not blocked with the submitter in either direction
//   - the submission reference and timestamp are transplanted verbatim
//     into slot A of the new pairing
//   - no candidate is not an error: the pairing stays as-is and is
//     reported in unplaced
//
// Both the submitter and the chosen candidate land in the used set so the
// matcher never re-selects them.
func PlanMigrations(
	incomplete []db.Pairing,
	pool []db.User,
	blocks Blocklist,
	cycleDate time.Time,
) (migrations []Migration, used map[uint64]struct{}, unplaced []db.Pairing) {
	used = make(map[uint64]struct{})

	for _, old := range incomplete {
		hasA := old.SubmissionA != nil
		hasB := old.SubmissionB != nil
		if hasA == hasB {
			continue
		}

		var submitterID, partnerID uint64
		var content *string
		var submittedAt *time.Time
		if hasA {
			submitterID, partnerID = old.UserAID, old.UserBID
			content, submittedAt = old.SubmissionA, old.SubmittedAAt
		} else {
			submitterID, partnerID = old.UserBID, old.UserAID
			content, submittedAt = old.SubmissionB, old.SubmittedBAt
		}

		var candidate *db.User
		for i := range pool {
			c := &pool[i]
			if _, taken := used[c.ID]; taken {
				continue
			}
			if c.ID == submitterID || c.ID == partnerID {
				continue
			}
			if blocks.Blocked(submitterID, c.ID) {
				continue
			}
			candidate = c
			break
		}

		if candidate == nil {
			unplaced = append(unplaced, old)
			continue
		}

		oldID := old.ID
		next := db.Pairing{
			ID:           uuid.NewString(),
			Date:         cycledate.Format(cycleDate),
			ExpiresAt:    cycledate.EndOfCycle(cycleDate),
			UserAID:      submitterID,
			UserBID:      candidate.ID,
			Status:       db.StatusPartialA,
			SubmissionA:  content,
			SubmittedAAt: submittedAt,
			ChannelID:    uuid.NewString(),
			MigratedFrom: &oldID,
		}
		channel := db.ConversationChannel{
			ID:        next.ChannelID,
			PairingID: next.ID,
			UserAID:   next.UserAID,
			UserBID:   next.UserBID,
		}

		migrations = append(migrations, Migration{Old: old, New: next, Channel: channel})
		used[submitterID] = struct{}{}
		used[candidate.ID] = struct{}{}
	}

	return migrations, used, unplaced
}
