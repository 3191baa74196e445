package cycle

import (
	"math/rand"
	"sort"

	"github.com/pairdaily/pairing-service/internal/db"
)

// Match pairs up the pool with a greedy forward scan.
//
// Ordering:
//  1. One uniform permutation of the pool from the caller's rand source.
//  2. A stable sort moving priority-flagged users to the front, so the
//     shuffle still decides relative order inside each group.
//
// Scan: for each unpaired user u, the first later unpaired candidate v
// that is not blocked either way and not in u's lookback exclusions wins.
// Users left over go on the waitlist. Intentionally greedy: the same
// seed and inputs always reproduce the same pairs.
func Match(
	pool []db.User,
	exclusions ExclusionSet,
	blocks Blocklist,
	rng *rand.Rand,
) (pairs [][2]db.User, waitlist []db.User) {
	ordered := make([]db.User, len(pool))
	copy(ordered, pool)

	rng.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PriorityNextPairing && !ordered[j].PriorityNextPairing
	})

	paired := make([]bool, len(ordered))

	for i := range ordered {
		if paired[i] {
			continue
		}
		u := ordered[i]

		matched := false
		for j := i + 1; j < len(ordered); j++ {
			if paired[j] {
				continue
			}
			v := ordered[j]
			if blocks.Blocked(u.ID, v.ID) {
				continue
			}
			if exclusions.Excluded(u.ID, v.ID) {
				continue
			}

			pairs = append(pairs, [2]db.User{u, v})
			paired[i], paired[j] = true, true
			matched = true
			break
		}

		if !matched {
			waitlist = append(waitlist, u)
		}
	}

	return pairs, waitlist
}
