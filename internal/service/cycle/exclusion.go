package cycle

import (
	"github.com/pairdaily/pairing-service/internal/db"
)

// ExclusionSet maps a user to the partners they met inside the lookback
// window. Always symmetric: recording (a,b) records (b,a).
type ExclusionSet map[uint64]map[uint64]struct{}

// NewExclusionSet folds pairing history into a symmetric exclusion set.
func NewExclusionSet(history []db.Pairing) ExclusionSet {
	s := make(ExclusionSet, len(history)*2)
	for _, p := range history {
		s.add(p.UserAID, p.UserBID)
		s.add(p.UserBID, p.UserAID)
	}
	return s
}

func (s ExclusionSet) add(a, b uint64) {
	if s[a] == nil {
		s[a] = make(map[uint64]struct{})
	}
	s[a][b] = struct{}{}
}

// Excluded reports whether a and b were paired inside the window.
func (s ExclusionSet) Excluded(a, b uint64) bool {
	_, ok := s[a][b]
	return ok
}

// Blocklist holds block relationships keyed by blocker. Rows are stored
// one-directional; Blocked checks both directions so a single row keeps
// the pair apart either way round.
type Blocklist map[uint64]map[uint64]struct{}

// NewBlocklist folds block rows into a lookup map.
func NewBlocklist(blocks []db.Block) Blocklist {
	bl := make(Blocklist, len(blocks))
	for _, b := range blocks {
		if bl[b.BlockerID] == nil {
			bl[b.BlockerID] = make(map[uint64]struct{})
		}
		bl[b.BlockerID][b.BlockedID] = struct{}{}
	}
	return bl
}

// Blocked reports whether a blocked b or b blocked a.
func (bl Blocklist) Blocked(a, b uint64) bool {
	if _, ok := bl[a][b]; ok {
		return true
	}
	_, ok := bl[b][a]
	return ok
}
