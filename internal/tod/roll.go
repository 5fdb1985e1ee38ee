package tod

import (
	"math/rand/v2"
	"sync"
)

// MinPlayers returns the roster size needed to roll.
func MinPlayers(revenge bool) int {
	if revenge {
		return 2
	}
	return 3
}

// RollSelector picks the target of a roll. It is safe for concurrent use.
type RollSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRollSelector returns a selector drawing from src, or from the global
// generator when src is nil.
func NewRollSelector(src rand.Source) *RollSelector {
	r := &RollSelector{}
	if src != nil {
		r.rng = rand.New(src)
	}
	return r
}

func (r *RollSelector) intN(n int) int {
	if r.rng == nil {
		return rand.IntN(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Roll selects a target for requester and records requester as the last roller.
func (r *RollSelector) Roll(s *Session, requester PlayerID) (PlayerID, error) {
	if !s.Has(requester) {
		return "", ErrNotPresent
	}
	if s.Size() < MinPlayers(s.revenge) {
		return "", ErrInsufficientPlayers
	}

	pool := selectable(s, requester)
	if len(pool) == 0 {
		return "", ErrInsufficientPlayers
	}
	target := pool[r.intN(len(pool))]
	s.lastRoller = requester
	return target, nil
}

// Candidates returns the players eligible as targets of requester's roll.
// The last roller is excluded unless Revenge Mode is on.
func Candidates(s *Session, requester PlayerID) []PlayerID {
	out := make([]PlayerID, 0, len(s.roster))
	for _, p := range s.roster {
		if p == requester {
			continue
		}
		if !s.revenge && p == s.lastRoller {
			continue
		}
		out = append(out, p)
	}
	return out
}

// selectable is Candidates with a tie-break: when the last roller is the only
// other player, they may be picked again so a valid roster always yields a target.
func selectable(s *Session, requester PlayerID) []PlayerID {
	if c := Candidates(s, requester); len(c) > 0 {
		return c
	}
	return others(s.roster, requester)
}

func others(roster []PlayerID, exclude PlayerID) []PlayerID {
	out := make([]PlayerID, 0, len(roster))
	for _, p := range roster {
		if p != exclude {
			out = append(out, p)
		}
	}
	return out
}
