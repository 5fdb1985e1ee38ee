package tod

import (
	"math/rand/v2"
	"time"
)

func activeSession(players ...PlayerID) *Session {
	s := newSession("guild")
	s.activate(players[0], CommsHandle{GuildID: "guild", TextChannelID: "text"}, time.Unix(0, 0))
	for _, p := range players[1:] {
		s.add(p)
	}
	return s
}

func seeded(seed uint64) *RollSelector {
	return NewRollSelector(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
