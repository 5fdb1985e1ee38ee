package tod

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PlayerID identifies a platform user.
type PlayerID string

// Lifecycle is the coarse state of a guild's game.
type Lifecycle int

const (
	Inactive Lifecycle = iota
	Active
)

func (l Lifecycle) String() string {
	if l == Active {
		return "active"
	}
	return "inactive"
}

// Session is the game state of one guild. It is owned by the Registry and
// must only be touched while holding its Handle lock.
type Session struct {
	ID        uuid.UUID
	GuildID   string
	StartedAt time.Time

	roster     []PlayerID
	gameMaster PlayerID
	revenge    bool
	lastRoller PlayerID
	comms      *CommsHandle
}

func newSession(guildID string) *Session {
	return &Session{GuildID: guildID}
}

// Roster returns a copy of the players in join order.
func (s *Session) Roster() []PlayerID { return slices.Clone(s.roster) }

// Size returns the number of players.
func (s *Session) Size() int { return len(s.roster) }

// Has reports whether p is in the roster.
func (s *Session) Has(p PlayerID) bool { return slices.Contains(s.roster, p) }

// GameMaster returns the current Game Master, if any.
func (s *Session) GameMaster() (PlayerID, bool) { return s.gameMaster, s.gameMaster != "" }

// Revenge reports whether Revenge Mode is on.
func (s *Session) Revenge() bool { return s.revenge }

// LastRoller returns the player who issued the previous roll, if any.
func (s *Session) LastRoller() (PlayerID, bool) { return s.lastRoller, s.lastRoller != "" }

// Comms returns the provisioned channels, if any.
func (s *Session) Comms() (CommsHandle, bool) {
	if s.comms == nil {
		return CommsHandle{}, false
	}
	return *s.comms, true
}

// Lifecycle returns Active while the roster is non-empty.
func (s *Session) Lifecycle() Lifecycle {
	if len(s.roster) == 0 {
		return Inactive
	}
	return Active
}

// activate starts a game for the first player.
func (s *Session) activate(first PlayerID, comms CommsHandle, now time.Time) {
	s.ID = uuid.New()
	s.StartedAt = now
	s.comms = &comms
	s.roster = []PlayerID{first}
	AssignInitial(s, first)
}

func (s *Session) add(p PlayerID) {
	s.roster = append(s.roster, p)
}

func (s *Session) remove(p PlayerID) bool {
	i := slices.Index(s.roster, p)
	if i < 0 {
		return false
	}
	s.roster = slices.Delete(s.roster, i, i+1)
	if s.lastRoller == p {
		s.lastRoller = ""
	}
	return true
}

// reset returns the session to the inactive shape.
func (s *Session) reset() {
	*s = Session{GuildID: s.GuildID}
}

type snapshot struct {
	id         uuid.UUID
	startedAt  time.Time
	roster     []PlayerID
	gameMaster PlayerID
	revenge    bool
	lastRoller PlayerID
	comms      *CommsHandle
}

func (s *Session) snapshot() snapshot {
	return snapshot{
		id:         s.ID,
		startedAt:  s.StartedAt,
		roster:     slices.Clone(s.roster),
		gameMaster: s.gameMaster,
		revenge:    s.revenge,
		lastRoller: s.lastRoller,
		comms:      s.comms,
	}
}

func (s *Session) restore(snap snapshot) {
	s.ID = snap.id
	s.StartedAt = snap.startedAt
	s.roster = snap.roster
	s.gameMaster = snap.gameMaster
	s.revenge = snap.revenge
	s.lastRoller = snap.lastRoller
	s.comms = snap.comms
}

// validate checks the roster and Game Master invariants.
func (s *Session) validate() error {
	seen := make(map[PlayerID]struct{}, len(s.roster))
	for _, p := range s.roster {
		if _, dup := seen[p]; dup {
			return &InvariantError{GuildID: s.GuildID, Reason: fmt.Sprintf("player %s listed twice", p)}
		}
		seen[p] = struct{}{}
	}

	switch {
	case len(s.roster) > 0 && s.gameMaster == "":
		return &InvariantError{GuildID: s.GuildID, Reason: "roster is not empty but there is no game master"}
	case len(s.roster) == 0 && s.gameMaster != "":
		return &InvariantError{GuildID: s.GuildID, Reason: "roster is empty but a game master is set"}
	case s.gameMaster != "" && !s.Has(s.gameMaster):
		return &InvariantError{GuildID: s.GuildID, Reason: fmt.Sprintf("game master %s is not a player", s.gameMaster)}
	case len(s.roster) > 0 && s.comms == nil:
		return &InvariantError{GuildID: s.GuildID, Reason: "active session without comms"}
	}
	return nil
}
