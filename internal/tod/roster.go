package tod

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JoinOutcome is the result of RosterManager.Join.
type JoinOutcome int

const (
	// JoinFailed accompanies every non-nil error.
	JoinFailed JoinOutcome = iota
	Added
	AlreadyPresent
)

// LeaveOutcome is the result of RosterManager.Leave.
type LeaveOutcome int

const (
	// LeaveFailed accompanies every non-nil error.
	LeaveFailed LeaveOutcome = iota
	Removed
	NotPresent
)

// Departure describes the side effects of players leaving.
type Departure struct {
	// NewGameMaster is set when authority moved to another player.
	NewGameMaster PlayerID
	// Ended is true when the roster emptied and the comms were torn down.
	Ended bool
}

// RemoveResult is the result of RosterManager.ForceRemove.
type RemoveResult struct {
	Departure
	Removed  []PlayerID
	NotFound []PlayerID
}

// Entry is one line of the player list.
type Entry struct {
	Player       PlayerID
	IsGameMaster bool
}

// RosterManager applies roster changes to a session and keeps the platform
// channels in step. It holds no session state itself.
type RosterManager struct {
	prov Provisioner
	log  zerolog.Logger
	now  func() time.Time
}

func NewRosterManager(prov Provisioner, log zerolog.Logger) *RosterManager {
	return &RosterManager{prov: prov, log: log, now: time.Now}
}

// Join adds p to the roster. The first player of an empty session becomes the
// Game Master and triggers provisioning. On provisioning failure the session
// is left untouched.
func (m *RosterManager) Join(ctx context.Context, s *Session, p PlayerID) (JoinOutcome, error) {
	if s.Has(p) {
		return AlreadyPresent, nil
	}

	if s.Lifecycle() == Inactive {
		h, err := m.prov.ProvisionComms(ctx, s.GuildID, p)
		if err != nil {
			return JoinFailed, provisioningErr("provision comms", err)
		}
		s.activate(p, h, m.now())
		return Added, nil
	}

	if err := m.prov.GrantAccess(ctx, *s.comms, p); err != nil {
		return JoinFailed, provisioningErr("grant access", err)
	}
	s.add(p)
	return Added, nil
}

// Leave removes p from the roster, handing authority over or ending the game
// when needed.
func (m *RosterManager) Leave(ctx context.Context, s *Session, p PlayerID) (LeaveOutcome, Departure, error) {
	if !s.Has(p) {
		return NotPresent, Departure{}, nil
	}

	tx := m.begin(s)
	dep, err := tx.remove(ctx, p)
	if err != nil {
		tx.rollback(ctx)
		return LeaveFailed, Departure{}, err
	}
	return Removed, dep, nil
}

// ForceRemove removes targets, or everybody when all is set. Only the Game
// Master may call it. Either every removal applies or none does.
func (m *RosterManager) ForceRemove(ctx context.Context, s *Session, requester PlayerID, targets []PlayerID, all bool) (RemoveResult, error) {
	if !IsGameMaster(s, requester) {
		return RemoveResult{}, ErrNotGameMaster
	}

	tx := m.begin(s)
	var res RemoveResult

	if all {
		res.Removed = s.Roster()
		if err := tx.endGame(ctx); err != nil {
			tx.rollback(ctx)
			return RemoveResult{}, err
		}
		res.Ended = true
		return res, nil
	}

	seen := make(map[PlayerID]struct{}, len(targets))
	for _, t := range targets {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		if s.Lifecycle() == Inactive || !s.Has(t) {
			res.NotFound = append(res.NotFound, t)
			continue
		}
		dep, err := tx.remove(ctx, t)
		if err != nil {
			tx.rollback(ctx)
			return RemoveResult{}, err
		}
		res.Removed = append(res.Removed, t)
		if dep.NewGameMaster != "" {
			res.NewGameMaster = dep.NewGameMaster
		}
		res.Ended = res.Ended || dep.Ended
	}
	if res.Ended {
		res.NewGameMaster = ""
	}
	return res, nil
}

// List returns the players in join order.
func List(s *Session) []Entry {
	out := make([]Entry, 0, len(s.roster))
	for _, p := range s.roster {
		out = append(out, Entry{Player: p, IsGameMaster: IsGameMaster(s, p)})
	}
	return out
}

// removal tracks platform changes made during one operation so they can be
// undone if a later step fails.
type removal struct {
	m       *RosterManager
	s       *Session
	snap    snapshot
	revoked []PlayerID
}

func (m *RosterManager) begin(s *Session) *removal {
	return &removal{m: m, s: s, snap: s.snapshot()}
}

func (r *removal) remove(ctx context.Context, p PlayerID) (Departure, error) {
	if r.s.Size() == 1 {
		if err := r.endGame(ctx); err != nil {
			return Departure{}, err
		}
		return Departure{Ended: true}, nil
	}

	if err := r.m.prov.RevokeAccess(ctx, *r.s.comms, p); err != nil {
		return Departure{}, provisioningErr("revoke access", err)
	}
	r.revoked = append(r.revoked, p)

	wasGM := IsGameMaster(r.s, p)
	r.s.remove(p)

	var dep Departure
	if wasGM {
		dep.NewGameMaster, _ = Succeed(r.s)
	}
	return dep, nil
}

// endGame revokes every remaining player and deletes the channels.
func (r *removal) endGame(ctx context.Context) error {
	h := *r.s.comms
	for _, p := range r.s.Roster() {
		if err := r.m.prov.RevokeAccess(ctx, h, p); err != nil {
			return provisioningErr("revoke access", err)
		}
		r.revoked = append(r.revoked, p)
	}
	if err := r.m.prov.TeardownComms(ctx, h); err != nil {
		return provisioningErr("teardown comms", err)
	}
	r.s.reset()
	return nil
}

// rollback restores the session and re-grants access revoked so far.
func (r *removal) rollback(ctx context.Context) {
	r.s.restore(r.snap)
	h, ok := r.s.Comms()
	if !ok {
		return
	}
	for _, p := range r.revoked {
		if err := r.m.prov.GrantAccess(ctx, h, p); err != nil {
			r.m.log.Error().Err(err).
				Str("guild_id", r.s.GuildID).
				Str("player_id", string(p)).
				Msg("Failed to restore player access during rollback")
		}
	}
}
