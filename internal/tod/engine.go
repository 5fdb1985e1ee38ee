package tod

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Engine runs the Truth or Dare commands of every guild. Operations on the
// same guild are serialized; different guilds never block each other.
type Engine struct {
	registry *Registry
	roster   *RosterManager
	selector *RollSelector
	auth     Authorizer
	log      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandSource makes rolls draw from src.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.selector = NewRollSelector(src) }
}

// WithAuthorizer enables the platform role check before rolling.
func WithAuthorizer(a Authorizer) Option {
	return func(e *Engine) { e.auth = a }
}

// WithClock overrides the clock used for session start times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.roster.now = now }
}

func NewEngine(prov Provisioner, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		roster:   NewRosterManager(prov, log),
		selector: NewRollSelector(nil),
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the session registry.
func (e *Engine) Registry() *Registry { return e.registry }

// JoinResult is returned by Join.
type JoinResult struct {
	// Started is true when this join created the game.
	Started    bool
	GameMaster PlayerID
	Comms      CommsHandle
}

// Join adds p to the guild's game, starting one if none is running.
func (e *Engine) Join(ctx context.Context, guildID string, p PlayerID) (JoinResult, error) {
	h := e.registry.lock(guildID)
	defer h.Unlock()
	s := h.Session()

	started := s.Lifecycle() == Inactive
	outcome, err := e.roster.Join(ctx, s, p)
	if err != nil {
		if s.Lifecycle() == Inactive {
			e.registry.Remove(guildID)
		}
		e.log.Warn().Err(err).Str("guild_id", guildID).Str("player_id", string(p)).Msg("Join rolled back")
		return JoinResult{}, err
	}
	if outcome == AlreadyPresent {
		return JoinResult{}, ErrAlreadyPresent
	}
	if err := e.check(s); err != nil {
		return JoinResult{}, err
	}

	ev := e.log.Info().Str("guild_id", guildID).Str("session_id", s.ID.String()).Str("player_id", string(p))
	if started {
		ev.Msg("Game started")
	} else {
		ev.Int("players", s.Size()).Msg("Player joined")
	}

	gm, _ := s.GameMaster()
	comms, _ := s.Comms()
	return JoinResult{Started: started, GameMaster: gm, Comms: comms}, nil
}

// Leave removes p from the guild's game.
func (e *Engine) Leave(ctx context.Context, guildID string, p PlayerID) (Departure, error) {
	h, err := e.registry.lockExisting(guildID)
	if err != nil {
		return Departure{}, ErrNotPresent
	}
	defer h.Unlock()
	s := h.Session()
	sessionID := s.ID.String()

	outcome, dep, err := e.roster.Leave(ctx, s, p)
	if err != nil {
		e.log.Warn().Err(err).Str("guild_id", guildID).Str("player_id", string(p)).Msg("Leave rolled back")
		return Departure{}, err
	}
	if outcome == NotPresent {
		return Departure{}, ErrNotPresent
	}
	e.afterDeparture(guildID, sessionID, s, dep)
	if err := e.check(s); err != nil {
		return Departure{}, err
	}
	e.log.Info().Str("guild_id", guildID).Str("session_id", sessionID).Str("player_id", string(p)).Msg("Player left")
	return dep, nil
}

// Remove force-removes targets, or everybody when all is set. Game Master only.
func (e *Engine) Remove(ctx context.Context, guildID string, requester PlayerID, targets []PlayerID, all bool) (RemoveResult, error) {
	h, err := e.registry.lockExisting(guildID)
	if err != nil {
		return RemoveResult{}, err
	}
	defer h.Unlock()
	s := h.Session()
	if s.Lifecycle() == Inactive {
		return RemoveResult{}, ErrNoSession
	}
	sessionID := s.ID.String()

	res, err := e.roster.ForceRemove(ctx, s, requester, targets, all)
	if err != nil {
		if !errors.Is(err, ErrNotGameMaster) {
			e.log.Warn().Err(err).Str("guild_id", guildID).Msg("Remove rolled back")
		}
		return RemoveResult{}, err
	}
	e.afterDeparture(guildID, sessionID, s, res.Departure)
	if err := e.check(s); err != nil {
		return RemoveResult{}, err
	}
	e.log.Info().
		Str("guild_id", guildID).
		Str("session_id", sessionID).
		Str("requester_id", string(requester)).
		Int("removed", len(res.Removed)).
		Int("not_found", len(res.NotFound)).
		Msg("Players removed")
	return res, nil
}

func (e *Engine) afterDeparture(guildID, sessionID string, s *Session, dep Departure) {
	if dep.Ended {
		e.registry.Remove(guildID)
		e.log.Info().Str("guild_id", guildID).Str("session_id", sessionID).Msg("Game over")
		return
	}
	if dep.NewGameMaster != "" {
		e.log.Info().Str("guild_id", guildID).Str("session_id", sessionID).
			Str("game_master_id", string(dep.NewGameMaster)).Msg("Game master changed")
	}
}

// List returns the guild's players in join order. An inactive guild yields an
// empty list.
func (e *Engine) List(guildID string) ([]Entry, error) {
	h, err := e.registry.rlockExisting(guildID)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer h.RUnlock()
	s := h.Session()
	if err := e.check(s); err != nil {
		return nil, err
	}
	return List(s), nil
}

// SetRevenge sets Revenge Mode. Game Master only.
func (e *Engine) SetRevenge(ctx context.Context, guildID string, requester PlayerID, enabled bool) (bool, error) {
	return e.updateRevenge(ctx, guildID, requester, func(bool) bool { return enabled })
}

// ToggleRevenge flips Revenge Mode. Game Master only.
func (e *Engine) ToggleRevenge(ctx context.Context, guildID string, requester PlayerID) (bool, error) {
	return e.updateRevenge(ctx, guildID, requester, func(cur bool) bool { return !cur })
}

// updateRevenge gives up without changing anything if ctx ended while it
// waited for the guild lock.
func (e *Engine) updateRevenge(ctx context.Context, guildID string, requester PlayerID, next func(bool) bool) (bool, error) {
	h, err := e.registry.lockExisting(guildID)
	if err != nil {
		return false, ErrNotGameMaster
	}
	defer h.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := h.Session()
	if !IsGameMaster(s, requester) {
		return false, ErrNotGameMaster
	}
	s.revenge = next(s.revenge)
	e.log.Info().Str("guild_id", guildID).Str("session_id", s.ID.String()).Bool("revenge", s.revenge).Msg("Revenge mode updated")
	return s.revenge, nil
}

// Status summarizes a guild's game.
type Status struct {
	Active    bool
	Players   int
	Revenge   bool
	StartedAt time.Time
}

// Status never creates a session.
func (e *Engine) Status(guildID string) Status {
	h, err := e.registry.rlockExisting(guildID)
	if err != nil {
		return Status{}
	}
	defer h.RUnlock()
	s := h.Session()
	if s.Lifecycle() == Inactive {
		return Status{}
	}
	return Status{Active: true, Players: s.Size(), Revenge: s.revenge, StartedAt: s.StartedAt}
}

// Roll picks who gets asked next. channelID is where the roll was issued; an
// empty value skips the channel check.
func (e *Engine) Roll(ctx context.Context, guildID string, requester PlayerID, channelID string) (PlayerID, error) {
	h, err := e.registry.lockExisting(guildID)
	if err != nil {
		return "", err
	}
	defer h.Unlock()
	s := h.Session()
	if s.Lifecycle() == Inactive {
		return "", ErrNoSession
	}

	if e.auth != nil {
		ok, err := e.auth.IsCallerAuthorized(ctx, guildID, requester, RolePlayer)
		if err != nil {
			return "", fmt.Errorf("check player role: %w", err)
		}
		if !ok {
			return "", ErrNotPlayer
		}
	}
	if comms, _ := s.Comms(); channelID != "" && comms.TextChannelID != "" && channelID != comms.TextChannelID {
		return "", &WrongChannelError{ChannelID: comms.TextChannelID}
	}

	target, err := e.selector.Roll(s, requester)
	if err != nil {
		return "", err
	}
	e.log.Debug().Str("guild_id", guildID).Str("session_id", s.ID.String()).
		Str("requester_id", string(requester)).Str("target_id", string(target)).Msg("Rolled")
	return target, nil
}

// check reports broken invariants loudly; they point at a bug, not misuse.
func (e *Engine) check(s *Session) error {
	if err := s.validate(); err != nil {
		e.log.Error().Err(err).Str("guild_id", s.GuildID).Msg("Session invariant violated")
		return err
	}
	return nil
}
