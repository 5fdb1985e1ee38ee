package tod_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tod-bot/internal/tod"
	"tod-bot/internal/tod/mocks"
)

const guild = "guild-1"

var comms = tod.CommsHandle{GuildID: guild, TextChannelID: "text-1", VoiceChannelID: "voice-1", RoleID: "role-1"}

func newEngine(t *testing.T, opts ...tod.Option) (*tod.Engine, *mocks.Provisioner) {
	t.Helper()
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, mock.Anything).Return(comms, nil).Maybe()
	prov.On("GrantAccess", mock.Anything, comms, mock.Anything).Return(nil).Maybe()
	prov.On("RevokeAccess", mock.Anything, comms, mock.Anything).Return(nil).Maybe()
	prov.On("TeardownComms", mock.Anything, comms).Return(nil).Maybe()
	opts = append([]tod.Option{tod.WithRandSource(rand.NewPCG(7, 11))}, opts...)
	return tod.NewEngine(prov, zerolog.Nop(), opts...), prov
}

func join(t *testing.T, e *tod.Engine, players ...tod.PlayerID) {
	t.Helper()
	for _, p := range players {
		_, err := e.Join(context.Background(), guild, p)
		require.NoError(t, err)
	}
}

func players(t *testing.T, e *tod.Engine) []tod.PlayerID {
	t.Helper()
	entries, err := e.List(guild)
	require.NoError(t, err)
	out := make([]tod.PlayerID, 0, len(entries))
	for _, en := range entries {
		out = append(out, en.Player)
	}
	return out
}

func gameMaster(t *testing.T, e *tod.Engine) tod.PlayerID {
	t.Helper()
	entries, err := e.List(guild)
	require.NoError(t, err)
	for _, en := range entries {
		if en.IsGameMaster {
			return en.Player
		}
	}
	return ""
}

func TestJoinIsIdempotent(t *testing.T) {
	e, prov := newEngine(t)
	ctx := context.Background()

	res, err := e.Join(ctx, guild, "a")
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, tod.PlayerID("a"), res.GameMaster)

	_, err = e.Join(ctx, guild, "a")
	assert.ErrorIs(t, err, tod.ErrAlreadyPresent)
	assert.Equal(t, []tod.PlayerID{"a"}, players(t, e))
	prov.AssertNumberOfCalls(t, "ProvisionComms", 1)
	prov.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinRollsBackOnProvisioningFailure(t *testing.T) {
	prov := &mocks.Provisioner{}
	boom := errors.New("missing permissions")
	prov.On("ProvisionComms", mock.Anything, guild, tod.PlayerID("a")).Return(tod.CommsHandle{}, boom).Once()
	e := tod.NewEngine(prov, zerolog.Nop())

	_, err := e.Join(context.Background(), guild, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.ErrorIs(t, err, boom)

	assert.False(t, e.Status(guild).Active)
	assert.Equal(t, 0, e.Registry().Len())
	prov.AssertExpectations(t)
}

func TestJoinGrantFailureLeavesRosterUnchanged(t *testing.T) {
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, tod.PlayerID("a")).Return(comms, nil)
	prov.On("GrantAccess", mock.Anything, comms, tod.PlayerID("b")).Return(errors.New("rate limited")).Once()
	e := tod.NewEngine(prov, zerolog.Nop())

	join(t, e, "a")
	_, err := e.Join(context.Background(), guild, "b")
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Equal(t, []tod.PlayerID{"a"}, players(t, e))
}

func TestLeaveHandsOverGameMaster(t *testing.T) {
	e, prov := newEngine(t)
	join(t, e, "a", "b", "c")

	dep, err := e.Leave(context.Background(), guild, "a")
	require.NoError(t, err)
	assert.Equal(t, tod.PlayerID("b"), dep.NewGameMaster)
	assert.False(t, dep.Ended)
	assert.Equal(t, []tod.PlayerID{"b", "c"}, players(t, e))
	assert.Equal(t, tod.PlayerID("b"), gameMaster(t, e))
	prov.AssertCalled(t, "RevokeAccess", mock.Anything, comms, tod.PlayerID("a"))
}

func TestLeaveNonMember(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Leave(context.Background(), guild, "a")
	assert.ErrorIs(t, err, tod.ErrNotPresent)

	join(t, e, "a")
	_, err = e.Leave(context.Background(), guild, "b")
	assert.ErrorIs(t, err, tod.ErrNotPresent)
}

func TestLastLeaveEndsGame(t *testing.T) {
	e, prov := newEngine(t)
	join(t, e, "a")

	dep, err := e.Leave(context.Background(), guild, "a")
	require.NoError(t, err)
	assert.True(t, dep.Ended)
	assert.False(t, e.Status(guild).Active)
	assert.Equal(t, 0, e.Registry().Len())
	prov.AssertNumberOfCalls(t, "TeardownComms", 1)

	res, err := e.Join(context.Background(), guild, "b")
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, tod.PlayerID("b"), res.GameMaster)
}

func TestLeaveRevokeFailureRollsBack(t *testing.T) {
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, mock.Anything).Return(comms, nil)
	prov.On("GrantAccess", mock.Anything, comms, mock.Anything).Return(nil)
	prov.On("RevokeAccess", mock.Anything, comms, tod.PlayerID("a")).Return(errors.New("discord down"))
	e := tod.NewEngine(prov, zerolog.Nop())
	join(t, e, "a", "b")

	_, err := e.Leave(context.Background(), guild, "a")
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Equal(t, []tod.PlayerID{"a", "b"}, players(t, e))
	assert.Equal(t, tod.PlayerID("a"), gameMaster(t, e))
}

func TestRemoveRequiresGameMaster(t *testing.T) {
	e, prov := newEngine(t)
	join(t, e, "a", "b", "c")

	_, err := e.Remove(context.Background(), guild, "b", []tod.PlayerID{"c"}, false)
	assert.ErrorIs(t, err, tod.ErrNotGameMaster)
	_, err = e.Remove(context.Background(), guild, "b", nil, true)
	assert.ErrorIs(t, err, tod.ErrNotGameMaster)

	assert.Equal(t, []tod.PlayerID{"a", "b", "c"}, players(t, e))
	prov.AssertNotCalled(t, "RevokeAccess", mock.Anything, mock.Anything, mock.Anything)
	prov.AssertNotCalled(t, "TeardownComms", mock.Anything, mock.Anything)
}

func TestRemoveTargets(t *testing.T) {
	e, _ := newEngine(t)
	join(t, e, "a", "b", "c", "d")

	res, err := e.Remove(context.Background(), guild, "a", []tod.PlayerID{"c", "x", "c", "a"}, false)
	require.NoError(t, err)
	assert.Equal(t, []tod.PlayerID{"c", "a"}, res.Removed)
	assert.Equal(t, []tod.PlayerID{"x"}, res.NotFound)
	assert.Equal(t, tod.PlayerID("b"), res.NewGameMaster)
	assert.False(t, res.Ended)
	assert.Equal(t, []tod.PlayerID{"b", "d"}, players(t, e))
	assert.Equal(t, tod.PlayerID("b"), gameMaster(t, e))
}

func TestRemoveSelfWhenAlone(t *testing.T) {
	e, prov := newEngine(t)
	join(t, e, "a")

	res, err := e.Remove(context.Background(), guild, "a", []tod.PlayerID{"a"}, false)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.False(t, e.Status(guild).Active)
	prov.AssertNumberOfCalls(t, "TeardownComms", 1)
}

func TestRemoveAllTearsDownOnce(t *testing.T) {
	e, prov := newEngine(t)
	join(t, e, "a", "b", "c")

	res, err := e.Remove(context.Background(), guild, "a", nil, true)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.ElementsMatch(t, []tod.PlayerID{"a", "b", "c"}, res.Removed)

	entries, err := e.List(guild)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, e.Status(guild).Active)
	prov.AssertNumberOfCalls(t, "TeardownComms", 1)
	prov.AssertNumberOfCalls(t, "RevokeAccess", 3)
}

func TestRemoveAllTeardownFailureRestoresEverything(t *testing.T) {
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, mock.Anything).Return(comms, nil)
	prov.On("GrantAccess", mock.Anything, comms, mock.Anything).Return(nil)
	prov.On("RevokeAccess", mock.Anything, comms, mock.Anything).Return(nil)
	prov.On("TeardownComms", mock.Anything, comms).Return(errors.New("channel locked"))
	e := tod.NewEngine(prov, zerolog.Nop())
	join(t, e, "a", "b")

	_, err := e.Remove(context.Background(), guild, "a", nil, true)
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Equal(t, []tod.PlayerID{"a", "b"}, players(t, e))
	assert.Equal(t, tod.PlayerID("a"), gameMaster(t, e))
	// one grant when b joined, two compensating grants on rollback
	prov.AssertNumberOfCalls(t, "GrantAccess", 3)
}

func TestRemoveTargetsIsAllOrNothing(t *testing.T) {
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, mock.Anything).Return(comms, nil)
	prov.On("GrantAccess", mock.Anything, comms, mock.Anything).Return(nil)
	prov.On("RevokeAccess", mock.Anything, comms, tod.PlayerID("b")).Return(nil)
	prov.On("RevokeAccess", mock.Anything, comms, tod.PlayerID("c")).Return(errors.New("discord down"))
	e := tod.NewEngine(prov, zerolog.Nop())
	join(t, e, "a", "b", "c", "d")

	res, err := e.Remove(context.Background(), guild, "a", []tod.PlayerID{"b", "c"}, false)
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Empty(t, res.Removed)
	assert.Equal(t, []tod.PlayerID{"a", "b", "c", "d"}, players(t, e))
	assert.Equal(t, tod.PlayerID("a"), gameMaster(t, e))

	// b, c and d joining, then b re-granted after the failed revoke of c
	prov.AssertNumberOfCalls(t, "GrantAccess", 4)
	prov.AssertNumberOfCalls(t, "RevokeAccess", 2)
	prov.AssertNotCalled(t, "TeardownComms", mock.Anything, mock.Anything)
}

func TestRosterOutcomeOnFailure(t *testing.T) {
	ctx := context.Background()
	prov := &mocks.Provisioner{}
	prov.On("ProvisionComms", mock.Anything, guild, tod.PlayerID("a")).Return(tod.CommsHandle{}, errors.New("missing permissions")).Once()
	prov.On("ProvisionComms", mock.Anything, guild, tod.PlayerID("a")).Return(comms, nil)
	prov.On("GrantAccess", mock.Anything, comms, mock.Anything).Return(nil)
	prov.On("RevokeAccess", mock.Anything, comms, mock.Anything).Return(errors.New("discord down"))

	m := tod.NewRosterManager(prov, zerolog.Nop())
	s := tod.NewRegistry().GetOrCreate(guild).Session()

	outcome, err := m.Join(ctx, s, "a")
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Equal(t, tod.JoinFailed, outcome)
	assert.Equal(t, tod.Inactive, s.Lifecycle())

	outcome, err = m.Join(ctx, s, "a")
	require.NoError(t, err)
	assert.Equal(t, tod.Added, outcome)
	outcome, err = m.Join(ctx, s, "b")
	require.NoError(t, err)
	assert.Equal(t, tod.Added, outcome)

	left, _, err := m.Leave(ctx, s, "b")
	assert.ErrorIs(t, err, tod.ErrProvisioning)
	assert.Equal(t, tod.LeaveFailed, left)
	assert.True(t, s.Has("b"))
}

func TestRemoveWithoutGame(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Remove(context.Background(), guild, "a", nil, true)
	assert.ErrorIs(t, err, tod.ErrNoSession)
}

func TestSetRevengeRequiresGameMaster(t *testing.T) {
	e, _ := newEngine(t)
	join(t, e, "a", "b")

	_, err := e.SetRevenge(context.Background(), guild, "b", true)
	assert.ErrorIs(t, err, tod.ErrNotGameMaster)
	assert.False(t, e.Status(guild).Revenge)

	on, err := e.SetRevenge(context.Background(), guild, "a", true)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = e.ToggleRevenge(context.Background(), guild, "a")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSetRevengeHonorsCanceledContext(t *testing.T) {
	e, _ := newEngine(t)
	join(t, e, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.SetRevenge(ctx, guild, "a", true)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.ToggleRevenge(ctx, guild, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Status(guild).Revenge)
}

func TestStatusAndListOnInactiveGuild(t *testing.T) {
	e, _ := newEngine(t)

	st := e.Status(guild)
	assert.False(t, st.Active)
	entries, err := e.List(guild)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, e.Registry().Len(), "read-only operations must not create sessions")
}

func TestRollGating(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Roll(ctx, guild, "a", "")
	assert.ErrorIs(t, err, tod.ErrNoSession)

	join(t, e, "a", "b")
	_, err = e.Roll(ctx, guild, "a", "")
	assert.ErrorIs(t, err, tod.ErrInsufficientPlayers)

	_, err = e.SetRevenge(ctx, guild, "a", true)
	require.NoError(t, err)
	target, err := e.Roll(ctx, guild, "a", "")
	require.NoError(t, err)
	assert.Equal(t, tod.PlayerID("b"), target)

	_, err = e.Roll(ctx, guild, "z", "")
	assert.ErrorIs(t, err, tod.ErrNotPresent)
}

func TestRollChecksChannel(t *testing.T) {
	e, _ := newEngine(t)
	join(t, e, "a", "b", "c")

	_, err := e.Roll(context.Background(), guild, "a", "general")
	var wrong *tod.WrongChannelError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, comms.TextChannelID, wrong.ChannelID)

	_, err = e.Roll(context.Background(), guild, "a", comms.TextChannelID)
	assert.NoError(t, err)
}

func TestRollChecksPlayerRole(t *testing.T) {
	auth := &mocks.Authorizer{}
	auth.On("IsCallerAuthorized", mock.Anything, guild, tod.PlayerID("a"), tod.RolePlayer).Return(true, nil)
	auth.On("IsCallerAuthorized", mock.Anything, guild, tod.PlayerID("b"), tod.RolePlayer).Return(false, nil)
	e, _ := newEngine(t, tod.WithAuthorizer(auth))
	join(t, e, "a", "b", "c")

	_, err := e.Roll(context.Background(), guild, "b", "")
	assert.ErrorIs(t, err, tod.ErrNotPlayer)
	_, err = e.Roll(context.Background(), guild, "a", "")
	assert.NoError(t, err)
	auth.AssertExpectations(t)
}

func TestGameMasterInvariantUnderRandomOperations(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(42, 24))
	pool := []tod.PlayerID{"a", "b", "c", "d", "e"}

	for i := 0; i < 2000; i++ {
		p := pool[rng.IntN(len(pool))]
		switch rng.IntN(5) {
		case 0, 1:
			_, _ = e.Join(ctx, guild, p)
		case 2:
			_, _ = e.Leave(ctx, guild, p)
		case 3:
			_, _ = e.Remove(ctx, guild, gameMaster(t, e), []tod.PlayerID{p}, false)
		case 4:
			_, _ = e.Roll(ctx, guild, p, "")
		}

		entries, err := e.List(guild)
		require.NoError(t, err)
		gms := 0
		seen := map[tod.PlayerID]bool{}
		for _, en := range entries {
			require.False(t, seen[en.Player], "duplicate player %s", en.Player)
			seen[en.Player] = true
			if en.IsGameMaster {
				gms++
			}
		}
		if len(entries) > 0 {
			require.Equal(t, 1, gms)
			assert.True(t, e.Status(guild).Active)
		} else {
			require.Equal(t, 0, gms)
			assert.False(t, e.Status(guild).Active)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	e, prov := newEngine(t)
	ctx := context.Background()

	res, err := e.Join(ctx, guild, "A")
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, tod.PlayerID("A"), gameMaster(t, e))
	assert.Equal(t, []tod.PlayerID{"A"}, players(t, e))

	join(t, e, "B", "C")
	assert.Equal(t, []tod.PlayerID{"A", "B", "C"}, players(t, e))

	_, err = e.SetRevenge(ctx, guild, "B", true)
	assert.ErrorIs(t, err, tod.ErrNotGameMaster)
	assert.False(t, e.Status(guild).Revenge)

	first, err := e.Roll(ctx, guild, "B", "")
	require.NoError(t, err)
	assert.Contains(t, []tod.PlayerID{"A", "C"}, first)

	second, err := e.Roll(ctx, guild, "A", "")
	require.NoError(t, err)
	assert.NotEqual(t, tod.PlayerID("A"), second)
	assert.NotEqual(t, tod.PlayerID("B"), second, "B rolled last and must be excluded")
	assert.Equal(t, tod.PlayerID("C"), second)

	dep, err := e.Leave(ctx, guild, "A")
	require.NoError(t, err)
	assert.Equal(t, tod.PlayerID("B"), dep.NewGameMaster)
	assert.Equal(t, []tod.PlayerID{"B", "C"}, players(t, e))

	rm, err := e.Remove(ctx, guild, "B", nil, true)
	require.NoError(t, err)
	assert.True(t, rm.Ended)
	assert.Empty(t, players(t, e))
	prov.AssertNumberOfCalls(t, "TeardownComms", 1)
}
