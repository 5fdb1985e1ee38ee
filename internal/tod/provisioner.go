package tod

import "context"

// CommsHandle references the ephemeral channels and role of one game.
type CommsHandle struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	RoleID         string
}

// Provisioner creates and removes the game's communication spaces on the
// platform. Calls are made while the guild lock is held.
type Provisioner interface {
	ProvisionComms(ctx context.Context, guildID string, initial PlayerID) (CommsHandle, error)
	GrantAccess(ctx context.Context, h CommsHandle, p PlayerID) error
	RevokeAccess(ctx context.Context, h CommsHandle, p PlayerID) error
	TeardownComms(ctx context.Context, h CommsHandle) error
}

// Role names a platform-level prerequisite.
type Role string

// RolePlayer is held by everybody currently in a game.
const RolePlayer Role = "player"

// Authorizer answers platform-level permission questions, distinct from the
// session's own Game Master check.
type Authorizer interface {
	IsCallerAuthorized(ctx context.Context, guildID string, requester PlayerID, role Role) (bool, error)
}
