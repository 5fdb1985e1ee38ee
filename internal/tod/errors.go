package tod

import (
	"errors"
	"fmt"
)

var (
	// ErrNotGameMaster is returned when a Game Master only operation is invoked by someone else.
	ErrNotGameMaster = errors.New("requester is not the game master")
	// ErrAlreadyPresent is returned by Join for a player already in the roster.
	ErrAlreadyPresent = errors.New("player already joined")
	// ErrNotPresent is returned when the requester or target is not in the roster.
	ErrNotPresent = errors.New("player is not in the game")
	// ErrInsufficientPlayers is returned by Roll below the mode-dependent minimum.
	ErrInsufficientPlayers = errors.New("not enough players")
	// ErrNoSession is returned when a guild has no active game.
	ErrNoSession = errors.New("no game in progress")
	// ErrNotPlayer is returned when the caller lacks the platform player role.
	ErrNotPlayer = errors.New("caller does not hold the player role")
	// ErrProvisioning is the class of every ProvisioningError.
	ErrProvisioning = errors.New("provisioning failed")
)

// ProvisioningError reports a failed ChannelProvisioner call. The triggering
// mutation has been rolled back when it is returned.
type ProvisioningError struct {
	Op  string
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() []error { return []error{ErrProvisioning, e.Err} }

// WrongChannelError is returned by Roll when issued outside the game's text channel.
type WrongChannelError struct {
	ChannelID string
}

func (e *WrongChannelError) Error() string {
	return fmt.Sprintf("roll must be issued in channel %s", e.ChannelID)
}

// InvariantError signals a broken session invariant. It is a bug, not a user error.
type InvariantError struct {
	GuildID string
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("session invariant violated in guild %s: %s", e.GuildID, e.Reason)
}

func provisioningErr(op string, err error) error {
	return &ProvisioningError{Op: op, Err: err}
}
