// Package truthordare exposes the Truth or Dare engine as Discord commands.
// Every command works both as a slash command and as a prefixed message.
package truthordare

import (
	"context"
	"errors"
	"fmt"

	"tod-bot/internal/command"
	"tod-bot/internal/tod"
	"tod-bot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const (
	group    = "tod"
	category = "🎲 Gameplay"
)

// Commands returns every game command bound to engine.
func Commands(engine *tod.Engine) []command.DiscordCommand {
	return []command.DiscordCommand{
		&JoinCommand{engine: engine},
		&LeaveCommand{engine: engine},
		&RemoveCommand{engine: engine},
		&PlayersCommand{engine: engine},
		&RevengeCommand{engine: engine},
		&StatusCommand{engine: engine},
		&RollCommand{engine: engine},
	}
}

// Register adds the game commands and tod_help to r, each wrapped in mws.
func Register(r *cmd.Registry, engine *tod.Engine, mws ...cmd.Middleware) {
	for _, c := range Commands(engine) {
		command.RegisterCommand(r, c, mws...)
	}
	command.RegisterCommand(r, &HelpCommand{registry: r}, mws...)
}

type meta struct{}

func (meta) Group() string    { return group }
func (meta) Category() string { return category }

func definition(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Type:        discordgo.ChatApplicationCommand,
		Options:     opts,
	}
}

func mention(p tod.PlayerID) string { return command.UserMention(string(p)) }

// fail replies with the user-facing text for err. Errors the user can act on
// are consumed; anything else is returned so it gets logged.
func fail(req *command.Request, err error) error {
	text, known := errorText(req, err)
	if rerr := req.Reply(text); rerr != nil {
		return errors.Join(err, rerr)
	}
	if known {
		return nil
	}
	return err
}

const (
	internalErrorText = "Something went wrong on my side. Please try again later."
	provisioningText  = "Something is wrong...\nMake sure I have permission to create channels and manage roles."
)

func errorText(req *command.Request, err error) (string, bool) {
	var wrong *tod.WrongChannelError
	var invariant *tod.InvariantError
	var prov *tod.ProvisioningError
	switch {
	case errors.As(err, &invariant):
		return internalErrorText, false
	case errors.As(err, &wrong):
		return fmt.Sprintf("Roll in <#%s>!", wrong.ChannelID), true
	case errors.Is(err, tod.ErrNotGameMaster):
		return "You need to be the Game Master to use this command.", true
	case errors.As(err, &prov):
		return provisioningText + "\nCause: " + prov.Error(), false
	case errors.Is(err, tod.ErrAlreadyPresent):
		return command.UserMention(req.UserID) + " has already joined!", true
	case errors.Is(err, tod.ErrNotPresent), errors.Is(err, tod.ErrNotPlayer):
		return command.UserMention(req.UserID) + ", you're not playing!", true
	case errors.Is(err, tod.ErrInsufficientPlayers):
		return "Not enough players!", true
	case errors.Is(err, tod.ErrNoSession):
		return noGameText, true
	default:
		return internalErrorText, false
	}
}

const (
	noGameText    = "No Truth or Dare game is currently taking place."
	noPlayersText = "There are currently no users playing."
	gameOverText  = "The game is over!"
)

func request(ctx context.Context, data any) (*command.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return command.RequestFrom(data)
}
