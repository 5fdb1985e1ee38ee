package truthordare

import (
	"context"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

type LeaveCommand struct {
	meta
	engine *tod.Engine
}

func (c *LeaveCommand) Name() string        { return "tod_leave" }
func (c *LeaveCommand) Description() string { return "Leave the Truth or Dare game" }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *LeaveCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	if err := req.Defer(); err != nil {
		return err
	}

	p := tod.PlayerID(req.UserID)
	dep, err := c.engine.Leave(ctx, req.GuildID, p)
	if err != nil {
		return fail(req, err)
	}

	msg := mention(p) + " has been removed from the game!"
	msg += departureText(dep)
	return req.Reply(msg)
}

func departureText(dep tod.Departure) string {
	switch {
	case dep.Ended:
		return "\n" + gameOverText
	case dep.NewGameMaster != "":
		return "\n" + mention(dep.NewGameMaster) + " is the new Game Master."
	default:
		return ""
	}
}
