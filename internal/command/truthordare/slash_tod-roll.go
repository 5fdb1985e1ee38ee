package truthordare

import (
	"context"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

type RollCommand struct {
	meta
	engine *tod.Engine
}

func (c *RollCommand) Name() string        { return "tod_roll" }
func (c *RollCommand) Description() string { return "Roll for someone to ask: \"Truth or Dare?\"" }

func (c *RollCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *RollCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	if err := req.Defer(); err != nil {
		return err
	}

	target, err := c.engine.Roll(ctx, req.GuildID, tod.PlayerID(req.UserID), req.ChannelID)
	if err != nil {
		return fail(req, err)
	}
	return req.Reply(mention(target) + ", truth or dare?")
}
