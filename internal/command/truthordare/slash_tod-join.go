package truthordare

import (
	"context"
	"strings"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

type JoinCommand struct {
	meta
	engine *tod.Engine
}

func (c *JoinCommand) Name() string        { return "tod_join" }
func (c *JoinCommand) Description() string { return "Join a game of Truth or Dare" }

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *JoinCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	if err := req.Defer(); err != nil {
		return err
	}

	p := tod.PlayerID(req.UserID)
	res, err := c.engine.Join(ctx, req.GuildID, p)
	if err != nil {
		return fail(req, err)
	}

	var b strings.Builder
	b.WriteString(mention(p) + " has been added to the game!")
	if res.Started {
		b.WriteString("\n" + mention(res.GameMaster) + " is the Game Master.")
		if res.Comms.TextChannelID != "" {
			b.WriteString(" The game is on in <#" + res.Comms.TextChannelID + ">.")
		}
	}
	return req.Reply(b.String())
}
