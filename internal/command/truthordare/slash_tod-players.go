package truthordare

import (
	"context"
	"strings"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

type PlayersCommand struct {
	meta
	engine *tod.Engine
}

func (c *PlayersCommand) Name() string        { return "tod_players" }
func (c *PlayersCommand) Description() string { return "Show who is playing Truth or Dare" }

func (c *PlayersCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *PlayersCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	entries, err := c.engine.List(req.GuildID)
	if err != nil {
		return fail(req, err)
	}
	if len(entries) == 0 {
		return req.Reply(noPlayersText)
	}

	var b strings.Builder
	b.WriteString("__Currently Playing__\n")
	for _, e := range entries {
		b.WriteString(">  " + mention(e.Player))
		if e.IsGameMaster {
			b.WriteString(" (Game Master)")
		}
		b.WriteString("\n")
	}
	return req.Reply(b.String())
}
