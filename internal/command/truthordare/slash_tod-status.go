package truthordare

import (
	"context"
	"fmt"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

type StatusCommand struct {
	meta
	engine *tod.Engine
}

func (c *StatusCommand) Name() string        { return "tod_status" }
func (c *StatusCommand) Description() string { return "Check whether a Truth or Dare game is running" }

func (c *StatusCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *StatusCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}
	return req.Reply(statusText(c.engine.Status(req.GuildID)))
}

func statusText(st tod.Status) string {
	if !st.Active || st.Players == 0 {
		return noGameText
	}
	noun := "people"
	if st.Players == 1 {
		noun = "person"
	}
	return fmt.Sprintf("A Truth or Dare game is currently taking place with %d %s!", st.Players, noun)
}
