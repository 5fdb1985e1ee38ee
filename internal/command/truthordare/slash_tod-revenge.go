package truthordare

import (
	"context"
	"strconv"
	"strings"

	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

const revengeUsageText = "Use `tod_revenge` to toggle, or `tod_revenge on|off`."

type RevengeCommand struct {
	meta
	engine *tod.Engine
}

func (c *RevengeCommand) Name() string { return "tod_revenge" }
func (c *RevengeCommand) Description() string {
	return "Toggle revenge mode, letting players roll each other back (Game Master only)"
}

func (c *RevengeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description(), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "enabled",
		Description: "Set explicitly instead of toggling",
	})
}

func (c *RevengeCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	requester := tod.PlayerID(req.UserID)
	var on bool
	if len(req.Args) == 0 {
		on, err = c.engine.ToggleRevenge(ctx, req.GuildID, requester)
	} else {
		want, ok := parseSwitch(req.Args[0])
		if !ok {
			return req.Reply(revengeUsageText)
		}
		on, err = c.engine.SetRevenge(ctx, req.GuildID, requester, want)
	}
	if err != nil {
		return fail(req, err)
	}

	if on {
		return req.Reply("Revenge mode is now __on__.")
	}
	return req.Reply("Revenge mode is now __off__.")
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "yes", "enable", "enabled":
		return true, true
	case "off", "no", "disable", "disabled":
		return false, true
	}
	v, err := strconv.ParseBool(s)
	return v, err == nil
}
