package truthordare

import (
	"context"
	"errors"
	"strings"

	"tod-bot/internal/command"
	"tod-bot/internal/tod"

	"github.com/bwmarrin/discordgo"
)

const removeUsageText = "Tell me who to remove: `tod_remove @player ...` or `tod_remove all`."

type RemoveCommand struct {
	meta
	engine *tod.Engine
}

func (c *RemoveCommand) Name() string { return "tod_remove" }
func (c *RemoveCommand) Description() string {
	return "Remove players from the game (Game Master only)"
}

func (c *RemoveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description(), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "targets",
		Description: "Players to remove as mentions, or `all` to end the game",
		Required:    true,
	})
}

func (c *RemoveCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}

	targets, unknown, all := parseTargets(req.Args)
	if !all && len(targets) == 0 && len(unknown) == 0 {
		return req.Reply(removeUsageText)
	}

	if err := req.Defer(); err != nil {
		return err
	}

	res, err := c.engine.Remove(ctx, req.GuildID, tod.PlayerID(req.UserID), targets, all)
	if errors.Is(err, tod.ErrNoSession) {
		return req.Reply(noPlayersText)
	}
	if err != nil {
		return fail(req, err)
	}

	var lines []string
	if !all {
		for _, p := range res.Removed {
			lines = append(lines, mention(p)+" has been removed from the game!")
		}
		for _, p := range res.NotFound {
			lines = append(lines, mention(p)+" is not in the game!")
		}
		for _, tok := range unknown {
			lines = append(lines, "`"+tok+"` is not in the game!")
		}
	}
	if dep := strings.TrimPrefix(departureText(res.Departure), "\n"); dep != "" {
		lines = append(lines, dep)
	}
	return req.Reply(strings.Join(lines, "\n"))
}

// parseTargets splits arguments into mentioned players and unrecognised
// tokens. A bare "all" selects everybody.
func parseTargets(args []string) (targets []tod.PlayerID, unknown []string, all bool) {
	for _, a := range args {
		if strings.EqualFold(a, "all") {
			return nil, nil, true
		}
		if id, ok := command.ParseUserMention(a); ok {
			targets = append(targets, tod.PlayerID(id))
			continue
		}
		unknown = append(unknown, a)
	}
	return targets, unknown, false
}
