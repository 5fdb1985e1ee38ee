package truthordare

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tod-bot/internal/command"
	"tod-bot/internal/version"
	"tod-bot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const infoCategory = "🕯️ Information"

var categoryWeights = map[string]int{
	infoCategory: 0,
	category:     20,
}

// HelpCommand lists the registered commands by category.
type HelpCommand struct {
	registry *cmd.Registry
}

func (c *HelpCommand) Name() string        { return "tod_help" }
func (c *HelpCommand) Description() string { return "Get a list of Truth or Dare commands" }
func (c *HelpCommand) Group() string       { return group }
func (c *HelpCommand) Category() string    { return infoCategory }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return definition(c.Name(), c.Description())
}

func (c *HelpCommand) Run(ctx context.Context, data any) error {
	req, err := request(ctx, data)
	if err != nil {
		return err
	}
	return req.Reply(helpText(c.registry))
}

func helpText(r *cmd.Registry) string {
	byCategory := make(map[string][]cmd.Command)
	for _, c := range r.GetAll() {
		cat := "Other"
		if m, ok := cmd.Root(c).(command.DiscordMeta); ok {
			cat = m.Category()
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, oki := categoryWeights[cats[i]]
		wj, okj := categoryWeights[cats[j]]
		switch {
		case oki && okj && wi != wj:
			return wi < wj
		case oki != okj:
			return oki
		default:
			return cats[i] < cats[j]
		}
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s Help**\n", version.AppName)
	for _, cat := range cats {
		fmt.Fprintf(&sb, "\n__%s__\n", cat)
		for _, c := range byCategory[cat] {
			fmt.Fprintf(&sb, "`/%s` %s\n", c.Name(), c.Description())
		}
	}
	return sb.String()
}
