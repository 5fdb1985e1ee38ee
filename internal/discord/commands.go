package discord

import (
	"context"
	"fmt"

	"tod-bot/internal/command"
	"tod-bot/pkg/cmd"
	"tod-bot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
)

// CommandAPI is the subset of *discordgo.Session used to sync slash commands.
type CommandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, c *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// syncCommands makes the guild's slash commands match the registry: obsolete
// ones are deleted, new or changed ones are created.
func (b *Bot) syncCommands(ctx context.Context, api CommandAPI, appID, guildID string) error {
	remote, err := api.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	local := commandDefinitions(b.registry)
	wanted := make(map[string]string, len(local))
	for _, d := range local {
		wanted[d.Name] = hashCommand(d)
	}

	cached := b.hashes.load(guildID)
	registered := make(map[string]bool, len(remote))
	log := b.log.With().Str("guild_id", guildID).Logger()

	for _, rc := range remote {
		if _, ok := wanted[rc.Name]; ok {
			registered[rc.Name] = true
			continue
		}
		log.Info().Str("command", rc.Name).Msg("Deleting obsolete command")
		if err := api.ApplicationCommandDelete(appID, guildID, rc.ID, discordgo.WithContext(ctx)); err != nil {
			log.Error().Err(err).Str("command", rc.Name).Msg("Failed to delete command")
			continue
		}
		delete(cached, rc.Name)
	}

	for _, d := range local {
		h := wanted[d.Name]
		if registered[d.Name] && cached[d.Name] == h {
			continue
		}
		err := retrylimit.WithRetry(ctx, func() error {
			_, err := api.ApplicationCommandCreate(appID, guildID, d, discordgo.WithContext(ctx))
			return classify(err)
		}, b.commandLimiter)
		if err != nil {
			log.Error().Err(err).Str("command", d.Name).Msg("Failed to register command")
			continue
		}
		cached[d.Name] = h
		log.Debug().Str("command", d.Name).Msg("Command registered")
	}

	if err := b.hashes.save(guildID, cached); err != nil {
		log.Warn().Err(err).Msg("Failed to save command hashes")
	}
	return nil
}

// commandDefinitions returns the slash definitions of every registered
// command, looking through middleware wrappers.
func commandDefinitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.GetAll() {
		slash, ok := cmd.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		def := slash.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
