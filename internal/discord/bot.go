package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"tod-bot/internal/command"
	"tod-bot/internal/config"
	"tod-bot/pkg/cmd"
	"tod-bot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const commandTimeout = 30 * time.Second

// Bot connects the command registry to the Discord gateway.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	registry *cmd.Registry
	log      zerolog.Logger

	hashes         *hashCache
	commandLimiter *retrylimit.AdaptiveLimiter
	ctx            context.Context
}

// NewBot creates the Discord session without connecting.
func NewBot(cfg *config.Config, registry *cmd.Registry, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	rps := cfg.DiscordRPS
	if rps <= 0 {
		rps = 5
	}

	return &Bot{
		dg:             dg,
		cfg:            cfg,
		registry:       registry,
		log:            log,
		hashes:         &hashCache{dir: "data/commands"},
		commandLimiter: retrylimit.NewAdaptiveLimiter(rate.Limit(rps), 1, rate.Limit(rps*4), 1, 0.5),
		ctx:            context.Background(),
	}, nil
}

// Session returns the underlying discordgo session for REST callers.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// SelfID returns the bot's user id once the gateway is ready.
func (b *Bot) SelfID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// Run connects and serves events until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing gateway")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer b.recoverPanic("ready")
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

// onGuildCreate fires for every guild at startup and when the bot is added.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	defer b.recoverPanic("guild_create")
	log := b.log.With().Str("guild_id", g.ID).Str("guild", g.Name).Logger()

	if b.isGuildBlacklisted(g.ID) {
		log.Info().Msg("Leaving blacklisted guild")
		if err := s.GuildLeave(g.ID); err != nil {
			log.Error().Err(err).Msg("Failed to leave guild")
		}
		return
	}

	if !b.cfg.InitSlashCommands {
		log.Debug().Msg("Slash command sync disabled")
		return
	}
	go func() {
		defer b.recoverPanic("command_sync")
		if err := b.syncCommands(b.ctx, s, s.State.User.ID, g.ID); err != nil {
			log.Error().Err(err).Msg("Failed to sync slash commands")
		}
	}()
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer b.recoverPanic("interaction")
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	c := b.registry.Get(name)
	if c == nil {
		b.log.Warn().Str("command", name).Msg("Unknown command")
		return
	}
	b.dispatch(c, nil, &command.SlashInteractionContext{
		Session:   s,
		Event:     i,
		Responder: DefaultResponder,
	})
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverPanic("message")
	if m.Author == nil || m.Author.Bot {
		return
	}

	name, args, ok := parsePrefixed(m.Content, b.cfg.CommandPrefix)
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}
	b.dispatch(c, args, &command.MessageContext{
		Session:   s,
		Event:     m,
		Args:      args,
		Responder: DefaultResponder,
	})
}

func (b *Bot) dispatch(c cmd.Command, args []string, data any) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()
	if err := c.Run(ctx, &cmd.Invocation{Args: args, Data: data}); err != nil {
		b.log.Debug().Err(err).Str("command", c.Name()).Msg("Command returned an error")
	}
}

func (b *Bot) recoverPanic(handler string) {
	if r := recover(); r != nil {
		b.log.Error().
			Str("handler", handler).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("Recovered from panic in event handler")
	}
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

// parsePrefixed splits "$tod_remove @a @b" into the command name and its
// arguments.
func parsePrefixed(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
