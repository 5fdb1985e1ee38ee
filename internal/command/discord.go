package command

import (
	"context"

	"tod-bot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// Discord-specific contexts (what the runtime passes when executing).

type SlashInteractionContext struct {
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	Responder Responder
}

type MessageContext struct {
	Session   *discordgo.Session
	Event     *discordgo.MessageCreate
	Args      []string
	Responder Responder
}

// Responder sends text back to Discord. The discord package implements it so
// commands never import it directly.
type Responder interface {
	// DeferText acknowledges an interaction whose answer comes later via EditText.
	DeferText(s *discordgo.Session, i *discordgo.InteractionCreate) error
	EditText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error
	RespondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error
	FollowupText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error
	MessageText(s *discordgo.Session, channelID, content string) error
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// DiscordMeta lets middleware read Group/Category without depending on the
// concrete command type.
type DiscordMeta interface {
	Group() string
	Category() string
}

// DiscordCommand is what individual Discord commands implement. data is one
// of the contexts above or a *Request.
type DiscordCommand interface {
	Name() string
	Description() string
	Group() string
	Category() string
	Run(ctx context.Context, data any) error
}

// DiscordAdapter adapts a DiscordCommand to cmd.Command so it can live in the
// universal registry. It exposes the inner slash definition and metadata.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Group() string       { return a.Cmd.Group() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	return a.Cmd.Run(ctx, inv.Data)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// RegisterCommand registers discordCmd with r after applying middlewares.
func RegisterCommand(r *cmd.Registry, discordCmd DiscordCommand, mws ...cmd.Middleware) {
	r.Register(cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...))
}
