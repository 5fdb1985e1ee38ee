package middleware

import (
	"context"

	"tod-bot/internal/command"
	"tod-bot/pkg/cmd"
)

const guildOnlyText = "This command only works in a server."

// WithGuildOnly rejects invocations outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			req, err := command.RequestFrom(inv.Data)
			if err != nil {
				return err
			}
			if req.GuildID == "" {
				return req.Reply(guildOnlyText)
			}
			return c.Run(ctx, inv)
		})
	}
}
