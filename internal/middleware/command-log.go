package middleware

import (
	"context"
	"time"

	"tod-bot/internal/command"
	"tod-bot/pkg/cmd"

	"github.com/rs/zerolog"
)

// WithCommandLogger logs every execution with its outcome and duration.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := log.Info()
			if err != nil {
				ev = log.Error().Err(err)
			}
			ev = ev.Str("command", c.Name()).Dur("took", time.Since(start))
			if req, rerr := command.RequestFrom(inv.Data); rerr == nil {
				ev = ev.Str("guild_id", req.GuildID).
					Str("channel_id", req.ChannelID).
					Str("user_id", req.UserID)
			}
			ev.Msg("Command executed")
			return err
		})
	}
}
