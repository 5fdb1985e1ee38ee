// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tod-bot/internal/command/truthordare"
	"tod-bot/internal/config"
	"tod-bot/internal/discord"
	"tod-bot/internal/logging"
	"tod-bot/internal/middleware"
	"tod-bot/internal/tod"
	v "tod-bot/internal/version"
	"tod-bot/pkg/cmd"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: cfg.LogVerbose,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().
		Str("app", v.AppName).
		Str("version", v.Version).
		Str("commit", v.Commit).
		Bool("dotenv", dotenv).
		Msg("Starting bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := discord.NewBot(cfg, cmd.DefaultRegistry, log)
	if err != nil {
		return err
	}

	prov := discord.NewProvisioner(bot.Session(), discord.Names{
		PlayerRole:   cfg.PlayerRole,
		TextChannel:  cfg.TextChannel,
		VoiceChannel: cfg.VoiceChannel,
	}, bot.SelfID, cfg.DiscordRPS, log.With().Str("component", "provisioner").Logger()).
		WithState(bot.Session().State)

	engine := tod.NewEngine(prov, log.With().Str("component", "engine").Logger(), tod.WithAuthorizer(prov))

	truthordare.Register(cmd.DefaultRegistry, engine,
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(log),
	)

	if err := bot.Run(ctx); err != nil {
		return err
	}

	log.Info().Int("active_games", engine.Registry().Len()).Msg("Discord bot exited cleanly")
	return nil
}
