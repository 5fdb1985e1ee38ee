package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandPrefix         string   `env:"COMMAND_PREFIX" envDefault:"$"`

	PlayerRole   string `env:"TOD_PLAYER_ROLE" envDefault:"tod_Player"`
	TextChannel  string `env:"TOD_TEXT_CHANNEL" envDefault:"truth-or-dare"`
	VoiceChannel string `env:"TOD_VOICE_CHANNEL" envDefault:"secret-voice"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile    string `env:"LOG_FILE" envDefault:"bot.log"`
	LogVerbose bool   `env:"LOG_VERBOSE" envDefault:"false"`

	// DiscordRPS is the starting request rate for channel and role management.
	DiscordRPS float64 `env:"DISCORD_RPS" envDefault:"5"`
}

// Load reads a .env file when present, then the process environment.
// The second return value reports whether a .env file was loaded.
func Load() (*Config, bool, error) {
	dotenv := true
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("load .env: %w", err)
		}
		dotenv = false
	}

	cfg, err := Parse(env.Options{})
	return cfg, dotenv, err
}

// Parse builds a Config from opts.Environment, or from the process
// environment when it is nil.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DiscordToken == "" {
		return nil, ErrMissingToken
	}
	return &cfg, nil
}
