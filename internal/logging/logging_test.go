package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "bot.log")

	log, closer, err := New(Options{Level: "info", File: path, Console: &console})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("guild_id", "g1").Msg("Game started")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Game started")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"guild_id":"g1"`)
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var console bytes.Buffer
	log, closer, err := New(Options{Level: "error", Verbose: true, Console: &console})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("visible")
	assert.Contains(t, console.String(), "visible")
}
