package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tod-bot/internal/command"
	"tod-bot/pkg/cmd"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	runs int
	err  error
}

func (p *probe) Name() string        { return "tod_status" }
func (p *probe) Description() string { return "probe" }
func (p *probe) Run(context.Context, *cmd.Invocation) error {
	p.runs++
	return p.err
}

func request(guildID string, replies *[]string) *command.Request {
	return command.NewRequest(guildID, "c1", "u1", nil, func(s string) error {
		*replies = append(*replies, s)
		return nil
	})
}

func TestGuildOnlyBlocksDirectMessages(t *testing.T) {
	p := &probe{}
	c := cmd.Apply(p, WithGuildOnly())

	var replies []string
	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: request("", &replies)}))
	assert.Zero(t, p.runs)
	assert.Equal(t, []string{guildOnlyText}, replies)

	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: request("g1", &replies)}))
	assert.Equal(t, 1, p.runs)
}

func TestGuildOnlyRejectsUnknownPayload(t *testing.T) {
	c := cmd.Apply(&probe{}, WithGuildOnly())
	err := c.Run(context.Background(), &cmd.Invocation{Data: 42})
	assert.ErrorIs(t, err, command.ErrUnsupportedContext)
}

func TestCommandLoggerRecordsOutcome(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	boom := errors.New("boom")
	c := cmd.Apply(&probe{err: boom}, WithCommandLogger(log))

	var replies []string
	err := c.Run(context.Background(), &cmd.Invocation{Data: request("g1", &replies)})
	assert.ErrorIs(t, err, boom)

	out := buf.String()
	assert.Contains(t, out, `"command":"tod_status"`)
	assert.Contains(t, out, `"guild_id":"g1"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"boom"`)
}
